package messenger

import "context"

type Sender struct {
	ID        int64
	IsBot     bool
	FirstName string
	Username  string
}

// StartCommand is a "/start [payload]" message.
type StartCommand struct {
	ChatID    int64
	Private   bool
	MessageID int
	From      Sender
	Payload   string
}

// Callback is an inline button press. MessageID is 0 when the originating
// message is no longer accessible.
type Callback struct {
	ID        string
	From      Sender
	ChatID    int64
	MessageID int
	Data      string
}

// Dispatcher receives decoded updates. Implementations must not block for
// long; every update already runs in its own goroutine.
type Dispatcher interface {
	HandleStart(ctx context.Context, cmd StartCommand)
	HandleCallback(ctx context.Context, cb Callback)
}

type ctxKey string

const updateIDKey ctxKey = "updateID"

// WithUpdateID tags ctx with a correlation id for one update.
func WithUpdateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, updateIDKey, id)
}

// UpdateID returns the correlation id set by WithUpdateID, or "".
func UpdateID(ctx context.Context) string {
	id, _ := ctx.Value(updateIDKey).(string)
	return id
}
