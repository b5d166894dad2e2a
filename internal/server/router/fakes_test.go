package router

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/services"
)

type sent struct {
	ChatID int64
	Text   string
	Opts   *messenger.MessageOptions
}

type answer struct {
	ID    string
	Text  string
	Alert bool
}

type fakeClient struct {
	messenger.Client

	mu        sync.Mutex
	sent      []sent
	answers   []answer
	edits     []sent
	deleted   []int
	copies    int
	sendErr   error
	editErr   error
	deleteErr error
	members   map[int64]messenger.MemberStatus
}

func (f *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, opts *messenger.MessageOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{ChatID: chatID, Text: text, Opts: opts})
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	return len(f.sent), nil
}

func (f *fakeClient) CopyMessage(ctx context.Context, to, from int64, messageID int, opts *messenger.MessageOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies++
	return 900 + f.copies, nil
}

func (f *fakeClient) GetChatMember(ctx context.Context, chatID, userID int64) (messenger.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.members[userID]; ok {
		return s, nil
	}
	return messenger.StatusLeft, nil
}

func (f *fakeClient) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	return "https://t.me/+join", nil
}

func (f *fakeClient) DeleteMessages(ctx context.Context, chatID int64, ids ...int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeClient) AnswerCallback(ctx context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{ID: id, Text: text, Alert: alert})
	return nil
}

func (f *fakeClient) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *messenger.MessageOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, sent{ChatID: chatID, Text: text, Opts: opts})
	return nil
}

func (f *fakeClient) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		out = append(out, s.Text)
	}
	return out
}

func (f *fakeClient) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeRegistrar struct {
	ids []int64
	err error
}

func (f *fakeRegistrar) Register(ctx context.Context, userID int64) (bool, error) {
	f.ids = append(f.ids, userID)
	return len(f.ids) == 1, f.err
}

type claim struct {
	owner, requester int64
	file             string
}

type fakeVerification struct {
	claims []claim
	err    error
}

func (f *fakeVerification) Claim(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) error {
	if f.err != nil {
		return f.err
	}
	f.claims = append(f.claims, claim{ownerID, requesterID, fileUniqueID})
	return nil
}

func (f *fakeVerification) TTL() time.Duration { return 24 * time.Hour }

type fakeGate struct {
	decisions []services.GateDecision
	err       error
	reqs      []models.DeepLinkRequest
	panicMsg  string
}

func (f *fakeGate) Evaluate(ctx context.Context, req models.DeepLinkRequest, requesterID int64) (services.GateDecision, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return services.GateDecision{}, f.err
	}
	d := f.decisions[0]
	if len(f.decisions) > 1 {
		f.decisions = f.decisions[1:]
	}
	return d, nil
}

type delivery struct {
	requester, owner int64
	file             string
}

type fakeDelivery struct {
	calls []delivery
}

func (f *fakeDelivery) Deliver(ctx context.Context, requesterID, ownerID int64, fileUniqueID string) services.Outcome {
	f.calls = append(f.calls, delivery{requesterID, ownerID, fileUniqueID})
	return services.OutcomeDelivered
}

type fakeMenu struct {
	text string
	err  error
}

func (f *fakeMenu) Render(ctx context.Context, userID int64) (string, messenger.Keyboard, error) {
	return f.text, nil, f.err
}
