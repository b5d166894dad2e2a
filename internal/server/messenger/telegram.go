package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
)

// Telegram implements Client over the Bot API and runs the long-polling
// update loop.
type Telegram struct {
	bot    *bot.Bot
	logger logging.Logger
}

// NewTelegram creates the API client. Extra options are appended after the
// defaults (tests use bot.WithServerURL and bot.WithSkipGetMe).
func NewTelegram(token string, logger logging.Logger, opts ...bot.Option) (*Telegram, error) {
	t := &Telegram{logger: logger.With("module", "telegram")}

	base := []bot.Option{
		bot.WithMiddlewares(t.correlate),
		bot.WithDefaultHandler(t.ignore),
		bot.WithErrorsHandler(t.onPollError),
	}

	b, err := bot.New(token, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	t.bot = b

	return t, nil
}

// Run registers d for start commands and callbacks and polls for updates
// until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context, d Dispatcher) {
	t.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix,
		func(ctx context.Context, _ *bot.Bot, update *models.Update) {
			cmd, ok := startCommand(update.Message)
			if !ok {
				return
			}
			metrics.UpdatesTotal.WithLabelValues("start").Inc()
			d.HandleStart(ctx, cmd)
		})

	t.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix,
		func(ctx context.Context, _ *bot.Bot, update *models.Update) {
			metrics.UpdatesTotal.WithLabelValues("callback").Inc()
			d.HandleCallback(ctx, callback(update.CallbackQuery))
		})

	t.logger.Info(ctx, "Starting update polling")
	t.bot.Start(ctx)
	t.logger.Info(ctx, "Update polling stopped")
}

// correlate tags every update with a fresh correlation id.
func (t *Telegram) correlate(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctx = WithUpdateID(ctx, uuid.NewString())
		t.logger.Debug(ctx, "update received", "update_id", update.ID, "correlation_id", UpdateID(ctx))
		next(ctx, b, update)
	}
}

func (t *Telegram) ignore(ctx context.Context, _ *bot.Bot, _ *models.Update) {
	metrics.UpdatesTotal.WithLabelValues("other").Inc()
}

func (t *Telegram) onPollError(err error) {
	t.logger.Warn(context.Background(), "polling error", "error", err)
}

// startCommand extracts "/start[@bot] [payload]". Other commands sharing
// the prefix ("/started") are rejected.
func startCommand(m *models.Message) (StartCommand, bool) {
	if m == nil || m.From == nil {
		return StartCommand{}, false
	}

	cmd, payload, _ := strings.Cut(strings.TrimSpace(m.Text), " ")
	name, _, _ := strings.Cut(cmd, "@")
	if name != "/start" {
		return StartCommand{}, false
	}

	return StartCommand{
		ChatID:    m.Chat.ID,
		Private:   m.Chat.Type == models.ChatTypePrivate,
		MessageID: m.ID,
		From:      sender(*m.From),
		Payload:   strings.TrimSpace(payload),
	}, true
}

func callback(q *models.CallbackQuery) Callback {
	cb := Callback{ID: q.ID, From: sender(q.From), Data: q.Data}

	switch {
	case q.Message.Message != nil:
		cb.ChatID = q.Message.Message.Chat.ID
		cb.MessageID = q.Message.Message.ID
	case q.Message.InaccessibleMessage != nil:
		cb.ChatID = q.Message.InaccessibleMessage.Chat.ID
	}

	return cb
}

func sender(u models.User) Sender {
	return Sender{ID: u.ID, IsBot: u.IsBot, FirstName: u.FirstName, Username: u.Username}
}

func (t *Telegram) Me(ctx context.Context) (BotUser, error) {
	u, err := t.bot.GetMe(ctx)
	if err != nil {
		return BotUser{}, classify(err)
	}
	return BotUser{ID: u.ID, Username: u.Username}, nil
}

func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, opts *MessageOptions) (int, error) {
	p := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if opts != nil {
		p.ParseMode = models.ParseMode(opts.ParseMode)
		p.ReplyMarkup = markup(opts.Keyboard)
		if opts.DisablePreview {
			p.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
		}
	}

	m, err := t.bot.SendMessage(ctx, p)
	if err != nil {
		return 0, classify(err)
	}
	return m.ID, nil
}

func (t *Telegram) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, opts *MessageOptions) (int, error) {
	p := &bot.CopyMessageParams{ChatID: toChatID, FromChatID: fromChatID, MessageID: messageID}
	if opts != nil {
		p.Caption = opts.Caption
		p.ParseMode = models.ParseMode(opts.ParseMode)
		p.ReplyMarkup = markup(opts.Keyboard)
	}

	id, err := t.bot.CopyMessage(ctx, p)
	if err != nil {
		return 0, classify(err)
	}
	return id.ID, nil
}

func (t *Telegram) GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error) {
	m, err := t.bot.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		// users that never interacted with the chat are reported as unknown
		if errors.Is(err, bot.ErrorBadRequest) && containsAny(strings.ToLower(err.Error()), unknownUserMarkers) {
			return StatusLeft, nil
		}
		return StatusUnknown, classify(err)
	}

	switch m.Type {
	case models.ChatMemberTypeOwner:
		return StatusCreator, nil
	case models.ChatMemberTypeAdministrator:
		return StatusAdministrator, nil
	case models.ChatMemberTypeMember:
		return StatusMember, nil
	case models.ChatMemberTypeRestricted:
		if m.Restricted != nil && !m.Restricted.IsMember {
			return StatusLeft, nil
		}
		return StatusRestricted, nil
	case models.ChatMemberTypeLeft:
		return StatusLeft, nil
	case models.ChatMemberTypeBanned:
		return StatusBanned, nil
	default:
		return StatusUnknown, nil
	}
}

func (t *Telegram) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	link, err := t.bot.ExportChatInviteLink(ctx, &bot.ExportChatInviteLinkParams{ChatID: chatID})
	if err != nil {
		return "", classify(err)
	}
	return link, nil
}

func (t *Telegram) DeleteMessages(ctx context.Context, chatID int64, messageIDs ...int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if _, err := t.bot.DeleteMessages(ctx, &bot.DeleteMessagesParams{ChatID: chatID, MessageIDs: messageIDs}); err != nil {
		return classify(err)
	}
	return nil
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := t.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return classify(err)
}

func (t *Telegram) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *MessageOptions) error {
	p := &bot.EditMessageTextParams{ChatID: chatID, MessageID: messageID, Text: text}
	if opts != nil {
		p.ParseMode = models.ParseMode(opts.ParseMode)
		p.ReplyMarkup = markup(opts.Keyboard)
		if opts.DisablePreview {
			p.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
		}
	}

	_, err := t.bot.EditMessageText(ctx, p)
	return classify(err)
}

func markup(k Keyboard) models.ReplyMarkup {
	if len(k) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(k))
	for _, row := range k {
		r := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, models.InlineKeyboardButton{Text: b.Text, URL: b.URL, CallbackData: b.CallbackData})
		}
		rows = append(rows, r)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

var (
	blockedMarkers = []string{
		"bot was blocked by the user",
		"user is deactivated",
		"bot can't initiate conversation",
		"bot can't send messages to bots",
	}
	peerMarkers = []string{
		"chat not found",
		"channel_invalid",
		"peer_id_invalid",
		"chat_id_invalid",
		"member list is inaccessible",
		"bot is not a member",
		"bot was kicked",
		"chat_admin_required",
		"not enough rights",
		"need administrator rights",
	}
	notModifiedMarkers = []string{"message is not modified"}
	unknownUserMarkers = []string{"user not found", "participant_id_invalid"}
)

// classify maps Bot API failures onto the package error classes. The
// original error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if !errors.Is(err, bot.ErrorForbidden) && !errors.Is(err, bot.ErrorBadRequest) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, blockedMarkers):
		return fmt.Errorf("%w: %w", ErrUserBlocked, err)
	case containsAny(msg, peerMarkers):
		return fmt.Errorf("%w: %w", ErrPeerInvalid, err)
	case containsAny(msg, notModifiedMarkers):
		return fmt.Errorf("%w: %w", ErrMessageNotModified, err)
	default:
		return err
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
