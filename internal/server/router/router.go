// Package router turns platform updates into service calls: /start deep
// links, retry buttons and the main-menu callback. Every reply the bot sends
// outside of delivery is rendered here.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/deeplink"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/services"
)

// Callback data prefixes.
const (
	PrefixRetry  = "retry_"
	PrefixGoBack = "go_back_"
)

type Registrar interface {
	Register(ctx context.Context, userID int64) (bool, error)
}

type Verification interface {
	Claim(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) error
	TTL() time.Duration
}

type Gate interface {
	Evaluate(ctx context.Context, req models.DeepLinkRequest, requesterID int64) (services.GateDecision, error)
}

type Delivery interface {
	Deliver(ctx context.Context, requesterID, ownerID int64, fileUniqueID string) services.Outcome
}

// Menu renders the main menu shown by the go_back callback.
type Menu interface {
	Render(ctx context.Context, userID int64) (string, messenger.Keyboard, error)
}

// Config holds the URLs the router needs. Empty optional URLs hide their
// buttons.
type Config struct {
	AppURL      string
	TutorialURL string
	UpdatesURL  string
	OwnerURL    string
}

// Router implements messenger.Dispatcher.
type Router struct {
	cfg          Config
	client       messenger.Client
	users        Registrar
	verification Verification
	gate         Gate
	delivery     Delivery
	menu         Menu
	logger       logging.Logger
}

func New(cfg Config, client messenger.Client, users Registrar, verification Verification, gate Gate, delivery Delivery, menu Menu, logger logging.Logger) *Router {
	return &Router{
		cfg:          cfg,
		client:       client,
		users:        users,
		verification: verification,
		gate:         gate,
		delivery:     delivery,
		menu:         menu,
		logger:       logger.With("module", "router"),
	}
}

var _ messenger.Dispatcher = (*Router)(nil)

func (r *Router) HandleStart(ctx context.Context, cmd messenger.StartCommand) {
	defer r.recoverPanic(ctx, "start")

	if !cmd.Private || cmd.From.IsBot {
		return
	}

	logger := r.logger.With("user_id", cmd.From.ID)
	if _, err := r.users.Register(ctx, cmd.From.ID); err != nil {
		logger.Error(ctx, "user registration failed", "error", err)
	}

	if cmd.Payload != "" {
		req, err := deeplink.Decode(cmd.Payload)
		switch {
		case errors.Is(err, deeplink.ErrNotDeepLink):
		case err != nil:
			logger.Info(ctx, "malformed deep link", "payload", cmd.Payload, "error", err)
			r.send(ctx, cmd.ChatID, MsgInvalidLink, nil)
			return
		default:
			err = r.dispatch(ctx, cmd, req)
			switch {
			case err == nil:
			case errors.Is(err, messenger.ErrUserBlocked):
				logger.Warn(ctx, "requester blocked the bot", "payload", cmd.Payload)
			default:
				logger.Error(ctx, "deep link error", "payload", cmd.Payload, "error", err)
				r.send(ctx, cmd.ChatID, MsgInvalidLink, nil)
			}
			return
		}
	}

	if err := r.greet(ctx, cmd); err != nil {
		logger.Warn(ctx, "greeting not sent", "error", err)
	}
}

func (r *Router) dispatch(ctx context.Context, cmd messenger.StartCommand, req models.DeepLinkRequest) error {
	requester := cmd.From.ID

	switch req.Kind {
	case models.KindVerify:
		if err := r.verification.Claim(ctx, req.OwnerID, requester, req.FileUniqueID); err != nil {
			return err
		}
		if _, err := r.client.SendMessage(ctx, cmd.ChatID, VerifiedText(r.verification.TTL()), htmlOpts()); err != nil {
			return err
		}
		r.delivery.Deliver(ctx, requester, req.OwnerID, req.FileUniqueID)
		return nil

	case models.KindGet:
		if r.cfg.AppURL == "" {
			_, err := r.client.SendMessage(ctx, cmd.ChatID, MsgNotConfigured, nil)
			return err
		}
		return r.public(ctx, cmd.ChatID, requester, req)

	case models.KindOwnerGet:
		if r.cfg.AppURL == "" {
			_, err := r.client.SendMessage(ctx, cmd.ChatID, MsgNotConfigured, nil)
			return err
		}
		if requester != req.OwnerID {
			_, err := r.client.SendMessage(ctx, cmd.ChatID, MsgOwnerOnly, nil)
			return err
		}
		r.delivery.Deliver(ctx, requester, req.OwnerID, req.FileUniqueID)
		return nil

	default:
		return fmt.Errorf("unknown payload kind %s", req.Kind)
	}
}

// public runs the gate for a get request and renders its decision.
func (r *Router) public(ctx context.Context, chatID, requesterID int64, req models.DeepLinkRequest) error {
	d, err := r.gate.Evaluate(ctx, req, requesterID)
	if err != nil {
		return err
	}

	switch d.Kind {
	case services.DecisionDeliver:
		r.delivery.Deliver(ctx, requesterID, req.OwnerID, req.FileUniqueID)
		return nil
	case services.DecisionFileNotFound:
		_, err = r.client.SendMessage(ctx, chatID, MsgFileNotFound, nil)
	case services.DecisionRequireJoin:
		_, err = r.client.SendMessage(ctx, chatID, MsgMustJoin, &messenger.MessageOptions{Keyboard: JoinKeyboard(d)})
	case services.DecisionRequireVerify:
		_, err = r.client.SendMessage(ctx, chatID, MsgAccessRestricted, &messenger.MessageOptions{
			ParseMode: messenger.ParseModeHTML,
			Keyboard:  VerifyKeyboard(d, r.cfg.TutorialURL),
		})
	default:
		err = fmt.Errorf("unknown gate decision %s", d.Kind)
	}
	return err
}

func (r *Router) HandleCallback(ctx context.Context, cb messenger.Callback) {
	defer r.recoverPanic(ctx, "callback")

	switch {
	case strings.HasPrefix(cb.Data, PrefixRetry):
		r.retry(ctx, cb)
	case strings.HasPrefix(cb.Data, PrefixGoBack):
		r.goBack(ctx, cb)
	default:
		r.answer(ctx, cb.ID, "", false)
	}
}

func (r *Router) retry(ctx context.Context, cb messenger.Callback) {
	logger := r.logger.With("user_id", cb.From.ID)

	chatID := cb.ChatID
	if chatID == 0 {
		chatID = cb.From.ID
	}

	answered := false
	if err := r.deletePrompt(ctx, cb); err != nil {
		logger.Warn(ctx, "retry prompt not deleted", "error", err)
		r.answer(ctx, cb.ID, MsgRetrying, false)
		answered = true
	}

	req, err := deeplink.Decode(strings.TrimPrefix(cb.Data, PrefixRetry))
	if err == nil && req.Kind != models.KindGet {
		err = fmt.Errorf("%w: retry of %s", deeplink.ErrMalformed, req.Kind)
	}
	if err != nil {
		logger.Info(ctx, "bad retry payload", "data", cb.Data, "error", err)
		r.send(ctx, chatID, MsgInvalidLink, nil)
	} else {
		err = r.public(ctx, chatID, cb.From.ID, req)
		switch {
		case err == nil:
		case errors.Is(err, messenger.ErrUserBlocked):
			logger.Warn(ctx, "requester blocked the bot during retry")
			r.answer(ctx, cb.ID, MsgRetryBlocked, true)
			return
		default:
			logger.Error(ctx, "retry failed", "error", err)
			r.send(ctx, chatID, MsgInvalidLink, nil)
		}
	}

	if !answered {
		r.answer(ctx, cb.ID, "", false)
	}
}

func (r *Router) deletePrompt(ctx context.Context, cb messenger.Callback) error {
	if cb.MessageID == 0 {
		return errors.New("prompt message is inaccessible")
	}
	return r.client.DeleteMessages(ctx, cb.ChatID, cb.MessageID)
}

func (r *Router) goBack(ctx context.Context, cb messenger.Callback) {
	userID, err := parseUserID(strings.TrimPrefix(cb.Data, PrefixGoBack))
	if err != nil || userID != cb.From.ID {
		r.answer(ctx, cb.ID, MsgNotForYou, true)
		return
	}

	text, kb, err := r.menu.Render(ctx, userID)
	if err == nil {
		err = r.client.EditMessageText(ctx, cb.ChatID, cb.MessageID, text, &messenger.MessageOptions{
			ParseMode:      messenger.ParseModeHTML,
			Keyboard:       kb,
			DisablePreview: true,
		})
	}

	switch {
	case err == nil, errors.Is(err, messenger.ErrMessageNotModified):
		r.answer(ctx, cb.ID, "", false)
	default:
		r.logger.Error(ctx, "menu not rendered", "user_id", userID, "error", err)
		r.answer(ctx, cb.ID, MsgMenuError, true)
	}
}

func (r *Router) greet(ctx context.Context, cmd messenger.StartCommand) error {
	_, err := r.client.SendMessage(ctx, cmd.ChatID, GreetingText(cmd.From), &messenger.MessageOptions{
		ParseMode:      messenger.ParseModeHTML,
		Keyboard:       GreetingKeyboard(cmd.From.ID, r.cfg),
		DisablePreview: true,
	})
	return err
}

func (r *Router) send(ctx context.Context, chatID int64, text string, opts *messenger.MessageOptions) {
	if _, err := r.client.SendMessage(ctx, chatID, text, opts); err != nil {
		r.logger.Debug(ctx, "reply not sent", "chat_id", chatID, "error", err)
	}
}

func (r *Router) answer(ctx context.Context, id, text string, alert bool) {
	if err := r.client.AnswerCallback(ctx, id, text, alert); err != nil {
		r.logger.Debug(ctx, "callback not answered", "error", err)
	}
}

func (r *Router) recoverPanic(ctx context.Context, update string) {
	if p := recover(); p != nil {
		metrics.HandlerPanicsTotal.Inc()
		r.logger.Error(ctx, "handler panic", "update", update, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
	}
}

func htmlOpts() *messenger.MessageOptions {
	return &messenger.MessageOptions{ParseMode: messenger.ParseModeHTML}
}
