// Package messenger is the boundary to the messaging platform: the Client
// interface the services talk to, its error classes, and the Telegram
// implementation that also drives the update loop.
package messenger

import (
	"context"
	"errors"
)

var (
	// ErrUserBlocked: the recipient blocked the bot or deleted the account.
	ErrUserBlocked = errors.New("user blocked the bot")
	// ErrPeerInvalid: a chat or channel id is unknown or inaccessible to the bot.
	ErrPeerInvalid = errors.New("peer invalid")
	// ErrMessageNotModified: an edit would not change the message.
	ErrMessageNotModified = errors.New("message not modified")
)

type ParseMode string

const (
	ParseModeNone     ParseMode = ""
	ParseModeHTML     ParseMode = "HTML"
	ParseModeMarkdown ParseMode = "Markdown"
)

// Button is an inline keyboard button; exactly one of URL and CallbackData is set.
type Button struct {
	Text         string
	URL          string
	CallbackData string
}

// Keyboard rows of inline buttons.
type Keyboard [][]Button

// MessageOptions apply to sent, copied and edited messages. Caption is only
// used by CopyMessage.
type MessageOptions struct {
	ParseMode      ParseMode
	Keyboard       Keyboard
	Caption        string
	DisablePreview bool
}

// MemberStatus is a chat member's status as reported by the platform.
type MemberStatus int

const (
	StatusUnknown MemberStatus = iota
	StatusCreator
	StatusAdministrator
	StatusMember
	StatusRestricted
	StatusLeft
	StatusBanned
)

// IsMember reports whether the status counts as being in the chat.
func (s MemberStatus) IsMember() bool {
	switch s {
	case StatusCreator, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	default:
		return false
	}
}

type BotUser struct {
	ID       int64
	Username string
}

// Client is what the services need from the messaging platform.
type Client interface {
	Me(ctx context.Context) (BotUser, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts *MessageOptions) (int, error)
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, opts *MessageOptions) (int, error)
	GetChatMember(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	ExportInviteLink(ctx context.Context, chatID int64) (string, error)
	DeleteMessages(ctx context.Context, chatID int64, messageIDs ...int) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts *MessageOptions) error
}
