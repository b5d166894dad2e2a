package router

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/services"
)

const (
	MsgInvalidLink      = "Invalid or expired link."
	MsgNotConfigured    = "Streaming service not configured."
	MsgOwnerOnly        = "This link is only for the file owner."
	MsgFileNotFound     = "File not found or link has expired."
	MsgMustJoin         = "You must join the channel to continue."
	MsgRetrying         = "Retrying..."
	MsgRetryBlocked     = "Could not retry because you have blocked the bot."
	MsgNotForYou        = "This is not for you!"
	MsgMenuError        = "An error occurred while loading the menu."
	MsgAccessRestricted = "🔒 <b>Access Restricted</b>\n\n" +
		"To unlock this file, you must complete a quick verification.\n\n" +
		"👇 Click below to continue:"
)

// VerifiedText confirms a claimed grant and how long it lasts.
func VerifiedText(ttl time.Duration) string {
	return "✅ <b>Verification Successful!</b>\n\n" +
		fmt.Sprintf("⏳ Your access is now valid for <b>%s</b>.\n", validity(ttl)) +
		"After that, you will need to verify again.\n\n" +
		"Enjoy your file 🎉"
}

func validity(ttl time.Duration) string {
	unit, n := "Minute", int64(ttl/time.Minute)
	if ttl >= time.Hour && ttl%time.Hour == 0 {
		unit, n = "Hour", int64(ttl/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// JoinKeyboard offers the invite link (when known) and a retry button.
func JoinKeyboard(d services.GateDecision) messenger.Keyboard {
	var kb messenger.Keyboard
	if d.InviteLink != "" {
		kb = append(kb, []messenger.Button{{Text: "📢 Join Channel", URL: d.InviteLink}})
	}
	return append(kb, []messenger.Button{{Text: "🔄 Retry", CallbackData: PrefixRetry + d.RetryPayload}})
}

func VerifyKeyboard(d services.GateDecision, tutorialURL string) messenger.Keyboard {
	kb := messenger.Keyboard{{{Text: "🔐 Verify Now", URL: d.VerifyURL}}}
	if tutorialURL != "" {
		kb = append(kb, []messenger.Button{{Text: "📖 How To Verify", URL: tutorialURL}})
	}
	return kb
}

func GreetingText(from messenger.Sender) string {
	return fmt.Sprintf("Hello %s! 👋\n\n", mention(from)) +
		"Welcome to your advanced <b>File Management Assistant</b>.\n\n" +
		"I can help you store, manage, and share your files effortlessly.\n\n" +
		"<b>Here's what I can do:</b>\n" +
		"🗂️ Save unlimited files\n" +
		"📺 Instant streaming links\n" +
		"📢 Auto channel posting\n" +
		"⚙️ Full customization system\n\n" +
		"Click <b>Let's Go 🚀</b> to open your settings menu!"
}

func GreetingKeyboard(userID int64, cfg Config) messenger.Keyboard {
	first := []messenger.Button{{Text: "Let's Go 🚀", CallbackData: PrefixGoBack + strconv.FormatInt(userID, 10)}}
	if cfg.TutorialURL != "" {
		first = append(first, messenger.Button{Text: "Tutorial 🎬", URL: cfg.TutorialURL})
	}
	kb := messenger.Keyboard{first}

	var second []messenger.Button
	if cfg.UpdatesURL != "" {
		second = append(second, messenger.Button{Text: "📢 Update Channel", URL: cfg.UpdatesURL})
	}
	if cfg.OwnerURL != "" {
		second = append(second, messenger.Button{Text: "👑 Owner", URL: cfg.OwnerURL})
	}
	if len(second) > 0 {
		kb = append(kb, second)
	}
	return kb
}

func mention(s messenger.Sender) string {
	name := s.FirstName
	if name == "" {
		name = s.Username
	}
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, s.ID, html.EscapeString(name))
}

func parseUserID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
