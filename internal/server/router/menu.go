package router

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/models"
)

type SettingsGetter interface {
	Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error)
}

// SettingsMenu is the default Menu: a summary of the user's owner settings
// with a refresh button.
type SettingsMenu struct {
	settings SettingsGetter
}

func NewSettingsMenu(s SettingsGetter) *SettingsMenu {
	return &SettingsMenu{settings: s}
}

func (m *SettingsMenu) Render(ctx context.Context, userID int64) (string, messenger.Keyboard, error) {
	s, err := m.settings.Get(ctx, userID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s = &models.OwnerSettings{OwnerID: userID}
	case err != nil:
		return "", nil, fmt.Errorf("error loading settings: %w", err)
	}

	var b strings.Builder
	b.WriteString("⚙️ <b>Main Menu</b>\n\n")

	b.WriteString("📢 FSub channel: ")
	if s.FSubChannel != nil {
		fmt.Fprintf(&b, "<code>%d</code>\n", *s.FSubChannel)
	} else {
		b.WriteString("<i>not set</i>\n")
	}

	b.WriteString("🔗 Filename link: ")
	if s.FilenameURL != nil && *s.FilenameURL != "" {
		b.WriteString(html.EscapeString(*s.FilenameURL) + "\n")
	} else {
		b.WriteString("<i>not set</i>\n")
	}

	b.WriteString("✂️ Shortener: ")
	if s.ShortenerURL != nil && *s.ShortenerURL != "" && s.ShortenerAPIKey != nil && *s.ShortenerAPIKey != "" {
		b.WriteString("<code>" + html.EscapeString(*s.ShortenerURL) + "</code>")
	} else {
		b.WriteString("<i>default</i>")
	}

	kb := messenger.Keyboard{{{Text: "🔄 Refresh", CallbackData: PrefixGoBack + strconv.FormatInt(userID, 10)}}}
	return b.String(), kb, nil
}
