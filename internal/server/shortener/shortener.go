// Package shortener wraps long verification links through an AdLinkFly
// compatible API: GET {api}?api={key}&url={long} returning
// {"status":"success","shortenedUrl":"..."}.
package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/netx"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/models"
)

// SettingsGetter resolves per-owner shortener credentials.
type SettingsGetter interface {
	Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error)
}

type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

type Service struct {
	cfg      Config
	settings SettingsGetter
	client   *http.Client
	logger   logging.Logger
}

func New(cfg Config, settings SettingsGetter, client *http.Client, logger logging.Logger) *Service {
	if client == nil {
		client = &http.Client{}
	}
	return &Service{cfg: cfg, settings: settings, client: client, logger: logger.With("module", "shortener")}
}

type response struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      any    `json:"message"`
}

// Shorten returns a short link for longURL using the owner's API credentials,
// falling back to the global ones. common.ErrorNotConfigured means neither
// is set.
func (s *Service) Shorten(ctx context.Context, longURL string, ownerID int64) (string, error) {
	api, key := s.credentials(ctx, ownerID)
	if api == "" || key == "" {
		metrics.ShortenerRequestsTotal.WithLabelValues("not_configured").Inc()
		return "", common.ErrorNotConfigured
	}

	u, err := url.Parse(api)
	if err != nil {
		metrics.ShortenerRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("shortener url: %w", err)
	}
	q := u.Query()
	q.Set("api", key)
	q.Set("url", longURL)
	u.RawQuery = q.Encode()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var resp response
	if err := netx.GetJSON(ctx, s.client, u.String(), &resp); err != nil {
		metrics.ShortenerRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("shorten: %w", err)
	}

	if resp.Status != "success" || resp.ShortenedURL == "" {
		metrics.ShortenerRequestsTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("shorten: status %q: %v", resp.Status, resp.Message)
	}

	metrics.ShortenerRequestsTotal.WithLabelValues("ok").Inc()
	return resp.ShortenedURL, nil
}

func (s *Service) credentials(ctx context.Context, ownerID int64) (string, string) {
	api, key := s.cfg.APIURL, s.cfg.APIKey

	st, err := s.settings.Get(ctx, ownerID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
	case err != nil:
		s.logger.Warn(ctx, "owner shortener settings unavailable, using global", "owner_id", ownerID, "error", err)
	default:
		if st.ShortenerURL != nil && *st.ShortenerURL != "" && st.ShortenerAPIKey != nil && *st.ShortenerAPIKey != "" {
			api, key = *st.ShortenerURL, *st.ShortenerAPIKey
		}
	}

	return api, key
}
