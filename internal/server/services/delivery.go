package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/views"
	"github.com/dmitrijs2005/filegate/internal/timex"
	"github.com/dmitrijs2005/filegate/internal/tracing"
)

// Replies sent by Deliver.
const (
	MsgStreamingNotConfigured = "Sorry, the bot's streaming service is not configured by the admin."
	MsgFileUnavailable        = "Sorry, this file is no longer available or the link is invalid."
	MsgConfigError            = "A configuration error occurred on the bot."
	MsgConfigIssue            = "Sorry, the bot is facing a configuration issue..."
	MsgSendFailed             = "Something went wrong while sending the file."
)

// Outcome summarizes what Deliver did; it is informational only.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeNotConfigured
	OutcomeFileMissing
	OutcomeSettingsMissing
	OutcomeUserBlocked
	OutcomeStorageInvalid
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeNotConfigured:
		return "not_configured"
	case OutcomeFileMissing:
		return "file_missing"
	case OutcomeSettingsMissing:
		return "settings_missing"
	case OutcomeUserBlocked:
		return "user_blocked"
	case OutcomeStorageInvalid:
		return "storage_invalid"
	default:
		return "failed"
	}
}

// Scheduler removes delivered copies later.
type Scheduler interface {
	Schedule(chatID int64, messageID int)
}

type DeliveryConfig struct {
	AppURL           string
	StorageChannelID int64
	AdminID          int64
}

// DeliveryService copies stored files to requesters.
type DeliveryService struct {
	cfg       DeliveryConfig
	client    messenger.Client
	files     files.Repository
	settings  settings.Repository
	views     views.Repository
	scheduler Scheduler
	events    events.Publisher
	clock     timex.Clock
	logger    logging.Logger
}

func NewDeliveryService(
	cfg DeliveryConfig,
	client messenger.Client,
	f files.Repository,
	s settings.Repository,
	v views.Repository,
	scheduler Scheduler,
	pub events.Publisher,
	clock timex.Clock,
	logger logging.Logger,
) *DeliveryService {
	return &DeliveryService{
		cfg:       cfg,
		client:    client,
		files:     f,
		settings:  s,
		views:     v,
		scheduler: scheduler,
		events:    pub,
		clock:     clock,
		logger:    logger.With("module", "delivery"),
	}
}

// Deliver sends the file to requesterID. Every failure is handled here:
// the requester gets a reply, and the outcome is returned for metrics and
// tests. The gate must have been passed or bypassed by the caller.
func (s *DeliveryService) Deliver(ctx context.Context, requesterID, ownerID int64, fileUniqueID string) Outcome {
	ctx, span := tracing.Tracer().Start(ctx, "delivery.Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int64("requester_id", requesterID),
		attribute.String("file", fileUniqueID),
	)

	o := s.deliver(ctx, requesterID, ownerID, fileUniqueID)
	span.SetAttributes(attribute.String("outcome", o.String()))
	metrics.DeliveriesTotal.WithLabelValues(o.String()).Inc()
	return o
}

func (s *DeliveryService) deliver(ctx context.Context, requesterID, ownerID int64, fileUniqueID string) Outcome {
	logger := s.logger.With("owner_id", ownerID, "requester_id", requesterID, "file", fileUniqueID)

	if s.cfg.AppURL == "" {
		s.reply(ctx, requesterID, MsgStreamingNotConfigured)
		return OutcomeNotConfigured
	}

	file, err := s.files.Get(ctx, ownerID, fileUniqueID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			logger.Error(ctx, "file lookup failed", "error", err)
		}
		s.reply(ctx, requesterID, MsgFileUnavailable)
		return OutcomeFileMissing
	}

	ownerSettings, err := s.settings.Get(ctx, ownerID)
	if err != nil {
		logger.Error(ctx, "owner settings unavailable", "error", err)
		s.reply(ctx, requesterID, MsgConfigError)
		return OutcomeSettingsMissing
	}

	if err := s.views.Record(ctx, ownerID, requesterID, s.clock().Format(common.DayLayout)); err != nil {
		logger.Warn(ctx, "daily view not recorded", "error", err)
	}

	opts := &messenger.MessageOptions{
		ParseMode: messenger.ParseModeHTML,
		Caption:   Caption(file.FileName, ownerSettings.FilenameURL),
		Keyboard: messenger.Keyboard{{
			{Text: "📺 Stream / Download", URL: StreamURL(s.cfg.AppURL, file.StreamID)},
		}},
	}

	msgID, err := s.client.CopyMessage(ctx, requesterID, s.cfg.StorageChannelID, file.StorageMessageID, opts)
	switch {
	case err == nil:
	case errors.Is(err, messenger.ErrUserBlocked):
		logger.Warn(ctx, "requester blocked the bot")
		return OutcomeUserBlocked
	case errors.Is(err, messenger.ErrPeerInvalid):
		logger.Error(ctx, "storage channel inaccessible", "critical", true, "channel", s.cfg.StorageChannelID, "error", err)
		s.reply(ctx, requesterID, MsgConfigIssue)
		s.alertAdmin(ctx)
		return OutcomeStorageInvalid
	default:
		logger.Error(ctx, "file copy failed", "error", err)
		s.reply(ctx, requesterID, MsgSendFailed)
		return OutcomeFailed
	}

	s.scheduler.Schedule(requesterID, msgID)

	emit(ctx, s.events, logger, events.TypeFileDelivered, events.FileDelivered{
		OwnerID:      ownerID,
		RequesterID:  requesterID,
		FileUniqueID: fileUniqueID,
		MessageID:    msgID,
	}, s.clock())

	logger.Info(ctx, "file delivered", "message_id", msgID)
	return OutcomeDelivered
}

func (s *DeliveryService) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.client.SendMessage(ctx, chatID, text, nil); err != nil {
		s.logger.Debug(ctx, "reply not sent", "chat_id", chatID, "error", err)
	}
}

func (s *DeliveryService) alertAdmin(ctx context.Context) {
	if s.cfg.AdminID == 0 {
		return
	}
	text := fmt.Sprintf("🚨 <b>CRITICAL ERROR</b> 🚨\n\nStorage channel <code>%d</code> is inaccessible.", s.cfg.StorageChannelID)
	if _, err := s.client.SendMessage(ctx, s.cfg.AdminID, text, &messenger.MessageOptions{ParseMode: messenger.ParseModeHTML}); err != nil {
		s.logger.Error(ctx, "admin alert not sent", "admin_id", s.cfg.AdminID, "error", err)
	}
}

var (
	mentionRe = regexp.MustCompile(`@[a-zA-Z0-9_]+`)
	linkRe    = regexp.MustCompile(`(www\.|https?://)\S+`)
)

// CleanFileName removes @handles and links from a stored file name and
// turns underscores into spaces.
func CleanFileName(name string) string {
	name = mentionRe.ReplaceAllString(name, "")
	name = linkRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, "_", " ")
}

// Caption renders the HTML caption of a delivered copy.
func Caption(fileName string, filenameURL *string) string {
	name := html.EscapeString(CleanFileName(fileName))

	var part string
	if filenameURL != nil && *filenameURL != "" {
		part = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(*filenameURL), name)
	} else {
		part = "<code>" + name + "</code>"
	}
	return "✅ <b>Here is your file!</b>\n\n" + part
}

// StreamURL is the streaming page of a stored file.
func StreamURL(appURL, streamID string) string {
	return strings.TrimRight(appURL, "/") + "/watch/" + streamID
}
