package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/deeplink"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filegate/internal/timex"
	"github.com/dmitrijs2005/filegate/internal/tracing"
)

// Verifier answers whether a requester currently holds a verification grant.
type Verifier interface {
	IsValid(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) (bool, error)
}

// Shortener turns a long URL into a short one on behalf of an owner.
type Shortener interface {
	Shorten(ctx context.Context, longURL string, ownerID int64) (string, error)
}

type DecisionKind int

const (
	DecisionDeliver DecisionKind = iota
	DecisionRequireJoin
	DecisionRequireVerify
	DecisionFileNotFound
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionDeliver:
		return "deliver"
	case DecisionRequireJoin:
		return "require_join"
	case DecisionRequireVerify:
		return "require_verify"
	case DecisionFileNotFound:
		return "file_not_found"
	default:
		return fmt.Sprintf("decision(%d)", int(k))
	}
}

// GateDecision is the outcome of Evaluate. File is set for DecisionDeliver;
// InviteLink (optional) and RetryPayload for DecisionRequireJoin; VerifyURL
// for DecisionRequireVerify.
type GateDecision struct {
	Kind         DecisionKind
	File         *models.FileRecord
	InviteLink   string
	RetryPayload string
	VerifyURL    string
}

type MembershipStatus int

const (
	MembershipMember MembershipStatus = iota
	MembershipNotMember
	MembershipProbeFailed
)

// Membership is the result of one membership probe. Err is set only for
// MembershipProbeFailed.
type Membership struct {
	Status MembershipStatus
	Err    error
}

// Broken reports whether the probe shows the channel itself is unusable.
func (m Membership) Broken() bool {
	return m.Status == MembershipProbeFailed && errors.Is(m.Err, messenger.ErrPeerInvalid)
}

// GateService decides whether a requester may receive a file: channel
// membership first, then verification.
type GateService struct {
	client    messenger.Client
	me        messenger.BotUser
	files     files.Repository
	settings  settings.Repository
	verifier  Verifier
	shortener Shortener
	events    events.Publisher
	clock     timex.Clock
	logger    logging.Logger
}

func NewGateService(
	client messenger.Client,
	me messenger.BotUser,
	f files.Repository,
	s settings.Repository,
	verifier Verifier,
	shortener Shortener,
	pub events.Publisher,
	clock timex.Clock,
	logger logging.Logger,
) *GateService {
	return &GateService{
		client:    client,
		me:        me,
		files:     f,
		settings:  s,
		verifier:  verifier,
		shortener: shortener,
		events:    pub,
		clock:     clock,
		logger:    logger.With("module", "gate"),
	}
}

// Evaluate runs the gate for a get request. It never mutates anything but
// the owner's FSub channel, which is cleared when it turns out to be broken.
func (g *GateService) Evaluate(ctx context.Context, req models.DeepLinkRequest, requesterID int64) (GateDecision, error) {
	ctx, span := tracing.Tracer().Start(ctx, "gate.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("owner_id", req.OwnerID),
		attribute.Int64("requester_id", requesterID),
		attribute.String("file", req.FileUniqueID),
	)

	d, err := g.evaluate(ctx, req, requesterID)
	if err != nil {
		span.RecordError(err)
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		return GateDecision{}, err
	}
	span.SetAttributes(attribute.String("decision", d.Kind.String()))
	metrics.GateDecisionsTotal.WithLabelValues(d.Kind.String()).Inc()
	return d, nil
}

func (g *GateService) evaluate(ctx context.Context, req models.DeepLinkRequest, requesterID int64) (GateDecision, error) {
	file, err := g.files.Get(ctx, req.OwnerID, req.FileUniqueID)
	if errors.Is(err, common.ErrorNotFound) {
		return GateDecision{Kind: DecisionFileNotFound}, nil
	}
	if err != nil {
		return GateDecision{}, fmt.Errorf("error resolving file: %w", err)
	}

	s, err := g.settings.Get(ctx, req.OwnerID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s = &models.OwnerSettings{OwnerID: req.OwnerID}
	case err != nil:
		return GateDecision{}, fmt.Errorf("error resolving settings: %w", err)
	}

	if s.FSubChannel != nil {
		d, blocked, err := g.checkChannel(ctx, req, requesterID, *s.FSubChannel)
		if err != nil || blocked {
			return d, err
		}
	}

	ok, err := g.verifier.IsValid(ctx, req.OwnerID, requesterID, req.FileUniqueID)
	if err != nil {
		return GateDecision{}, err
	}
	if !ok {
		return GateDecision{Kind: DecisionRequireVerify, VerifyURL: g.verifyURL(ctx, req)}, nil
	}

	return GateDecision{Kind: DecisionDeliver, File: file}, nil
}

// checkChannel enforces FSub. blocked is true when d must be returned as is.
func (g *GateService) checkChannel(ctx context.Context, req models.DeepLinkRequest, requesterID, channel int64) (d GateDecision, blocked bool, err error) {
	self := g.probe(ctx, channel, g.me.ID)
	switch {
	case self.Status == MembershipNotMember:
		g.disableChannel(ctx, req.OwnerID, channel, "bot is not a member")
		return GateDecision{}, false, nil
	case self.Broken():
		g.disableChannel(ctx, req.OwnerID, channel, self.Err.Error())
		return GateDecision{}, false, nil
	case self.Status == MembershipProbeFailed:
		return GateDecision{}, false, fmt.Errorf("error probing channel %d: %w", channel, self.Err)
	}

	m := g.probe(ctx, channel, requesterID)
	switch {
	case m.Status == MembershipMember:
		return GateDecision{}, false, nil
	case m.Status == MembershipNotMember:
		return GateDecision{
			Kind:         DecisionRequireJoin,
			InviteLink:   g.inviteLink(ctx, channel),
			RetryPayload: deeplink.EncodeRequest(req),
		}, true, nil
	case m.Broken():
		g.disableChannel(ctx, req.OwnerID, channel, m.Err.Error())
		return GateDecision{}, false, nil
	default:
		return GateDecision{}, false, fmt.Errorf("error probing membership: %w", m.Err)
	}
}

func (g *GateService) probe(ctx context.Context, channel, userID int64) Membership {
	status, err := g.client.GetChatMember(ctx, channel, userID)
	if err != nil {
		return Membership{Status: MembershipProbeFailed, Err: err}
	}
	if status.IsMember() {
		return Membership{Status: MembershipMember}
	}
	return Membership{Status: MembershipNotMember}
}

func (g *GateService) inviteLink(ctx context.Context, channel int64) string {
	link, err := g.client.ExportInviteLink(ctx, channel)
	if err != nil {
		g.logger.Debug(ctx, "invite link export failed", "channel", channel, "error", err)
		return ""
	}
	return link
}

// disableChannel clears a broken FSub channel and tells the owner. Both
// steps are best-effort.
func (g *GateService) disableChannel(ctx context.Context, ownerID, channel int64, reason string) {
	g.logger.Error(ctx, "fsub channel error", "owner_id", ownerID, "channel", channel, "reason", reason)

	notice := fmt.Sprintf("⚠️ <b>FSub Channel Error</b>\n\n"+
		"Your FSub channel (<code>%d</code>) is no longer valid.\n\n"+
		"It has been automatically disabled.", channel)
	if _, err := g.client.SendMessage(ctx, ownerID, notice, &messenger.MessageOptions{ParseMode: messenger.ParseModeHTML}); err != nil {
		g.logger.Warn(ctx, "fsub notice not sent", "owner_id", ownerID, "error", err)
	}

	if err := g.settings.Update(ctx, ownerID, models.SettingFSubChannel, nil); err != nil {
		g.logger.Error(ctx, "fsub channel not cleared", "owner_id", ownerID, "error", err)
		return
	}

	metrics.FSubAutoDisabledTotal.Inc()
	emit(ctx, g.events, g.logger, events.TypeFSubChannelDisabled, events.FSubChannelDisabled{
		OwnerID: ownerID,
		Channel: channel,
		Reason:  reason,
	}, g.clock())
}

// verifyURL builds the deep link that claims a grant and shortens it when a
// shortener is configured. The long link is used on any shortener failure.
func (g *GateService) verifyURL(ctx context.Context, req models.DeepLinkRequest) string {
	long := fmt.Sprintf("https://t.me/%s?start=%s", g.me.Username,
		deeplink.Encode(models.KindVerify, req.OwnerID, req.FileUniqueID))

	if g.shortener == nil {
		return long
	}
	short, err := g.shortener.Shorten(ctx, long, req.OwnerID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotConfigured) {
			g.logger.Warn(ctx, "shortener failed, using long link", "owner_id", req.OwnerID, "error", err)
		}
		return long
	}
	return short
}
