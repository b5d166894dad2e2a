package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/filegate/internal/common"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/files"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/settings"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/views"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type sentMessage struct {
	ChatID int64
	Text   string
	Opts   *messenger.MessageOptions
}

type copiedMessage struct {
	To, From  int64
	MessageID int
	Opts      *messenger.MessageOptions
}

type memberKey struct{ chat, user int64 }

type memberResult struct {
	status messenger.MemberStatus
	err    error
}

type fakeClient struct {
	messenger.Client

	mu        sync.Mutex
	sent      []sentMessage
	copies    []copiedMessage
	deleted   []int
	members   map[memberKey]memberResult
	invite    string
	inviteErr error
	copyErr   error
	deleteErr error
	nextID    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{members: map[memberKey]memberResult{}, nextID: 100}
}

func (f *fakeClient) setMember(chat, user int64, status messenger.MemberStatus, err error) {
	f.members[memberKey{chat, user}] = memberResult{status: status, err: err}
}

func (f *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, opts *messenger.MessageOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Opts: opts})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeClient) CopyMessage(ctx context.Context, to, from int64, messageID int, opts *messenger.MessageOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.copies = append(f.copies, copiedMessage{To: to, From: from, MessageID: messageID, Opts: opts})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeClient) GetChatMember(ctx context.Context, chatID, userID int64) (messenger.MemberStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.members[memberKey{chatID, userID}]
	if !ok {
		return messenger.StatusLeft, nil
	}
	return r.status, r.err
}

func (f *fakeClient) ExportInviteLink(ctx context.Context, chatID int64) (string, error) {
	return f.invite, f.inviteErr
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

func (f *fakeClient) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeFiles struct {
	files.Repository
	recs map[string]*models.FileRecord
	err  error
}

func (f *fakeFiles) Get(ctx context.Context, ownerID int64, fileUniqueID string) (*models.FileRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recs[fileUniqueID]
	if !ok || r.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

type settingsUpdate struct {
	OwnerID int64
	Field   string
	Value   any
}

type fakeSettings struct {
	settings.Repository
	byOwner map[int64]*models.OwnerSettings
	updates []settingsUpdate
}

func (f *fakeSettings) Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error) {
	s, ok := f.byOwner[ownerID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s, nil
}

func (f *fakeSettings) Update(ctx context.Context, ownerID int64, field string, value any) error {
	f.updates = append(f.updates, settingsUpdate{OwnerID: ownerID, Field: field, Value: value})
	if s, ok := f.byOwner[ownerID]; ok && field == models.SettingFSubChannel && value == nil {
		s.FSubChannel = nil
	}
	return nil
}

type viewKey struct {
	owner, requester int64
	day              string
}

type fakeViews struct {
	views.Repository
	counts map[viewKey]int
	err    error
}

func (f *fakeViews) Record(ctx context.Context, ownerID, requesterID int64, day string) error {
	if f.err != nil {
		return f.err
	}
	if f.counts == nil {
		f.counts = map[viewKey]int{}
	}
	f.counts[viewKey{ownerID, requesterID, day}]++
	return nil
}

type grantKey struct {
	owner, requester int64
	file             string
}

// fakeGrants mimics the SQL upsert semantics in memory.
type fakeGrants struct {
	grants.Repository
	rows     map[grantKey]models.VerificationGrant
	claimErr error
	swept    time.Time
}

func newFakeGrants() *fakeGrants {
	return &fakeGrants{rows: map[grantKey]models.VerificationGrant{}}
}

func (f *fakeGrants) Claim(ctx context.Context, g models.VerificationGrant) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	f.rows[grantKey{g.OwnerID, g.RequesterID, g.FileUniqueID}] = g
	return nil
}

func (f *fakeGrants) IsValidForOwner(ctx context.Context, ownerID, requesterID int64, now time.Time) (bool, error) {
	for k, g := range f.rows {
		if k.owner == ownerID && k.requester == requesterID && g.ValidAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGrants) IsValidForFile(ctx context.Context, ownerID, requesterID int64, file string, now time.Time) (bool, error) {
	g, ok := f.rows[grantKey{ownerID, requesterID, file}]
	return ok && g.ValidAt(now), nil
}

func (f *fakeGrants) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	f.swept = before
	var n int64
	for k, g := range f.rows {
		if !g.ExpiresAt.After(before) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeVerifier struct {
	valid bool
	err   error
	calls int
}

func (f *fakeVerifier) IsValid(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) (bool, error) {
	f.calls++
	return f.valid, f.err
}

type fakeShortener struct {
	short string
	err   error
	got   string
}

func (f *fakeShortener) Shorten(ctx context.Context, longURL string, ownerID int64) (string, error) {
	f.got = longURL
	return f.short, f.err
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []events.Envelope
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.got {
		out = append(out, e.Meta.Type)
	}
	return out
}

type recordingScheduler struct {
	scheduled [][2]int64
}

func (s *recordingScheduler) Schedule(chatID int64, messageID int) {
	s.scheduled = append(s.scheduled, [2]int64{chatID, int64(messageID)})
}
