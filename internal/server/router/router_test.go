package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/services"
)

type routerFixture struct {
	client   *fakeClient
	users    *fakeRegistrar
	verify   *fakeVerification
	gate     *fakeGate
	delivery *fakeDelivery
	menu     *fakeMenu
	router   *Router
}

func newRouterFixture(cfg Config) *routerFixture {
	f := &routerFixture{
		client:   &fakeClient{},
		users:    &fakeRegistrar{},
		verify:   &fakeVerification{},
		gate:     &fakeGate{decisions: []services.GateDecision{{Kind: services.DecisionDeliver}}},
		delivery: &fakeDelivery{},
		menu:     &fakeMenu{text: "menu"},
	}
	f.router = New(cfg, f.client, f.users, f.verify, f.gate, f.delivery, f.menu, logging.Nop())
	return f
}

func start(userID int64, payload string) messenger.StartCommand {
	return messenger.StartCommand{
		ChatID:  userID,
		Private: true,
		From:    messenger.Sender{ID: userID, FirstName: "Ann"},
		Payload: payload,
	}
}

var withApp = Config{AppURL: "https://app.example.com"}

func TestHandleStart_IgnoresGroupsAndBots(t *testing.T) {
	f := newRouterFixture(withApp)

	cmd := start(5, "")
	cmd.Private = false
	f.router.HandleStart(context.Background(), cmd)

	cmd = start(5, "")
	cmd.From.IsBot = true
	f.router.HandleStart(context.Background(), cmd)

	assert.Empty(t, f.client.texts())
	assert.Empty(t, f.users.ids)
}

func TestHandleStart_Greeting(t *testing.T) {
	f := newRouterFixture(Config{TutorialURL: "https://tut", OwnerURL: "https://owner"})

	f.router.HandleStart(context.Background(), start(5, ""))

	assert.Equal(t, []int64{5}, f.users.ids)
	m := f.client.last()
	assert.Contains(t, m.Text, `Hello <a href="tg://user?id=5">Ann</a>! 👋`)
	require.Len(t, m.Opts.Keyboard, 2)
	assert.Equal(t, messenger.Button{Text: "Let's Go 🚀", CallbackData: "go_back_5"}, m.Opts.Keyboard[0][0])
	assert.Equal(t, "https://tut", m.Opts.Keyboard[0][1].URL)
	assert.Equal(t, []messenger.Button{{Text: "👑 Owner", URL: "https://owner"}}, m.Opts.Keyboard[1])
	assert.True(t, m.Opts.DisablePreview)
}

func TestHandleStart_UnknownPayloadGreets(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleStart(context.Background(), start(5, "hello"))

	assert.Contains(t, f.client.last().Text, "Hello")
	assert.Empty(t, f.gate.reqs)
}

func TestHandleStart_BarePrefixGreets(t *testing.T) {
	f := newRouterFixture(withApp)

	for _, p := range []string{"get", "verify", "ownerget"} {
		f.router.HandleStart(context.Background(), start(5, p))
	}

	texts := f.client.texts()
	require.Len(t, texts, 3)
	for _, text := range texts {
		assert.Contains(t, text, "Hello")
		assert.NotEqual(t, MsgInvalidLink, text)
	}
	assert.Empty(t, f.gate.reqs)
	assert.Empty(t, f.verify.claims)
}

func TestHandleStart_RegistrationErrorDoesNotStop(t *testing.T) {
	f := newRouterFixture(withApp)
	f.users.err = errors.New("db")

	f.router.HandleStart(context.Background(), start(5, ""))
	assert.Len(t, f.client.texts(), 1)
}

func TestHandleStart_MalformedLink(t *testing.T) {
	f := newRouterFixture(withApp)

	for _, p := range []string{"get_abc_file", "verify_1", "ownerget_1_"} {
		f.router.HandleStart(context.Background(), start(5, p))
	}

	assert.Equal(t, []string{MsgInvalidLink, MsgInvalidLink, MsgInvalidLink}, f.client.texts())
	assert.Empty(t, f.verify.claims)
	assert.Empty(t, f.delivery.calls)
}

func TestHandleStart_VerifyClaimsThenDelivers(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleStart(context.Background(), start(5, "verify_1001_abcXYZ"))

	assert.Equal(t, []claim{{1001, 5, "abcXYZ"}}, f.verify.claims)
	require.Len(t, f.client.texts(), 1)
	assert.Contains(t, f.client.texts()[0], "valid for <b>24 Hours</b>")
	assert.Equal(t, []delivery{{5, 1001, "abcXYZ"}}, f.delivery.calls)
	assert.Empty(t, f.gate.reqs, "verify links bypass the gate")
}

func TestHandleStart_VerifyClaimError(t *testing.T) {
	f := newRouterFixture(withApp)
	f.verify.err = errors.New("db")

	f.router.HandleStart(context.Background(), start(5, "verify_1001_abcXYZ"))

	assert.Equal(t, []string{MsgInvalidLink}, f.client.texts())
	assert.Empty(t, f.delivery.calls)
}

func TestHandleStart_GetWithoutAppURL(t *testing.T) {
	f := newRouterFixture(Config{})

	f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))
	f.router.HandleStart(context.Background(), start(1001, "ownerget_1001_abcXYZ"))

	assert.Equal(t, []string{MsgNotConfigured, MsgNotConfigured}, f.client.texts())
	assert.Empty(t, f.gate.reqs)
	assert.Empty(t, f.delivery.calls)
}

func TestHandleStart_GetRendersDecisions(t *testing.T) {
	tests := []struct {
		name     string
		decision services.GateDecision
		text     string
		keyboard messenger.Keyboard
	}{
		{
			name:     "not found",
			decision: services.GateDecision{Kind: services.DecisionFileNotFound},
			text:     MsgFileNotFound,
		},
		{
			name:     "join",
			decision: services.GateDecision{Kind: services.DecisionRequireJoin, InviteLink: "https://t.me/+x", RetryPayload: "get_1001_abcXYZ"},
			text:     MsgMustJoin,
			keyboard: messenger.Keyboard{
				{{Text: "📢 Join Channel", URL: "https://t.me/+x"}},
				{{Text: "🔄 Retry", CallbackData: "retry_get_1001_abcXYZ"}},
			},
		},
		{
			name:     "join without invite",
			decision: services.GateDecision{Kind: services.DecisionRequireJoin, RetryPayload: "get_1001_abcXYZ"},
			text:     MsgMustJoin,
			keyboard: messenger.Keyboard{{{Text: "🔄 Retry", CallbackData: "retry_get_1001_abcXYZ"}}},
		},
		{
			name:     "verify",
			decision: services.GateDecision{Kind: services.DecisionRequireVerify, VerifyURL: "https://sho.rt/v"},
			text:     MsgAccessRestricted,
			keyboard: messenger.Keyboard{
				{{Text: "🔐 Verify Now", URL: "https://sho.rt/v"}},
				{{Text: "📖 How To Verify", URL: "https://tut"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(Config{AppURL: "https://app", TutorialURL: "https://tut"})
			f.gate.decisions = []services.GateDecision{tt.decision}

			f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))

			m := f.client.last()
			assert.Equal(t, tt.text, m.Text)
			if tt.keyboard != nil {
				assert.Equal(t, tt.keyboard, m.Opts.Keyboard)
			}
			assert.Empty(t, f.delivery.calls)
		})
	}
}

func TestHandleStart_GetDeliverDecision(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))

	require.Len(t, f.gate.reqs, 1)
	assert.Equal(t, models.DeepLinkRequest{Kind: models.KindGet, OwnerID: 1001, FileUniqueID: "abcXYZ"}, f.gate.reqs[0])
	assert.Equal(t, []delivery{{5, 1001, "abcXYZ"}}, f.delivery.calls)
}

func TestHandleStart_GateErrorApologizes(t *testing.T) {
	f := newRouterFixture(withApp)
	f.gate.err = errors.New("probe failed")

	f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))
	assert.Equal(t, []string{MsgInvalidLink}, f.client.texts())
}

func TestHandleStart_BlockedRequesterGetsNoApology(t *testing.T) {
	f := newRouterFixture(withApp)
	f.gate.decisions = []services.GateDecision{{Kind: services.DecisionFileNotFound}}
	f.client.sendErr = fmt.Errorf("%w: forbidden", messenger.ErrUserBlocked)

	f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))
	assert.Equal(t, []string{MsgFileNotFound}, f.client.texts())
}

func TestHandleStart_OwnerGet(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleStart(context.Background(), start(3003, "ownerget_2002_fileA"))
	assert.Equal(t, []string{MsgOwnerOnly}, f.client.texts())
	assert.Empty(t, f.delivery.calls)

	f.router.HandleStart(context.Background(), start(2002, "ownerget_2002_fileA"))
	assert.Equal(t, []delivery{{2002, 2002, "fileA"}}, f.delivery.calls)
	assert.Empty(t, f.gate.reqs)
}

func TestHandleStart_PanicIsRecovered(t *testing.T) {
	f := newRouterFixture(withApp)
	f.gate.panicMsg = "boom"

	assert.NotPanics(t, func() {
		f.router.HandleStart(context.Background(), start(5, "get_1001_abcXYZ"))
	})
}

func callback(userID int64, data string) messenger.Callback {
	return messenger.Callback{ID: "cb1", From: messenger.Sender{ID: userID}, ChatID: userID, MessageID: 42, Data: data}
}

func TestHandleCallback_RetryDeletesPromptAndReevaluates(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleCallback(context.Background(), callback(5, "retry_get_1001_abcXYZ"))

	assert.Equal(t, []int{42}, f.client.deleted)
	require.Len(t, f.gate.reqs, 1)
	assert.Equal(t, "abcXYZ", f.gate.reqs[0].FileUniqueID)
	assert.Equal(t, []delivery{{5, 1001, "abcXYZ"}}, f.delivery.calls)
	assert.Equal(t, []answer{{ID: "cb1"}}, f.client.answers)
}

func TestHandleCallback_RetryDeleteRefused(t *testing.T) {
	f := newRouterFixture(withApp)
	f.client.deleteErr = errors.New("message can't be deleted")

	f.router.HandleCallback(context.Background(), callback(5, "retry_get_1001_abcXYZ"))

	assert.Equal(t, []answer{{ID: "cb1", Text: MsgRetrying}}, f.client.answers)
	assert.Len(t, f.gate.reqs, 1)
}

func TestHandleCallback_RetryUserBlocked(t *testing.T) {
	f := newRouterFixture(withApp)
	f.gate.decisions = []services.GateDecision{{Kind: services.DecisionRequireJoin, RetryPayload: "get_1001_abcXYZ"}}
	f.client.sendErr = fmt.Errorf("%w: blocked", messenger.ErrUserBlocked)

	f.router.HandleCallback(context.Background(), callback(5, "retry_get_1001_abcXYZ"))

	assert.Equal(t, []answer{{ID: "cb1", Text: MsgRetryBlocked, Alert: true}}, f.client.answers)
}

func TestHandleCallback_RetryRejectsOtherKinds(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleCallback(context.Background(), callback(5, "retry_verify_1001_abcXYZ"))

	assert.Empty(t, f.gate.reqs)
	assert.Equal(t, []string{MsgInvalidLink}, f.client.texts())
}

func TestHandleCallback_GoBack(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleCallback(context.Background(), callback(5, "go_back_5"))

	require.Len(t, f.client.edits, 1)
	assert.Equal(t, "menu", f.client.edits[0].Text)
	assert.Equal(t, []answer{{ID: "cb1"}}, f.client.answers)
}

func TestHandleCallback_GoBackNotForYou(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleCallback(context.Background(), callback(6, "go_back_5"))

	assert.Empty(t, f.client.edits)
	assert.Equal(t, []answer{{ID: "cb1", Text: MsgNotForYou, Alert: true}}, f.client.answers)
}

func TestHandleCallback_GoBackNotModified(t *testing.T) {
	f := newRouterFixture(withApp)
	f.client.editErr = fmt.Errorf("%w: same", messenger.ErrMessageNotModified)

	f.router.HandleCallback(context.Background(), callback(5, "go_back_5"))

	assert.Equal(t, []answer{{ID: "cb1"}}, f.client.answers)
}

func TestHandleCallback_GoBackMenuError(t *testing.T) {
	f := newRouterFixture(withApp)
	f.menu.err = errors.New("db")

	f.router.HandleCallback(context.Background(), callback(5, "go_back_5"))

	assert.Empty(t, f.client.edits)
	assert.Equal(t, []answer{{ID: "cb1", Text: MsgMenuError, Alert: true}}, f.client.answers)
}

func TestHandleCallback_Unknown(t *testing.T) {
	f := newRouterFixture(withApp)

	f.router.HandleCallback(context.Background(), callback(5, "something"))
	assert.Equal(t, []answer{{ID: "cb1"}}, f.client.answers)
}
