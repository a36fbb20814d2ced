package wizard_test

import (
	"context"
	"testing"
	"time"

	"github.com/ErlanBelekov/vsm-auth/internal/domain"
	"github.com/ErlanBelekov/vsm-auth/internal/gateway"
	"github.com/ErlanBelekov/vsm-auth/internal/gateway/gatewaytest"
	"github.com/ErlanBelekov/vsm-auth/internal/tokenstore"
	"github.com/ErlanBelekov/vsm-auth/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flow drives a wizard against the in-memory auth API over real HTTP.
type flow struct {
	t         *testing.T
	ctx       context.Context
	api       *gatewaytest.Server
	sched     *fakeScheduler
	tokens    *tokenstore.MemoryStore
	w         *wizard.Orchestrator
	navigated []string
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	f := &flow{
		t:      t,
		ctx:    context.Background(),
		api:    gatewaytest.NewServer(t, discard),
		sched:  &fakeScheduler{},
		tokens: tokenstore.NewMemoryStore(),
	}
	client := gateway.NewClient(f.api.URL, discard, gateway.WithBearer(func() string {
		token, _, _ := f.tokens.Get(domain.TokenKey)
		return token
	}))
	f.w = wizard.New(client, f.tokens, discard,
		wizard.WithScheduler(f.sched),
		wizard.WithOnNavigate(func(loc string) { f.navigated = append(f.navigated, loc) }),
	)
	t.Cleanup(f.w.Close)
	return f
}

func (f *flow) send(ev wizard.Event) wizard.Snapshot {
	f.w.Dispatch(f.ctx, ev)
	f.w.Drain(f.ctx)
	return f.w.Snapshot()
}

func (f *flow) enterCode(code string) wizard.Snapshot {
	for i, r := range code {
		f.send(wizard.Event{Kind: wizard.EventOtpInput, Cell: i, Value: string(r)})
	}
	return f.send(wizard.Event{Kind: wizard.EventSubmitOtp})
}

func (f *flow) mailbox(email string) string {
	f.t.Helper()
	code, ok := f.api.Code(email)
	require.True(f.t, ok, "no code sent to %s", email)
	return code
}

func TestFlow_RegisterThenLogin(t *testing.T) {
	f := newFlow(t)
	const email = "carol@example.com"

	f.send(wizard.Event{Kind: wizard.EventShowRegister})
	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldRegisterName, Value: "Carol"})
	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldRegisterEmail, Value: email})
	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldRegisterMobile, Value: "9876543210"})
	s := f.send(wizard.Event{Kind: wizard.EventSubmitRegister})
	require.Equal(t, domain.PanelOTP, s.Panel, "banners: %v", s.Banners)

	s = f.enterCode(f.mailbox(email))
	assert.NotEmpty(t, s.Completion)
	assert.True(t, f.api.Registered(email))

	f.sched.fireAfter(3 * time.Second)
	f.w.Drain(f.ctx)
	require.Equal(t, []string{wizard.LocationDashboard}, f.navigated)

	f.send(wizard.Event{Kind: wizard.EventShowLogin})
	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldLoginEmail, Value: email})
	s = f.send(wizard.Event{Kind: wizard.EventSubmitLogin})
	require.Equal(t, domain.PanelOTP, s.Panel)

	f.enterCode(f.mailbox(email))
	token, ok, err := f.tokens.Get(domain.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)

	id, err := tokenstore.Describe(token)
	require.NoError(t, err)
	assert.Equal(t, email, id.Name())
}

func TestFlow_UnknownUserSeesServerMessage(t *testing.T) {
	f := newFlow(t)

	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldLoginEmail, Value: "nobody@example.com"})
	s := f.send(wizard.Event{Kind: wizard.EventSubmitLogin})

	assert.Equal(t, domain.PanelLogin, s.Panel)
	assert.Equal(t, "User not found", s.Banners[domain.FormLogin].Text)
}

func TestFlow_WrongCodeKeepsPanel(t *testing.T) {
	f := newFlow(t)
	const email = "dave@example.com"
	f.api.AddUser(email, "Dave")

	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldLoginEmail, Value: email})
	f.send(wizard.Event{Kind: wizard.EventSubmitLogin})

	wrong := "0000"
	if f.mailbox(email) == wrong {
		wrong = "1111"
	}
	s := f.enterCode(wrong)

	assert.Equal(t, domain.PanelOTP, s.Panel)
	assert.Equal(t, "Invalid or expired OTP", s.Banners[domain.FormOTP].Text)
	assert.Equal(t, wrong, s.OTP[0]+s.OTP[1]+s.OTP[2]+s.OTP[3])
	_, stored, _ := f.tokens.Get(domain.TokenKey)
	assert.False(t, stored)
}

func TestFlow_ResendAfterExpiryIssuesFreshCode(t *testing.T) {
	f := newFlow(t)
	const email = "erin@example.com"
	f.api.AddUser(email, "Erin")

	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldLoginEmail, Value: email})
	f.send(wizard.Event{Kind: wizard.EventSubmitLogin})
	first := f.mailbox(email)

	for range wizard.CountdownSeconds {
		f.sched.tick()
		f.w.Drain(f.ctx)
	}
	require.True(t, f.w.Snapshot().ResendEnabled)

	var s wizard.Snapshot
	second := first
	for second == first {
		s = f.send(wizard.Event{Kind: wizard.EventResend})
		second = f.mailbox(email)
		if second == first {
			// Same draw; let the new countdown run out and ask again.
			for range wizard.CountdownSeconds {
				f.sched.tick()
				f.w.Drain(f.ctx)
			}
		}
	}
	assert.Equal(t, "A new verification code has been sent", s.Banners[domain.FormOTP].Text)

	f.enterCode(second)
	_, stored, _ := f.tokens.Get(domain.TokenKey)
	assert.True(t, stored)
}

func TestFlow_RequestsCarryRequestIDAndBearer(t *testing.T) {
	f := newFlow(t)
	const email = "frank@example.com"
	f.api.AddUser(email, "Frank")
	require.NoError(t, f.tokens.Set(domain.TokenKey, "tok_previous"))

	f.send(wizard.Event{Kind: wizard.EventInput, Field: domain.FieldLoginEmail, Value: email})
	f.send(wizard.Event{Kind: wizard.EventSubmitLogin})

	reqs := f.api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, gateway.EndpointLoginOTP.Path, reqs[0].Path)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.Equal(t, "tok_previous", reqs[0].Bearer)
}
