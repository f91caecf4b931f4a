package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/avvvet/community-intent/internal/metrics"
	"github.com/avvvet/community-intent/internal/models"
)

// MockGateway for testing
type MockGateway struct {
	mock.Mock
	name string
}

func (m *MockGateway) Alert(ctx context.Context, alert models.Alert) (string, error) {
	args := m.Called(ctx, alert)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Name() string { return m.name }

func (m *MockGateway) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

type fakeEmails struct {
	sent        *resend.SendEmailRequest
	err         error
	hasDeadline bool
	deadline    time.Time
}

func (f *fakeEmails) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.sent = params
	f.deadline, f.hasDeadline = ctx.Deadline()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email-123"}, nil
}

var testAlert = models.Alert{
	UserID:    "user-1",
	Message:   "Emergency SOS activated. Location: Punggol Field, near Punggol MRT.",
	Timestamp: time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC),
}

func TestService_Notify(t *testing.T) {
	ctx := context.Background()

	call := &MockGateway{name: "call"}
	call.On("IsConfigured").Return(true)
	call.On("Alert", ctx, testAlert).Return("CA123", nil)

	email := &MockGateway{name: "email"}
	email.On("IsConfigured").Return(true)
	email.On("Alert", ctx, testAlert).Return("", errors.New("rate limited"))

	sms := &MockGateway{name: "sms"}
	sms.On("IsConfigured").Return(false)

	svc := NewService(zaptest.NewLogger(t), metrics.New(prometheus.NewRegistry()), call, email, sms)
	receipts := svc.Notify(ctx, testAlert)

	assert.Equal(t, []models.AlertReceipt{
		{Gateway: "call", ID: "CA123", Status: models.AlertSent},
		{Gateway: "email", Status: models.AlertFailed},
		{Gateway: "sms", Status: models.AlertNotConfigured},
	}, receipts)
	assert.True(t, AnySent(receipts))

	call.AssertExpectations(t)
	email.AssertExpectations(t)
	sms.AssertNotCalled(t, "Alert", mock.Anything, mock.Anything)
}

func TestService_SkipsNilGateways(t *testing.T) {
	var resendGateway *ResendGateway
	svc := NewService(nil, nil, resendGateway, nil)

	receipts := svc.Notify(context.Background(), testAlert)
	assert.Empty(t, receipts)
	assert.False(t, AnySent(receipts))
}

func TestTwilioGateway_Alert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Calls.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+6590000000", r.PostForm.Get("To"))
		assert.Equal(t, "+6581111111", r.PostForm.Get("From"))
		assert.Equal(t, `<Response><Say voice="alice">`+testAlert.Message+`</Say></Response>`, r.PostForm.Get("Twiml"))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid": "CA999", "status": "queued"}`))
	}))
	defer srv.Close()

	g := NewTwilioGateway("AC123", "secret", "+6581111111", "+6590000000", time.Second)
	g.baseURL = srv.URL
	require.True(t, g.IsConfigured())

	sid, err := g.Alert(context.Background(), testAlert)
	require.NoError(t, err)
	assert.Equal(t, "CA999", sid)
}

func TestTwilioGateway_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": 21211, "message": "The 'To' number is not a valid phone number."}`))
	}))
	defer srv.Close()

	g := NewTwilioGateway("AC123", "secret", "+6581111111", "bogus", time.Second)
	g.baseURL = srv.URL

	_, err := g.Alert(context.Background(), testAlert)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioGateway_IsConfigured(t *testing.T) {
	assert.False(t, NewTwilioGateway("", "secret", "+65", "+65", 0).IsConfigured())
	assert.False(t, NewTwilioGateway("AC", "secret", "+65", "", 0).IsConfigured())
	var nilGateway *TwilioGateway
	assert.False(t, nilGateway.IsConfigured())
}

func TestResendGateway(t *testing.T) {
	assert.Nil(t, NewResendGateway("", "alerts@example.com", []string{"carer@example.com"}, time.Second))
	assert.False(t, NewResendGateway("re_key", "", []string{"carer@example.com"}, time.Second).IsConfigured())
	assert.False(t, NewResendGateway("re_key", "alerts@example.com", nil, time.Second).IsConfigured())

	emails := &fakeEmails{}
	g := &ResendGateway{emails: emails, fromAddress: "alerts@example.com", recipients: []string{"carer@example.com"}}
	require.True(t, g.IsConfigured())

	id, err := g.Alert(context.Background(), testAlert)
	require.NoError(t, err)
	assert.Equal(t, "email-123", id)

	require.NotNil(t, emails.sent)
	assert.Equal(t, []string{"carer@example.com"}, emails.sent.To)
	assert.Equal(t, "Emergency SOS from user-1", emails.sent.Subject)
	assert.Contains(t, emails.sent.Html, testAlert.Message)
	assert.Contains(t, emails.sent.Html, "Oct 15, 2026 2:30 PM")
}

func TestResendGateway_UsesRequestContext(t *testing.T) {
	t.Run("gateway timeout bounds the send", func(t *testing.T) {
		emails := &fakeEmails{}
		g := &ResendGateway{emails: emails, fromAddress: "a@example.com", recipients: []string{"b@example.com"}, timeout: 3 * time.Second}

		before := time.Now()
		_, err := g.Alert(context.Background(), testAlert)
		require.NoError(t, err)

		require.True(t, emails.hasDeadline)
		assert.WithinDuration(t, before.Add(3*time.Second), emails.deadline, time.Second)
	})

	t.Run("request deadline is kept", func(t *testing.T) {
		emails := &fakeEmails{}
		g := &ResendGateway{emails: emails, fromAddress: "a@example.com", recipients: []string{"b@example.com"}}

		deadline := time.Now().Add(time.Minute)
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()

		_, err := g.Alert(ctx, testAlert)
		require.NoError(t, err)
		require.True(t, emails.hasDeadline)
		assert.True(t, deadline.Equal(emails.deadline))
	})

	t.Run("cancelled request does not send", func(t *testing.T) {
		emails := &fakeEmails{}
		g := &ResendGateway{emails: emails, fromAddress: "a@example.com", recipients: []string{"b@example.com"}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := g.Alert(ctx, testAlert)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, emails.sent)
	})
}

func TestResendGateway_Error(t *testing.T) {
	g := &ResendGateway{emails: &fakeEmails{err: errors.New("422")}, fromAddress: "a@example.com", recipients: []string{"b@example.com"}}

	_, err := g.Alert(context.Background(), testAlert)
	assert.ErrorContains(t, err, "resend send failed")
}
