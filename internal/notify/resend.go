package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/avvvet/community-intent/internal/models"
)

// emailSender is the part of the Resend client the gateway uses
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendGateway emails caregivers via the Resend API
type ResendGateway struct {
	emails      emailSender
	fromAddress string
	recipients  []string
	timeout     time.Duration
}

// NewResendGateway returns nil when no API key is set
func NewResendGateway(apiKey, from string, recipients []string, timeout time.Duration) *ResendGateway {
	if apiKey == "" {
		return nil
	}
	return &ResendGateway{
		emails:      resend.NewClient(apiKey).Emails,
		fromAddress: from,
		recipients:  recipients,
		timeout:     timeout,
	}
}

func (r *ResendGateway) Name() string {
	return "resend"
}

func (r *ResendGateway) IsConfigured() bool {
	return r != nil && r.emails != nil && r.fromAddress != "" && len(r.recipients) > 0
}

// Alert expects alert.Message to be escaped already
func (r *ResendGateway) Alert(ctx context.Context, alert models.Alert) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      r.recipients,
		Subject: fmt.Sprintf("Emergency SOS from %s", alert.UserID),
		Html:    formatAlertHTML(alert),
	}

	sent, err := r.emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}

func formatAlertHTML(alert models.Alert) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px;">`)
	b.WriteString(`<h2 style="color: #dc3545;">Emergency SOS</h2>`)
	fmt.Fprintf(&b, `<p style="font-size: 16px;">%s</p>`, alert.Message)
	if !alert.Timestamp.IsZero() {
		fmt.Fprintf(&b, `<p style="color: #999; font-size: 12px;">Raised at %s</p>`, alert.Timestamp.Format("Jan 2, 2006 3:04 PM"))
	}
	b.WriteString(`</div>`)
	return b.String()
}
