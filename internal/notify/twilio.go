package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/community-intent/internal/models"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioGateway places an outbound voice call that reads the alert aloud
type TwilioGateway struct {
	accountSID string
	authToken  string
	from       string
	to         string
	baseURL    string
	client     *http.Client
}

func NewTwilioGateway(accountSID, authToken, from, to string, timeout time.Duration) *TwilioGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioGateway{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		baseURL:    twilioAPIBase,
		client:     &http.Client{Timeout: timeout},
	}
}

func (g *TwilioGateway) Name() string {
	return "twilio"
}

func (g *TwilioGateway) IsConfigured() bool {
	return g != nil && g.accountSID != "" && g.authToken != "" && g.from != "" && g.to != ""
}

type twilioCall struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Alert expects alert.Message to be escaped already
func (g *TwilioGateway) Alert(ctx context.Context, alert models.Alert) (string, error) {
	form := url.Values{}
	form.Set("To", g.to)
	form.Set("From", g.from)
	form.Set("Twiml", twiml(alert.Message))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", g.baseURL, url.PathEscape(g.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build call request: %w", err)
	}
	req.SetBasicAuth(g.accountSID, g.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("twilio call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("failed to read twilio response: %w", err)
	}

	var call twilioCall
	_ = json.Unmarshal(body, &call)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio returned %d (code %d): %s", resp.StatusCode, call.Code, call.Message)
	}
	if call.SID == "" {
		return "", fmt.Errorf("twilio response has no call sid")
	}
	return call.SID, nil
}

func twiml(message string) string {
	return fmt.Sprintf(`<Response><Say voice="alice">%s</Say></Response>`, message)
}
