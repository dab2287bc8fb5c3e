package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Twilio sends messages through the Twilio REST API with basic auth.
type Twilio struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func NewTwilio(baseURL, accountSID, authToken, from string, client *http.Client) *Twilio {
	return &Twilio{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     client,
	}
}

func (t *Twilio) Name() string { return ProviderTwilio }

type twilioResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (t *Twilio) SendSMS(ctx context.Context, phone, message string) (bool, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	form := url.Values{
		"From": {t.from},
		"To":   {InternationalPH(phone)},
		"Body": {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("twilio: read response: %w", err)
	}

	var out twilioResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("twilio: status %d: %s", resp.StatusCode, out.Message)
	}
	return out.SID != "", nil
}
