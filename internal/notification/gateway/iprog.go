package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// IProg posts JSON messages to the IPROG SMS API.
type IProg struct {
	endpoint string
	token    string
	client   *http.Client
}

func NewIProg(endpoint, token string, client *http.Client) *IProg {
	return &IProg{endpoint: endpoint, token: token, client: client}
}

func (p *IProg) Name() string { return ProviderIProg }

type iprogRequest struct {
	APIToken    string `json:"api_token"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
	SMSProvider int    `json:"sms_provider"`
}

type iprogResponse struct {
	Status    any `json:"status"`
	Message   any `json:"message"`
	MessageID any `json:"message_id"`
}

func (p *IProg) SendSMS(ctx context.Context, phone, message string) (bool, error) {
	payload, err := json.Marshal(iprogRequest{
		APIToken:    p.token,
		PhoneNumber: LocalPH(phone),
		Message:     message,
	})
	if err != nil {
		return false, fmt.Errorf("iprogsms: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("iprogsms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("iprogsms: send: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("iprogsms: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("iprogsms: status %d", resp.StatusCode)
	}

	var out iprogResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("iprogsms: decode response: %w", err)
	}
	return fmt.Sprint(out.Status) == "200", nil
}
