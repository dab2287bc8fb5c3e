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

// Semaphore posts form-encoded messages to the Semaphore v4 API.
type Semaphore struct {
	endpoint   string
	apiKey     string
	senderName string
	client     *http.Client
}

func NewSemaphore(endpoint, apiKey, senderName string, client *http.Client) *Semaphore {
	return &Semaphore{endpoint: endpoint, apiKey: apiKey, senderName: senderName, client: client}
}

func (s *Semaphore) Name() string { return ProviderSemaphore }

type semaphoreResult struct {
	MessageID any    `json:"message_id"`
	Status    string `json:"status"`
}

func (s *Semaphore) SendSMS(ctx context.Context, phone, message string) (bool, error) {
	form := url.Values{
		"apikey":     {s.apiKey},
		"number":     {InternationalPH(phone)},
		"message":    {message},
		"sendername": {s.senderName},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("semaphore: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("semaphore: send: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("semaphore: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("semaphore: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var results []semaphoreResult
	if err := json.Unmarshal(body, &results); err != nil {
		return false, fmt.Errorf("semaphore: decode response: %w", err)
	}
	if len(results) == 0 {
		return false, nil
	}
	// queued and pending mean Semaphore accepted the message for delivery
	switch strings.ToLower(results[0].Status) {
	case "success", "queued", "pending", "sent":
		return true, nil
	}
	return false, nil
}
