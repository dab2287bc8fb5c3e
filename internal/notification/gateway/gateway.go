// Package gateway sends SMS through the provider selected at startup.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"barangay/internal/platform/config"
)

// Gateway delivers one text message. A false result with a nil error means
// the provider accepted the call but reported a failed delivery.
type Gateway interface {
	SendSMS(ctx context.Context, phone, message string) (bool, error)
	Name() string
}

// Provider names accepted in configuration.
const (
	ProviderDisabled  = "disabled"
	ProviderMock      = "mock"
	ProviderSemaphore = "semaphore"
	ProviderIProg     = "iprogsms"
	ProviderTwilio    = "twilio"
)

// New builds the configured gateway. Disabled SMS always yields the
// disabled gateway regardless of provider.
func New(cfg config.SMS, logger *slog.Logger) (Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return Disabled{}, nil
	}
	client := &http.Client{Timeout: sendTimeout(cfg)}

	switch strings.ToLower(cfg.Provider) {
	case ProviderSemaphore:
		if cfg.SemaphoreAPIKey == "" {
			return nil, fmt.Errorf("semaphore: SEMAPHORE_API_KEY is required")
		}
		return NewSemaphore(cfg.SemaphoreURL, cfg.SemaphoreAPIKey, cfg.SenderName, client), nil
	case ProviderIProg:
		if cfg.IProgAPIToken == "" {
			return nil, fmt.Errorf("iprogsms: IPROG_SMS_API_TOKEN is required")
		}
		return NewIProg(cfg.IProgURL, cfg.IProgAPIToken, client), nil
	case ProviderTwilio:
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
			return nil, fmt.Errorf("twilio: account SID, auth token and sender number are required")
		}
		return NewTwilio(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, client), nil
	case ProviderDisabled:
		return Disabled{}, nil
	case ProviderMock, "":
		return NewMock(logger), nil
	default:
		return nil, fmt.Errorf("unknown SMS provider %q", cfg.Provider)
	}
}

func sendTimeout(cfg config.SMS) time.Duration {
	if cfg.SendTimeout > 0 {
		return cfg.SendTimeout
	}
	return 10 * time.Second
}

// Disabled drops every message.
type Disabled struct{}

func (Disabled) SendSMS(context.Context, string, string) (bool, error) { return false, nil }
func (Disabled) Name() string                                         { return ProviderDisabled }

// Mock logs messages instead of sending them.
type Mock struct {
	logger *slog.Logger
}

func NewMock(logger *slog.Logger) *Mock {
	return &Mock{logger: logger}
}

func (m *Mock) SendSMS(ctx context.Context, phone, message string) (bool, error) {
	m.logger.InfoContext(ctx, "mock sms", "phone", phone, "message", message)
	return true, nil
}

func (m *Mock) Name() string { return ProviderMock }
