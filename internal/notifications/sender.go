package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/minds-hub/backend/internal/models"
)

// Sender delivers one message and returns the provider's reference for it.
type Sender interface {
	Send(ctx context.Context, channel models.Channel, to, body string) (string, error)
}

// TwilioConfig holds the credentials and sender numbers for TwilioSender.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	SMSFrom        string
	WhatsAppFrom   string
	DefaultCountry string // dialling prefix for numbers without one, e.g. "+65"
}

// TwilioSender sends SMS and WhatsApp messages through the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
	cfg    TwilioConfig
}

// NewTwilioSender creates a Twilio-backed sender.
func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio account sid and auth token are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, cfg: cfg}, nil
}

// Send implements Sender. The Twilio client has no context support; ctx is checked once
// before the request.
func (s *TwilioSender) Send(ctx context.Context, channel models.Channel, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	from, to, err := s.addresses(channel, to)
	if err != nil {
		return "", err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio %s: %w", channel, err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

func (s *TwilioSender) addresses(channel models.Channel, to string) (string, string, error) {
	to = NormalizePhone(to, s.cfg.DefaultCountry)
	if to == "" {
		return "", "", errors.New("empty recipient")
	}
	switch channel {
	case models.ChannelSMS:
		if s.cfg.SMSFrom == "" {
			return "", "", errors.New("sms sender number not configured")
		}
		return s.cfg.SMSFrom, to, nil
	case models.ChannelWhatsApp:
		if s.cfg.WhatsAppFrom == "" {
			return "", "", errors.New("whatsapp sender number not configured")
		}
		return "whatsapp:" + strings.TrimPrefix(s.cfg.WhatsAppFrom, "whatsapp:"), "whatsapp:" + to, nil
	}
	return "", "", fmt.Errorf("unsupported channel %q", channel)
}

// NormalizePhone strips spaces, dashes and brackets and prefixes defaultCountry when the
// number has no leading "+".
func NormalizePhone(phone, defaultCountry string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	n := b.String()
	if n == "" || strings.HasPrefix(n, "+") {
		return n
	}
	if strings.HasPrefix(n, "00") {
		return "+" + n[2:]
	}
	return defaultCountry + n
}

// LogSender logs messages instead of sending them. Used when no provider is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, channel models.Channel, to, body string) (string, error) {
	ref := "mock-" + uuid.NewString()
	s.logger.Info("notification (mock)",
		zap.String("channel", string(channel)),
		zap.String("to", to),
		zap.String("body", body),
		zap.String("ref", ref),
	)
	return ref, nil
}

// NewSender returns a LogSender in mock mode and a TwilioSender otherwise.
func NewSender(mock bool, cfg TwilioConfig, logger *zap.Logger) (Sender, error) {
	if mock {
		return NewLogSender(logger), nil
	}
	return NewTwilioSender(cfg)
}
