package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether c is a supported channel.
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelWhatsApp
}

// NotificationStatus for delivery.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// NotificationKind identifies why a notification was produced.
type NotificationKind string

const (
	NotificationRegistrationConfirmed NotificationKind = "registration_confirmed"
	NotificationRegistrationCancelled NotificationKind = "registration_cancelled"
	NotificationMatchConfirmed        NotificationKind = "match_confirmed"
	NotificationMatchCancelled        NotificationKind = "match_cancelled"
	NotificationReminder              NotificationKind = "reminder"
	NotificationManual                NotificationKind = "manual"
)

// Notification records one outbound message and its delivery state.
type Notification struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	ActivityID   *uuid.UUID       `json:"activity_id,omitempty"`
	Kind         NotificationKind `json:"kind"`
	Message      string           `json:"message"`
	Channel      Channel          `json:"channel"`
	Recipient    string           `json:"recipient"`
	Status       string           `json:"status"`
	ProviderRef  string           `json:"provider_ref,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	SentAt       *time.Time       `json:"sent_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
