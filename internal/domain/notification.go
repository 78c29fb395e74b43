package domain

import (
	"encoding/json"
	"time"
)

// NotificationChannel is the delivery medium of an outbox entry.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
	ChannelPush  NotificationChannel = "push"
)

// ProviderNone disables a channel for a hotel.
const ProviderNone = "none"

// OutboxStatus enumerates delivery states advanced by the external sender.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// NotificationOutboxEntry is a durable pending notification.
type NotificationOutboxEntry struct {
	ID            string
	HotelID       string
	Channel       NotificationChannel
	Provider      string
	ToAddress     string
	Subject       *string
	BodyText      string
	Payload       json.RawMessage
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
