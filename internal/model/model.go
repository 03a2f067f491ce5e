package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	GatewayPayment   = "payment"
	GatewayShipping  = "shipping"
	GatewayMessaging = "messaging"
)

// WebhookEvent is a state change an emulator reports to its configured callback URL.
type WebhookEvent struct {
	ID        uuid.UUID         `json:"id"`
	Gateway   string            `json:"gateway"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject"`
	URL       string            `json:"url"`
	Payload   []byte            `json:"-"`
	Headers   map[string]string `json:"-"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Delivery tracks the attempts made to deliver one WebhookEvent.
type Delivery struct {
	ID          uuid.UUID  `json:"id"`
	Gateway     string     `json:"gateway"`
	EventType   string     `json:"eventType"`
	Subject     string     `json:"subject"`
	URL         string     `json:"url"`
	Payload     string     `json:"payload"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
}
