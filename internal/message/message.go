package message

import (
	"encoding/json"
	"time"

	"gateway-emulator/internal/model"
	"github.com/google/uuid"
)

// GatewayEvent is the record mirrored to the event topic for every webhook.
type GatewayEvent struct {
	ID        uuid.UUID       `json:"id"`
	Gateway   string          `json:"gateway"`
	Type      string          `json:"type"`
	Subject   string          `json:"subject"`
	URL       string          `json:"url"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

func FromWebhookEvent(ev model.WebhookEvent) GatewayEvent {
	payload := json.RawMessage(ev.Payload)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(string(ev.Payload))
	}
	return GatewayEvent{
		ID:        ev.ID,
		Gateway:   ev.Gateway,
		Type:      ev.Type,
		Subject:   ev.Subject,
		URL:       ev.URL,
		Payload:   payload,
		CreatedAt: ev.CreatedAt,
	}
}
