package db

import (
	"time"

	"gateway-emulator/internal/model"
	"github.com/google/uuid"
)

type DeliveryEntity struct {
	ID          uuid.UUID
	Gateway     string
	EventType   string
	Subject     string
	Url         string
	Payload     string
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ScheduledAt *time.Time
	DeliveredAt *time.Time
	Error       *string
}

func fromDelivery(d *model.Delivery) *DeliveryEntity {
	return &DeliveryEntity{
		ID:          d.ID,
		Gateway:     d.Gateway,
		EventType:   d.EventType,
		Subject:     d.Subject,
		Url:         d.URL,
		Payload:     d.Payload,
		Attempts:    d.Attempts,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ScheduledAt: d.ScheduledAt,
		DeliveredAt: d.DeliveredAt,
		Error:       d.Error,
	}
}

func (e *DeliveryEntity) toDelivery() model.Delivery {
	return model.Delivery{
		ID:          e.ID,
		Gateway:     e.Gateway,
		EventType:   e.EventType,
		Subject:     e.Subject,
		URL:         e.Url,
		Payload:     e.Payload,
		Attempts:    e.Attempts,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
		ScheduledAt: e.ScheduledAt,
		DeliveredAt: e.DeliveredAt,
		Error:       e.Error,
	}
}
