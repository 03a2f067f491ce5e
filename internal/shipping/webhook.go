package shipping

import (
	"context"
	"encoding/json"
	"time"

	"gateway-emulator/internal/model"
)

const (
	HeaderAPIKey = "x-api-key"

	timestampLayout = "2006-01-02 15:04:05"
)

type webhookScan struct {
	Date          string `json:"date"`
	Status        string `json:"status"`
	Activity      string `json:"activity"`
	Location      string `json:"location"`
	SRStatus      int    `json:"sr-status"`
	SRStatusLabel string `json:"sr-status-label"`
}

type webhookPayload struct {
	AWB                 string        `json:"awb"`
	CourierName         string        `json:"courier_name"`
	CurrentStatus       string        `json:"current_status"`
	CurrentStatusID     int           `json:"current_status_id"`
	ShipmentStatus      string        `json:"shipment_status"`
	ShipmentStatusID    int           `json:"shipment_status_id"`
	CurrentTimestamp    string        `json:"current_timestamp"`
	OrderID             string        `json:"order_id"`
	SROrderID           int64         `json:"sr_order_id"`
	ShipmentID          int64         `json:"shipment_id"`
	AWBAssignedDate     string        `json:"awb_assigned_date"`
	PickupScheduledDate string        `json:"pickup_scheduled_date,omitempty"`
	ETD                 string        `json:"etd"`
	Scans               []webhookScan `json:"scans"`
	IsReturn            int           `json:"is_return"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func toWebhookScans(scans []Checkpoint) []webhookScan {
	out := make([]webhookScan, 0, len(scans))
	for _, s := range scans {
		out = append(out, webhookScan{
			Date:          formatTimestamp(s.Date),
			Status:        s.Status,
			Activity:      s.Activity,
			Location:      s.Location,
			SRStatus:      s.StatusID,
			SRStatusLabel: s.Status,
		})
	}
	return out
}

// notify schedules a status webhook for order. Must hold e.mu.
func (e *Emulator) notify(ctx context.Context, order *Order, current Checkpoint, scans []Checkpoint) {
	p := webhookPayload{
		AWB:              order.AWB,
		CourierName:      order.Courier.Name,
		CurrentStatus:    current.Status,
		CurrentStatusID:  current.StatusID,
		ShipmentStatus:   current.Status,
		ShipmentStatusID: current.StatusID,
		CurrentTimestamp: formatTimestamp(current.Date),
		OrderID:          order.Request.OrderID,
		SROrderID:        order.ProviderOrderID,
		ShipmentID:       order.ShipmentID,
		ETD:              formatTimestamp(order.ETD),
		Scans:            toWebhookScans(scans),
	}
	if order.AWBAssignedAt != nil {
		p.AWBAssignedDate = formatTimestamp(*order.AWBAssignedAt)
	}
	if order.Pickup != nil {
		p.PickupScheduledDate = order.Pickup.ScheduledDate.Format(time.DateOnly)
	}

	body, err := json.Marshal(p)
	if err != nil {
		e.logger.ErrorContext(ctx, "Error marshalling shipping webhook", "error", err)
		return
	}

	e.notifier.Dispatch(ctx, model.WebhookEvent{
		Gateway: model.GatewayShipping,
		Type:    current.Status,
		Subject: order.AWB,
		URL:     e.webhookURL,
		Payload: body,
		Headers: map[string]string{HeaderAPIKey: e.cfg.WebhookToken},
	}, e.cfg.WebhookDelay())
}
