package payment

import (
	"context"
	"encoding/json"
	"time"

	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/model"
)

const (
	EventPaymentSuccess = "payment.success"
	EventPaymentFailed  = "payment.failed"

	HeaderSignature = "x-webhook-signature"
	HeaderEvent     = "x-webhook-event"
)

type webhookPayload struct {
	EventType            string         `json:"event_type"`
	TransactionID        string         `json:"transaction_id"`
	VirtualAccountID     string         `json:"virtual_account_id,omitempty"`
	VirtualAccountNumber string         `json:"virtual_account_number,omitempty"`
	Amount               string         `json:"amount"`
	Currency             string         `json:"currency"`
	UTRNumber            string         `json:"utr_number,omitempty"`
	Status               string         `json:"status"`
	Mode                 string         `json:"mode"`
	LinkID               string         `json:"link_id,omitempty"`
	FailureReason        string         `json:"failure_reason,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Timestamp            string         `json:"timestamp"`
}

// notify schedules the webhook carrying tx's settled state. Must hold e.mu.
func (e *Emulator) notify(ctx context.Context, tx *Transaction, delay time.Duration) {
	eventType := EventPaymentSuccess
	if tx.Status != StatusSuccess {
		eventType = EventPaymentFailed
	}

	p := webhookPayload{
		EventType:     eventType,
		TransactionID: tx.ID,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		UTRNumber:     tx.UTR,
		Status:        string(tx.Status),
		Mode:          string(tx.Method),
		LinkID:        tx.LinkID,
		FailureReason: tx.FailureReason,
		Metadata:      tx.Metadata,
		Timestamp:     e.clock.Now().Add(delay).UTC().Format(time.RFC3339),
	}
	if account, ok := e.accounts[tx.AccountID]; ok {
		p.VirtualAccountID = account.ID
		p.VirtualAccountNumber = account.AccountNumber
	}

	body, err := json.Marshal(p)
	if err != nil {
		e.logger.ErrorContext(ctx, "Error marshalling payment webhook", "error", err)
		return
	}

	e.notifier.Dispatch(ctx, model.WebhookEvent{
		Gateway: model.GatewayPayment,
		Type:    eventType,
		Subject: tx.ID,
		URL:     e.webhookURL,
		Payload: body,
		Headers: map[string]string{
			HeaderSignature: callback.Sign(e.cfg.WebhookSecret, body),
			HeaderEvent:     eventType,
		},
	}, delay)
}
