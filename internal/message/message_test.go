package message

import (
	"encoding/json"
	"testing"
	"time"

	"gateway-emulator/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWebhookEvent(t *testing.T) {
	ev := model.WebhookEvent{
		ID:        uuid.New(),
		Gateway:   model.GatewayPayment,
		Type:      "payment.success",
		Subject:   "txn_1",
		URL:       "http://example.com/hook",
		Payload:   []byte(`{"status":"success"}`),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	out, err := json.Marshal(FromWebhookEvent(ev))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"`+ev.ID.String()+`",
		"gateway":"payment",
		"type":"payment.success",
		"subject":"txn_1",
		"url":"http://example.com/hook",
		"payload":{"status":"success"},
		"createdAt":"2025-01-01T00:00:00Z"
	}`, string(out))
}

func TestFromWebhookEvent_NonJSONPayload(t *testing.T) {
	got := FromWebhookEvent(model.WebhookEvent{Payload: []byte("plain text")})
	assert.Equal(t, `"plain text"`, string(got.Payload))
}
