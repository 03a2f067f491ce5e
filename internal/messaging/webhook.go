package messaging

import (
	"context"
	"encoding/json"
	"strconv"

	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/model"
)

const (
	HeaderSignature = "X-Hub-Signature-256"

	codeUndeliverable = 131026
)

type webhookEnvelope struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type webhookContact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

type webhookText struct {
	Body string `json:"body"`
}

type webhookReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type webhookInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *webhookReply `json:"button_reply,omitempty"`
	ListReply   *webhookReply `json:"list_reply,omitempty"`
}

type webhookMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *webhookText        `json:"text,omitempty"`
	Interactive *webhookInteractive `json:"interactive,omitempty"`
}

type webhookError struct {
	Code  int    `json:"code"`
	Title string `json:"title"`
}

type webhookStatus struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Timestamp   string         `json:"timestamp"`
	RecipientID string         `json:"recipient_id"`
	Errors      []webhookError `json:"errors,omitempty"`
}

type webhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         webhookMetadata  `json:"metadata"`
	Contacts         []webhookContact `json:"contacts,omitempty"`
	Messages         []webhookMessage `json:"messages,omitempty"`
	Statuses         []webhookStatus  `json:"statuses,omitempty"`
}

// Must hold e.mu.
func (e *Emulator) notifyInbound(ctx context.Context, c *conversation, msg *Message) {
	contact := webhookContact{WaID: msg.From}
	contact.Profile.Name = c.profile.BusinessName
	if contact.Profile.Name == "" {
		contact.Profile.Name = "WhatsApp User"
	}

	wm := webhookMessage{
		From:      msg.From,
		ID:        msg.ID,
		Timestamp: strconv.FormatInt(msg.CreatedAt.Unix(), 10),
		Type:      string(msg.Type),
	}
	if msg.Interactive != nil {
		reply := &webhookReply{ID: msg.Interactive.ReplyID, Title: msg.Interactive.ReplyTitle}
		wm.Interactive = &webhookInteractive{Type: msg.Interactive.Type}
		if msg.Interactive.Type == "list_reply" {
			wm.Interactive.ListReply = reply
		} else {
			wm.Interactive.Type = "button_reply"
			wm.Interactive.ButtonReply = reply
		}
	} else {
		wm.Text = &webhookText{Body: msg.Text}
	}

	e.send(ctx, "message.received", msg.ID, webhookValue{
		Contacts: []webhookContact{contact},
		Messages: []webhookMessage{wm},
	})
}

// Must hold e.mu.
func (e *Emulator) notifyStatus(ctx context.Context, msg *Message, status Status) {
	ws := webhookStatus{
		ID:          msg.ID,
		Status:      string(status),
		Timestamp:   strconv.FormatInt(e.clock.Now().Unix(), 10),
		RecipientID: msg.To,
	}
	if status == StatusFailed {
		ws.Errors = []webhookError{{Code: codeUndeliverable, Title: "Message undeliverable"}}
	}
	e.send(ctx, "message."+string(status), msg.ID, webhookValue{Statuses: []webhookStatus{ws}})
}

func (e *Emulator) send(ctx context.Context, eventType, subject string, value webhookValue) {
	value.MessagingProduct = "whatsapp"
	value.Metadata = webhookMetadata{
		DisplayPhoneNumber: e.business,
		PhoneNumberID:      e.cfg.PhoneNumberID,
	}
	envelope := webhookEnvelope{
		Object: "whatsapp_business_account",
		Entry: []webhookEntry{{
			ID:      e.cfg.BusinessAccountID,
			Changes: []webhookChange{{Field: "messages", Value: value}},
		}},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		e.logger.ErrorContext(ctx, "Error marshalling messaging webhook", "error", err)
		return
	}

	e.notifier.Dispatch(ctx, model.WebhookEvent{
		Gateway: model.GatewayMessaging,
		Type:    eventType,
		Subject: subject,
		URL:     e.webhookURL,
		Payload: body,
		Headers: map[string]string{HeaderSignature: "sha256=" + callback.Sign(e.cfg.AppSecret, body)},
	}, e.cfg.WebhookDelay())
}
