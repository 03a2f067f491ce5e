package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/clock"
	"gateway-emulator/internal/config"
	"gateway-emulator/internal/idgen"
	"github.com/VictoriaMetrics/metrics"
)

func messageCounter(direction Direction) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`messaging_messages_total{direction=%q}`, direction))
}

func statusCounter(status Status) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`messaging_status_transitions_total{status=%q}`, status))
}

type conversation struct {
	phone     string
	state     State
	profile   Profile
	messages  []*Message
	createdAt time.Time
	updatedAt time.Time
}

func (c *conversation) snapshot() Conversation {
	messages := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		messages = append(messages, *m)
	}
	return Conversation{
		Phone:     c.phone,
		State:     c.state,
		Profile:   c.profile,
		Messages:  messages,
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

// Emulator is an in-memory messaging provider. Conversations are keyed by the
// normalized user phone number.
type Emulator struct {
	mu         sync.Mutex
	cfg        config.Messaging
	clock      clock.Clock
	notifier   callback.Notifier
	logger     *slog.Logger
	webhookURL string
	business   string

	conversations map[string]*conversation
	messages      map[string]*Message
}

func New(cfg config.Messaging, clk clock.Clock, notifier callback.Notifier, logger *slog.Logger) *Emulator {
	return &Emulator{
		cfg:           cfg,
		clock:         clk,
		notifier:      notifier,
		logger:        logger,
		webhookURL:    cfg.WebhookURL,
		business:      NormalizePhone(cfg.BusinessPhone),
		conversations: make(map[string]*conversation),
		messages:      make(map[string]*Message),
	}
}

func (e *Emulator) SetWebhookURL(u string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.webhookURL = u
}

func (e *Emulator) WebhookURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.webhookURL
}

// conversation returns the conversation for phone, creating it. Must hold e.mu.
func (e *Emulator) conversation(phone string) *conversation {
	c, ok := e.conversations[phone]
	if !ok {
		now := e.clock.Now()
		c = &conversation{phone: phone, state: StateStart, createdAt: now, updatedAt: now}
		e.conversations[phone] = c
	}
	return c
}

func (e *Emulator) isInbound(from string) bool {
	from = NormalizePhone(from)
	return from != "" && from != e.business
}

// SendMessage records a message. A sender other than the business number
// simulates a user reply, which drives the onboarding script and records the
// bot's answer. Outbound messages progress through delivery statuses on their own.
func (e *Emulator) SendMessage(ctx context.Context, req SendRequest) (Message, error) {
	ctx = context.WithoutCancel(ctx)
	inbound := e.isInbound(req.From)

	if !inbound && NormalizePhone(req.To) == "" {
		return Message{}, apperr.Validation("to", "The parameter to is required.").WithCode(codeInvalidParameters)
	}

	var text string
	var tmpl *TemplateRef
	switch req.Type {
	case TypeText:
		text = strings.TrimSpace(req.Text)
		if text == "" {
			return Message{}, apperr.Validation("text.body", "The parameter text.body is required.").WithCode(codeInvalidParameters)
		}
	case TypeTemplate:
		if req.Template == nil || req.Template.Name == "" {
			return Message{}, apperr.Validation("template.name", "The parameter template.name is required.").WithCode(codeInvalidParameters)
		}
		rendered, err := renderTemplate(req.Template.Name, req.Template.Language, req.Template.Params)
		if err != nil {
			return Message{}, err
		}
		text = rendered
		tmpl = &TemplateRef{Name: req.Template.Name, Language: req.Template.Language, Params: append([]string(nil), req.Template.Params...)}
	case TypeInteractive:
		if req.Interactive == nil {
			return Message{}, apperr.Validation("interactive", "The parameter interactive is required.").WithCode(codeInvalidParameters)
		}
		if inbound && req.Interactive.ReplyID == "" && req.Interactive.ReplyTitle == "" {
			return Message{}, apperr.Validation("interactive", "An interactive reply needs a button or list reply.").WithCode(codeInvalidParameters)
		}
		if !inbound && strings.TrimSpace(req.Interactive.Body) == "" {
			return Message{}, apperr.Validation("interactive.body", "The parameter interactive.body is required.").WithCode(codeInvalidParameters)
		}
		text = req.Interactive.Body
		if inbound {
			text = req.Interactive.ReplyTitle
		}
	default:
		return Message{}, apperr.Validation("type", "Unsupported message type %q", req.Type).WithCode(codeInvalidParameters)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if inbound {
		return e.receive(ctx, req, text), nil
	}

	msg := e.record(outgoing(e.business, req.To, req.Type, text))
	msg.Template = tmpl
	msg.Interactive = copyInteractive(req.Interactive)
	e.dispatchOutbound(ctx, msg)
	return *msg, nil
}

// SendTemplate sends a catalogue template to a user.
func (e *Emulator) SendTemplate(ctx context.Context, to, name, language string, params []string) (Message, error) {
	return e.SendMessage(ctx, SendRequest{
		To:       to,
		Type:     TypeTemplate,
		Template: &TemplateRequest{Name: name, Language: language, Params: params},
	})
}

func copyInteractive(in *Interactive) *Interactive {
	if in == nil {
		return nil
	}
	out := *in
	out.Buttons = append([]Button(nil), in.Buttons...)
	return &out
}

func outgoing(from, to string, typ MessageType, text string) *Message {
	return &Message{
		From:      from,
		To:        NormalizePhone(to),
		Phone:     NormalizePhone(to),
		Direction: Outbound,
		Type:      typ,
		Text:      text,
	}
}

// record assigns an id and the sent status and appends msg to its conversation. Must hold e.mu.
func (e *Emulator) record(msg *Message) *Message {
	now := e.clock.Now()
	msg.ID = idgen.MessageID()
	msg.Status = StatusSent
	msg.CreatedAt = now

	c := e.conversation(msg.Phone)
	c.messages = append(c.messages, msg)
	c.updatedAt = now
	e.messages[msg.ID] = msg
	messageCounter(msg.Direction).Inc()
	return msg
}

// receive handles a user reply. Must hold e.mu.
func (e *Emulator) receive(ctx context.Context, req SendRequest, text string) Message {
	phone := NormalizePhone(req.From)
	msg := e.record(&Message{
		From:        phone,
		To:          e.business,
		Phone:       phone,
		Direction:   Inbound,
		Type:        req.Type,
		Text:        text,
		Interactive: copyInteractive(req.Interactive),
	})
	e.logger.InfoContext(ctx, "Inbound message", "phone", phone, "messageId", msg.ID)

	c := e.conversation(phone)
	e.notifyInbound(ctx, c, msg)

	input := text
	if req.Type == TypeInteractive {
		input = req.Interactive.ReplyID
		if _, _, reply := step(c.state, c.profile, input); strings.HasPrefix(reply, retryPrefix) {
			input = req.Interactive.ReplyTitle
		}
	}
	if req.Type == TypeTemplate {
		input = ""
	}
	e.advance(ctx, c, input)
	return *msg
}

// advance runs input through the onboarding script and sends the reply. Must hold e.mu.
func (e *Emulator) advance(ctx context.Context, c *conversation, input string) {
	from := c.state
	next, profile, reply := step(c.state, c.profile, input)
	c.state, c.profile = next, profile
	if from != next {
		e.logger.InfoContext(ctx, "Conversation advanced", "phone", c.phone, "from", string(from), "to", string(next))
	}

	bot := e.record(outgoing(e.business, c.phone, TypeText, reply))
	e.dispatchOutbound(ctx, bot)
}

// StartOnboarding sends the welcome prompt to a phone whose conversation has
// not started yet. Other conversations are left as they are.
func (e *Emulator) StartOnboarding(ctx context.Context, phone string) (Conversation, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return Conversation{}, apperr.Validation("phone", "The parameter phone is required.")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.conversation(phone)
	if c.state == StateStart {
		e.advance(context.WithoutCancel(ctx), c, "")
	}
	return c.snapshot(), nil
}

// dispatchOutbound reports the sent status and schedules delivery and read
// receipts, or a failure. Must hold e.mu.
func (e *Emulator) dispatchOutbound(ctx context.Context, msg *Message) {
	e.notifyStatus(ctx, msg, StatusSent)

	id := msg.ID
	if rand.Float64() < e.cfg.FailureRate {
		e.clock.AfterFunc(e.cfg.DeliveryDelay(), func() { e.autoTransition(ctx, id, StatusFailed) })
		return
	}
	e.clock.AfterFunc(e.cfg.DeliveryDelay(), func() { e.autoTransition(ctx, id, StatusDelivered) })
	e.clock.AfterFunc(e.cfg.ReadDelay(), func() { e.autoTransition(ctx, id, StatusRead) })
}

func (e *Emulator) autoTransition(ctx context.Context, id string, status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.messages[id]
	if !ok {
		// conversation was cleared
		return
	}
	if err := e.transition(ctx, msg, status); err != nil {
		e.logger.DebugContext(ctx, "Skipping status transition", "messageId", id, "status", string(status), "reason", err.Error())
	}
}

// UpdateMessageStatus moves a message forward through sent, delivered and read,
// or to failed. Backward moves and moves out of read or failed are rejected
// and leave the message unchanged. Repeating the current status is a no-op.
func (e *Emulator) UpdateMessageStatus(ctx context.Context, id string, status Status) (Message, error) {
	if !status.Valid() {
		return Message{}, apperr.Validation("status", "Invalid status %q", status).WithCode(codeInvalidParameters)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.messages[id]
	if !ok {
		return Message{}, apperr.NotFound("Message %s not found", id)
	}
	if err := e.transition(context.WithoutCancel(ctx), msg, status); err != nil {
		return *msg, err
	}
	return *msg, nil
}

// transition applies status to msg, stamping any skipped intermediate status. Must hold e.mu.
func (e *Emulator) transition(ctx context.Context, msg *Message, status Status) error {
	current := msg.Status
	if status == current {
		return nil
	}
	if current.terminal() {
		return apperr.Validation("status", "Message %s is already %s", msg.ID, current).WithCode(codeInvalidParameters)
	}
	if status != StatusFailed && status.rank() < current.rank() {
		return apperr.Validation("status", "Cannot move message %s from %s back to %s", msg.ID, current, status).WithCode(codeInvalidParameters)
	}

	now := e.clock.Now()
	if status == StatusFailed {
		msg.Status = StatusFailed
		msg.FailedAt = &now
		statusCounter(StatusFailed).Inc()
		e.notifyStatus(ctx, msg, StatusFailed)
		return nil
	}

	for _, s := range []Status{StatusDelivered, StatusRead} {
		if s.rank() <= current.rank() || s.rank() > status.rank() {
			continue
		}
		msg.Status = s
		if s == StatusDelivered {
			msg.DeliveredAt = &now
		} else {
			msg.ReadAt = &now
		}
		statusCounter(s).Inc()
		e.notifyStatus(ctx, msg, s)
	}
	return nil
}

func (e *Emulator) GetMessage(id string) (Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	msg, ok := e.messages[id]
	if !ok {
		return Message{}, apperr.NotFound("Message %s not found", id)
	}
	return *msg, nil
}

// Messages returns the conversation history for phone, oldest first.
func (e *Emulator) Messages(phone string) []Message {
	return e.Conversation(phone).Messages
}

func (e *Emulator) ConversationState(phone string) State {
	return e.Conversation(phone).State
}

// Conversation returns a snapshot of the conversation. Unknown phones are at the start state.
func (e *Emulator) Conversation(phone string) Conversation {
	phone = NormalizePhone(phone)

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.conversations[phone]
	if !ok {
		return Conversation{Phone: phone, State: StateStart, Messages: []Message{}}
	}
	return c.snapshot()
}

// ClearConversation discards the history and resets the script for phone.
func (e *Emulator) ClearConversation(phone string) {
	phone = NormalizePhone(phone)

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.conversations[phone]
	if !ok {
		return
	}
	for _, m := range c.messages {
		delete(e.messages, m.ID)
	}
	delete(e.conversations, phone)
}

// VerifyWebhook implements the subscription handshake: the challenge is echoed
// back only for mode "subscribe" with the configured verify token.
func (e *Emulator) VerifyWebhook(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token == "" || token != e.cfg.VerifyToken {
		return "", apperr.Unauthorized("Webhook verification failed")
	}
	return challenge, nil
}
