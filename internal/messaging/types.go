package messaging

import (
	"strings"
	"time"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

type MessageType string

const (
	TypeText        MessageType = "text"
	TypeTemplate    MessageType = "template"
	TypeInteractive MessageType = "interactive"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// rank orders the delivery progression. Failed sits outside it.
func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 0
	case StatusDelivered:
		return 1
	case StatusRead:
		return 2
	}
	return -1
}

func (s Status) Valid() bool {
	return s == StatusFailed || s.rank() >= 0
}

func (s Status) terminal() bool {
	return s == StatusFailed || s == StatusRead
}

type Button struct {
	ID    string
	Title string
}

// Interactive is a button or list message. Inbound replies carry ReplyID and ReplyTitle.
type Interactive struct {
	Type       string
	Body       string
	Buttons    []Button
	ReplyID    string
	ReplyTitle string
}

type TemplateRef struct {
	Name     string
	Language string
	Params   []string
}

type Message struct {
	ID          string
	Phone       string
	From        string
	To          string
	Direction   Direction
	Type        MessageType
	Text        string
	Template    *TemplateRef
	Interactive *Interactive
	Status      Status
	CreatedAt   time.Time
	DeliveredAt *time.Time
	ReadAt      *time.Time
	FailedAt    *time.Time
}

type Profile struct {
	Language     string
	BusinessName string
	Category     string
	UPIID        string
}

type Conversation struct {
	Phone     string
	State     State
	Profile   Profile
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TemplateRequest struct {
	Name     string
	Language string
	Params   []string
}

type SendRequest struct {
	// From is empty or the business number for outbound messages. Any other
	// sender simulates a user reply.
	From        string
	To          string
	Type        MessageType
	Text        string
	Template    *TemplateRequest
	Interactive *Interactive
}

// NormalizePhone strips formatting so "+91 98765-43210" and "919876543210" share a conversation.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
