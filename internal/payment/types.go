package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodUPI          Method = "upi"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
)

func (m Method) Valid() bool {
	switch m {
	case MethodUPI, MethodBankTransfer, MethodCard:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

type LinkStatus string

const (
	LinkActive  LinkStatus = "active"
	LinkExpired LinkStatus = "expired"
	LinkPaid    LinkStatus = "paid"
)

const DefaultCurrency = "INR"

type VirtualAccount struct {
	ID            string
	CustomerID    string
	AccountNumber string
	IFSC          string
	UPIID         string
	Purpose       string
	Metadata      map[string]any
	Balance       decimal.Decimal
	CreatedAt     time.Time
}

type PaymentLink struct {
	ID            string
	Amount        decimal.Decimal
	Currency      string
	Purpose       string
	CustomerID    string
	UPILink       string
	QRCodeURL     string
	Status        LinkStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	PaidAt        *time.Time
	TransactionID string
}

// Transaction carries a UTR if and only if its status is success.
type Transaction struct {
	ID            string
	AccountID     string
	LinkID        string
	Amount        decimal.Decimal
	Currency      string
	Method        Method
	Status        TransactionStatus
	UTR           string
	FailureReason string
	Metadata      map[string]any
	CreatedAt     time.Time
	SettledAt     *time.Time

	succeeds bool
}

type CreateAccountRequest struct {
	CustomerID string
	Purpose    string
	Metadata   map[string]any
}

type LinkRequest struct {
	Amount     decimal.Decimal
	Currency   string
	Purpose    string
	CustomerID string
	// ExpiresIn falls back to the configured link expiry when zero.
	ExpiresIn  time.Duration
}

type SimulateRequest struct {
	AccountID  string
	Amount     decimal.Decimal
	Method     Method
	LinkID     string
	Metadata   map[string]any
	// WebhookURL replaces the process-wide payment webhook URL when set.
	WebhookURL string
	// Deferred keeps the transaction pending until the settlement delay elapses.
	Deferred   bool
}
