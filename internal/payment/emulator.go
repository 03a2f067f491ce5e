package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/clock"
	"gateway-emulator/internal/config"
	"gateway-emulator/internal/idgen"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	accountsCreatedCounter = metrics.GetOrCreateCounter(`payment_virtual_accounts_created_total`)
	linksCreatedCounter    = metrics.GetOrCreateCounter(`payment_links_created_total`)
	txSuccessCounter       = metrics.GetOrCreateCounter(`payment_transactions_total{result="success"}`)
	txFailedCounter        = metrics.GetOrCreateCounter(`payment_transactions_total{result="failed"}`)
)

var failureReasons = []string{
	"BANK_DECLINED",
	"INSUFFICIENT_FUNDS",
	"TRANSACTION_TIMEOUT",
	"INVALID_VPA",
}

// Emulator is an in-memory payment aggregator. One mutex guards every map, so
// operations on the same account, link or transaction are serialized.
type Emulator struct {
	mu         sync.Mutex
	cfg        config.Payment
	clock      clock.Clock
	notifier   callback.Notifier
	logger     *slog.Logger
	webhookURL string

	accounts     map[string]*VirtualAccount
	links        map[string]*PaymentLink
	transactions map[string]*Transaction
	byUTR        map[string]string
}

func New(cfg config.Payment, clk clock.Clock, notifier callback.Notifier, logger *slog.Logger) *Emulator {
	return &Emulator{
		cfg:          cfg,
		clock:        clk,
		notifier:     notifier,
		logger:       logger,
		webhookURL:   cfg.WebhookURL,
		accounts:     make(map[string]*VirtualAccount),
		links:        make(map[string]*PaymentLink),
		transactions: make(map[string]*Transaction),
		byUTR:        make(map[string]string),
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
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

func (e *Emulator) CreateVirtualAccount(ctx context.Context, req CreateAccountRequest) (VirtualAccount, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return VirtualAccount{}, apperr.Validation("customer_id", "is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	account := &VirtualAccount{
		ID:            newID("va_"),
		CustomerID:    customerID,
		AccountNumber: idgen.AccountNumber(),
		IFSC:          idgen.IFSC(),
		UPIID:         idgen.UPIHandle(customerID),
		Purpose:       req.Purpose,
		Metadata:      req.Metadata,
		Balance:       decimal.Zero,
		CreatedAt:     e.clock.Now(),
	}
	e.accounts[account.ID] = account
	accountsCreatedCounter.Inc()

	e.logger.InfoContext(ctx, "Virtual account created", "accountId", account.ID, "customerId", customerID)
	return *account, nil
}

func (e *Emulator) GetVirtualAccount(id string) (VirtualAccount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	account, ok := e.accounts[id]
	if !ok {
		return VirtualAccount{}, apperr.NotFound("virtual account %s not found", id)
	}
	return *account, nil
}

func (e *Emulator) Balance(accountID string) (decimal.Decimal, error) {
	account, err := e.GetVirtualAccount(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (e *Emulator) GeneratePaymentLink(ctx context.Context, req LinkRequest) (PaymentLink, error) {
	if !req.Amount.IsPositive() {
		return PaymentLink{}, apperr.Validation("amount", "must be greater than 0")
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return PaymentLink{}, apperr.Validation("customer_id", "is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if currency != DefaultCurrency {
		return PaymentLink{}, apperr.Validation("currency", "only %s is supported for UPI", DefaultCurrency)
	}
	if req.ExpiresIn < 0 {
		return PaymentLink{}, apperr.Validation("expires_in", "must not be negative")
	}
	expiresIn := req.ExpiresIn
	if expiresIn == 0 {
		expiresIn = e.cfg.LinkExpiry()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	link := &PaymentLink{
		ID:         newID("plink_"),
		Amount:     req.Amount,
		Currency:   currency,
		Purpose:    req.Purpose,
		CustomerID: customerID,
		Status:     LinkActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(expiresIn),
	}
	link.UPILink = e.upiDeepLink(link)
	link.QRCodeURL = fmt.Sprintf("%s/%s.png", strings.TrimRight(e.cfg.QRBaseURL, "/"), link.ID)
	e.links[link.ID] = link
	linksCreatedCounter.Inc()

	e.logger.InfoContext(ctx, "Payment link generated", "linkId", link.ID, "amount", link.Amount.String())
	return *link, nil
}

func (e *Emulator) upiDeepLink(link *PaymentLink) string {
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=%s&tn=%s&tr=%s",
		url.QueryEscape(e.cfg.MerchantVPA),
		url.QueryEscape(e.cfg.MerchantName),
		link.Amount.StringFixed(2),
		link.Currency,
		url.QueryEscape(link.Purpose),
		link.ID,
	)
}

// GetPaymentLink returns the link, marking it expired once its expiry has passed.
func (e *Emulator) GetPaymentLink(id string) (PaymentLink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	link, ok := e.links[id]
	if !ok {
		return PaymentLink{}, apperr.NotFound("payment link %s not found", id)
	}
	e.refreshLink(link)
	return *link, nil
}

func (e *Emulator) refreshLink(link *PaymentLink) {
	if link.Status == LinkActive && !e.clock.Now().Before(link.ExpiresAt) {
		link.Status = LinkExpired
	}
}

// SimulatePayment creates a transaction whose outcome is decided immediately.
// The webhook is sent after a random settlement delay. In deferred mode the
// transaction stays pending until then.
func (e *Emulator) SimulatePayment(ctx context.Context, req SimulateRequest) (Transaction, error) {
	if !req.Amount.IsPositive() {
		return Transaction{}, apperr.Validation("amount", "must be greater than 0")
	}
	if !req.Method.Valid() {
		return Transaction{}, apperr.Validation("payment_method", "must be one of upi, bank_transfer, card")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if req.AccountID != "" {
		if _, ok := e.accounts[req.AccountID]; !ok {
			return Transaction{}, apperr.NotFound("virtual account %s not found", req.AccountID)
		}
	}

	var link *PaymentLink
	if req.LinkID != "" {
		var ok bool
		if link, ok = e.links[req.LinkID]; !ok {
			return Transaction{}, apperr.NotFound("payment link %s not found", req.LinkID)
		}
		e.refreshLink(link)
		switch {
		case link.Status == LinkExpired:
			return Transaction{}, apperr.Validation("link_id", "payment link %s has expired", link.ID)
		case link.Status == LinkPaid:
			return Transaction{}, apperr.Validation("link_id", "payment link %s is already paid", link.ID)
		case link.TransactionID != "":
			return Transaction{}, apperr.Validation("link_id", "payment link %s has a payment in progress", link.ID)
		case !req.Amount.Equal(link.Amount):
			return Transaction{}, apperr.Validation("amount", "must equal the payment link amount %s", link.Amount.StringFixed(2))
		}
	}

	if req.WebhookURL != "" {
		e.webhookURL = req.WebhookURL
	}

	currency := DefaultCurrency
	if link != nil {
		currency = link.Currency
	}
	tx := &Transaction{
		ID:        newID("txn_"),
		AccountID: req.AccountID,
		LinkID:    req.LinkID,
		Amount:    req.Amount,
		Currency:  currency,
		Method:    req.Method,
		Status:    StatusPending,
		Metadata:  req.Metadata,
		CreatedAt: e.clock.Now(),
		succeeds:  rand.Float64() < e.cfg.SuccessRate,
	}
	e.transactions[tx.ID] = tx
	if link != nil {
		link.TransactionID = tx.ID
	}

	delay := e.settlementDelay()
	if req.Deferred {
		e.logger.InfoContext(ctx, "Payment pending settlement", "transactionId", tx.ID, "delay", delay.String())
		settleCtx := context.WithoutCancel(ctx)
		e.clock.AfterFunc(delay, func() { e.settleDeferred(settleCtx, tx.ID) })
		return *tx, nil
	}

	e.settle(ctx, tx)
	e.notify(ctx, tx, delay)
	return *tx, nil
}

func (e *Emulator) settleDeferred(ctx context.Context, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.transactions[id]
	if tx == nil || tx.Status != StatusPending {
		return
	}
	e.settle(ctx, tx)
	e.notify(ctx, tx, 0)
}

// settle moves a pending transaction to its decided outcome. Must hold e.mu.
func (e *Emulator) settle(ctx context.Context, tx *Transaction) {
	if tx.Status != StatusPending {
		return
	}
	now := e.clock.Now()
	tx.SettledAt = &now

	var link *PaymentLink
	if tx.LinkID != "" {
		link = e.links[tx.LinkID]
	}

	if !tx.succeeds {
		tx.Status = StatusFailed
		tx.FailureReason = failureReasons[rand.IntN(len(failureReasons))]
		if link != nil && link.TransactionID == tx.ID {
			link.TransactionID = ""
		}
		txFailedCounter.Inc()
		e.logger.InfoContext(ctx, "Payment failed", "transactionId", tx.ID, "reason", tx.FailureReason)
		return
	}

	tx.Status = StatusSuccess
	tx.UTR = e.uniqueUTR(now)
	e.byUTR[tx.UTR] = tx.ID

	if account, ok := e.accounts[tx.AccountID]; ok {
		account.Balance = account.Balance.Add(tx.Amount)
	}
	if link != nil {
		link.Status = LinkPaid
		link.PaidAt = &now
	}
	txSuccessCounter.Inc()
	e.logger.InfoContext(ctx, "Payment succeeded", "transactionId", tx.ID, "utr", tx.UTR)
}

func (e *Emulator) uniqueUTR(t time.Time) string {
	for {
		utr := idgen.UTR(t)
		if _, taken := e.byUTR[utr]; !taken {
			return utr
		}
	}
}

func (e *Emulator) settlementDelay() time.Duration {
	lo, hi := e.cfg.MinDelay(), e.cfg.MaxDelay()
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func (e *Emulator) GetTransactionStatus(id string) (Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.transactions[id]
	if !ok {
		return Transaction{}, apperr.NotFound("transaction %s not found", id)
	}
	return *tx, nil
}

// VerifyUPIPayment looks a transaction up by UTR. Transactions made with any
// other method are reported as not found.
func (e *Emulator) VerifyUPIPayment(utr string) (Transaction, error) {
	utr = strings.TrimSpace(utr)
	if utr == "" {
		return Transaction{}, apperr.Validation("utr_number", "is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.transactions[e.byUTR[utr]]
	if !ok || tx.Method != MethodUPI {
		return Transaction{}, apperr.NotFound("no UPI payment found for UTR %s", utr)
	}
	return *tx, nil
}
