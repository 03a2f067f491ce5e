package api

import (
	"net/http"
	"strings"
	"time"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type paymentEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Field     string `json:"field,omitempty"`
}

func writePaymentSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, paymentEnvelope{Status: "SUCCESS", Message: message, Data: data})
}

func writePaymentError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	writeJSON(w, httpStatus(err), paymentEnvelope{
		Status:    "FAILURE",
		Message:   e.Error(),
		ErrorCode: strings.ToUpper(e.Kind.String()),
		Field:     e.Field,
	})
}

type accountResponse struct {
	AccountID     string         `json:"account_id"`
	CustomerID    string         `json:"customer_id"`
	AccountNumber string         `json:"account_number"`
	IFSCCode      string         `json:"ifsc_code"`
	UPIID         string         `json:"upi_id"`
	Purpose       string         `json:"purpose,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Balance       string         `json:"balance"`
	CreatedAt     string         `json:"created_at"`
}

func toAccountResponse(a payment.VirtualAccount) accountResponse {
	return accountResponse{
		AccountID:     a.ID,
		CustomerID:    a.CustomerID,
		AccountNumber: a.AccountNumber,
		IFSCCode:      a.IFSC,
		UPIID:         a.UPIID,
		Purpose:       a.Purpose,
		Metadata:      a.Metadata,
		Balance:       a.Balance.StringFixed(2),
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type linkResponse struct {
	LinkID        string `json:"link_id"`
	UPILink       string `json:"upi_link"`
	QRCodeURL     string `json:"qr_code_url"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Purpose       string `json:"purpose,omitempty"`
	CustomerID    string `json:"customer_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	CreatedAt     string `json:"created_at"`
	ExpiresAt     string `json:"expires_at"`
	PaidAt        string `json:"paid_at,omitempty"`
}

func toLinkResponse(l payment.PaymentLink) linkResponse {
	return linkResponse{
		LinkID:        l.ID,
		UPILink:       l.UPILink,
		QRCodeURL:     l.QRCodeURL,
		Amount:        l.Amount.StringFixed(2),
		Currency:      l.Currency,
		Purpose:       l.Purpose,
		CustomerID:    l.CustomerID,
		Status:        string(l.Status),
		TransactionID: l.TransactionID,
		CreatedAt:     l.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     l.ExpiresAt.UTC().Format(time.RFC3339),
		PaidAt:        formatOptional(l.PaidAt),
	}
}

type transactionResponse struct {
	TransactionID    string         `json:"transaction_id"`
	VirtualAccountID string         `json:"virtual_account_id,omitempty"`
	LinkID           string         `json:"link_id,omitempty"`
	Amount           string         `json:"amount"`
	Currency         string         `json:"currency"`
	Mode             string         `json:"mode"`
	Status           string         `json:"status"`
	UTRNumber        string         `json:"utr_number,omitempty"`
	FailureReason    string         `json:"failure_reason,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        string         `json:"created_at"`
	SettledAt        string         `json:"settled_at,omitempty"`
}

func toTransactionResponse(tx payment.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID:    tx.ID,
		VirtualAccountID: tx.AccountID,
		LinkID:           tx.LinkID,
		Amount:           tx.Amount.StringFixed(2),
		Currency:         tx.Currency,
		Mode:             string(tx.Method),
		Status:           string(tx.Status),
		UTRNumber:        tx.UTR,
		FailureReason:    tx.FailureReason,
		Metadata:         tx.Metadata,
		CreatedAt:        tx.CreatedAt.UTC().Format(time.RFC3339),
		SettledAt:        formatOptional(tx.SettledAt),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type createAccountRequest struct {
	CustomerID string         `json:"customer_id"`
	Purpose    string         `json:"purpose"`
	Metadata   map[string]any `json:"metadata"`
}

// createLinkRequest carries expires_in in minutes.
type createLinkRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Purpose    string          `json:"purpose"`
	CustomerID string          `json:"customer_id"`
	ExpiresIn  int             `json:"expires_in"`
}

type verifyRequest struct {
	UTRNumber string `json:"utr_number"`
}

// simulateRequest also accepts virtual_account_id and mode, the names used in
// responses, as aliases of account_id and payment_method.
type simulateRequest struct {
	AccountID        string          `json:"account_id"`
	VirtualAccountID string          `json:"virtual_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    payment.Method  `json:"payment_method"`
	Mode             payment.Method  `json:"mode"`
	LinkID           string          `json:"link_id"`
	Metadata         map[string]any  `json:"metadata"`
	WebhookURL       string          `json:"webhook_url"`
	Deferred         bool            `json:"deferred"`
}

func (r simulateRequest) accountID() string {
	if r.AccountID != "" {
		return r.AccountID
	}
	return r.VirtualAccountID
}

func (r simulateRequest) method() payment.Method {
	if r.PaymentMethod != "" {
		return r.PaymentMethod
	}
	return r.Mode
}

type paymentHandler struct {
	payments *payment.Emulator
}

func (h *paymentHandler) routes(r chi.Router) {
	r.Post("/virtual-accounts", h.createAccount)
	r.Get("/virtual-accounts/balance", h.balance)
	r.Post("/upi/link", h.createLink)
	r.Get("/upi/link/{link_id}", h.getLink)
	r.Get("/transactions/status", h.transactionStatus)
	r.Post("/upi/verify", h.verify)
	r.Post("/simulate-payment", h.simulate)
}

func (h *paymentHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writePaymentError(w, err)
		return
	}
	account, err := h.payments.CreateVirtualAccount(r.Context(), payment.CreateAccountRequest{
		CustomerID: req.CustomerID,
		Purpose:    req.Purpose,
		Metadata:   req.Metadata,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusCreated, "Virtual account created", toAccountResponse(account))
}

func (h *paymentHandler) balance(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("virtual_account_id"))
	if id == "" {
		writePaymentError(w, apperr.Validation("virtual_account_id", "is required"))
		return
	}
	account, err := h.payments.GetVirtualAccount(id)
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusOK, "Balance fetched", map[string]string{
		"virtual_account_id": account.ID,
		"balance":            account.Balance.StringFixed(2),
		"currency":           payment.DefaultCurrency,
	})
}

func (h *paymentHandler) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writePaymentError(w, err)
		return
	}
	link, err := h.payments.GeneratePaymentLink(r.Context(), payment.LinkRequest{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Purpose:    req.Purpose,
		CustomerID: req.CustomerID,
		ExpiresIn:  time.Duration(req.ExpiresIn) * time.Minute,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusCreated, "Payment link generated", toLinkResponse(link))
}

func (h *paymentHandler) getLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.payments.GetPaymentLink(chi.URLParam(r, "link_id"))
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusOK, "Payment link fetched", toLinkResponse(link))
}

func (h *paymentHandler) transactionStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("transaction_id"))
	if id == "" {
		writePaymentError(w, apperr.Validation("transaction_id", "is required"))
		return
	}
	tx, err := h.payments.GetTransactionStatus(id)
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusOK, "Transaction status fetched", toTransactionResponse(tx))
}

func (h *paymentHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writePaymentError(w, err)
		return
	}
	tx, err := h.payments.VerifyUPIPayment(req.UTRNumber)
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusOK, "Payment verified", toTransactionResponse(tx))
}

func (h *paymentHandler) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeJSON(r, &req); err != nil {
		writePaymentError(w, err)
		return
	}
	method := req.method()
	if method == "" {
		writePaymentError(w, apperr.Validation("payment_method", "is required"))
		return
	}
	tx, err := h.payments.SimulatePayment(r.Context(), payment.SimulateRequest{
		AccountID:  req.accountID(),
		Amount:     req.Amount,
		Method:     method,
		LinkID:     req.LinkID,
		Metadata:   req.Metadata,
		WebhookURL: req.WebhookURL,
		Deferred:   req.Deferred,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}
	writePaymentSuccess(w, http.StatusOK, "Payment simulated", toTransactionResponse(tx))
}
