package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/clock"
	"gateway-emulator/internal/config"
	"gateway-emulator/internal/gateway"
	"gateway-emulator/internal/model"
	"gateway-emulator/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type hook struct {
	header http.Header
	body   []byte
}

type hookReceiver struct {
	mu    sync.Mutex
	hooks []hook
}

func (rc *hookReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rc.mu.Lock()
	rc.hooks = append(rc.hooks, hook{header: r.Header.Clone(), body: body})
	rc.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (rc *hookReceiver) received() []hook {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]hook(nil), rc.hooks...)
}

type APITestSuite struct {
	suite.Suite
	cfg      *config.Config
	clock    *clock.Manual
	gateway  *gateway.Gateway
	router   http.Handler
	receiver *hookReceiver
	hookSrv  *httptest.Server
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	cfg, err := config.LoadConfig(s.T().TempDir())
	s.Require().NoError(err)
	cfg.Payment.SuccessRate = 1
	cfg.Messaging.FailureRate = 0
	s.cfg = cfg

	s.receiver = &hookReceiver{}
	s.hookSrv = httptest.NewServer(s.receiver)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.clock = clock.NewManual(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	s.gateway = gateway.New(cfg, logger, gateway.Deps{Clock: s.clock})
	s.router = NewRouter(s.gateway, cfg, logger)
}

func (s *APITestSuite) TearDownTest() {
	s.hookSrv.Close()
}

func (s *APITestSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *APITestSuite) TestLivenessAndMetrics() {
	rec := s.do(http.MethodGet, "/liveness", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(HeaderRequestID))

	rec = s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `http_requests_total{route="/liveness"`)
}

type paymentResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Field     string          `json:"field"`
}

func (s *APITestSuite) TestPayment_SimulateAndVerify() {
	rec := s.do(http.MethodPost, "/payments/v1/virtual-accounts", map[string]any{"customer_id": "cust_42"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp paymentResponse
	s.decode(rec, &resp)
	s.Equal("SUCCESS", resp.Status)
	var account accountResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &account))
	s.Len(account.AccountNumber, 14)
	s.Equal("0.00", account.Balance)

	rec = s.do(http.MethodPost, "/payments/v1/simulate-payment", map[string]any{
		"virtual_account_id": account.AccountID,
		"amount":             "1500.50",
		"mode":               "upi",
		"webhook_url":        s.hookSrv.URL,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &resp)
	var tx transactionResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &tx))
	s.Equal("success", tx.Status)
	s.True(strings.HasPrefix(tx.UTRNumber, "UTR20250301"), tx.UTRNumber)

	s.clock.Advance(s.cfg.Payment.MaxDelay())
	hooks := s.receiver.received()
	s.Require().Len(hooks, 1)
	s.Equal(callback.Sign(s.cfg.Payment.WebhookSecret, hooks[0].body), hooks[0].header.Get(payment.HeaderSignature))
	s.Equal(payment.EventPaymentSuccess, hooks[0].header.Get(payment.HeaderEvent))

	rec = s.do(http.MethodPost, "/payments/v1/upi/verify", map[string]any{"utr_number": tx.UTRNumber})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/payments/v1/virtual-accounts/balance?virtual_account_id="+account.AccountID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &resp)
	var balance map[string]string
	s.Require().NoError(json.Unmarshal(resp.Data, &balance))
	s.Equal("1500.50", balance["balance"])

	rec = s.do(http.MethodGet, "/payments/v1/transactions/status?transaction_id="+tx.TransactionID, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APITestSuite) TestPayment_Errors() {
	rec := s.do(http.MethodPost, "/payments/v1/upi/link", map[string]any{"amount": 0, "customer_id": "c"})
	s.Equal(http.StatusBadRequest, rec.Code)
	var resp paymentResponse
	s.decode(rec, &resp)
	s.Equal("FAILURE", resp.Status)
	s.Equal("VALIDATION_ERROR", resp.ErrorCode)
	s.Equal("amount", resp.Field)

	rec = s.do(http.MethodGet, "/payments/v1/upi/link/plink_missing", nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/payments/v1/transactions/status", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestPayment_Link() {
	rec := s.do(http.MethodPost, "/payments/v1/upi/link", map[string]any{"amount": 250, "customer_id": "cust_1", "purpose": "order 17"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp paymentResponse
	s.decode(rec, &resp)
	var link linkResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &link))
	s.Contains(link.UPILink, "upi://pay?")
	s.Equal("active", link.Status)

	rec = s.do(http.MethodGet, "/payments/v1/upi/link/"+link.LinkID, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APITestSuite) TestPayment_SimulateWithAccountIDAndPaymentMethod() {
	rec := s.do(http.MethodPost, "/payments/v1/virtual-accounts", map[string]any{"customer_id": "CUST1"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp paymentResponse
	s.decode(rec, &resp)
	var account accountResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &account))

	rec = s.do(http.MethodPost, "/payments/v1/simulate-payment", map[string]any{
		"account_id":     account.AccountID,
		"amount":         500,
		"payment_method": "card",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.decode(rec, &resp)
	var tx transactionResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &tx))
	s.Equal("card", tx.Mode)
	s.Equal(account.AccountID, tx.VirtualAccountID)
	s.Equal("success", tx.Status)

	// card payments are not UPI payments
	rec = s.do(http.MethodPost, "/payments/v1/upi/verify", map[string]any{"utr_number": tx.UTRNumber})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/payments/v1/virtual-accounts/balance?virtual_account_id="+account.AccountID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &resp)
	var balance map[string]string
	s.Require().NoError(json.Unmarshal(resp.Data, &balance))
	s.Equal("500.00", balance["balance"])
}

func (s *APITestSuite) TestPayment_SimulateRejectsMissingOrUnknownMethod() {
	for name, body := range map[string]map[string]any{
		"missing": {"amount": 100},
		"unknown": {"amount": 100, "payment_method": "cheque"},
	} {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/payments/v1/simulate-payment", body)
			s.Require().Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
			var resp paymentResponse
			s.decode(rec, &resp)
			s.Equal("FAILURE", resp.Status)
			s.Equal("payment_method", resp.Field)
		})
	}
	s.Zero(s.clock.Pending())
}

func (s *APITestSuite) TestPayment_LinkExpiresIn() {
	rec := s.do(http.MethodPost, "/payments/v1/upi/link", map[string]any{
		"amount":      1000,
		"purpose":     "Order",
		"customer_id": "CUST1",
		"expires_in":  5,
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp paymentResponse
	s.decode(rec, &resp)
	var link linkResponse
	s.Require().NoError(json.Unmarshal(resp.Data, &link))

	created, err := time.Parse(time.RFC3339, link.CreatedAt)
	s.Require().NoError(err)
	expires, err := time.Parse(time.RFC3339, link.ExpiresAt)
	s.Require().NoError(err)
	s.Equal(5*time.Minute, expires.Sub(created))

	s.clock.Advance(6 * time.Minute)
	rec = s.do(http.MethodPost, "/payments/v1/simulate-payment", map[string]any{
		"link_id":        link.LinkID,
		"amount":         1000,
		"payment_method": "upi",
	})
	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/payments/v1/upi/link/"+link.LinkID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &resp)
	s.Require().NoError(json.Unmarshal(resp.Data, &link))
	s.Equal("expired", link.Status)
}

func (s *APITestSuite) login() string {
	rec := s.do(http.MethodPost, "/shipping/v1/external/auth/login", map[string]string{"email": "ops@example.com", "password": "secret"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var login loginResponse
	s.decode(rec, &login)
	s.Require().NotEmpty(login.Token)
	return "Bearer " + login.Token
}

func (s *APITestSuite) createOrder(token, orderID string) orderResponse {
	rec := s.do(http.MethodPost, "/shipping/v1/external/orders/create/adhoc", map[string]any{
		"order_id":              orderID,
		"order_date":            "2025-03-01 10:00",
		"pickup_location":       "Primary",
		"billing_customer_name": "Asha",
		"billing_address":       "12 MG Road",
		"billing_city":          "Bengaluru",
		"billing_pincode":       560001,
		"billing_state":         "Karnataka",
		"billing_country":       "India",
		"billing_phone":         9876543210,
		"shipping_is_billing":   true,
		"order_items":           []map[string]any{{"name": "Kurta", "sku": "KUR-1", "units": 2, "selling_price": 499}},
		"payment_method":        "Prepaid",
		"sub_total":             998,
		"length":                10,
		"breadth":               10,
		"height":                5,
		"weight":                0.5,
	}, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var order orderResponse
	s.decode(rec, &order)
	return order
}

func (s *APITestSuite) TestShipping_RequiresToken() {
	rec := s.do(http.MethodGet, "/shipping/v1/external/courier/track/awb/DL123", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/shipping/v1/external/courier/track/awb/DL123", nil, "Authorization", "Bearer forged")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *APITestSuite) TestShipping_OrderToDelivery() {
	token := s.login()
	order := s.createOrder(token, "ORD-1001")
	s.Equal("NEW", order.Status)
	s.Equal(1, order.StatusCode)

	rec := s.do(http.MethodPost, "/shipping/v1/external/courier/assign/awb",
		map[string]any{"shipment_id": order.ShipmentID, "courier_id": "1"}, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var assigned assignAWBResponse
	s.decode(rec, &assigned)
	s.Equal(1, assigned.AWBAssignStatus)
	awb := assigned.Response.Data.AWBCode
	s.Equal("Blue Dart", assigned.Response.Data.CourierName)
	s.NotEmpty(awb)

	rec = s.do(http.MethodPost, "/shipping/v1/external/courier/assign/awb",
		map[string]any{"shipment_id": order.ShipmentID, "courier_id": "1"}, "Authorization", token)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/shipping/v1/external/courier/generate/pickup",
		map[string]any{"shipment_id": []int64{order.ShipmentID}}, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var pickup pickupResponse
	s.decode(rec, &pickup)
	s.Equal(1, pickup.PickupStatus)
	s.Require().Len(pickup.Response, 1)
	s.Equal("2025-03-02", pickup.Response[0].PickupScheduledDate)

	rec = s.do(http.MethodGet, "/shipping/v1/external/courier/track/awb/"+awb, nil, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code)
	var tracking trackingResponse
	s.decode(rec, &tracking)
	s.Equal(1, tracking.TrackingData.ShipmentStatus)
	s.Len(tracking.TrackingData.ShipmentTrackActivities, 1)
	s.Equal(s.cfg.Shipping.TrackURLBase+"/"+awb, tracking.TrackingData.TrackURL)

	s.clock.Advance(time.Duration(s.cfg.Shipping.MaxDeliveryDays) * 24 * time.Hour)

	rec = s.do(http.MethodGet, "/shipping/v1/external/courier/track/awb/"+awb, nil, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &tracking)
	s.Equal(7, tracking.TrackingData.ShipmentStatus)
	s.Len(tracking.TrackingData.ShipmentTrackActivities, 7)
	s.NotEmpty(tracking.TrackingData.ShipmentTrack[0].DeliveredDate)
}

func (s *APITestSuite) TestShipping_PickupBatchReportsEachShipment() {
	token := s.login()
	order := s.createOrder(token, "ORD-2001")

	rec := s.do(http.MethodPost, "/shipping/v1/external/courier/generate/pickup",
		map[string]any{"shipment_id": []int64{order.ShipmentID, 42}}, "Authorization", token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var pickup pickupResponse
	s.decode(rec, &pickup)
	s.Equal(0, pickup.PickupStatus)
	s.Require().Len(pickup.Response, 2)
	s.Contains(pickup.Response[0].Message, "AWB is not assigned")
	s.Contains(pickup.Response[1].Message, "not found")

	rec = s.do(http.MethodPost, "/shipping/v1/external/courier/generate/pickup",
		map[string]any{"shipment_id": "42"}, "Authorization", token)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APITestSuite) TestShipping_ValidationEnvelope() {
	token := s.login()
	rec := s.do(http.MethodPost, "/shipping/v1/external/orders/create", map[string]any{"order_id": "X"}, "Authorization", token)
	s.Equal(http.StatusBadRequest, rec.Code)
	var body shippingError
	s.decode(rec, &body)
	s.Equal(http.StatusBadRequest, body.StatusCode)
	s.Equal([]string{"The order_date field is required."}, body.Errors["order_date"])
}

func (s *APITestSuite) messagingPath(suffix string) string {
	return "/messaging/v21.0/" + s.cfg.Messaging.PhoneNumberID + suffix
}

func (s *APITestSuite) TestMessaging_OnboardingOverHTTP() {
	const phone = "919876543210"

	rec := s.do(http.MethodPost, s.messagingPath("/onboarding/+"+phone), nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var conv conversationResponse
	s.decode(rec, &conv)
	s.Equal("awaiting_language", conv.Conversation.State)

	rec = s.do(http.MethodPost, s.messagingPath("/messages"), map[string]any{
		"messaging_product": "whatsapp",
		"from":              phone,
		"type":              "text",
		"text":              map[string]string{"body": "1"},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var sent sendMessageResponse
	s.decode(rec, &sent)
	s.Require().Len(sent.Messages, 1)
	s.Equal(phone, sent.Contacts[0].WaID)

	rec = s.do(http.MethodGet, s.messagingPath("/messages?phone_number="+phone), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &conv)
	s.Equal("awaiting_business_name", conv.Conversation.State)
	s.Equal("English", conv.Conversation.Profile.Language)
	s.Len(conv.Data, 3)

	rec = s.do(http.MethodDelete, s.messagingPath("/conversations/"+phone), nil)
	s.Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, s.messagingPath("/conversations/"+phone), nil)
	s.decode(rec, &conv)
	s.Equal("start", conv.Conversation.State)
	s.Empty(conv.Data)
}

func (s *APITestSuite) TestMessaging_InteractiveReply() {
	const phone = "919876543210"
	s.do(http.MethodPost, s.messagingPath("/onboarding/"+phone), nil)

	rec := s.do(http.MethodPost, s.messagingPath("/messages"), map[string]any{
		"from": phone,
		"type": "interactive",
		"interactive": map[string]any{
			"type":         "button_reply",
			"button_reply": map[string]string{"id": "lang_hi", "title": "Hindi"},
		},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("Hindi", s.gateway.Messaging.Conversation(phone).Profile.Language)
}

func (s *APITestSuite) TestMessaging_StatusAndWebhooks() {
	s.Require().NoError(s.gateway.SetWebhookURL(context.Background(), model.GatewayMessaging, s.hookSrv.URL))

	rec := s.do(http.MethodPost, s.messagingPath("/messages"), map[string]any{
		"to":   "+91 98765 43210",
		"type": "text",
		"text": map[string]string{"body": "Your order shipped"},
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var sent sendMessageResponse
	s.decode(rec, &sent)
	id := sent.Messages[0].ID

	rec = s.do(http.MethodPut, s.messagingPath("/messages/"+id+"/status"), map[string]string{"status": "read"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, s.messagingPath("/messages/"+id+"/status"), map[string]string{"status": "delivered"})
	s.Equal(http.StatusBadRequest, rec.Code)
	var graph graphErrorResponse
	s.decode(rec, &graph)
	s.Equal("OAuthException", graph.Error.Type)
	s.Equal(132000, graph.Error.Code)
	s.NotEmpty(graph.Error.FBTraceID)

	s.clock.Advance(time.Minute)
	hooks := s.receiver.received()
	s.Require().Len(hooks, 3)
	for _, h := range hooks {
		s.Equal("sha256="+callback.Sign(s.cfg.Messaging.AppSecret, h.body), h.header.Get("X-Hub-Signature-256"))
	}
}

func (s *APITestSuite) TestMessaging_Templates() {
	rec := s.do(http.MethodGet, s.messagingPath("/templates"), nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "order_confirmation")

	rec = s.do(http.MethodPost, s.messagingPath("/templates"), map[string]any{
		"to": "919876543210", "name": "order_confirmation", "language": "en", "params": []string{"Asha", "ORD1", "998"},
	})
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, s.messagingPath("/messages"), map[string]any{
		"to":       "919876543210",
		"type":     "template",
		"template": map[string]any{"name": "unknown", "language": map[string]string{"code": "en"}},
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	var graph graphErrorResponse
	s.decode(rec, &graph)
	s.Equal(132001, graph.Error.Code)
}

func (s *APITestSuite) TestMessaging_UnknownPhoneNumberID() {
	rec := s.do(http.MethodGet, "/messaging/v21.0/999/templates", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	var graph graphErrorResponse
	s.decode(rec, &graph)
	s.Equal(33, graph.Error.ErrorSubcode)
}

func (s *APITestSuite) TestMessaging_VerifyWebhook() {
	rec := s.do(http.MethodGet, "/messaging/webhook?hub.mode=subscribe&hub.verify_token="+s.cfg.Messaging.VerifyToken+"&hub.challenge=1158201444", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("1158201444", rec.Body.String())
	s.Equal("text/plain", rec.Header().Get("Content-Type"))

	rec = s.do(http.MethodGet, "/messaging/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *APITestSuite) TestControl_WebhooksAndDeliveries() {
	rec := s.do(http.MethodPut, "/_emulator/webhooks/payment", map[string]string{"url": s.hookSrv.URL})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(s.hookSrv.URL, s.gateway.Payment.WebhookURL())

	rec = s.do(http.MethodPut, "/_emulator/webhooks/fax", map[string]string{"url": s.hookSrv.URL})
	s.Equal(http.StatusNotFound, rec.Code)

	_, err := s.gateway.Payment.SimulatePayment(context.Background(), payment.SimulateRequest{
		Amount: decimal.RequireFromString("100"),
		Method: payment.MethodCard,
	})
	s.Require().NoError(err)
	s.clock.Advance(s.cfg.Payment.MaxDelay())

	rec = s.do(http.MethodGet, "/_emulator/webhooks/deliveries?limit=10", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var deliveries deliveriesResponse
	s.decode(rec, &deliveries)
	s.Require().Len(deliveries.Data, 1)
	s.Equal(model.GatewayPayment, deliveries.Data[0].Gateway)
	s.Equal(1, deliveries.Data[0].Attempts)

	rec = s.do(http.MethodGet, "/_emulator/webhooks/deliveries/"+deliveries.Data[0].ID.String(), nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var delivery model.Delivery
	s.decode(rec, &delivery)
	s.Equal(deliveries.Data[0].ID, delivery.ID)
	s.Equal(s.hookSrv.URL, delivery.URL)

	rec = s.do(http.MethodGet, "/_emulator/webhooks/deliveries/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/_emulator/webhooks/deliveries/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/_emulator/webhooks/deliveries?limit=abc", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/_emulator/webhooks", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), s.hookSrv.URL)
}
