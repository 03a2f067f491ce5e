package shipping

import (
	"context"
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

const (
	issuer           = "gateway-emulator/shipping"
	defaultCourierID = "2"
)

var (
	ordersCreatedCounter    = metrics.GetOrCreateCounter(`shipping_orders_created_total`)
	awbAssignedCounter      = metrics.GetOrCreateCounter(`shipping_awb_assigned_total`)
	pickupsScheduledCounter = metrics.GetOrCreateCounter(`shipping_pickups_scheduled_total`)
)

var couriers = map[string]Courier{
	"1":  {ID: "1", Name: "Blue Dart"},
	"2":  {ID: "2", Name: "Delhivery Surface"},
	"3":  {ID: "3", Name: "Xpressbees"},
	"4":  {ID: "4", Name: "Ekart Logistics"},
	"5":  {ID: "5", Name: "Shadowfax"},
	"10": {ID: "10", Name: "DTDC Surface"},
}

// CourierByID falls back to the default courier for unknown ids.
func CourierByID(id string) Courier {
	if c, ok := couriers[strings.TrimSpace(id)]; ok {
		return c
	}
	return couriers[defaultCourierID]
}

// Emulator is an in-memory shipping aggregator. A single mutex serializes all
// operations, so concurrent AWB assignment for one order cannot double-assign.
type Emulator struct {
	mu         sync.Mutex
	cfg        config.Shipping
	clock      clock.Clock
	notifier   callback.Notifier
	logger     *slog.Logger
	webhookURL string
	signingKey []byte

	tokens       map[string]string
	orders       map[string]*Order
	byShipmentID map[int64]string
	byAWB        map[string]string
}

func New(cfg config.Shipping, clk clock.Clock, notifier callback.Notifier, logger *slog.Logger) *Emulator {
	return &Emulator{
		cfg:          cfg,
		clock:        clk,
		notifier:     notifier,
		logger:       logger,
		webhookURL:   cfg.WebhookURL,
		signingKey:   newSigningKey(),
		tokens:       make(map[string]string),
		orders:       make(map[string]*Order),
		byShipmentID: make(map[int64]string),
		byAWB:        make(map[string]string),
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

func missingField(req OrderRequest) string {
	required := []struct {
		name  string
		value string
	}{
		{"order_id", req.OrderID},
		{"order_date", req.OrderDate},
		{"pickup_location", req.PickupLocation},
		{"billing_customer_name", req.BillingCustomerName},
		{"billing_address", req.BillingAddress},
		{"billing_city", req.BillingCity},
		{"billing_pincode", string(req.BillingPincode)},
		{"billing_state", req.BillingState},
		{"billing_country", req.BillingCountry},
		{"billing_phone", string(req.BillingPhone)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}

func validateOrder(req OrderRequest) error {
	if field := missingField(req); field != "" {
		return apperr.Validation(field, "The %s field is required.", field)
	}
	if len(req.OrderItems) == 0 {
		return apperr.Validation("order_items", "The order_items field is required.")
	}
	for i, item := range req.OrderItems {
		switch {
		case strings.TrimSpace(item.Name) == "":
			return apperr.Validation("order_items", "The order_items.%d.name field is required.", i)
		case strings.TrimSpace(item.SKU) == "":
			return apperr.Validation("order_items", "The order_items.%d.sku field is required.", i)
		case item.Units <= 0:
			return apperr.Validation("order_items", "The order_items.%d.units must be at least 1.", i)
		case !item.SellingPrice.IsPositive():
			return apperr.Validation("order_items", "The order_items.%d.selling_price must be greater than 0.", i)
		}
	}
	switch strings.ToLower(strings.TrimSpace(req.PaymentMethod)) {
	case "":
		return apperr.Validation("payment_method", "The payment_method field is required.")
	case "prepaid", "cod":
	default:
		return apperr.Validation("payment_method", "The payment_method must be Prepaid or COD.")
	}
	if !req.SubTotal.IsPositive() {
		return apperr.Validation("sub_total", "The sub_total field is required.")
	}
	dimensions := []struct {
		name  string
		value float64
	}{
		{"length", req.Length},
		{"breadth", req.Breadth},
		{"height", req.Height},
		{"weight", req.Weight},
	}
	for _, d := range dimensions {
		if d.value <= 0 {
			return apperr.Validation(d.name, "The %s field is required.", d.name)
		}
	}
	return nil
}

// CreateOrder stores the order under its caller supplied order id.
func (e *Emulator) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	if err := validateOrder(req); err != nil {
		return Order{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.orders[req.OrderID]; exists {
		return Order{}, apperr.Validation("order_id", "Order Id %s already exists.", req.OrderID)
	}

	order := &Order{
		Request:         req,
		ShipmentID:      e.uniqueShipmentID(),
		ProviderOrderID: idgen.NumericID(),
		Status:          StatusCreated,
		CreatedAt:       e.clock.Now(),
	}
	e.orders[req.OrderID] = order
	e.byShipmentID[order.ShipmentID] = req.OrderID
	ordersCreatedCounter.Inc()

	e.logger.InfoContext(ctx, "Order created", "orderId", req.OrderID, "shipmentId", order.ShipmentID)
	return *order, nil
}

func (e *Emulator) uniqueShipmentID() int64 {
	for {
		id := idgen.NumericID()
		if _, taken := e.byShipmentID[id]; !taken {
			return id
		}
	}
}

func (e *Emulator) uniqueAWB(courierID string) string {
	for {
		awb := idgen.AWB(courierID)
		if _, taken := e.byAWB[awb]; !taken {
			return awb
		}
	}
}

func (e *Emulator) GetOrder(orderID string) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return Order{}, apperr.NotFound("Order %s not found", orderID)
	}
	return *order, nil
}

func (e *Emulator) OrderByShipmentID(shipmentID int64) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[e.byShipmentID[shipmentID]]
	if !ok {
		return Order{}, apperr.NotFound("Shipment id %d not found", shipmentID)
	}
	return *order, nil
}

// GenerateAWB assigns an AWB and fixes the delivery horizon. A second
// assignment for the same order is rejected.
func (e *Emulator) GenerateAWB(ctx context.Context, orderID, courierID string) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return Order{}, apperr.NotFound("Order %s not found", orderID)
	}
	if order.AWB != "" {
		return Order{}, apperr.Validation("shipment_id", "AWB %s is already assigned to shipment %d", order.AWB, order.ShipmentID)
	}

	now := e.clock.Now()
	courier := CourierByID(courierID)
	order.Courier = courier
	order.AWB = e.uniqueAWB(courier.ID)
	order.AWBAssignedAt = &now
	order.ETD = now.Add(e.deliveryHorizon())
	order.Status = StatusAWBAssigned
	order.reportedStage = 0
	e.byAWB[order.AWB] = orderID
	awbAssignedCounter.Inc()

	ctx = context.WithoutCancel(ctx)
	e.logger.InfoContext(ctx, "AWB assigned", "orderId", orderID, "awb", order.AWB, "courier", courier.Name)

	scans := e.timeline(order, now)
	e.notify(ctx, order, scans[len(scans)-1], scans)

	horizon := order.ETD.Sub(now)
	awb := order.AWB
	for _, s := range stages[1:] {
		e.clock.AfterFunc(stageOffset(s, horizon), func() { e.checkProgress(ctx, awb) })
	}
	return *order, nil
}

func (e *Emulator) deliveryHorizon() time.Duration {
	lo, hi := e.cfg.MinDeliveryDays, e.cfg.MaxDeliveryDays
	if lo <= 0 {
		lo = 1
	}
	days := lo
	if hi > lo {
		days += rand.IntN(hi - lo + 1)
	}
	return time.Duration(days) * 24 * time.Hour
}

func (e *Emulator) checkProgress(ctx context.Context, awb string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if order, ok := e.orders[e.byAWB[awb]]; ok {
		e.reportProgress(ctx, order, e.clock.Now())
	}
}

// reportProgress emits one webhook per stage reached since the last report. Must hold e.mu.
func (e *Emulator) reportProgress(ctx context.Context, order *Order, now time.Time) []Checkpoint {
	scans := e.timeline(order, now)
	for i := order.reportedStage + 1; i < len(scans); i++ {
		e.notify(ctx, order, scans[i], scans[:i+1])
	}
	if len(scans) > 0 {
		order.reportedStage = len(scans) - 1
	}
	return scans
}

// SchedulePickup books a pickup for the order carrying awb. A zero date means
// the next day.
func (e *Emulator) SchedulePickup(ctx context.Context, awb string, date time.Time) (Pickup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[e.byAWB[awb]]
	if !ok || awb == "" {
		return Pickup{}, apperr.NotFound("No shipment found for AWB %s", awb)
	}
	if order.Pickup != nil {
		return *order.Pickup, apperr.Validation("awb", "Pickup is already scheduled for AWB %s", awb)
	}

	now := e.clock.Now()
	today := now.Truncate(24 * time.Hour)
	if date.IsZero() {
		date = today.Add(24 * time.Hour)
	}
	if date.Before(today) {
		return Pickup{}, apperr.Validation("expected_pickup_date", "Pickup date cannot be in the past")
	}

	pickup := &Pickup{
		ID:            idgen.PickupToken(),
		AWB:           awb,
		ScheduledDate: date,
		Status:        "scheduled",
		CreatedAt:     now,
	}
	order.Pickup = pickup
	order.Status = StatusPickupScheduled
	pickupsScheduledCounter.Inc()

	e.logger.InfoContext(ctx, "Pickup scheduled", "awb", awb, "date", date.Format(time.DateOnly))

	scans := e.timeline(order, now)
	e.notify(context.WithoutCancel(ctx), order, Checkpoint{
		Status:   statusPickupScheduled,
		StatusID: statusIDPickupScheduled,
		Activity: "Pickup scheduled for " + date.Format(time.DateOnly),
		Location: e.cfg.OriginCity,
		Date:     now,
	}, scans)
	return *pickup, nil
}

// TrackShipment synthesizes the timeline from the time elapsed since AWB
// assignment, reporting any stage reached since the last check.
func (e *Emulator) TrackShipment(ctx context.Context, awb string) (Tracking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[e.byAWB[awb]]
	if !ok || awb == "" {
		return Tracking{}, apperr.NotFound("No activities found for AWB %s", awb)
	}

	scans := e.reportProgress(context.WithoutCancel(ctx), order, e.clock.Now())
	current := scans[len(scans)-1]
	return Tracking{
		Order:     *order,
		Current:   current,
		Scans:     scans,
		Delivered: current.StatusID == stages[len(stages)-1].statusID,
	}, nil
}
