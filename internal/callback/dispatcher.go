package callback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gateway-emulator/internal/clock"
	"gateway-emulator/internal/logcontext"
	"gateway-emulator/internal/model"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

const (
	HeaderEventID = "X-Emulator-Event-Id"
	HeaderAttempt = "X-Emulator-Attempt"

	defaultParallelism = 100
)

var (
	publishSuccessCounter = metrics.GetOrCreateCounter(`webhook_publish_total{result="published"}`)
	publishErrorCounter   = metrics.GetOrCreateCounter(`webhook_publish_total{result="failed"}`)
	storeErrorCounter     = metrics.GetOrCreateCounter(`webhook_store_errors_total`)
)

func deliveryCounter(gateway, result string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`webhook_deliveries_total{gateway=%q,result=%q}`, gateway, result))
}

func deliveryDuration(gateway string) *metrics.Histogram {
	return metrics.GetOrCreateHistogram(fmt.Sprintf(`webhook_delivery_duration_milliseconds{gateway=%q}`, gateway))
}

// Publisher mirrors webhook events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, ev model.WebhookEvent) error
}

// Notifier is what the emulators need from the dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, ev model.WebhookEvent, delay time.Duration)
}

type Options struct {
	Parallelism     int
	MaxAttempts     int
	RescheduleDelay time.Duration
	Store           DeliveryStore
	Publisher       Publisher
}

// Dispatcher delivers webhook events after a delay without blocking the caller.
// Failed attempts are retried with linear backoff up to MaxAttempts; with the
// default of one attempt delivery is at most once.
type Dispatcher struct {
	clock           clock.Clock
	sender          *Sender
	store           DeliveryStore
	publisher       Publisher
	sem             chan struct{}
	maxAttempts     int
	rescheduleDelay time.Duration
	logger          *slog.Logger
}

func NewDispatcher(clk clock.Clock, sender *Sender, logger *slog.Logger, opts Options) *Dispatcher {
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore(500)
	}
	return &Dispatcher{
		clock:           clk,
		sender:          sender,
		store:           opts.Store,
		publisher:       opts.Publisher,
		sem:             make(chan struct{}, opts.Parallelism),
		maxAttempts:     opts.MaxAttempts,
		rescheduleDelay: opts.RescheduleDelay,
		logger:          logger,
	}
}

// Dispatch schedules ev for delivery after delay. Events without a URL are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.WebhookEvent, delay time.Duration) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = d.clock.Now()
	}

	// the request that triggered the event is usually gone by the time it is delivered
	ctx = logcontext.AppendCtx(context.WithoutCancel(ctx),
		slog.String("eventId", ev.ID.String()),
		slog.String("gateway", ev.Gateway),
		slog.String("eventType", ev.Type),
	)

	if ev.URL == "" {
		d.logger.DebugContext(ctx, "No webhook URL configured, dropping event")
		deliveryCounter(ev.Gateway, "dropped").Inc()
		return
	}

	scheduledAt := ev.CreatedAt.Add(delay)
	delivery := &model.Delivery{
		ID:          ev.ID,
		Gateway:     ev.Gateway,
		EventType:   ev.Type,
		Subject:     ev.Subject,
		URL:         ev.URL,
		Payload:     string(ev.Payload),
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.CreatedAt,
		ScheduledAt: &scheduledAt,
	}

	d.logger.InfoContext(ctx, "Scheduling webhook", "delay", delay.String(), "url", ev.URL)
	d.clock.AfterFunc(delay, func() { d.deliver(ctx, ev, delivery) })
}

func (d *Dispatcher) deliver(ctx context.Context, ev model.WebhookEvent, delivery *model.Delivery) {
	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	attempt := delivery.Attempts + 1
	ctx = logcontext.AppendCtx(ctx, slog.Int("attempt", attempt))

	if attempt == 1 {
		if err := d.store.Create(ctx, delivery); err != nil {
			d.logger.ErrorContext(ctx, "Error storing delivery", "error", err)
			storeErrorCounter.Inc()
		}
		d.publish(ctx, ev)
	}

	headers := make(map[string]string, len(ev.Headers)+2)
	for k, v := range ev.Headers {
		headers[k] = v
	}
	headers[HeaderEventID] = ev.ID.String()
	headers[HeaderAttempt] = strconv.Itoa(attempt)

	startTime := time.Now()
	err := d.sender.Send(ctx, ev.URL, ev.Payload, headers)
	deliveryDuration(ev.Gateway).Update(float64(time.Since(startTime).Milliseconds()))

	now := d.clock.Now()
	delivery.Attempts = attempt
	delivery.UpdatedAt = now

	if err != nil {
		errMsg := err.Error()
		delivery.Error = &errMsg

		if attempt < d.maxAttempts {
			backoff := time.Duration(attempt) * d.rescheduleDelay
			next := now.Add(backoff)
			delivery.ScheduledAt = &next
			d.update(ctx, delivery)

			d.logger.WarnContext(ctx, "Webhook delivery failed, rescheduling", "error", err, "backoff", backoff.String())
			deliveryCounter(ev.Gateway, "rescheduled").Inc()
			d.clock.AfterFunc(backoff, func() { d.deliver(ctx, ev, delivery) })
			return
		}

		delivery.ScheduledAt = nil
		d.update(ctx, delivery)

		d.logger.ErrorContext(ctx, "Webhook delivery failed", "error", err)
		deliveryCounter(ev.Gateway, "failed").Inc()
		return
	}

	delivery.ScheduledAt = nil
	delivery.Error = nil
	delivery.DeliveredAt = &now
	d.update(ctx, delivery)

	d.logger.InfoContext(ctx, "Webhook delivered")
	deliveryCounter(ev.Gateway, "delivered").Inc()
}

func (d *Dispatcher) publish(ctx context.Context, ev model.WebhookEvent) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		d.logger.ErrorContext(ctx, "Error publishing gateway event", "error", err)
		publishErrorCounter.Inc()
		return
	}
	publishSuccessCounter.Inc()
}

func (d *Dispatcher) update(ctx context.Context, delivery *model.Delivery) {
	if err := d.store.Update(ctx, delivery); err != nil {
		d.logger.ErrorContext(ctx, "Error updating delivery", "error", err)
		storeErrorCounter.Inc()
	}
}

// Deliveries lists recent delivery records, newest first.
func (d *Dispatcher) Deliveries(ctx context.Context, limit int) ([]model.Delivery, error) {
	return d.store.ListRecent(ctx, limit)
}

func (d *Dispatcher) Delivery(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	return d.store.GetByID(ctx, id)
}
