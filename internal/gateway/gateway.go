// Package gateway wires the emulators to one clock and one webhook dispatcher
// and owns their lifecycle.
package gateway

import (
	"context"
	"log/slog"
	"sort"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/callback"
	"gateway-emulator/internal/clock"
	"gateway-emulator/internal/config"
	"gateway-emulator/internal/messaging"
	"gateway-emulator/internal/model"
	"gateway-emulator/internal/payment"
	"gateway-emulator/internal/shipping"
)

// Deps are the optional collaborators. Zero values fall back to a wall clock,
// an in-memory delivery history and no event mirror.
type Deps struct {
	Clock     clock.Clock
	Store     callback.DeliveryStore
	Publisher callback.Publisher
}

type webhookTarget interface {
	SetWebhookURL(u string)
	WebhookURL() string
}

type Gateway struct {
	Clock      clock.Clock
	Dispatcher *callback.Dispatcher
	Payment    *payment.Emulator
	Shipping   *shipping.Emulator
	Messaging  *messaging.Emulator

	targets map[string]webhookTarget
	logger  *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Gateway {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewReal()
	}
	store := deps.Store
	if store == nil {
		store = callback.NewMemoryStore(cfg.Callback.Dispatcher.HistorySize)
	}

	sender := callback.NewSender(cfg.Callback.Sender.Timeout(), logger)
	dispatcher := callback.NewDispatcher(clk, sender, logger, callback.Options{
		Parallelism:     cfg.Callback.Dispatcher.Parallelism,
		MaxAttempts:     cfg.Callback.Dispatcher.MaxDeliveryAttempts,
		RescheduleDelay: cfg.Callback.Dispatcher.RescheduleDelay(),
		Store:           store,
		Publisher:       deps.Publisher,
	})

	g := &Gateway{
		Clock:      clk,
		Dispatcher: dispatcher,
		Payment:    payment.New(cfg.Payment, clk, dispatcher, logger),
		Shipping:   shipping.New(cfg.Shipping, clk, dispatcher, logger),
		Messaging:  messaging.New(cfg.Messaging, clk, dispatcher, logger),
		logger:     logger,
	}
	g.targets = map[string]webhookTarget{
		model.GatewayPayment:   g.Payment,
		model.GatewayShipping:  g.Shipping,
		model.GatewayMessaging: g.Messaging,
	}
	return g
}

// SetWebhookURL points one gateway's webhooks at u. An empty u disables them.
func (g *Gateway) SetWebhookURL(ctx context.Context, gateway, u string) error {
	target, ok := g.targets[gateway]
	if !ok {
		return apperr.NotFound("Unknown gateway %q", gateway)
	}
	target.SetWebhookURL(u)
	g.logger.InfoContext(ctx, "Webhook URL updated", "gateway", gateway, "url", u)
	return nil
}

// WebhookURLs returns the current webhook URL of every gateway.
func (g *Gateway) WebhookURLs() map[string]string {
	out := make(map[string]string, len(g.targets))
	for name, target := range g.targets {
		out[name] = target.WebhookURL()
	}
	return out
}

func (g *Gateway) Gateways() []string {
	names := make([]string, 0, len(g.targets))
	for name := range g.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown cancels pending emulator tasks and webhooks and waits for running ones.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if s, ok := g.Clock.(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(ctx)
	}
	return nil
}
