// Package api serves the emulated provider APIs. Each provider gets the
// request and response shapes its real counterpart uses.
package api

import (
	"log/slog"
	"net/http"

	"gateway-emulator/internal/config"
	"gateway-emulator/internal/gateway"
	"gateway-emulator/internal/metrics"
	"github.com/go-chi/chi/v5"
)

func NewRouter(g *gateway.Gateway, cfg *config.Config, logger *slog.Logger) http.Handler {
	payments := &paymentHandler{payments: g.Payment}
	shipments := &shippingHandler{
		shipments:    g.Shipping,
		trackURLBase: cfg.Shipping.TrackURLBase,
		originCity:   cfg.Shipping.OriginCity,
	}
	messages := &messagingHandler{messages: g.Messaging, phoneNumberID: cfg.Messaging.PhoneNumberID}
	control := &controlHandler{gateway: g}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", metrics.Handler())

	r.Route("/payments/v1", payments.routes)
	r.Route("/shipping/v1/external", shipments.routes)
	r.Route("/messaging", messages.routes)
	r.Route("/_emulator", control.routes)
	return r
}
