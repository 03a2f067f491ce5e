package api

import (
	"net/http"
	"strconv"
	"strings"

	"gateway-emulator/internal/apperr"
	"gateway-emulator/internal/gateway"
	"gateway-emulator/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultDeliveryLimit = 50

type controlError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeControlError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	writeJSON(w, httpStatus(err), controlError{Error: e.Kind.String(), Message: e.Error()})
}

type webhookURLRequest struct {
	URL string `json:"url"`
}

type webhookURLResponse struct {
	Gateway string `json:"gateway"`
	URL     string `json:"url"`
}

type deliveriesResponse struct {
	Data []model.Delivery `json:"data"`
}

type controlHandler struct {
	gateway *gateway.Gateway
}

func (h *controlHandler) routes(r chi.Router) {
	r.Get("/webhooks", h.webhookURLs)
	r.Put("/webhooks/{gateway}", h.setWebhookURL)
	r.Get("/webhooks/deliveries", h.deliveries)
	r.Get("/webhooks/deliveries/{delivery_id}", h.delivery)
}

func (h *controlHandler) webhookURLs(w http.ResponseWriter, _ *http.Request) {
	urls := h.gateway.WebhookURLs()
	out := make([]webhookURLResponse, 0, len(urls))
	for _, name := range h.gateway.Gateways() {
		out = append(out, webhookURLResponse{Gateway: name, URL: urls[name]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *controlHandler) setWebhookURL(w http.ResponseWriter, r *http.Request) {
	var req webhookURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeControlError(w, err)
		return
	}
	name := chi.URLParam(r, "gateway")
	url := strings.TrimSpace(req.URL)
	if err := h.gateway.SetWebhookURL(r.Context(), name, url); err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, webhookURLResponse{Gateway: name, URL: url})
}

func (h *controlHandler) deliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeControlError(w, apperr.Validation("limit", "must be a non-negative integer"))
			return
		}
		limit = v
	}
	deliveries, err := h.gateway.Dispatcher.Deliveries(r.Context(), limit)
	if err != nil {
		writeControlError(w, err)
		return
	}
	if deliveries == nil {
		deliveries = []model.Delivery{}
	}
	writeJSON(w, http.StatusOK, deliveriesResponse{Data: deliveries})
}

func (h *controlHandler) delivery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "delivery_id"))
	if err != nil {
		writeControlError(w, apperr.Validation("delivery_id", "must be a uuid"))
		return
	}
	delivery, err := h.gateway.Dispatcher.Delivery(r.Context(), id)
	if err != nil {
		writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}
