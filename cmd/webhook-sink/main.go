package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"
)

type CallbackResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	errorRate   = 0.5
	contentType = "application/json"
)

func main() {
	addr := flag.String("addr", ":8085", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	sink := newSink(logger, func() time.Duration {
		return time.Duration(3+rand.IntN(6)) * time.Second
	})

	logger.Info("Webhook sink listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, sink.handler()); err != nil {
		logger.Error("Webhook sink stopped", "error", err)
		os.Exit(1)
	}
}

func (s *sink) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/always-success", alwaysSuccessHandler)
	mux.HandleFunc("/success-delayed", s.successDelayedHandler)
	mux.HandleFunc("/always-fail", alwaysFailHandler)
	mux.HandleFunc("/random-fail", randomFailHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	return s.loggingMiddleware(s.countMiddleware(mux))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func alwaysSuccessHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CallbackResponse{Success: true})
}

func (s *sink) successDelayedHandler(w http.ResponseWriter, r *http.Request) {
	select {
	case <-time.After(s.delay()):
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, CallbackResponse{Success: true})
}

func alwaysFailHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
}

func randomFailHandler(w http.ResponseWriter, _ *http.Request) {
	if rand.Float64() < errorRate {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
		return
	}
	writeJSON(w, http.StatusOK, CallbackResponse{Success: true})
}

func (s *sink) statsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}
