package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// eventIDHeader is set by the emulator on every delivery attempt.
const eventIDHeader = "X-Emulator-Event-Id"

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(status int) {
	lrw.status = status
	lrw.ResponseWriter.WriteHeader(status)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.body.Write(b)
	return lrw.ResponseWriter.Write(b)
}

type sink struct {
	logger *slog.Logger
	delay  func() time.Duration

	mu             sync.Mutex
	seen           map[string]int
	endpointCounts map[string]int
}

func newSink(logger *slog.Logger, delay func() time.Duration) *sink {
	return &sink{
		logger:         logger,
		delay:          delay,
		seen:           make(map[string]int),
		endpointCounts: make(map[string]int),
	}
}

type sinkStats struct {
	Endpoints  map[string]int `json:"endpoints"`
	Events     int            `json:"events"`
	Duplicates []string       `json:"duplicates"`
}

func (s *sink) stats() sinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sinkStats{Endpoints: make(map[string]int, len(s.endpointCounts)), Events: len(s.seen), Duplicates: []string{}}
	for path, n := range s.endpointCounts {
		out.Endpoints[path] = n
	}
	for id, n := range s.seen {
		if n > 1 {
			out.Duplicates = append(out.Duplicates, id)
		}
	}
	sort.Strings(out.Duplicates)
	return out
}

// record counts a delivery of eventID and reports whether it was seen before.
func (s *sink) record(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID]++
	return s.seen[eventID] > 1
}

func (s *sink) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.logger.Error("Error reading request body", "error", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		eventID := r.Header.Get(eventIDHeader)
		logger := s.logger.With("path", r.URL.Path, "eventId", eventID)
		logger.Info("Request", "headers", r.Header, "body", string(body))

		if eventID != "" && s.record(eventID) {
			logger.Warn("Duplicate event delivery", "attempt", r.Header.Get("X-Emulator-Attempt"))
		}

		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(lrw, r)

		logger.Info("Response", "status", lrw.status, "headers", w.Header(), "body", lrw.body.String())
	})
}

func (s *sink) countMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.endpointCounts[r.URL.Path]++
		count := s.endpointCounts[r.URL.Path]
		s.mu.Unlock()

		s.logger.Debug("Endpoint called", "path", r.URL.Path, "count", count)
		next.ServeHTTP(w, r)
	})
}
