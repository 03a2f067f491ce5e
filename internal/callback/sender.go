package callback

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type Sender struct {
	client *http.Client
	logger *slog.Logger
}

func NewSender(timeout time.Duration, logger *slog.Logger) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send posts payload as JSON to url. Any status >= 400 is an error.
func (s *Sender) Send(ctx context.Context, url string, payload []byte, headers map[string]string) error {
	s.logger.DebugContext(ctx, "Sending webhook", "url", url, "payload", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "creating webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending webhook")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook response")
	}

	s.logger.DebugContext(ctx, "Webhook response", "status", resp.Status, "body", string(respBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("error response: %s", resp.Status)
	}

	return nil
}
