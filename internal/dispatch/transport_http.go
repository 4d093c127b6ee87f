package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"hookfan/internal/config"
	"hookfan/internal/event"
)

// HTTPTransport POSTs the rebuilt single-entry envelope to the service's
// configured URL.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *HTTPTransport) Deliver(ctx context.Context, svc config.Service, item event.Item) error {
	payload, err := json.Marshal(item.Rebuild())
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	target := svc.URL
	if svc.Token != "" {
		u, err := url.Parse(svc.URL)
		if err != nil {
			return fmt.Errorf("invalid service url: %w", err)
		}
		q := u.Query()
		q.Set("token", svc.Token)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Hookfan/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return nil
}
