// Package gateway notifies an API gateway about issued and revoked tokens.
//
// Notifications are best effort: they are queued after the owning
// transaction commits and sent by a background worker. A full queue drops
// the event with a warning instead of blocking the request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/models"
)

// Event kinds.
const (
	EventIssued  = "issued"
	EventRevoked = "revoked"
)

// Event is the JSON body posted to the gateway.
type Event struct {
	Kind      string   `json:"kind"`
	Username  string   `json:"username,omitempty"`
	Scope     string   `json:"scope,omitempty"`
	Tokens    []string `json:"tokens"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

func issuedEvent(username string, pair models.TokenPair) Event {
	ev := Event{Kind: EventIssued, Username: username}
	if pair.Access != nil {
		ev.Tokens = append(ev.Tokens, pair.Access.Token)
		ev.Scope = pair.Access.Scopes.String()
		ev.ExpiresAt = pair.Access.ExpiresAt
	}
	if pair.Refresh != nil {
		ev.Tokens = append(ev.Tokens, pair.Refresh.Token)
	}
	return ev
}

// Sender delivers one event to the gateway.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// HTTPSender posts events as JSON to a fixed URL.
type HTTPSender struct {
	httpClient *http.Client
	url        string
}

// NewHTTPSender creates a sender posting to url.
func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSender{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send implements Sender. Any non-2xx answer is an error.
func (s *HTTPSender) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway answered with status %d", resp.StatusCode)
	}
	return nil
}
