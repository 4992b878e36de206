package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/metrics"
)

type fakeSender struct {
	err    error
	block  chan struct{}
	events []Event
	mu     sync.Mutex
}

func (s *fakeSender) Send(_ context.Context, ev Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *fakeSender) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPair() models.TokenPair {
	return models.TokenPair{
		Access:  &models.AccessToken{Token: "access-1", ExpiresAt: 4600, Scopes: models.NewScopeSet("me", "deploy")},
		Refresh: &models.RefreshToken{Token: "refresh-1"},
	}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.New()
	d := NewDispatcher(discardLogger(), sender, 8, m)
	d.Start()

	d.TokensIssued("alice", testPair())
	d.TokensRevoked("access-1", "refresh-1")
	d.TokensRevoked()
	d.Close()

	events := sender.received()
	require.Len(t, events, 2)

	assert.Equal(t, Event{
		Kind:      EventIssued,
		Username:  "alice",
		Scope:     "deploy me",
		Tokens:    []string{"access-1", "refresh-1"},
		ExpiresAt: 4600,
	}, events[0])
	assert.Equal(t, Event{Kind: EventRevoked, Tokens: []string{"access-1", "refresh-1"}}, events[1])

	expected := `
# HELP authorization_gateway_events_total Gateway notifications by outcome.
# TYPE authorization_gateway_events_total counter
authorization_gateway_events_total{outcome="sent"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "authorization_gateway_events_total"))
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(discardLogger(), sender, 1, nil)

	// воркер не запущен, поэтому в очередь помещается ровно одно событие
	d.TokensRevoked("a")
	d.TokensRevoked("b")
	d.TokensRevoked("c")

	d.Start()
	close(sender.block)
	d.Close()

	events := sender.received()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"a"}, events[0].Tokens)
}

func TestDispatcher_SendErrorsAreSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	d := NewDispatcher(discardLogger(), sender, 0, nil)
	d.Start()

	d.TokensRevoked("a")
	d.TokensRevoked("b")
	d.Close()

	assert.Len(t, sender.received(), 2)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(discardLogger(), sender, 4, nil)

	d.Close()
	d.Close()
	d.Start()

	assert.NotPanics(t, func() {
		d.TokensRevoked("late")
	})
	assert.Empty(t, sender.received())
}

func TestHTTPSender_Send(t *testing.T) {
	var (
		mu  sync.Mutex
		got Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		mu.Lock()
		defer mu.Unlock()
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&got)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got.Kind == EventRevoked {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewHTTPSender(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, sender.Send(ctx, issuedEvent("alice", testPair())))
	mu.Lock()
	assert.Equal(t, "alice", got.Username)
	mu.Unlock()

	err := sender.Send(ctx, Event{Kind: EventRevoked, Tokens: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
