// Package oauth implements the token lifecycle: issuance for the password and
// refresh_token grants, introspection, revocation and the per-request
// authorization decision.
package oauth

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wisdom-oss/authorization-service/internal/crypto"
	"github.com/wisdom-oss/authorization-service/internal/models"
	"github.com/wisdom-oss/authorization-service/internal/server/storage"
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

const tracerName = "github.com/wisdom-oss/authorization-service/internal/server/oauth"

// Notifier receives token lifecycle events after the transaction committed.
// Implementations must not block.
type Notifier interface {
	TokensIssued(username string, pair models.TokenPair)
	TokensRevoked(tokens ...string)
}

type nopNotifier struct{}

func (nopNotifier) TokensIssued(string, models.TokenPair) {}
func (nopNotifier) TokensRevoked(...string)               {}

// Service issues, introspects and revokes tokens.
type Service struct {
	logger     *slog.Logger
	store      storage.Store
	hasher     crypto.PasswordHasher
	notifier   Notifier
	tracer     trace.Tracer
	now        func() time.Time
	newToken   func() (string, error)
	accessTTL  time.Duration
	refreshTTL time.Duration

	// dummyHash проверяется для неизвестных пользователей, считается один раз
	dummyOnce sync.Once
	dummyHash string
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithNotifier sets the receiver of issuance and revocation events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithTokenGenerator overrides the opaque token generator.
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(logger *slog.Logger, store storage.Store, hasher crypto.PasswordHasher, opts ...Option) *Service {
	s := &Service{
		logger:     logger,
		store:      store,
		hasher:     hasher,
		notifier:   nopNotifier{},
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		newToken:   crypto.NewToken,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
