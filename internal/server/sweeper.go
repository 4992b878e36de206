package server

import (
	"context"
	"log/slog"
	"time"
)

func (s *Server) sweepLoop(ctx context.Context) {
	if s.cfg.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep deletes tokens whose lifetime has ended. Errors are logged and retried on the next tick.
func (s *Server) sweep(ctx context.Context) int {
	n, err := s.store.DeleteExpiredTokens(ctx, s.now().Unix())
	if err != nil {
		s.logger.WarnContext(ctx, "failed to sweep expired tokens", slog.Any("error", err))
		return 0
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired tokens swept", slog.Int("count", n))
	}
	s.metrics.TokensSwept(n)
	return n
}
