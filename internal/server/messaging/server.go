package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wisdom-oss/authorization-service/internal/ids"
	"github.com/wisdom-oss/authorization-service/internal/server/oauth"
)

// DefaultWorkers is used when Server is created with workers <= 0.
const DefaultWorkers = 4

const requestTimeout = 10 * time.Second

// RequestExecutor runs one decoded request.
type RequestExecutor interface {
	Execute(ctx context.Context, req Request) Response
}

// Server pulls deliveries from a Transport and answers them with a pool of workers.
type Server struct {
	logger    *slog.Logger
	transport Transport
	executor  RequestExecutor
	codecs    *Codecs
	workers   int
}

// NewServer creates a bus server.
func NewServer(logger *slog.Logger, transport Transport, executor RequestExecutor, codecs *Codecs, workers int) *Server {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Server{
		logger:    logger,
		transport: transport,
		executor:  executor,
		codecs:    codecs,
		workers:   workers,
	}
}

// Run blocks until ctx is cancelled or the transport is closed.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("message bus server started", slog.Int("workers", s.workers))

	var wg sync.WaitGroup
	for i := range s.workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.work(ctx, worker)
		}(i)
	}
	wg.Wait()

	s.logger.Info("message bus server stopped")
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) work(ctx context.Context, worker int) {
	for {
		d, err := s.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to receive message", slog.Int("worker", worker), slog.Any("error", err))
			continue
		}
		s.handle(ctx, d)
	}
}

func (s *Server) handle(ctx context.Context, d Delivery) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	codec, err := s.codecs.For(d.ContentType)
	if err != nil {
		// ответ уходит в JSON, раз формат запроса неизвестен
		s.logger.WarnContext(ctx, "rejected message", slog.String("content_type", d.ContentType), slog.Any("error", err))
		s.reply(ctx, d, JSONCodec{}, errorResponse("", oauth.CodeInvalidRequest, err.Error()))
		return
	}

	var req Request
	if err := codec.Unmarshal(d.Body, &req); err != nil {
		s.logger.WarnContext(ctx, "undecodable message", slog.String("content_type", codec.ContentType()), slog.Any("error", err))
		s.reply(ctx, d, codec, errorResponse("", oauth.CodeInvalidRequest, "message body could not be decoded"))
		return
	}
	if req.CorrelationID == "" {
		req.CorrelationID = ids.New()
	}

	resp := s.executor.Execute(ctx, req)
	s.logger.DebugContext(ctx, "message handled",
		slog.String("correlation_id", req.CorrelationID),
		slog.String("action", req.Payload.Action),
		slog.String("status", resp.Status),
	)
	s.reply(ctx, d, codec, resp)
}

func (s *Server) reply(ctx context.Context, d Delivery, codec Codec, resp Response) {
	if d.Reply == nil {
		return
	}
	body, err := codec.Marshal(resp)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode reply", slog.Any("error", err))
		return
	}
	if err := d.Reply(ctx, codec.ContentType(), body); err != nil {
		s.logger.WarnContext(ctx, "failed to publish reply",
			slog.String("correlation_id", resp.CorrelationID),
			slog.Any("error", err),
		)
	}
}
