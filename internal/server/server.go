package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/lexigraph/internal/events"
	"github.com/alfredjeanlab/lexigraph/internal/lexicon"
	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// ServiceName is the gRPC health service reported SERVING once a non-empty
// graph is published.
const ServiceName = "lexigraph.v1.Lexicon"

// Options configures a LexiconServer.
type Options struct {
	// SearchRateLimit limits prefix searches per second across all clients.
	// Zero disables limiting.
	SearchRateLimit float64
	SearchRateBurst int

	Logger *slog.Logger
}

// LexiconServer exposes the engine over HTTP and gRPC health, and emits
// rebuild events to the publisher and SSE clients.
type LexiconServer struct {
	engine    *lexicon.Engine
	publisher events.Publisher
	hub       *eventHub
	health    *health.Server
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewLexiconServer returns a LexiconServer serving the given engine.
func NewLexiconServer(e *lexicon.Engine, p events.Publisher, opts Options) *LexiconServer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &LexiconServer{
		engine:    e,
		publisher: p,
		hub:       newEventHub(),
		health:    health.NewServer(),
		logger:    logger,
	}
	if opts.SearchRateLimit > 0 {
		burst := max(opts.SearchRateBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(opts.SearchRateLimit), burst)
	}
	s.updateHealth()
	return s
}

// Rebuild starts a rebuild on behalf of requestedBy. It returns
// model.ErrRebuildInProgress immediately when one is running. With wait it
// blocks until the rebuild finishes or ctx is done and returns the result;
// otherwise it returns (nil, nil) once the rebuild has started. The rebuild
// itself is detached from ctx.
func (s *LexiconServer) Rebuild(ctx context.Context, requestedBy string, wait bool) (*model.RebuildResult, error) {
	type outcome struct {
		res *model.RebuildResult
		err error
	}
	done := make(chan outcome, 1)
	announced := make(chan struct{})

	err := s.engine.StartRebuild(context.WithoutCancel(ctx), func(res *model.RebuildResult, err error) {
		<-announced
		s.rebuildFinished(requestedBy, res, err)
		done <- outcome{res, err}
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.TopicRebuildStarted, events.RebuildStarted{
		RequestedBy: requestedBy,
		StartedAt:   time.Now().UTC(),
	})
	close(announced)

	if !wait {
		return nil, nil
	}
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleRebuildRequest serves rebuild requests received from the event bus.
func (s *LexiconServer) HandleRebuildRequest(ctx context.Context, req events.RebuildRequested) error {
	_, err := s.Rebuild(ctx, req.RequestedBy, false)
	return err
}

func (s *LexiconServer) rebuildFinished(requestedBy string, res *model.RebuildResult, err error) {
	ctx := context.Background()
	s.updateHealth()
	if err != nil {
		s.logger.Error("rebuild failed", "requested_by", requestedBy, "err", err)
		s.emit(ctx, events.TopicRebuildFailed, events.RebuildFailed{RequestedBy: requestedBy, Error: err.Error()})
		return
	}
	s.emit(ctx, events.TopicRebuildCompleted, events.RebuildCompleted{Result: res})
}

// updateHealth reports SERVING for ServiceName once a non-empty graph is
// published.
func (s *LexiconServer) updateHealth() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if _, _, ok := s.engine.Published(); ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// emit publishes an event to the bus and SSE clients. Failures are logged.
func (s *LexiconServer) emit(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to publish event", "topic", topic, "err", err)
	}
	s.stream(topic, event)
}

// Shutdown marks every health service NOT_SERVING.
func (s *LexiconServer) Shutdown() {
	s.health.Shutdown()
}
