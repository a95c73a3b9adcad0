package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

// Server ties the HTTP router, the websocket hub, and an
// analytics_done listener together (§4.5). On every analytics_done
// notification it re-reads each section and fans it out over the hub
// so connected dashboards stay current without polling.
type Server struct {
	cfg           *config.Config
	analytics     *store.Store
	notifications *store.Store
	hub           *Hub
	limiter       *clientLimiter
	http          *http.Server
	tracer        *observability.Tracer
	logger        zerolog.Logger
}

// NewServer builds a Server. notifications is the store connection the
// analytics_done subscription is opened on (any logical DB works —
// Redis pub/sub channels are not namespaced per database).
func NewServer(cfg *config.Config, analytics, notifications *store.Store, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "serve-server").Logger()
	metrics := observability.NewMetrics("serve")
	tracer := observability.NewTracer(logger, observability.NewLogExporter(logger), 1.0)
	hub := NewHub(analytics, metrics, logger)
	limiter := NewRateLimiter(cfg.Serve.RateLimitRPS, cfg.Serve.RateLimitBurst)
	return &Server{
		cfg:           cfg,
		analytics:     analytics,
		notifications: notifications,
		hub:           hub,
		limiter:       limiter,
		tracer:        tracer,
		logger:        logger,
		http: &http.Server{
			Addr:    cfg.Serve.Addr,
			Handler: NewRouter(cfg, analytics, hub, limiter, metrics, tracer, logger),
		},
	}
}

// Run starts the hub, the analytics_done listener, and the HTTP
// server, blocking until ctx is cancelled, then shuts everything down
// within GracefulTimeout (§5 "current pass completes, no forced
// abort").
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.listenForUpdates(ctx)
	stop := make(chan struct{})
	go s.limiter.sweep(stop, 5*time.Minute)
	defer close(stop)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Serve.Addr).Msg("serve listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracefulTimeout)
		defer cancel()
		s.tracer.Stop()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		s.tracer.Stop()
		return err
	}
}

// listenForUpdates subscribes to the analytics_done channel and
// re-broadcasts every section to subscribed websocket clients on each
// tick, falling back to PollIntervalSec when notifications are
// disabled (§4.1 wait_or_poll).
func (s *Server) listenForUpdates(ctx context.Context) {
	channel := s.cfg.Notification.Send.Channel
	sub := s.notifications.Subscribe(ctx, channel)
	defer sub.Close()

	pollInterval := time.Duration(s.cfg.PollIntervalSec) * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		_, skipped, err := sub.WaitOrPoll(ctx, s.cfg.Notification.Listen.Enabled, pollInterval, func(raw string, err error) {
			s.logger.Warn().Err(err).Str("payload", raw).Msg("malformed analytics_done notification")
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Msg("notification wait failed")
			continue
		}
		if skipped {
			continue
		}
		s.broadcastAll(ctx)
	}
}

// broadcastAll re-reads every §4.5 section and pushes it to whichever
// clients subscribed to it (or to "all").
func (s *Server) broadcastAll(ctx context.Context) {
	snapshot, err := FetchSnapshot(ctx, s.analytics)
	if err != nil {
		s.logger.Warn().Err(err).Msg("refresh snapshot for broadcast failed")
		return
	}
	s.hub.BroadcastSection("metadata", snapshot.Metadata)
	s.hub.BroadcastSection("trending_keywords", snapshot.TrendingKeywords)
	s.hub.BroadcastSection("word_cloud", snapshot.WordCloud)
	s.hub.BroadcastSection("news_feed", snapshot.NewsFeed)
	s.hub.BroadcastSection("history_data", snapshot.History)
}
