// cmd/analyze drives the Analytics Engine (§2, §4.3, §6.4): on each
// clean_done notification (or poll tick), ingest clean_queue, fill
// sentiment, compute every §4.3 section, emit the snapshot, and
// publish analytics_done.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/marketpulse/pipeline/analytics"
	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/logger"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/oracle"
	"github.com/marketpulse/pipeline/store"
)

const (
	upstreamChannel   = "clean_done"
	downstreamChannel = "analytics_done"
)

func main() {
	modeFlag := flag.String("mode", "", "event_driven|continuous|once (default from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg, "analyze")

	cleanDB := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBClean}, log)
	analyticsDB := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBAnalytics}, log)
	defer cleanDB.Close()
	defer analyticsDB.Close()

	if err := cleanDB.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("clean store connect failed")
		os.Exit(1)
	}
	if err := analyticsDB.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("analytics store connect failed")
		os.Exit(1)
	}

	// The real sentiment classifier model is out of scope (§1); the
	// oracle chain here is heuristic -> circuit-breaker guard -> exact
	// match cache, so a future real predictor only needs to replace
	// the innermost Classify call.
	base := oracle.Heuristic{}
	guarded := oracle.NewGuarded(base, cfg.Sentiment.FallbackToHeuristic, log)
	cache := oracle.NewResultCache(log, oracle.DefaultCacheConfig())
	sentimentOracle := oracle.NewCached(guarded, cache)

	stage := analytics.NewStage(cleanDB, analyticsDB, cfg, sentimentOracle, log)

	metrics := observability.NewMetrics("analyze")
	metrics.Serve(cfg.MetricsAddr, log)
	tracer := observability.NewTracer(log, observability.NewLogExporter(log), 1.0)
	defer tracer.Stop()

	mode := fabric.Mode(cfg.Notification.Listen.Mode)
	if *modeFlag != "" {
		mode = fabric.Mode(*modeFlag)
	}

	var sub *store.Subscription
	if mode != fabric.ModeContinuous && mode != fabric.ModeOnce {
		sub = cleanDB.Subscribe(context.Background(), upstreamChannel)
		defer sub.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := fabric.ShutdownSignal()
	go func() {
		<-shutdown
		cancel()
	}()

	worker := fabric.NewWorker("analyze")
	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second

	fabric.RunModeLoop(ctx, worker, sub, mode, cfg.Notification.Listen.Enabled, pollInterval, shutdown, func(passCtx context.Context) error {
		start := time.Now()
		n, err := stage.Run(passCtx)
		metrics.PassDuration.WithLabelValues().Observe(time.Since(start).Seconds())
		observability.StagePass(tracer, "analyze", n.Statistics, err)
		if err != nil {
			log.Error().Err(err).Msg("analytics pass failed")
			metrics.PassesTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.PassesTotal.WithLabelValues("ok").Inc()
		recordItemCounts(metrics, n)
		if _, perr := analyticsDB.Publish(passCtx, downstreamChannel, n); perr != nil {
			log.Warn().Err(perr).Msg("publish analytics_done failed")
		}
		return nil
	})

	log.Info().Msg("analyze stopped")
}

// recordItemCounts exports a pass's Notification.Statistics counters
// as the pipeline_items_total series.
func recordItemCounts(metrics *observability.Metrics, n model.Notification) {
	for k, v := range n.Statistics {
		switch val := v.(type) {
		case int:
			metrics.ItemsTotal.WithLabelValues(k).Add(float64(val))
		case int64:
			metrics.ItemsTotal.WithLabelValues(k).Add(float64(val))
		case float64:
			metrics.ItemsTotal.WithLabelValues(k).Add(val)
		}
	}
}
