// cmd/clean drives the Cleaner Core (§2, §4.2, §6.4): on each
// scrape_done notification (or poll tick), validate/dedup/normalize
// raw_queue into clean_queue and publish clean_done.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/marketpulse/pipeline/clean"
	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/logger"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

const (
	upstreamChannel   = "scrape_done"
	downstreamChannel = "clean_done"
)

func main() {
	modeFlag := flag.String("mode", "", "event_driven|continuous|once (default from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg, "clean")

	raw := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBScrape}, log)
	cleanDB := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBClean}, log)
	defer raw.Close()
	defer cleanDB.Close()

	if err := raw.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("raw store connect failed")
		os.Exit(1)
	}
	if err := cleanDB.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("clean store connect failed")
		os.Exit(1)
	}

	stage := clean.NewStage(raw, cleanDB, cfg, log)

	metrics := observability.NewMetrics("clean")
	metrics.Serve(cfg.MetricsAddr, log)
	tracer := observability.NewTracer(log, observability.NewLogExporter(log), 1.0)
	defer tracer.Stop()

	mode := fabric.Mode(cfg.Notification.Listen.Mode)
	if *modeFlag != "" {
		mode = fabric.Mode(*modeFlag)
	}

	var sub *store.Subscription
	if mode != fabric.ModeContinuous && mode != fabric.ModeOnce {
		sub = raw.Subscribe(context.Background(), upstreamChannel)
		defer sub.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := fabric.ShutdownSignal()
	go func() {
		<-shutdown
		cancel()
	}()

	worker := fabric.NewWorker("clean")
	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second
	lastTrigger := time.Now()

	fabric.RunModeLoop(ctx, worker, sub, mode, cfg.Notification.Listen.Enabled, pollInterval, shutdown, func(passCtx context.Context) error {
		if cfg.CleanTrigger.MinItems > 1 {
			length, lerr := raw.Len(passCtx, cfg.Redis.RawQueue)
			if lerr == nil && length < int64(cfg.CleanTrigger.MinItems) && time.Since(lastTrigger) < cfg.CleanTrigger.MaxWait {
				log.Debug().Int64("raw_queue_len", length).Msg("batch trigger threshold not reached, skipping pass")
				return nil
			}
		}
		lastTrigger = time.Now()

		start := time.Now()
		n, err := stage.Run(passCtx)
		metrics.PassDuration.WithLabelValues().Observe(time.Since(start).Seconds())
		observability.StagePass(tracer, "clean", n.Statistics, err)
		if err != nil {
			log.Error().Err(err).Msg("clean pass failed")
			metrics.PassesTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.PassesTotal.WithLabelValues("ok").Inc()
		recordItemCounts(metrics, n)
		if _, perr := cleanDB.Publish(passCtx, downstreamChannel, n); perr != nil {
			log.Warn().Err(perr).Msg("publish clean_done failed")
		}
		return nil
	})

	log.Info().Msg("clean stopped")
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
