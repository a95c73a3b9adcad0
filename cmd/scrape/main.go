// cmd/scrape drives the Scrape stage (§2, §6.4): fetch from every
// configured SourceFeed, append to raw_queue, trim, publish
// scrape_done. Real crawler adapters are out of scope (§1); this
// binary runs with no feeds wired by default, which is a legitimate
// deployment (a pure trim-and-republish no-op) until an adapter is
// injected.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/logger"
	"github.com/marketpulse/pipeline/model"
	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/scrape"
	"github.com/marketpulse/pipeline/store"
)

const scrapeDoneChannel = "scrape_done"

func main() {
	loopFlag := flag.Bool("loop", false, "run continuously with --interval between passes")
	intervalFlag := flag.Int("interval", 0, "seconds between passes in --loop mode (0 uses config default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg, "scrape")

	st := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBScrape}, log)
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("store connect failed")
		os.Exit(1)
	}

	stage := scrape.NewStage(st, nil, cfg, log)

	metrics := observability.NewMetrics("scrape")
	metrics.Serve(cfg.MetricsAddr, log)
	tracer := observability.NewTracer(log, observability.NewLogExporter(log), 1.0)
	defer tracer.Stop()

	loop := *loopFlag || cfg.Scrape.Loop
	interval := time.Duration(cfg.Scrape.Interval) * time.Second
	if *intervalFlag > 0 {
		interval = time.Duration(*intervalFlag) * time.Second
	}

	shutdown := fabric.ShutdownSignal()
	worker := fabric.NewWorker("scrape")
	_ = worker.Transition(fabric.StateConnected)

runLoop:
	for {
		_ = worker.Transition(fabric.StateProcessing)
		start := time.Now()
		n, err := stage.Run(context.Background())
		metrics.PassDuration.WithLabelValues().Observe(time.Since(start).Seconds())
		observability.StagePass(tracer, "scrape", n.Statistics, err)
		if err != nil {
			log.Error().Err(err).Msg("scrape pass failed")
			metrics.PassesTotal.WithLabelValues("error").Inc()
		} else {
			metrics.PassesTotal.WithLabelValues("ok").Inc()
			recordItemCounts(metrics, n)
			if _, perr := st.Publish(context.Background(), scrapeDoneChannel, n); perr != nil {
				log.Warn().Err(perr).Msg("publish scrape_done failed")
			}
		}
		_ = worker.Transition(fabric.StateIdle)

		if !loop {
			break
		}

		select {
		case <-shutdown:
			break runLoop
		case <-time.After(interval):
		}
	}

	_ = worker.Transition(fabric.StateDraining)
	_ = worker.Transition(fabric.StateStopped)
	log.Info().Msg("scrape stopped")
}

// recordItemCounts exports a pass's Notification.Statistics counters
// (ints/float64s only — the rest are request ids and similar) as the
// pipeline_items_total series.
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
