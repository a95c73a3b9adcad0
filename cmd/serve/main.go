// cmd/serve drives the Read API (§2, §4.5, §6.4): chi router exposing
// GET snapshot / GET section/<name>, and a websocket hub pushing
// section updates on every analytics_done notification.
package main

import (
	"context"
	"os"

	"github.com/marketpulse/pipeline/config"
	"github.com/marketpulse/pipeline/fabric"
	"github.com/marketpulse/pipeline/logger"
	"github.com/marketpulse/pipeline/serve"
	"github.com/marketpulse/pipeline/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg, "serve")

	// Serve is pure-read against DB-ANALYTICS (§4.5); pub/sub channels
	// are not namespaced per logical DB, so the notification subscriber
	// can share the same DB index as the read connection.
	analyticsDB := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBAnalytics}, log)
	notifications := store.New(store.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: store.DBAnalytics}, log)
	defer analyticsDB.Close()
	defer notifications.Close()

	if err := analyticsDB.Ping(context.Background()); err != nil {
		log.Error().Err(err).Msg("analytics store connect failed")
		os.Exit(1)
	}

	srv := serve.NewServer(cfg, analyticsDB, notifications, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := fabric.ShutdownSignal()
	go func() {
		<-shutdown
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("serve stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("serve stopped")
}
