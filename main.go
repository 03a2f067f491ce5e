package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gateway-emulator/internal/api"
	"gateway-emulator/internal/config"
	"gateway-emulator/internal/db"
	"gateway-emulator/internal/gateway"
	"gateway-emulator/internal/kafka"
	"gateway-emulator/internal/logging"
	"gateway-emulator/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoadConfig(".")
	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics, logger)

	var deps gateway.Deps

	if cfg.Database.Enabled() {
		connStr := db.GetConnStr(cfg.Database)
		if err := db.RunMigrations(connStr, cfg.Database.MigrationsDir); err != nil {
			log.Fatal(err)
		}

		dbpool, err := db.GetPool(ctx, connStr)
		if err != nil {
			log.Fatal(err)
		}
		defer dbpool.Close()

		deps.Store = db.NewDeliveryRepository(dbpool)
		logger.Info("Journaling webhook deliveries to Postgres", "host", cfg.Database.Host)
	}

	if cfg.Kafka.Enabled() {
		publisher := kafka.NewPublisher(kafka.NewWriter(cfg.Kafka))
		defer publisher.Close()

		deps.Publisher = publisher
		logger.Info("Mirroring gateway events to Kafka", "topic", cfg.Kafka.Topic.GatewayEvents)
	}

	gw := gateway.New(cfg, logger, deps)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: api.NewRouter(gw, cfg, logger),
	}

	go func() {
		logger.Info("Gateway emulator listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error waiting for pending webhooks", "error", err)
	}
}
