package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/config"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/contacts"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/events/kafka"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/handler"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/history"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/logging"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, _, err := logging.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	err = run(cfg, logger)
	if err != nil {
		logger.Error("server exited", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource it opens, so all deferred cleanup happens before
// main decides the exit code.
func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close stores", zap.Error(err))
		}
	}()

	if cfg.Seed.Demo {
		if err := seedDemo(ctx, st.accounts, logger); err != nil {
			return fmt.Errorf("seed demo accounts: %w", err)
		}
	}

	opts := []transfer.Option{
		transfer.WithLogger(logger.Named("transfer")),
		transfer.WithCommodityRate(cfg.Commodity.PerGram()),
	}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		publisher := kafka.NewPublisher(brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		opts = append(opts, transfer.WithPublisher(publisher))
		logger.Info("publishing transfer events", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	engine := transfer.NewEngine(st.accounts, st.ledger, st.journal, opts...)
	reconciler := transfer.NewReconciler(engine, cfg.Reconciler.StaleAfter)
	go reconciler.Run(ctx, cfg.Reconciler.Interval)

	h := handler.New(
		engine,
		history.NewService(st.ledger, st.accounts),
		contacts.NewDirectory(st.contacts, st.accounts),
		logger.Named("http"),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down...")
		sc, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sc); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("accounts", st.accountsDriver),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
