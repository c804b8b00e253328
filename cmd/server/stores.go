package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/config"
	interfaces "github.com/sheikh-saqib/funds-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/storage/memory"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/storage/postgres"
	"github.com/sheikh-saqib/funds-transfer-engine/internal/storage/redis"
)

type stores struct {
	accounts       interfaces.AccountStore
	ledger         interfaces.LedgerStore
	contacts       interfaces.ContactStore
	journal        interfaces.TransferJournal
	accountsDriver string

	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// openStores wires the configured backends. store.driver picks the ledger,
// contact and journal stores; store.accounts may move balances to redis.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{accountsDriver: cfg.Store.Driver}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := postgres.Migrate(cfg.Database.URL); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied")
		}
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		usePostgres(st, db)
		logger.Info("connected to database")
	default:
		st.accounts = memory.NewMemoryAccountStore()
		st.ledger = memory.NewMemoryLedgerStore()
		st.contacts = memory.NewMemoryContactStore()
		st.journal = memory.NewMemoryTransferJournal()
	}

	if cfg.Store.Accounts == config.DriverRedis {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			st.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		st.closers = append(st.closers, rdb.Close)
		st.accounts = redis.NewRedisAccountStore(rdb, "ledger")
		st.accountsDriver = config.DriverRedis
		logger.Info("account balances in redis", zap.String("addr", cfg.Redis.Addr))
	}
	return st, nil
}

func usePostgres(st *stores, db *sql.DB) {
	st.accounts = postgres.NewPostgresAccountStore(db)
	st.ledger = postgres.NewPostgresLedgerStore(db)
	st.contacts = postgres.NewPostgresContactStore(db)
	st.journal = postgres.NewPostgresTransferJournal(db)
}
