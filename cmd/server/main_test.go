package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sheikh-saqib/funds-transfer-engine/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Server:     config.ServerConfig{Addr: "127.0.0.1:0"},
		Store:      config.StoreConfig{Driver: config.DriverMemory},
		Reconciler: config.ReconcilerConfig{Interval: time.Minute, StaleAfter: time.Minute},
		Commodity:  config.CommodityConfig{Rate: "100"},
	}
}

func TestRunReturnsStoreErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Accounts = config.DriverRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	err := run(cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "open stores")
}

func TestRunReturnsListenErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := testConfig()
	cfg.Server.Addr = "127.0.0.1:99999"
	cfg.Seed.Demo = true

	err := run(cfg, zap.New(core))
	require.Error(t, err)
	require.Contains(t, err.Error(), "server:")
	require.Equal(t, 3, logs.FilterMessage("seeded demo account").Len())
	require.Zero(t, logs.FilterMessage("server stopped").Len())
}
