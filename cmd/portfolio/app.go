package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/app/service"
	"token_portfolio/internal/infrastructure/configloader"
	"token_portfolio/internal/infrastructure/httpclient"
	"token_portfolio/internal/infrastructure/storage"
	"token_portfolio/internal/pkg/logger"
)

// application holds the wired services shared by every command.
type application struct {
	cfg       *configloader.Config
	zapLogger *zap.Logger
	backend   port.KVBackend
	storage   port.PortfolioStorage
	market    port.MarketDataClient
	portfolio port.PortfolioService
	refresh   port.RefreshService
	search    port.TokenSearchService
	wallet    port.WalletService
}

func newApplication(ctx context.Context, cfg *configloader.Config, zapLogger *zap.Logger) (*application, error) {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	backend, err := storage.Open(openCtx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	logger.Info("Storage backend opened", "driver", cfg.Storage.Driver, "namespace", cfg.Storage.Namespace)

	store := storage.NewAdapter(backend, cfg.Storage.Namespace, logger.Named("storage"))
	if !store.IsAvailable() {
		logger.Warn("Storage is not available. Portfolio data will not persist.")
	}

	raw := httpclient.NewCoinGeckoClient(httpclient.Options{
		BaseURL:          cfg.CoinGecko.BaseURL,
		VsCurrency:       cfg.CoinGecko.VsCurrency,
		APIKey:           cfg.CoinGecko.APIKey,
		APIKeyHeader:     cfg.CoinGecko.APIKeyHeader,
		Timeout:          cfg.RequestTimeout(),
		MaxIDsPerRequest: cfg.CoinGecko.MaxIDsPerMarketRequest,
	}, zapLogger)
	market := httpclient.NewPacedClient(raw, cfg.RequestInterval())

	portfolio := service.NewPortfolioService(store, logger.Named("portfolio"), nil)
	app := &application{
		cfg:       cfg,
		zapLogger: zapLogger,
		backend:   backend,
		storage:   store,
		market:    market,
		portfolio: portfolio,
		refresh:   service.NewRefreshService(portfolio, market, logger.Named("refresh"), cfg.RefreshInterval(), cfg.RefreshTimeout()),
		search:    service.NewTokenSearchService(market, portfolio, logger.Named("search"), cfg),
		wallet:    service.NewWalletService(store, portfolio, logger.Named("wallet")),
	}
	return app, nil
}

func (a *application) Close() {
	if err := a.backend.Close(); err != nil {
		logger.Warn("Failed to close storage backend", "error", err)
	}
	_ = a.zapLogger.Sync()
}
