package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"swapforge/internal/amm/factory"
	"swapforge/internal/infrastructure/assets"
	"swapforge/internal/presentation/http"
	"swapforge/internal/shared/config"
	"swapforge/internal/shared/logger"
	"swapforge/internal/shared/metrics"
	exchange "swapforge/internal/usecases"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if !common.IsHexAddress(cfg.Engine.Identity) {
		log.Fatal("Invalid engine identity address", zap.String("identity", cfg.Engine.Identity))
	}
	if !common.IsHexAddress(cfg.Engine.FeeSetter) {
		log.Fatal("Invalid fee setter address", zap.String("fee_setter", cfg.Engine.FeeSetter))
	}
	feeTo := common.Address{}
	if cfg.Engine.FeeRecipient != "" {
		if !common.IsHexAddress(cfg.Engine.FeeRecipient) {
			log.Fatal("Invalid fee recipient address", zap.String("fee_recipient", cfg.Engine.FeeRecipient))
		}
		feeTo = common.HexToAddress(cfg.Engine.FeeRecipient)
	}
	codeHash := common.Hash{}
	if cfg.Engine.InitCodeHash != "" {
		codeHash = common.HexToHash(cfg.Engine.InitCodeHash)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	assetRegistry := assets.NewRegistry()
	sink := exchange.NewEventSink(log, m)
	pairFactory := factory.NewFactory(
		common.HexToAddress(cfg.Engine.Identity),
		feeTo,
		common.HexToAddress(cfg.Engine.FeeSetter),
		codeHash,
		sink,
	)

	exchangeService := exchange.NewExchangeService(pairFactory, assetRegistry, log, m)

	exchangeHandler := http.NewExchangeHandler(exchangeService, log, cfg)

	router := setupRouter(exchangeHandler, log, m, cfg, registry)

	server := &fasthttp.Server{
		Handler: router,
	}

	serverError := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(cfg.Server.Address); err != nil {
			serverError <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopHealth := make(chan struct{})
	healthCheckDone := make(chan struct{})
	go func() {
		defer close(healthCheckDone)
		ticker := time.NewTicker(cfg.Server.HealthCheckPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				log.Info("Engine state",
					zap.Int("pairs", pairFactory.PairCount()),
					zap.Int("assets", assetRegistry.Count()))
			case <-stopHealth:
				log.Info("Health check goroutine stopping")
				return
			}
		}
	}()

	select {
	case <-quit:
		log.Info("Received shutdown signal, starting graceful shutdown")
	case err := <-serverError:
		log.Error("Server error occurred", zap.Error(err))
		log.Info("Starting graceful shutdown due to server error")
	}
	close(stopHealth)

	log.Info("Stopping server from accepting new connections")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", zap.Error(err))
	} else {
		log.Info("Server shutdown completed successfully")
	}

	log.Info("Waiting for health check goroutine to finish")
	select {
	case <-healthCheckDone:
		log.Info("Health check goroutine finished")
	case <-time.After(5 * time.Second):
		log.Warn("Health check goroutine did not finish within timeout")
	}
}

func setupRouter(exchangeHandler *http.ExchangeHandler, logger *zap.Logger, m *metrics.Metrics, cfg *config.Config, registry *prometheus.Registry) fasthttp.RequestHandler {
	metricsRoute := ""
	var metricsHandler fasthttp.RequestHandler
	if cfg.Metrics.Enabled {
		metricsRoute = "GET " + cfg.Metrics.Path
		metricsHandler = fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		)
	}

	router := func(ctx *fasthttp.RequestCtx) {
		route := string(ctx.Method()) + " " + string(ctx.Path())

		switch route {
		case "POST /assets":
			exchangeHandler.CreateAsset(ctx)
		case "GET /assets/balance":
			exchangeHandler.AssetBalance(ctx)
		case "POST /pairs":
			exchangeHandler.CreatePair(ctx)
		case "GET /pairs/info":
			exchangeHandler.PairInfo(ctx)
		case "POST /liquidity/add":
			exchangeHandler.AddLiquidity(ctx)
		case "POST /liquidity/remove":
			exchangeHandler.RemoveLiquidity(ctx)
		case "POST /swap":
			exchangeHandler.Swap(ctx)
		case "GET /quote/out":
			exchangeHandler.QuoteOut(ctx)
		case "GET /quote/in":
			exchangeHandler.QuoteIn(ctx)
		case "POST /pairs/sync":
			exchangeHandler.SyncPair(ctx)
		case "POST /pairs/skim":
			exchangeHandler.SkimPair(ctx)
		case "POST /fee/recipient":
			exchangeHandler.SetFeeRecipient(ctx)
		case "GET /health":
			ctx.SetContentType("text/plain")
			ctx.SetBodyString("ok")
		case metricsRoute:
			metricsHandler(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("Not Found")
		}
	}

	return http.ApplyMiddleware(router, logger, m, exchangeHandler)
}
