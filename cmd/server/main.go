package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fincrew/internal/adapter/gateway"
	"fincrew/internal/adapter/llm"
	"fincrew/internal/adapter/memory"
	"fincrew/internal/adapter/tool"
	"fincrew/internal/infra/config"
	"fincrew/internal/infra/logger"
	"fincrew/internal/infra/tracer"
	"fincrew/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Tool registry.
	registry := tool.NewRegistry(log)
	marketLimiter := tool.NewRateLimiter(cfg.Tools.Market.RateLimit, cfg.Tools.Market.RateWindow)
	if err := registry.Register(tool.NewCalculator()); err != nil {
		return fmt.Errorf("register calculator: %w", err)
	}
	if err := registry.Register(tool.NewStockPrice(cfg.Tools.Market.BaseURL, marketLimiter)); err != nil {
		return fmt.Errorf("register stock price: %w", err)
	}
	if err := registry.Register(tool.NewCompanyNews(cfg.Tools.Market.BaseURL, marketLimiter)); err != nil {
		return fmt.Errorf("register company news: %w", err)
	}

	// Shared conversation memory.
	counter := memory.NewTiktokenCounter(cfg.Memory.Encoding, log)
	transcript := memory.NewTokenBuffer(counter, cfg.Memory.MaxTokens)

	// Agent team.
	workers := usecase.BuildWorkers(cfg.Workers, registry, log)
	manager := usecase.BuildManager(cfg.Manager, workers, transcript, log)

	// Provider routing.
	tracker := llm.NewHealthTracker(cfg.ProviderNames(), log)
	factory := llm.NewFactory(cfg.LLM, log)
	credentials := llm.NewEnvCredentials(cfg.LLM.Providers)
	router := usecase.NewRouter(usecase.RouterDeps{
		Manager:     manager,
		Tracker:     tracker,
		Factory:     factory,
		Credentials: credentials,
		Logger:      log,
	})

	// HTTP gateway.
	handler := gateway.NewHandler(router, tracker, log)
	server := gateway.NewServer(cfg.Server.Addr, handler, log)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	log.Info("fincrew started",
		"addr", server.Addr(),
		"providers", cfg.ProviderNames(),
		"workers", len(workers),
	)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop gateway: %w", err)
	}

	return nil
}
