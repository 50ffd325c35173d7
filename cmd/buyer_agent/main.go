package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buyer_agent/internal/ai"
	"buyer_agent/internal/config"
	"buyer_agent/internal/logger"
	"buyer_agent/internal/market"
	"buyer_agent/internal/simulation"
	"buyer_agent/internal/storage"
	"buyer_agent/internal/telegram"
)

// main runs every configured scenario once and exits.
func main() {
	// 1. Initialization
	// Load configuration first to get logger settings
	cfg := config.Load()

	rotator := logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)
	if rotator != nil {
		defer rotator.Close()
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("CRITICAL: invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Signal handling (graceful shutdown between rounds)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("⚠️ Shutting down: system signal received.")
		cancel()
	}()

	// 3. Dependencies
	gen, err := ai.NewGenerator(ai.Settings{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
	})
	if err != nil {
		log.Fatalf("CRITICAL: message generator: %v", err)
	}

	var prices market.PriceProvider
	if cfg.MarketPriceSource == "alpaca" {
		prices = market.NewAlpacaProvider()
	}

	opts := simulation.Options{
		BuyerName:     cfg.BuyerName,
		Generator:     gen,
		Prices:        prices,
		Jitter:        cfg.SellerJitter,
		MaxRounds:     cfg.MaxRounds,
		MaxTokens:     cfg.LLMMaxTokens,
		RenderTimeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
		StateDir:      cfg.StateDir,
		ResumeID:      cfg.ResumeSessionID,
	}

	seed := cfg.SellerSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	opts.Rand = rand.New(rand.NewSource(seed))

	if cfg.MySQLDSN != "" {
		db, err := storage.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("CRITICAL: round log database: %v", err)
		}
		defer db.Close()

		repo := storage.NewRoundLogRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("CRITICAL: round log migration: %v", err)
		}
		opts.Sink = repo
	}

	if cfg.TelegramEnabled() {
		opts.Notifier = telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	}

	// 4. Inputs
	personalities, err := storage.LoadPersonalities(cfg.PersonalityFile)
	if err != nil {
		log.Fatalf("CRITICAL: personalities: %v", err)
	}
	personality, exact := personalities.Lookup(cfg.Personality)
	if !exact {
		logger.Warnf("Personality %q not found, using %q", cfg.Personality, personality.Archetype)
	}

	scenarios, err := storage.LoadScenarios(cfg.ScenarioFile)
	if err != nil {
		log.Fatalf("CRITICAL: scenarios: %v", err)
	}

	logger.Infof("%s ready: %s | provider=%s | seed=%d | %d scenarios",
		cfg.BuyerName, personality.Describe(), cfg.LLMProvider, seed, len(scenarios))

	// 5. Run
	results, err := simulation.NewRunner(opts).RunAll(ctx, scenarios, personality)
	if err != nil {
		logger.Errorf("Simulation finished with errors: %v", err)
	}

	deals := 0
	for _, r := range results {
		if r.Accepted {
			deals++
		}
	}
	log.Printf("🛑 Done: %d/%d scenarios closed a deal", deals, len(results))
}
