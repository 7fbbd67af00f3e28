package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joehsu/openclaw/internal/accuracy"
	"github.com/joehsu/openclaw/internal/arbitrage"
	"github.com/joehsu/openclaw/internal/config"
	"github.com/joehsu/openclaw/internal/history"
	"github.com/joehsu/openclaw/internal/logger"
	"github.com/joehsu/openclaw/internal/marketclock"
	"github.com/joehsu/openclaw/internal/models"
	"github.com/joehsu/openclaw/internal/polymarket"
	"github.com/joehsu/openclaw/internal/quotes"
	"github.com/joehsu/openclaw/internal/sentiment"
	"github.com/joehsu/openclaw/internal/snapshot"
	"github.com/joehsu/openclaw/internal/storage"
	"github.com/joehsu/openclaw/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	force      = flag.Bool("force", false, "Run even when all tracked market sessions are closed")
)

// pipeline bundles the collaborators one cycle needs.
type pipeline struct {
	cfg      *config.Config
	quotes   *quotes.Client
	poly     *polymarket.Client
	tracker  *accuracy.Tracker
	store    *storage.Storage
	writer   *snapshot.Writer
	clock    *marketclock.Clock
	notifier *telegram.Client
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	quoteClient := quotes.NewClient(
		cfg.Quotes.BaseURL,
		cfg.Quotes.Timeout,
		cfg.Quotes.MaxRetries,
		cfg.Quotes.RetryDelayBase,
	)
	polyClient := polymarket.NewClient(
		cfg.Polymarket.GammaAPIURL,
		cfg.Polymarket.CLOBAPIURL,
		cfg.Polymarket.Timeout,
		cfg.Polymarket.BookTimeout,
		cfg.Polymarket.Concurrency,
	)

	tracker, err := accuracy.New(
		quoteClient,
		history.NewStore(cfg.Accuracy.HistoryPath, cfg.Accuracy.MaxRecords),
		accuracy.Config{
			Timezone:            cfg.Accuracy.Timezone,
			ValidityStartHour:   cfg.Accuracy.ValidityStartHour,
			ValidityEndHour:     cfg.Accuracy.ValidityEndHour,
			SettlementStartHour: cfg.Accuracy.SettlementStartHour,
			SettlementEndHour:   cfg.Accuracy.SettlementEndHour,
			NoiseFloor:          cfg.Accuracy.NoiseFloor,
			MaxRecords:          cfg.Accuracy.MaxRecords,
			Concurrency:         cfg.Accuracy.Concurrency,
			LookupTimeout:       cfg.Accuracy.LookupTimeout,
			Overrides:           cfg.Overrides,
		},
	)
	if err != nil {
		logger.Fatal("Failed to initialize accuracy tracker: %v", err)
	}

	clock, err := marketclock.New()
	if err != nil {
		logger.Fatal("Failed to initialize market clock: %v", err)
	}

	var notifier *telegram.Client
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	p := &pipeline{
		cfg:      cfg,
		quotes:   quoteClient,
		poly:     polyClient,
		tracker:  tracker,
		store:    store,
		writer:   snapshot.NewWriter(cfg.Snapshot.Path),
		clock:    clock,
		notifier: notifier,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if cfg.Run.Interval == 0 {
		if err := p.runCycle(ctx); err != nil {
			logger.Error("Cycle failed: %v", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting dashboard service (interval: %v, symbols: %d, market limit: %d)",
		cfg.Run.Interval, len(cfg.Quotes.Symbols), cfg.Polymarket.Limit)

	ticker := time.NewTicker(cfg.Run.Interval)
	defer ticker.Stop()

	p.handleCycleResult(p.runCycle(ctx))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return
		case <-ticker.C:
			p.handleCycleResult(p.runCycle(ctx))
		}
	}
}

func (p *pipeline) handleCycleResult(err error) {
	if err == nil {
		return
	}
	logger.Error("Cycle failed: %v", err)
	if p.notifier != nil {
		if sendErr := p.notifier.SendError(err); sendErr != nil {
			logger.Warn("Failed to send error notification: %v", sendErr)
		}
	}
}

// runCycle performs one full fetch-evaluate-settle-publish pass.
func (p *pipeline) runCycle(ctx context.Context) error {
	now := time.Now()

	if p.cfg.Run.MarketHoursOnly && !*force && !p.clock.AnySessionOpen(now) {
		logger.Info("All tracked market sessions closed, skipping cycle")
		return nil
	}

	startTime := now
	logger.Info("Starting dashboard cycle")

	// Quotes and order books come from independent providers; fetch them in
	// parallel. Either provider failing degrades that result set to empty
	// rather than aborting the cycle.
	var (
		quoteList []models.Quote
		events    []models.MarketEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		quoteList = p.quotes.FetchQuotes(gctx, p.cfg.Quotes.Symbols)
		logger.Info("Fetched %d of %d quotes", len(quoteList), len(p.cfg.Quotes.Symbols))
		return nil
	})
	g.Go(func() error {
		markets, err := p.poly.FetchMarkets(gctx, p.cfg.Polymarket.Limit)
		if err != nil {
			logger.Warn("Market listing failed, continuing without events: %v", err)
			return nil
		}
		events = p.poly.SampleBooks(gctx, markets)
		return nil
	})
	_ = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	arbResult := arbitrage.Evaluate(events, arbitrage.Config{
		MaxEdgePct:          p.cfg.Arbitrage.MaxEdgePct,
		HotDeviation:        p.cfg.Arbitrage.HotDeviation,
		HotDeviationRelaxed: p.cfg.Arbitrage.HotDeviationRelaxed,
		HotRelaxBelow:       p.cfg.Arbitrage.HotRelaxBelow,
		HotMaxBundle:        p.cfg.Arbitrage.HotMaxBundle,
		HotTopK:             p.cfg.Arbitrage.HotTopK,
	})
	logger.Info("Evaluated %d events: %d opportunities, %d hot markets",
		arbResult.TotalEvents, len(arbResult.Opportunities), len(arbResult.HotMarkets))

	outlooks := sentiment.Outlooks(quoteList, p.cfg.Tickers)
	tallies := sentiment.Aggregate(quoteList, p.cfg.Tickers)

	eval := p.tracker.Evaluate(ctx, tallies, now)
	if eval.Pending() {
		logger.Info("Accuracy scoring pending (no scorable predictions this run)")
	} else {
		logger.Info("Scored %d predictions, %d correct (%.1f%%)", eval.Total, eval.Correct, eval.AccuracyPct())
	}

	records, settled, err := p.tracker.Settle(eval, now)
	if err != nil {
		logger.Warn("Settlement failed: %v", err)
	} else if settled {
		logger.Info("Settled accuracy record for %s (%d entries retained)", now.Format(models.DateLayout), len(records))
	}

	changed, err := p.store.UpsertRows(marketDataRows(quoteList, arbResult))
	if err != nil {
		logger.Warn("Failed to update market_data: %v", err)
	} else {
		logger.Debug("market_data upsert complete: %d rows changed", changed)
	}

	snap := snapshot.Build(quoteList, outlooks, arbResult, eval.Tallies, snapshot.AccuracySummary{
		Correct:     eval.Correct,
		Total:       eval.Total,
		AccuracyPct: eval.AccuracyPct(),
		Pending:     eval.Pending(),
	}, records, now)
	if err := p.writer.Write(&snap); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if p.notifier != nil && len(arbResult.Opportunities) > 0 {
		if err := p.notifier.SendOpportunities(arbResult.Opportunities, now); err != nil {
			logger.Warn("Failed to send opportunity notification: %v", err)
		}
	}

	logger.Info("Dashboard cycle completed in %v", time.Since(startTime))
	return nil
}

// marketDataRows flattens the cycle's quotes and displayed events into the
// market_data table rows the static renderer reads.
func marketDataRows(quoteList []models.Quote, arbResult arbitrage.Result) []storage.Row {
	var rows []storage.Row
	for _, q := range quoteList {
		rows = append(rows, storage.Row{
			Category: "Stock",
			Name:     q.Name,
			Price:    fmt.Sprintf("$%.2f", q.Price),
			Change:   q.FormatChange(),
		})
	}
	display, _ := arbResult.Display()
	for _, e := range display {
		rows = append(rows, storage.Row{
			Category: "Prediction",
			Name:     e.Title,
			Price:    fmt.Sprintf("%.3f", e.BundleCost()),
			Change:   fmt.Sprintf("%.2f%%", e.EdgePct()),
		})
	}
	return rows
}
