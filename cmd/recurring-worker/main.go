package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"contas/internal/backend"
	"contas/internal/cli"
	"contas/internal/core"
	"contas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("recurring-worker")

	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := cli.OpenStore(ctx, logger, cfg)
	amqpClient := cli.InitAMQP(logger, cfg)

	service := services.NewLedgerService(store, amqpClient, cfg.GenerationBatchSize)
	defer service.Close()

	logger.Info("Recurring generation configured",
		"cron", cfg.GenerationCron,
		"batch_size", cfg.GenerationBatchSize)

	// Run one sweep on startup, then on the configured schedule.
	sweep(ctx, logger, store, service)

	scheduler := cron.New()
	_, err := scheduler.AddFunc(cfg.GenerationCron, func() {
		sweep(ctx, logger, store, service)
	})
	if err != nil {
		logger.Error("Failed to schedule generation sweep", "error", err)
		return
	}
	scheduler.Start()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx := scheduler.Stop()
		<-stopCtx.Done()
		cancel()
	})
	cli.WaitForShutdown(shutdownCtx, done)
}

// sweep materializes the next batch for every definition whose next
// occurrence has come due. Bounded series that finished simply produce
// nothing; a lost race with another worker is retried once with fresh
// state.
func sweep(ctx context.Context, logger *slog.Logger, store backend.LedgerStore, service *services.LedgerService) {
	defs, err := store.ListRecurringDefinitions(ctx)
	if err != nil {
		logger.Error("Failed to list recurring definitions", "error", err)
		return
	}

	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	generated := 0
	for _, def := range defs {
		next := def.StartDate.AddMonths(def.OccurrencesMaterialized * def.Frequency.Months())
		if next.After(today) {
			continue
		}

		entries, err := service.GenerateNextBatch(ctx, def.ID)
		if errors.Is(err, backend.ErrConcurrentModification) {
			logger.Warn("Lost generation race, retrying", "definition_id", def.ID)
			entries, err = service.GenerateNextBatch(ctx, def.ID)
		}
		if err != nil {
			logger.Error("Failed to generate batch", "definition_id", def.ID, "error", err)
			continue
		}
		generated += len(entries)
	}

	logger.Info("Generation sweep complete",
		"definitions", len(defs),
		"entries_created", generated)
}
