// Command sweep closes every open promotion round past its deadline. It is
// the scheduled counterpart to the engine's reactive deadline checks and is
// meant to run from cron.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"promovote/internal/config"
	"promovote/internal/container"
	"promovote/internal/repository"
	"promovote/internal/service"
	"promovote/pkg/database"
	"promovote/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	deps, err := container.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	votingService := service.NewVotingService(
		repository.NewVoteRepository(db),
		repository.NewEmployeeRepository(db),
		deps.GetNotifier(),
		deps.GetCacheService(),
		time.Duration(cfg.VotingPeriodDays)*24*time.Hour,
		time.Duration(cfg.LockWaitSeconds)*time.Second,
		log.Logger,
	)

	closed, err := votingService.SweepExpired(ctx)
	if err != nil {
		log.WithError(err).Fatal("Sweep failed")
	}

	log.WithField("closed", closed).Info("Sweep complete")
}
