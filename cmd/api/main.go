package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/check-deposit/internal/api"
	"github.com/dvloznov/check-deposit/internal/api/handlers"
	"github.com/dvloznov/check-deposit/internal/config"
	"github.com/dvloznov/check-deposit/internal/deposit"
	"github.com/dvloznov/check-deposit/internal/extraction"
	"github.com/dvloznov/check-deposit/internal/imagestore"
	"github.com/dvloznov/check-deposit/internal/jobs"
	"github.com/dvloznov/check-deposit/internal/jobs/inmemory"
	"github.com/dvloznov/check-deposit/internal/ledger"
	"github.com/dvloznov/check-deposit/internal/logger"
	"github.com/dvloznov/check-deposit/internal/pipeline"
	"github.com/dvloznov/check-deposit/internal/recognition"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("No API keys configured - all requests will be rejected")
	}

	ctx := context.Background()

	// Database
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	repo := ledger.NewPostgresRepository(pool)
	writer := ledger.NewWriter(repo, log)

	// Recognition provider
	recognizer, err := recognition.NewClient(cfg.Recognition, log)
	if err != nil {
		if errors.Is(err, recognition.ErrNoProvider) {
			log.Warn().Msg("No recognition provider configured - check submissions will fail")
		} else {
			log.Fatal().Err(err).Msg("Failed to create recognition client")
		}
	}

	// Downstream deposit forwarder
	forwarder := deposit.NewForwarder(cfg.Deposit, log)
	if cfg.Deposit.CoreURL == "" {
		log.Warn().Msg("No core deposit URL configured - forwards will fail")
	}

	// Optional image archival
	archive, err := imagestore.New(ctx, cfg.Archive, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create image store")
	}
	if archive != nil {
		defer archive.Close()
	}

	// Job infrastructure for deposit forwarding
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		fwdJob, ok := job.(*jobs.ForwardDepositJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", fwdJob.JobID).
			Str("check_id", fwdJob.CheckID).
			Int64("amount_cents", fwdJob.AmountCents).
			Msg("Forwarding deposit")

		depositID, err := forwarder.Forward(ctx, deposit.Request{
			AccountID:   fwdJob.AccountID,
			AmountCents: fwdJob.AmountCents,
			CheckID:     fwdJob.CheckID,
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", fwdJob.JobID).
				Str("check_id", fwdJob.CheckID).
				Msg("Deposit forward failed")
			return err
		}

		fwdJob.DepositID = depositID

		log.Info().
			Str("job_id", fwdJob.JobID).
			Str("check_id", fwdJob.CheckID).
			Str("deposit_id", depositID).
			Msg("Deposit forwarded")

		return nil
	}

	go func() {
		log.Info().Msg("Starting forward worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Forward worker stopped with error")
		}
	}()

	// Processing pipeline
	var archiver pipeline.Archiver
	if archive != nil {
		archiver = archive
	}
	processor := pipeline.NewProcessor(
		recognizer,
		extraction.NewEngine(),
		writer,
		jobQueue,
		archiver,
		cfg.Recognition.Debug,
		log,
	)

	// HTTP layer
	router := api.NewRouter(api.RouterDeps{
		Checks:   handlers.NewChecksHandler(processor, log),
		Forwards: handlers.NewForwardsHandler(jobStore, log),
		APIKeys:  cfg.APIKeys,
		Log:      log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
