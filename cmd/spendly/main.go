package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"spendly/internal/auth"
	"spendly/internal/cli"
	apphttp "spendly/internal/http"
	"spendly/internal/log"
	"spendly/internal/middleware/security"
	"spendly/internal/scheduler"
	"spendly/internal/services"
)

const reminderJobName = "subscription-reminders"

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	categorizer, summarizer := cli.InitAI(ctx, logger, cfg)

	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		logger.Error("Invalid trusted proxy configuration", log.FieldError, err)
		os.Exit(1)
	}

	insights := services.NewInsightService(res.Store, summarizer, services.InsightOptions{
		Timeout:  cfg.AITimeout,
		CacheTTL: cfg.InsightCacheTTL,
	}, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:         services.NewUserService(res.Store, logger),
		Budgets:       services.NewBudgetService(res.Store, services.BudgetOptions{CascadeDelete: cfg.BudgetDeleteCascade}, logger),
		Subscriptions: services.NewSubscriptionService(res.Store, categorizer, logger),
		Insights:      insights,
		Issuer:        auth.NewIssuer(cfg.JWTSecretKey, cfg.AccessTokenTTL),
		Store:         res.Store,
		Logger:        logger,
		Detector:      detector,
		RateLimit:     cfg.RateLimitOn,
		DueWindowDays: cfg.ReminderWindowDays,
	})

	var sched *scheduler.Scheduler
	if cfg.ReminderEnabled {
		sched = scheduler.New(logger)
		processor := cli.NewReminderProcessor(logger, cfg, res)
		if err := sched.Add(reminderJobName, cfg.ReminderSchedule, cli.ReminderJob(processor)); err != nil {
			logger.Error("Failed to schedule reminders", log.FieldError, err, "schedule", cfg.ReminderSchedule)
			os.Exit(1)
		}
		sched.Start()
		if next, ok := sched.Next(reminderJobName); ok {
			logger.Info("Reminders scheduled", "schedule", cfg.ReminderSchedule, "next_run", next)
		}
	} else {
		logger.Info("Reminders disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting spendly server",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"db_driver", cfg.DBDriver,
			"rate_limit", cfg.RateLimitOn)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := cli.ShutdownContext(cfg.ShutdownTimeout)
		defer shutdownCancel()

		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", log.FieldError, err)
		cancel()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
