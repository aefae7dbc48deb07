package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"spendly/internal/amqp"
	"spendly/internal/cli"
	"spendly/internal/log"
	"spendly/internal/scheduler"
	"spendly/internal/services"
)

const reminderJobName = "subscription-reminders"

func main() {
	once := flag.Bool("once", false, "run a single reminder pass and exit")
	consume := flag.Bool("consume", false, "drain the reminder queue to the log instead of scanning")
	flag.Parse()

	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentReminder)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if *consume {
		if err := runConsumer(ctx, logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
			logger.Error("Reminder consumer failed", log.FieldError, err)
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting reminder-worker", "schedule", cfg.ReminderSchedule, "window_days", cfg.ReminderWindowDays)

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	processor := cli.NewReminderProcessor(logger, cfg, res)

	// Run initial processing on startup
	logger.Info("Running initial reminder pass...")
	if count, err := processor.ProcessDueReminders(ctx, time.Now()); err != nil {
		logger.Error("Initial reminder pass failed", log.FieldError, err)
	} else {
		logger.Info("Initial reminder pass complete", "reminders_sent", count)
	}
	if *once {
		return
	}

	sched := scheduler.New(logger)
	if err := sched.Add(reminderJobName, cfg.ReminderSchedule, cli.ReminderJob(processor)); err != nil {
		logger.Error("Failed to schedule reminders", log.FieldError, err, "schedule", cfg.ReminderSchedule)
		cancel()
		os.Exit(1)
	}
	sched.Start()
	if next, ok := sched.Next(reminderJobName); ok {
		logger.Info("Next reminder pass", "at", next)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := cli.ShutdownContext(cfg.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("Shutting down reminder-worker...")
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout reached", log.FieldError, err)
		return
	}
	logger.Info("Reminder-worker shutdown complete")
}

// runConsumer reads published reminders and hands them to the log dispatcher,
// standing in for a mailer.
func runConsumer(ctx context.Context, logger *log.Logger, url, exchange, queue string) error {
	if url == "" {
		return errors.New("AMQP_URL is required in consume mode")
	}
	client, err := amqp.NewClient(url, exchange, queue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sink := services.NewLogDispatcher(logger)
	logger.Info("Consuming reminders", "queue", queue)

	err = client.ConsumeReminders(ctx, func(ctx context.Context, msg *amqp.ReminderMessage) error {
		return sink.Dispatch(ctx, msg.Reminder())
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
