package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"spendly/internal/core"
	"spendly/internal/log"
)

// ReminderSubject is the subject line of every reminder.
const ReminderSubject = "Spendly – Upcoming & Overdue Subscriptions"

// ReminderDispatcher delivers a reminder. Errors are logged by the caller, never propagated.
type ReminderDispatcher interface {
	Dispatch(ctx context.Context, r core.Reminder) error
}

// ReminderOptions tunes a reminder run.
type ReminderOptions struct {
	WindowDays  int
	Concurrency int
}

// ReminderProcessor scans every user for due and overdue subscriptions.
type ReminderProcessor struct {
	store      Store
	dispatcher ReminderDispatcher
	opts       ReminderOptions
	logger     *log.Logger
}

// NewReminderProcessor creates a processor. It holds no state between runs.
func NewReminderProcessor(store Store, dispatcher ReminderDispatcher, opts ReminderOptions, logger *log.Logger) *ReminderProcessor {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultDueWindowDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderProcessor{
		store:      store,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger.WithComponent(log.ComponentReminder),
	}
}

// ProcessDueReminders dispatches one reminder per user with anything due or
// overdue as of now. Per-user failures are logged and skipped. It returns the
// number of reminders delivered.
func (p *ReminderProcessor) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.dispatcher == nil {
		return 0, fmt.Errorf("reminder processor not properly initialized")
	}

	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	today := core.UTCDate(now)
	p.logger.InfoContext(ctx, "Processing subscription reminders",
		"users", len(users),
		"today", today.String(),
		"window_days", p.opts.WindowDays)

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for _, u := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if p.remind(gctx, u, today) {
				sent.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(sent.Load()), err
	}

	p.logger.InfoContext(ctx, "Reminder processing complete",
		"sent", sent.Load(),
		"users_checked", len(users))

	return int(sent.Load()), nil
}

func (p *ReminderProcessor) remind(ctx context.Context, u core.User, today core.Date) bool {
	subs, err := p.store.ListSubscriptions(ctx, u.ID)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to load subscriptions for reminder",
			log.FieldUserID, u.ID,
			log.FieldError, err)
		return false
	}

	report := ClassifyDue(subs, today, p.opts.WindowDays)
	if report.Empty() {
		return false
	}

	reminder := BuildReminder(u, report)
	if err := p.dispatcher.Dispatch(ctx, reminder); err != nil {
		p.logger.ErrorContext(ctx, "Failed to dispatch reminder",
			log.FieldUserID, u.ID,
			log.FieldEmail, u.Email,
			log.FieldError, err)
		return false
	}

	p.logger.InfoContext(ctx, "Reminder dispatched",
		log.FieldUserID, u.ID,
		log.FieldDueSoon, len(report.DueSoon),
		log.FieldOverdue, len(report.Overdue))
	return true
}

// BuildReminder renders the reminder message for u.
func BuildReminder(u core.User, report core.DueReport) core.Reminder {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", u.Username)
	b.WriteString("Here's a quick update on your subscriptions:\n\n")

	b.WriteString("Upcoming in the next few days:\n")
	if len(report.DueSoon) == 0 {
		b.WriteString("None\n")
	}
	for _, s := range report.DueSoon {
		fmt.Fprintf(&b, "• %s on %s\n", s.Name, s.RenewalDate)
	}

	b.WriteString("\nOverdue:\n")
	if len(report.Overdue) == 0 {
		b.WriteString("None\n")
	}
	for _, s := range report.Overdue {
		fmt.Fprintf(&b, "• %s (due %s)\n", s.Name, s.RenewalDate)
	}

	b.WriteString("\nStay on top of your spending!\nThe Spendly team")

	return core.Reminder{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Subject:  ReminderSubject,
		Body:     b.String(),
		Due:      report,
	}
}

// LogDispatcher writes reminders to the log, used when no broker is configured.
type LogDispatcher struct {
	logger *log.Logger
}

func NewLogDispatcher(logger *log.Logger) *LogDispatcher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogDispatcher{logger: logger.WithComponent(log.ComponentReminder)}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, r core.Reminder) error {
	d.logger.InfoContext(ctx, "Reminder ready for delivery",
		log.FieldUserID, r.UserID,
		log.FieldEmail, r.Email,
		"subject", r.Subject,
		log.FieldDueSoon, len(r.Due.DueSoon),
		log.FieldOverdue, len(r.Due.Overdue))
	return nil
}
