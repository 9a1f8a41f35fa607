package batch

import (
	"context"
	"fmt"
	"library-system/internal/domain/loan"
	"library-system/internal/infrastructure/monitoring"
	"library-system/internal/pkg/clock"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type ReminderStore interface {
	FindOverdueUnreminded(ctx context.Context, today time.Time) ([]loan.Notice, error)
	MarkReminderSent(ctx context.Context, loanID int64) (bool, error)
}

type ReminderSender interface {
	SendOverdueReminder(ctx context.Context, notice loan.Notice) error
}

const defaultReminderConcurrency = 4

// OverdueReminderJob mails one reminder per overdue loan and flags the loan
// once the mail has gone out. A loan whose mail fails keeps its flag unset
// and is picked up again by the next run.
type OverdueReminderJob struct {
	store       ReminderStore
	sender      ReminderSender
	clock       clock.Clock
	concurrency int
	logger      *slog.Logger
}

func NewOverdueReminderJob(
	store ReminderStore,
	sender ReminderSender,
	clk clock.Clock,
	concurrency int,
	logger *slog.Logger,
) *OverdueReminderJob {
	if store == nil || sender == nil || clk == nil || logger == nil {
		panic("OverdueReminderJob dependencies cannot be nil")
	}
	if concurrency < 1 {
		concurrency = defaultReminderConcurrency
	}
	return &OverdueReminderJob{
		store:       store,
		sender:      sender,
		clock:       clk,
		concurrency: concurrency,
		logger:      logger.With("job", "OverdueReminder"),
	}
}

func overdueSummary(count int) string {
	if count == 0 || count == 1 {
		return fmt.Sprintf("Found %d overdue loan", count)
	}
	return fmt.Sprintf("Found %d overdue loans", count)
}

func (j *OverdueReminderJob) Run(ctx context.Context) error {
	startTime := time.Now()
	today := clock.Today(j.clock)

	notices, err := j.store.FindOverdueUnreminded(ctx, today)
	if err != nil {
		monitoring.RecordReminderRun("failure")
		j.logger.ErrorContext(ctx, "Failed to fetch overdue loans, aborting run.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get overdue loans: %w", err)
	}
	j.logger.InfoContext(ctx, overdueSummary(len(notices)), slog.Time("today", today))

	var sent, sendFailed, storeErrors atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, n := range notices {
		g.Go(func() error {
			logCtx := j.logger.With(slog.Int64("loanID", n.LoanID))

			if err := j.sender.SendOverdueReminder(gctx, n); err != nil {
				sendFailed.Add(1)
				monitoring.RecordReminderFailed()
				logCtx.WarnContext(gctx, "Failed to send overdue reminder, will retry on next run", slog.String("to", n.Email), slog.Any("error", err))
				return nil
			}

			marked, err := j.store.MarkReminderSent(gctx, n.LoanID)
			if err != nil {
				storeErrors.Add(1)
				logCtx.ErrorContext(gctx, "Reminder sent but flag could not be stored", slog.Any("error", err))
				return nil
			}
			if !marked {
				logCtx.DebugContext(gctx, "Reminder flag was already set by another run")
				return nil
			}

			sent.Add(1)
			monitoring.RecordReminderSent()
			logCtx.InfoContext(gctx, fmt.Sprintf("Sent reminder for loan %d to %s", n.LoanID, n.Email))
			return nil
		})
	}
	_ = g.Wait()

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("overdue_found", len(notices)),
		slog.Int("reminders_sent", int(sent.Load())),
		slog.Int("reminders_failed", int(sendFailed.Load())),
		slog.Int("store_errors", int(storeErrors.Load())),
	)

	switch {
	case storeErrors.Load() > 0:
		monitoring.RecordReminderRun("failure")
		summaryLog.ErrorContext(ctx, "Overdue reminder run finished with storage errors.")
		return fmt.Errorf("job completed with %d storage errors", storeErrors.Load())
	case sendFailed.Load() > 0:
		monitoring.RecordReminderRun("partial")
		summaryLog.WarnContext(ctx, "Overdue reminder run finished with delivery failures.")
	default:
		monitoring.RecordReminderRun("success")
		summaryLog.InfoContext(ctx, "Overdue reminder run finished successfully.")
	}
	return nil
}
