package main

import (
	"context"
	"library-system/internal/config"
	"library-system/internal/infrastructure/logging"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	return nil
}

func TestInitializeApp(t *testing.T) {
	cfg, log := initializeApp()

	assert.NotNil(t, cfg, "Config should not be nil")
	assert.NotNil(t, log, "Logger should not be nil")
	assert.Equal(t, 14, cfg.Loan.PeriodDays)
}

func TestStartServer(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:         0,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  5 * time.Second,
		},
	}
	logger := logging.NewLogger(config.LoggerConfig{})

	srv, serverErrors, shutdownChan := startServer(cfg, http.NewServeMux(), logger)
	t.Cleanup(func() { _ = srv.Close() })

	assert.NotNil(t, srv, "Server should not be nil")
	assert.NotNil(t, serverErrors, "Server errors channel should not be nil")
	assert.NotNil(t, shutdownChan, "Shutdown channel should not be nil")
}

func TestHandleShutdown(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	cronScheduler := cron.New()
	srv := &http.Server{}
	shutdownChan := make(chan os.Signal, 1)
	serverErrors := make(chan error, 1)

	shutdownChan <- syscall.SIGINT
	serverErrors <- nil

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestStartBatchJobsRejectsBadSchedule(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	runner := &countingRunner{}
	cfg := &config.Config{Batch: config.BatchConfig{OverdueReminderSchedule: "not a schedule"}}

	c := startBatchJobs(cfg, logger, runner)
	defer c.Stop()

	assert.Empty(t, c.Entries())
}

func TestStartBatchJobsSchedulesReminder(t *testing.T) {
	logger := logging.NewLogger(config.LoggerConfig{})
	runner := &countingRunner{}
	cfg := &config.Config{Batch: config.BatchConfig{OverdueReminderTimeout: time.Second}}

	c := startBatchJobs(cfg, logger, runner)
	defer c.Stop()

	entries := c.Entries()
	require.Len(t, entries, 1)

	entries[0].WrappedJob.Run()
	assert.Equal(t, int32(1), runner.runs.Load())
}
