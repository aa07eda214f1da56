package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/stacklok/ledgersync/internal/config"
	"github.com/stacklok/ledgersync/internal/connection"
	"github.com/stacklok/ledgersync/internal/events"
	pkgsync "github.com/stacklok/ledgersync/internal/sync"
	"github.com/stacklok/ledgersync/internal/sync/lock"
	"github.com/stacklok/ledgersync/internal/sync/state"
	"github.com/stacklok/ledgersync/internal/telemetry"
)

// Trigger starts sync runs
//
//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=coordinator.go Trigger,Coordinator
type Trigger interface {
	// RunSync syncs one connection. The error is non-nil only when no run
	// happened (unknown or inactive connection, lock held, lock failure); the
	// outcome of a run that happened is reported in Result.Err.
	RunSync(ctx context.Context, connectionID string) (*pkgsync.Result, error)

	// RunSyncAll syncs every active connection and returns one result per
	// connection, in the order the connection store listed them. The error is
	// non-nil only when the connections could not be listed.
	RunSyncAll(ctx context.Context) ([]*pkgsync.Result, error)
}

// Coordinator is a Trigger that can also run on a schedule
type Coordinator interface {
	Trigger

	// Start initializes connection status and runs scheduled syncs.
	// It blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the schedule and waits for running syncs to finish
	Stop() error
}

type defaultCoordinator struct {
	runner      pkgsync.Runner
	connections connection.Store
	locker      lock.Locker
	statusSvc   state.ConnectionStateService
	publisher   events.Publisher
	syncMetrics *telemetry.SyncMetrics

	concurrency int
	schedule    string
	runOnStart  bool

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithPublisher sets where sync events are published
func WithPublisher(p events.Publisher) Option {
	return func(c *defaultCoordinator) {
		c.publisher = p
	}
}

// New creates a new coordinator with injected dependencies
func New(
	runner pkgsync.Runner,
	connections connection.Store,
	locker lock.Locker,
	statusSvc state.ConnectionStateService,
	cfg *config.SyncConfig,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		runner:      runner,
		connections: connections,
		locker:      locker,
		statusSvc:   statusSvc,
		publisher:   events.NoopPublisher{},
		concurrency: cfg.GetConcurrency(),
		schedule:    cfg.GetSchedule(),
		runOnStart:  cfg != nil && cfg.RunOnStart,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins scheduled sync coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	conns, err := c.connections.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	ids := make([]string, 0, len(conns))
	for _, conn := range conns {
		ids = append(ids, conn.ID)
	}
	if err := c.statusSvc.Initialize(ctx, ids); err != nil {
		return fmt.Errorf("failed to initialize connection sync status: %w", err)
	}

	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()
	defer func() {
		close(done)
		slog.Info("Sync coordinator shut down")
	}()

	slog.Info("Starting sync coordinator",
		"connection_count", len(ids),
		"schedule", c.schedule,
		"concurrency", c.concurrency)

	logger := logr.FromSlogHandler(slog.Default().Handler()).WithName("cron")
	scheduler := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if c.schedule != "" {
		if _, err := scheduler.AddFunc(c.schedule, func() { c.runScheduled(coordCtx) }); err != nil {
			cancel()
			return fmt.Errorf("invalid sync schedule %q: %w", c.schedule, err)
		}
	}
	scheduler.Start()

	var initial sync.WaitGroup
	if c.runOnStart {
		initial.Add(1)
		go func() {
			defer initial.Done()
			c.runScheduled(coordCtx)
		}()
	}

	<-coordCtx.Done()
	slog.Info("Sync coordinator stopping")
	<-scheduler.Stop().Done()
	initial.Wait()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-done
	}
	return nil
}

func (c *defaultCoordinator) runScheduled(ctx context.Context) {
	results, err := c.RunSyncAll(ctx)
	if err != nil {
		slog.Error("Scheduled sync failed", "error", err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Info("Scheduled sync finished", "connection_count", len(results), "failed", failed)
}
