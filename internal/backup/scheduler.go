package backup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"inventory-vault/internal/logging"
)

// catchUpThreshold is how stale the newest complete snapshot may be before
// a startup catch-up run fires. Matches the daily cadence.
const catchUpThreshold = 24 * time.Hour

// SnapshotScheduler fires a snapshot once a day at the configured wall
// clock time and enforces retention after each successful scheduled run.
// A firing that collides with a held maintenance lock is skipped and
// logged, never queued.
type SnapshotScheduler interface {
	// Start begins the scheduling loop. When catch-up is enabled and the
	// newest complete snapshot is older than a day, one run fires
	// immediately before the loop settles into its daily cadence.
	Start(ctx context.Context) error

	// Stop terminates the scheduling loop and waits for it to exit
	Stop()

	// TriggerNow runs the same snapshot-then-retention sequence as a
	// scheduled firing, synchronously to the caller
	TriggerNow(ctx context.Context) (*SnapshotRecord, error)

	// NextRun reports when the next scheduled firing is due
	NextRun() time.Time
}

// snapshotScheduler implements the SnapshotScheduler interface
type snapshotScheduler struct {
	manager   SnapshotManager
	retention RetentionManager
	catalog   SnapshotCatalog
	config    *SystemConfig
	logger    *logging.Logger
	schedule  cron.Schedule
	now       func() time.Time

	mu      sync.Mutex
	nextRun time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewSnapshotScheduler creates a scheduler driven by the wall clock
func NewSnapshotScheduler(
	config *SystemConfig,
	manager SnapshotManager,
	retention RetentionManager,
	catalog SnapshotCatalog,
	logger *logging.Logger,
) (SnapshotScheduler, error) {
	return NewSnapshotSchedulerWithClock(config, manager, retention, catalog, logger, time.Now)
}

// NewSnapshotSchedulerWithClock creates a scheduler with an injectable
// clock for tests
func NewSnapshotSchedulerWithClock(
	config *SystemConfig,
	manager SnapshotManager,
	retention RetentionManager,
	catalog SnapshotCatalog,
	logger *logging.Logger,
	now func() time.Time,
) (SnapshotScheduler, error) {
	if config == nil {
		return nil, NewValidationError("snapshot system configuration is required", nil)
	}
	if manager == nil {
		return nil, NewValidationError("snapshot manager is required", nil)
	}
	if retention == nil {
		return nil, NewValidationError("retention manager is required", nil)
	}
	if catalog == nil {
		return nil, NewValidationError("snapshot catalog is required", nil)
	}

	config.SetDefaults()

	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if now == nil {
		now = time.Now
	}

	var schedule cron.Schedule
	if config.Schedule.Enabled {
		parsed, err := parseSchedule(&config.Schedule)
		if err != nil {
			return nil, err
		}
		schedule = parsed
	}

	return &snapshotScheduler{
		manager:   manager,
		retention: retention,
		catalog:   catalog,
		config:    config,
		logger:    logger,
		schedule:  schedule,
		now:       now,
		stopCh:    make(chan struct{}),
	}, nil
}

// parseSchedule builds the cron schedule. A raw cron expression takes
// precedence; otherwise the HH:MM wall clock time becomes a daily entry.
func parseSchedule(config *ScheduleConfig) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	if config.Cron != "" {
		schedule, err := parser.Parse(strings.TrimSpace(config.Cron))
		if err != nil {
			return nil, NewConfigurationError(fmt.Sprintf("invalid cron expression %q", config.Cron), err)
		}
		return schedule, nil
	}

	t, err := time.Parse("15:04", config.DailyAt)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("invalid schedule time %q, expected HH:MM", config.DailyAt), err)
	}

	return parser.Parse(fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()))
}

// Start begins the scheduling loop
func (s *snapshotScheduler) Start(ctx context.Context) error {
	if !s.config.Schedule.Enabled {
		s.logger.Info("Snapshot scheduler disabled")
		return nil
	}

	s.startOnce.Do(func() {
		if s.config.Schedule.Cron != "" {
			s.logger.Infof("Snapshot scheduler started, cron %q", s.config.Schedule.Cron)
		} else {
			s.logger.Infof("Snapshot scheduler started, daily at %s", s.config.Schedule.DailyAt)
		}
		s.setNextRun(s.schedule.Next(s.now()))

		if s.config.Schedule.CatchUp && s.catchUpDue(ctx) {
			s.logger.Warn("No complete snapshot within the last day, running catch-up backup")
			s.runScheduled(ctx)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runLoop(ctx)
		}()
	})

	return nil
}

// catchUpDue reports whether the newest complete snapshot is missing or
// older than the daily cadence allows
func (s *snapshotScheduler) catchUpDue(ctx context.Context) bool {
	newest, err := s.catalog.NewestComplete(ctx)
	if err != nil {
		if IsNotFound(err) {
			return true
		}
		s.logger.Errorf("Catch-up check failed: %v", err)
		return false
	}

	return s.now().Sub(newest.CreatedAt) > catchUpThreshold
}

// runLoop sleeps until each scheduled firing
func (s *snapshotScheduler) runLoop(ctx context.Context) {
	for {
		next := s.schedule.Next(s.now())
		s.setNextRun(next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled performs one scheduled firing: skip if the lock is held,
// otherwise snapshot then enforce retention
func (s *snapshotScheduler) runScheduled(ctx context.Context) {
	if holder, since, held := s.manager.Lock().Holder(); held {
		s.logger.LogSchedulerSkip(holder, since)
		return
	}

	record, err := s.runSequence(ctx)
	if err != nil {
		if IsAlreadyInProgress(err) {
			// The lock was grabbed between the check above and the create
			holder, since, _ := s.manager.Lock().Holder()
			s.logger.LogSchedulerSkip(holder, since)
			return
		}
		s.logger.Errorf("Scheduled backup failed: %v", err)
		return
	}

	s.logger.Infof("Scheduled backup completed: %s", record.ID)
}

// runSequence is one full maintenance pass: snapshot then retention. A
// retention failure is logged, not returned; the snapshot already landed.
func (s *snapshotScheduler) runSequence(ctx context.Context) (*SnapshotRecord, error) {
	record, err := s.manager.CreateSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.retention.Enforce(ctx, s.config.Retention, false); err != nil {
		s.logger.Errorf("Retention enforcement after backup failed: %v", err)
	}

	return record, nil
}

// TriggerNow runs the snapshot-then-retention sequence immediately
func (s *snapshotScheduler) TriggerNow(ctx context.Context) (*SnapshotRecord, error) {
	s.logger.Info("Manual backup triggered")
	return s.runSequence(ctx)
}

// Stop terminates the scheduling loop
func (s *snapshotScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// NextRun reports the next scheduled firing time
func (s *snapshotScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

func (s *snapshotScheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}
