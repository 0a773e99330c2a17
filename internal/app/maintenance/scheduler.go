package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pitchey/ndagate/internal/services"
	"github.com/pitchey/ndagate/pkg/logger"
)

const (
	defaultSweepSpec          = "@every 5m"
	defaultSweepTimeout       = 2 * time.Minute
	defaultNotificationSpec   = "@daily"
	defaultGrantRebuildSpec   = "@weekly"
	defaultCounterPurgeSpec   = "@hourly"
	defaultNotificationMaxAge = 90 * 24 * time.Hour
)

// Sweeper closes out lapsed NDAs and requests.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (services.SweepResult, error)
}

// NotificationPruner removes delivered notifications past their retention.
type NotificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GrantRebuilder recomputes the access grant projection from NDA state.
type GrantRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

// CounterPurger drops rate limit windows that have already closed.
type CounterPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs the lifecycle background jobs on cron schedules. Nil dependencies
// disable their job.
type Scheduler struct {
	sweeper       Sweeper
	notifications NotificationPruner
	grants        GrantRebuilder
	counters      CounterPurger
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger

	sweepSchedule        string
	sweepTimeout         time.Duration
	notificationSchedule string
	notificationMaxAge   time.Duration
	grantSchedule        string
	counterSchedule      string
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock handed to the sweeper and used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSweepSchedule overrides the cron specification of the expiration sweep.
func WithSweepSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.sweepSchedule = spec
		}
	}
}

// WithSweepTimeout bounds a single sweep pass.
func WithSweepTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.sweepTimeout = timeout
		}
	}
}

// WithNotifications enables notification retention enforcement.
func WithNotifications(pruner NotificationPruner, spec string, retentionDays int) Option {
	return func(s *Scheduler) {
		s.notifications = pruner
		if spec != "" {
			s.notificationSchedule = spec
		}
		if retentionDays > 0 {
			s.notificationMaxAge = time.Duration(retentionDays) * 24 * time.Hour
		}
	}
}

// WithGrantRebuild enables the periodic access grant reconciliation.
func WithGrantRebuild(grants GrantRebuilder, spec string) Option {
	return func(s *Scheduler) {
		s.grants = grants
		if spec != "" {
			s.grantSchedule = spec
		}
	}
}

// WithCounterPurge enables cleanup of persisted rate limit counters.
func WithCounterPurge(counters CounterPurger, spec string) Option {
	return func(s *Scheduler) {
		s.counters = counters
		if spec != "" {
			s.counterSchedule = spec
		}
	}
}

// NewScheduler constructs a Scheduler around the expiration sweeper.
func NewScheduler(sweeper Sweeper, opts ...Option) *Scheduler {
	s := &Scheduler{
		sweeper:              sweeper,
		now:                  time.Now,
		log:                  logger.WithModule("maintenance"),
		sweepSchedule:        defaultSweepSpec,
		sweepTimeout:         defaultSweepTimeout,
		notificationSchedule: defaultNotificationSpec,
		notificationMaxAge:   defaultNotificationMaxAge,
		grantSchedule:        defaultGrantRebuildSpec,
		counterSchedule:      defaultCounterPurgeSpec,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}

	return s
}

// Start registers the enabled jobs and launches the cron scheduler.
func (s *Scheduler) Start() error {
	jobs := 0

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(s.sweepSchedule, func() {
			if err := s.sweep(context.Background()); err != nil {
				s.log.Warn("expiration sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if s.notifications != nil {
		if _, err := s.cron.AddFunc(s.notificationSchedule, func() {
			if err := s.pruneNotifications(context.Background()); err != nil {
				s.log.Warn("notification cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if s.grants != nil {
		if _, err := s.cron.AddFunc(s.grantSchedule, func() {
			if err := s.rebuildGrants(context.Background()); err != nil {
				s.log.Warn("access grant rebuild failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if s.counters != nil {
		if _, err := s.cron.AddFunc(s.counterSchedule, func() {
			if err := s.purgeCounters(context.Background()); err != nil {
				s.log.Warn("rate limit counter cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
		jobs++
	}

	if jobs == 0 {
		return nil
	}
	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every enabled job sequentially. Used at startup and in tests.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.sweeper != nil {
		errs = multierr.Append(errs, s.sweep(ctx))
	}
	if s.notifications != nil {
		errs = multierr.Append(errs, s.pruneNotifications(ctx))
	}
	if s.grants != nil {
		errs = multierr.Append(errs, s.rebuildGrants(ctx))
	}
	if s.counters != nil {
		errs = multierr.Append(errs, s.purgeCounters(ctx))
	}
	return errs
}

func (s *Scheduler) sweep(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.sweepTimeout)
	defer cancel()

	result, err := s.sweeper.Sweep(ctx, s.now())
	if result.ExpiredNDAs > 0 || result.ExpiredRequests > 0 || result.Failed > 0 {
		s.log.Info("expiration sweep completed",
			zap.Int("expired_ndas", result.ExpiredNDAs),
			zap.Int("expired_requests", result.ExpiredRequests),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
	}
	return err
}

func (s *Scheduler) pruneNotifications(ctx context.Context) error {
	removed, err := s.notifications.DeleteOlderThan(ctx, s.now().Add(-s.notificationMaxAge))
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Debug("pruned notifications", zap.Int64("removed", removed))
	}
	return nil
}

func (s *Scheduler) rebuildGrants(ctx context.Context) error {
	count, err := s.grants.Rebuild(ctx)
	if err != nil {
		return err
	}
	s.log.Debug("access grants rebuilt", zap.Int("grants", count))
	return nil
}

func (s *Scheduler) purgeCounters(ctx context.Context) error {
	removed, err := s.counters.PurgeExpired(ctx, s.now())
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Debug("purged rate limit counters", zap.Int64("removed", removed))
	}
	return nil
}
