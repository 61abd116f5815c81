// Package scheduler runs the ledger's periodic maintenance: expiring cashback
// whose validity has lapsed and relaying outbox events to the broker.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/events"
	obsmetrics "github.com/smallbiznis/cueledger/internal/observability/metrics"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireCashback = "expire_cashback"
	JobOutboxRelay    = "outbox_relay"
)

var (
	ErrInvalidConfig = errors.New("scheduler: missing dependency")
	ErrUnknownJob    = errors.New("scheduler: unknown job")
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	CashbackSvc cashbackdomain.Service
	Relay       *events.Relay
	Locker      *ratelimit.Locker `optional:"true"`
	Config      Config            `optional:"true"`
}

type cashbackExpirer interface {
	ExpireAllDue(ctx context.Context) (cashbackdomain.ExpireResult, error)
}

type outboxDispatcher interface {
	Dispatch(ctx context.Context, batch int) (int, error)
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	cashback cashbackExpirer
	relay    outboxDispatcher
	locker   *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.CashbackSvc == nil || p.Relay == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		cashback: p.CashbackSvc,
		relay:    p.Relay,
		locker:   p.Locker,
	}, nil
}

// runJob executes fn under a timeout. A deadline is a soft failure: the work
// done so far is committed and the next tick continues from there.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := s.withLease(ctx, name, timeout, fn)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	schedMetrics.AddBatchProcessed(name, run.processedCount)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// withLease lets one instance run a job per tick when redis is configured.
// Both jobs are idempotent, so a lease failure degrades to running anyway.
func (s *Scheduler) withLease(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	key := "cueledger:scheduler:" + name
	token, ok, err := s.locker.TryLock(ctx, key, ttl)
	if err != nil {
		s.logger(ctx).Warn("scheduler lease unavailable, running unguarded",
			zap.String("job", name),
			zap.Error(err),
		)
		return fn(ctx)
	}
	if !ok {
		s.logger(ctx).Debug("scheduler lease held elsewhere", zap.String("job", name))
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lease release failed", zap.String("job", name), zap.Error(err))
		}
	}()
	return fn(ctx)
}

type job struct {
	Name      string
	BatchSize int
	Run       func(context.Context) error
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobExpireCashback, 0, s.ExpireCashbackJob},
		{JobOutboxRelay, s.cfg.RelayBatchSize, s.OutboxRelayJob},
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.Name, j.BatchSize, s.cfg.JobTimeout, j.Run))
	}
	return err
}

// RunJob runs a single named job with the same timeout, lease and metrics as
// the loop, ignoring EnabledJobs.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs() {
		if j.Name == name {
			return s.runJob(ctx, j.Name, j.BatchSize, s.cfg.JobTimeout, j.Run)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, name)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		if runLag := s.clock.Now().Sub(nextRun); runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpireCashbackJob sweeps every account's due cashback entries. Entries that
// fail stay active and are retried on the next tick.
func (s *Scheduler) ExpireCashbackJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobExpireCashback, 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.cashback.ExpireAllDue(ctx)
	run.AddProcessed(result.Expired)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.cashback.expire.failed", err)
		return err
	}
	if result.Failed > 0 {
		s.logger(ctx).Warn("scheduler.cashback.expire.partial",
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
		)
		run.IncError()
	}
	return nil
}

// OutboxRelayJob drains pending outbox rows batch by batch until a short
// batch shows the backlog is empty.
func (s *Scheduler) OutboxRelayJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobOutboxRelay, s.cfg.RelayBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivered, err := s.relay.Dispatch(ctx, s.cfg.RelayBatchSize)
		run.AddProcessed(delivered)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.outbox.relay.failed", err)
			return err
		}
		if delivered < s.cfg.RelayBatchSize {
			return nil
		}
	}
}
