package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	"github.com/smallbiznis/cueledger/internal/clock"
	obsmetrics "github.com/smallbiznis/cueledger/internal/observability/metrics"
	"github.com/smallbiznis/cueledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExpirer struct {
	result cashbackdomain.ExpireResult
	err    error
	calls  int
}

func (s *stubExpirer) ExpireAllDue(context.Context) (cashbackdomain.ExpireResult, error) {
	s.calls++
	return s.result, s.err
}

type stubRelay struct {
	batches []int
	err     error
	calls   int
}

func (s *stubRelay) Dispatch(_ context.Context, batch int) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	if len(s.batches) == 0 {
		return 0, nil
	}
	n := min(s.batches[0], batch)
	s.batches = s.batches[1:]
	return n, nil
}

func newTestScheduler(t *testing.T, expirer cashbackExpirer, relay outboxDispatcher) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "cueledger",
		Environment: "test",
	})

	cfg := DefaultConfig()
	cfg.RelayBatchSize = 2
	return &Scheduler{
		log:      zap.NewNop(),
		cfg:      cfg,
		genID:    testutil.Node(t),
		clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		cashback: expirer,
		relay:    relay,
	}, registry
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	s, registry := newTestScheduler(t, &stubExpirer{}, &stubRelay{})

	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "cueledger",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "cueledger_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "cueledger",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "cueledger_scheduler_job_errors_total", errorLabels))
}

func TestOutboxRelayDrainsUntilShortBatch(t *testing.T) {
	relay := &stubRelay{batches: []int{2, 2, 1}}
	s, registry := newTestScheduler(t, &stubExpirer{}, relay)

	require.NoError(t, s.runJob(context.Background(), JobOutboxRelay, 2, time.Second, s.OutboxRelayJob))

	assert.Equal(t, 3, relay.calls)
	assert.Equal(t, 5.0, getCounterValue(t, registry, "cueledger_scheduler_batch_processed_total", map[string]string{
		"service": "cueledger",
		"env":     "test",
		"job":     JobOutboxRelay,
	}))
}

func TestRunOnceRunsEveryJobAndJoinsErrors(t *testing.T) {
	expirer := &stubExpirer{result: cashbackdomain.ExpireResult{Expired: 4}}
	brokerDown := errors.New("broker unavailable")
	relay := &stubRelay{err: brokerDown}
	s, registry := newTestScheduler(t, expirer, relay)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, brokerDown)
	assert.Contains(t, err.Error(), JobOutboxRelay)
	assert.Equal(t, 1, expirer.calls)

	assert.Equal(t, 4.0, getCounterValue(t, registry, "cueledger_scheduler_batch_processed_total", map[string]string{
		"service": "cueledger",
		"env":     "test",
		"job":     JobExpireCashback,
	}))
}

func TestExpireCashbackPartialFailureIsNotAnError(t *testing.T) {
	expirer := &stubExpirer{result: cashbackdomain.ExpireResult{Expired: 1, Failed: 2}}
	s, _ := newTestScheduler(t, expirer, &stubRelay{})

	assert.NoError(t, s.ExpireCashbackJob(context.Background()))
}

func TestEnabledJobsFilter(t *testing.T) {
	expirer := &stubExpirer{}
	relay := &stubRelay{}
	s, _ := newTestScheduler(t, expirer, relay)
	s.cfg.EnabledJobs = []string{"OUTBOX_RELAY"}

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, expirer.calls)
	assert.Equal(t, 1, relay.calls)
}

func TestRunJobIgnoresEnabledJobs(t *testing.T) {
	expirer := &stubExpirer{}
	relay := &stubRelay{}
	s, _ := newTestScheduler(t, expirer, relay)
	s.cfg.EnabledJobs = []string{JobOutboxRelay}

	require.NoError(t, s.RunJob(context.Background(), JobExpireCashback))
	assert.Equal(t, 1, expirer.calls)
	assert.Equal(t, 0, relay.calls)

	assert.ErrorIs(t, s.RunJob(context.Background(), "rebuild_index"), ErrUnknownJob)
}

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunInterval = 0
	cfg = cfg.withDefaults()

	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 100, cfg.RelayBatchSize)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
