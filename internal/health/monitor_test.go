package health

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-queue-monitor/internal/clock"
	"ticket-queue-monitor/internal/model"
)

type proberFunc func(ctx context.Context) (model.Health, error)

func (f proberFunc) Health(ctx context.Context) (model.Health, error) { return f(ctx) }

// latency makes each probe take d on the fake clock.
func latency(fc *clock.FakeClock, d time.Duration, err error) proberFunc {
	return func(ctx context.Context) (model.Health, error) {
		fc.Advance(d)
		if err != nil {
			return model.Health{}, err
		}
		return model.Health{Status: "healthy"}, nil
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestCheckOnce_Classification(t *testing.T) {
	testCases := []struct {
		name    string
		took    time.Duration
		err     error
		want    Status
		wantErr bool
	}{
		{name: "Fast", took: 200 * time.Millisecond, want: Online},
		{name: "At slow threshold", took: SlowThreshold, want: Online},
		{name: "Slow", took: 6 * time.Second, want: Slow},
		{name: "Cold start", took: 12 * time.Second, want: Warming},
		{name: "Unreachable", took: time.Second, err: errors.New("connection refused"), want: Offline, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fc := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
			m := NewMonitor(latency(fc, tc.took, tc.err), WithClock(fc), WithLogger(quietLogger()))

			r := m.CheckOnce(context.Background())
			assert.Equal(t, tc.want, r.Status)
			assert.Equal(t, tc.want, m.Report().Status)
			if tc.wantErr {
				assert.Equal(t, "connection refused", r.Error)
				assert.Nil(t, r.Service)
				return
			}
			assert.Equal(t, tc.took.Milliseconds(), r.ResponseMs)
			require.NotNil(t, r.Service)
			assert.Equal(t, "healthy", r.Service.Status)
		})
	}
}

func TestReport_WarmingRevertsToOnline(t *testing.T) {
	fc := clock.Fake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewMonitor(latency(fc, 11*time.Second, nil), WithClock(fc), WithLogger(quietLogger()))

	m.CheckOnce(context.Background())
	assert.Equal(t, Warming, m.Report().Status)

	fc.Advance(4 * time.Second)
	assert.Equal(t, Warming, m.Report().Status)

	fc.Advance(time.Second)
	assert.Equal(t, Online, m.Report().Status)
}

func TestNewMonitor_StartsChecking(t *testing.T) {
	m := NewMonitor(proberFunc(func(ctx context.Context) (model.Health, error) {
		return model.Health{}, nil
	}), WithLogger(quietLogger()))
	assert.Equal(t, Checking, m.Report().Status)
}

func TestStart_ProbesImmediately(t *testing.T) {
	reports := make(chan Report, 4)
	m := NewMonitor(proberFunc(func(ctx context.Context) (model.Health, error) {
		return model.Health{Status: "UP"}, nil
	}), WithLogger(quietLogger()), WithInterval(time.Hour), WithObserver(func(r Report) { reports <- r }))

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	select {
	case r := <-reports:
		assert.Equal(t, Online, r.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no probe after Start")
	}
}
