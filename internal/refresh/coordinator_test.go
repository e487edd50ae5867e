package refresh

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-queue-monitor/internal/channel"
	"ticket-queue-monitor/internal/clock"
)

var epoch = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	name    string
	outcome channel.Outcome
	block   chan struct{}
	panics  bool

	mu    sync.Mutex
	modes []channel.Mode

	running    atomic.Int32
	maxRunning atomic.Int32
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context, mode channel.Mode) channel.Outcome {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		m := f.maxRunning.Load()
		if n <= m || f.maxRunning.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("read exploded")
	}
	return f.outcome
}

func (f *fakeFetcher) calls() []channel.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]channel.Mode(nil), f.modes...)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestCoordinator(t *testing.T, opts ...Option) (*Coordinator, *clock.FakeClock, chan Round) {
	t.Helper()
	fc := clock.Fake(epoch)
	rounds := make(chan Round, 16)
	base := []Option{
		WithLogger(quietLogger()),
		WithClock(fc),
		WithTickObserver(func(r Round) { rounds <- r }),
	}
	c := New(append(base, opts...)...)
	return c, fc, rounds
}

func waitRound(t *testing.T, rounds chan Round) Round {
	t.Helper()
	select {
	case r := <-rounds:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no round completed")
		return Round{}
	}
}

func assertNoRound(t *testing.T, rounds chan Round) {
	t.Helper()
	select {
	case r := <-rounds:
		t.Fatalf("unexpected round at %s", r.At)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetInterval_Bounds(t *testing.T) {
	testCases := []struct {
		name      string
		interval  time.Duration
		expectErr bool
	}{
		{name: "Below minimum", interval: 4000 * time.Millisecond, expectErr: true},
		{name: "Minimum", interval: 5000 * time.Millisecond},
		{name: "Maximum", interval: 60000 * time.Millisecond},
		{name: "Above maximum", interval: 61000 * time.Millisecond, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(WithLogger(quietLogger()))
			err := c.SetInterval(tc.interval)

			if tc.expectErr {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, tc.interval, ve.Interval)
				assert.Equal(t, DefaultInterval, c.Config().Interval)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.interval, c.Config().Interval)
		})
	}
}

func TestDefaults(t *testing.T) {
	c := New(WithLogger(quietLogger()), WithInterval(time.Second))
	assert.Equal(t, Config{Enabled: false, Interval: DefaultInterval}, c.Config())
}

func TestEnable_TickRunsSilentFanOut(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	waiting := &fakeFetcher{name: "waiting", outcome: channel.Unchanged}
	called := &fakeFetcher{name: "called", outcome: channel.Changed}
	c.Register(waiting, called)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Enable(ctx)
	fc.WaitForTickers(1)

	fc.Advance(9 * time.Second)
	assertNoRound(t, rounds)

	fc.Advance(time.Second)
	r := waitRound(t, rounds)
	assert.Equal(t, channel.Silent, r.Mode)
	assert.Equal(t, []Result{{"waiting", channel.Unchanged}, {"called", channel.Changed}}, r.Results)
	assert.Equal(t, []channel.Mode{channel.Silent}, waiting.calls())
	assert.Equal(t, []channel.Mode{channel.Silent}, called.calls())
}

func TestEnable_Idempotent(t *testing.T) {
	c, fc, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Enable(ctx)
	c.Enable(ctx)
	assert.Equal(t, 1, fc.ActiveTickers())
	assert.True(t, c.Config().Enabled)
}

func TestDisable_StopsTicks(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	f := &fakeFetcher{name: "served"}
	c.Register(f)

	c.Enable(context.Background())
	fc.WaitForTickers(1)
	c.Disable()

	assert.False(t, c.Config().Enabled)
	assert.Equal(t, 0, fc.ActiveTickers())
	fc.Advance(time.Minute)
	assertNoRound(t, rounds)
	assert.Empty(t, f.calls())
}

func TestDisable_LetsInFlightFetchFinish(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	f := &fakeFetcher{name: "waiting", block: make(chan struct{}), outcome: channel.Changed}
	c.Register(f)

	c.Enable(context.Background())
	fc.WaitForTickers(1)
	fc.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return len(f.calls()) == 1 }, time.Second, time.Millisecond)

	c.Disable()
	close(f.block)

	r := waitRound(t, rounds)
	assert.Equal(t, channel.Changed, r.Results[0].Outcome)
}

func TestToggle(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	assert.True(t, c.Toggle(context.Background()))
	assert.True(t, c.Config().Enabled)
	assert.False(t, c.Toggle(context.Background()))
	assert.False(t, c.Config().Enabled)
}

func TestSetInterval_ResetsRunningTicker(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	c.Register(&fakeFetcher{name: "size"})

	c.Enable(context.Background())
	defer c.Disable()
	fc.WaitForTickers(1)

	fc.Advance(8 * time.Second)
	require.NoError(t, c.SetInterval(5*time.Second))

	fc.Advance(4 * time.Second)
	assertNoRound(t, rounds)

	fc.Advance(time.Second)
	waitRound(t, rounds)

	fc.Advance(5 * time.Second)
	waitRound(t, rounds)
	assertNoRound(t, rounds)
}

func TestTick_FailureIsContained(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	bad := &fakeFetcher{name: "size", outcome: channel.Failed}
	boom := &fakeFetcher{name: "isEmpty", panics: true}
	good := &fakeFetcher{name: "waiting", outcome: channel.Changed}
	c.Register(bad, boom, good)

	c.Enable(context.Background())
	defer c.Disable()
	fc.WaitForTickers(1)
	fc.Advance(DefaultInterval)

	r := waitRound(t, rounds)
	assert.Equal(t, 2, r.Failures)
	assert.Equal(t, channel.Changed, r.Results[2].Outcome)

	fc.Advance(DefaultInterval)
	waitRound(t, rounds)
	assert.Len(t, good.calls(), 2, "the scheduler keeps running after failures")
}

func TestTick_DoesNotOverlap(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	f := &fakeFetcher{name: "waiting", block: make(chan struct{})}
	c.Register(f)

	c.Enable(context.Background())
	defer c.Disable()
	fc.WaitForTickers(1)

	fc.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return len(f.calls()) == 1 }, time.Second, time.Millisecond)
	fc.Advance(DefaultInterval)
	fc.Advance(DefaultInterval)
	close(f.block)

	waitRound(t, rounds)
	waitRound(t, rounds)
	assertNoRound(t, rounds)
	assert.Equal(t, int32(1), f.maxRunning.Load())
	assert.Len(t, f.calls(), 2, "ticks missed during a round are dropped")
}

func TestTick_ReEnableDoesNotOverlapRunningRound(t *testing.T) {
	c, fc, rounds := newTestCoordinator(t)
	f := &fakeFetcher{name: "called", block: make(chan struct{})}
	c.Register(f)

	c.Enable(context.Background())
	defer c.Disable()
	fc.WaitForTickers(1)
	fc.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return len(f.calls()) == 1 }, time.Second, time.Millisecond)

	c.Disable()
	c.Enable(context.Background())
	fc.WaitForTickers(1)
	fc.Advance(DefaultInterval)
	assertNoRound(t, rounds)
	assert.Len(t, f.calls(), 1, "the new loop skips ticks while the old round runs")

	close(f.block)
	waitRound(t, rounds)
	assertNoRound(t, rounds)

	fc.Advance(DefaultInterval)
	waitRound(t, rounds)
	assert.Len(t, f.calls(), 2)
	assert.Equal(t, int32(1), f.maxRunning.Load())
}

func TestRefreshAll_VisibleAndIndependentOfTimer(t *testing.T) {
	c, _, rounds := newTestCoordinator(t)
	a := &fakeFetcher{name: "waiting", outcome: channel.Changed}
	b := &fakeFetcher{name: "served", outcome: channel.Failed}
	c.Register(a, b)

	r := c.RefreshAll(context.Background())
	assert.Equal(t, channel.Visible, r.Mode)
	assert.Equal(t, 1, r.Failures)
	assert.Equal(t, []channel.Mode{channel.Visible}, a.calls())
	assert.False(t, c.Config().Enabled)
	assertNoRound(t, rounds)
}

func TestRefreshAll_MaxParallel(t *testing.T) {
	c, _, _ := newTestCoordinator(t, WithMaxParallel(1))
	var running, peak atomic.Int32
	fetchers := make([]channel.Fetcher, 4)
	for i := range fetchers {
		fetchers[i] = fetcherFunc(func() {
			n := running.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	c.Register(fetchers...)

	r := c.RefreshAll(context.Background())
	assert.Len(t, r.Results, 4)
	assert.Equal(t, int32(1), peak.Load())
}

type fetcherFunc func()

func (f fetcherFunc) Name() string { return "fn" }

func (f fetcherFunc) Fetch(ctx context.Context, mode channel.Mode) channel.Outcome {
	f()
	return channel.Unchanged
}

func TestEnable_ContextCancelDisables(t *testing.T) {
	c, fc, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())

	c.Enable(ctx)
	fc.WaitForTickers(1)
	cancel()

	require.Eventually(t, func() bool { return !c.Config().Enabled }, time.Second, time.Millisecond)
	assert.Equal(t, 0, fc.ActiveTickers())

	c.Enable(context.Background())
	defer c.Disable()
	assert.True(t, c.Config().Enabled)
}
