package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRunPending(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := New(nil, WithClock(clock.Now))

	var reminders, hourly int
	require.NoError(t, s.Every("reminders", "@every 60s", func(context.Context) error {
		reminders++
		return nil
	}))
	require.NoError(t, s.Every("hourly", "@hourly", func(context.Context) error {
		hourly++
		return errors.New("ignored")
	}))

	assert.Zero(t, s.RunPending(context.Background()))

	clock.Advance(59 * time.Second)
	assert.Zero(t, s.RunPending(context.Background()))

	clock.Advance(time.Second)
	assert.Equal(t, 1, s.RunPending(context.Background()))
	assert.Equal(t, 1, reminders)

	// a long gap runs each job once, not once per missed slot
	clock.Advance(time.Hour)
	assert.Equal(t, 2, s.RunPending(context.Background()))
	assert.Equal(t, 2, reminders)
	assert.Equal(t, 1, hourly)

	next, ok := s.NextRun("reminders")
	require.True(t, ok)
	assert.WithinDuration(t, clock.Now().Add(time.Minute), next, 0)
	_, ok = s.NextRun("missing")
	assert.False(t, ok)
}

func TestEvery_InvalidSpec(t *testing.T) {
	s := New(nil)
	assert.Error(t, s.Every("bad", "every now and then", func(context.Context) error { return nil }))
}

func TestStartStop(t *testing.T) {
	s := New(nil)
	var runs int32
	done := make(chan struct{}, 1)
	require.NoError(t, s.Every("tick", "@every 1s", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestStart_RecoversPanickingJob(t *testing.T) {
	s := New(nil)
	done := make(chan struct{}, 1)
	require.NoError(t, s.Every("boom", "@every 1s", func(context.Context) error {
		defer func() {
			select {
			case done <- struct{}{}:
			default:
			}
		}()
		panic("boom")
	}))

	s.Start()
	defer s.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
