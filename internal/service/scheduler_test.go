package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetterStub struct {
	calls int
	err   error
}

func (r *resetterStub) ResetWeek(context.Context) (ResetResult, error) {
	r.calls++
	return ResetResult{}, r.err
}

type cleanerStub struct {
	ttls    []time.Duration
	removed []string
	err     error
}

func (c *cleanerStub) Cleanup(ttl time.Duration) ([]string, error) {
	c.ttls = append(c.ttls, ttl)
	return c.removed, c.err
}

type forgetterStub struct {
	cutoffs []time.Time
}

func (f *forgetterStub) Forget(cutoff time.Time) int {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1
}

func TestSchedulerRegistersEnabledJobs(t *testing.T) {
	cfg := SchedulerConfig{WeekResetEnabled: true, WeekResetSchedule: "0 0 * * 1", CleanupInterval: time.Hour}
	s, err := NewScheduler(&resetterStub{}, &cleanerStub{}, nil, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	cfg.WeekResetEnabled = false
	s, err = NewScheduler(&resetterStub{}, &cleanerStub{}, nil, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	cfg := SchedulerConfig{WeekResetEnabled: true, WeekResetSchedule: "every monday"}
	_, err := NewScheduler(&resetterStub{}, nil, nil, cfg, nil)
	assert.Error(t, err)
}

func TestSchedulerRunJobs(t *testing.T) {
	resetter := &resetterStub{err: errors.New("db locked")}
	cleaner := &cleanerStub{removed: []string{"a/roster.csv"}}
	shares := &forgetterStub{}
	s, err := NewScheduler(resetter, cleaner, shares, SchedulerConfig{ResultTTL: 30 * time.Minute}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Jobs())

	s.RunWeekReset()
	assert.Equal(t, 1, resetter.calls)

	s.RunCleanup()
	assert.Equal(t, []time.Duration{30 * time.Minute}, cleaner.ttls)
	require.Len(t, shares.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-30*time.Minute), shares.cutoffs[0], 5*time.Second)

	cleaner.err = errors.New("permission denied")
	s.RunCleanup()
	assert.Len(t, shares.cutoffs, 1)
}
