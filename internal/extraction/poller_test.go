package extraction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/larder/internal/recipeapi"
)

type scriptedStatus struct {
	status recipeapi.JobStatus
	err    error
}

// scriptedSource replays statuses in order and repeats the last one.
type scriptedSource struct {
	mu     sync.Mutex
	script []scriptedStatus
	calls  int
}

func (s *scriptedSource) JobStatus(_ context.Context, _ string) (*recipeapi.JobStatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	step := s.script[idx]
	if step.err != nil {
		return nil, step.err
	}
	return &recipeapi.JobStatusResponse{Status: step.status, Progress: float64(s.calls) / 10}, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorder struct {
	mu        sync.Mutex
	statuses  []Status
	completed int
	errors    []string
	causes    []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStatus: func(u Update) {
			r.mu.Lock()
			r.statuses = append(r.statuses, u.Status)
			r.mu.Unlock()
		},
		OnCompleted: func(context.Context) {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
		},
		OnError: func(msg string, cause error) {
			r.mu.Lock()
			r.errors = append(r.errors, msg)
			r.causes = append(r.causes, cause)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]Status, int, []string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...), r.completed, append([]string(nil), r.errors...), append([]error(nil), r.causes...)
}

func waitRun(t *testing.T, run *Run) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, run.Wait(ctx), "poll loop did not exit")
}

// tick waits for the poll loop to arm its timer, then fires it.
func tick(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultPollInterval)
}

func newTestPoller(src StatusSource, clock clockwork.Clock) *Poller {
	return NewPoller(src, PollerOptions{Clock: clock})
}

func TestPollerCompletesAfterProcessing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{
		{status: recipeapi.StatusQueued},
		{status: recipeapi.StatusProcessing},
		{status: recipeapi.StatusProcessing},
		{status: recipeapi.StatusCompleted},
	}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())

	for range 3 {
		tick(t, clock)
	}
	waitRun(t, run)

	statuses, completed, errs, _ := rec.snapshot()
	assert.Equal(t, []Status{StatusQueued, StatusProcessing, StatusProcessing, StatusCompleted}, statuses)
	assert.Equal(t, 1, completed)
	assert.Empty(t, errs)
	assert.Equal(t, 4, src.Calls())
	assert.Equal(t, 4, run.Polls())

	clock.Advance(time.Minute)
	assert.Equal(t, 4, src.Calls(), "no polls after a terminal state")
}

func TestPollerTimesOutAfterBudget(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{{status: recipeapi.StatusProcessing}}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())

	for range DefaultMaxPolls {
		tick(t, clock)
	}
	waitRun(t, run)

	statuses, completed, errs, causes := rec.snapshot()
	assert.Len(t, statuses, DefaultMaxPolls)
	assert.Zero(t, completed)
	require.Len(t, errs, 1)
	assert.Equal(t, MsgTimedOut, errs[0])
	assert.ErrorIs(t, causes[0], ErrPollTimeout)
	assert.Equal(t, DefaultMaxPolls, src.Calls())
}

func TestPollerServerError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{
		{status: recipeapi.StatusProcessing},
		{status: recipeapi.StatusError},
	}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())
	tick(t, clock)
	waitRun(t, run)

	statuses, completed, errs, causes := rec.snapshot()
	assert.Equal(t, []Status{StatusProcessing}, statuses)
	assert.Zero(t, completed)
	require.Len(t, errs, 1)
	assert.Equal(t, MsgServerFailed, errs[0])
	assert.ErrorIs(t, causes[0], ErrJobFailed)
}

func TestPollerTransportErrorIsTerminal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	boom := errors.New("connection refused")
	src := &scriptedSource{script: []scriptedStatus{
		{status: recipeapi.StatusQueued},
		{err: boom},
		{status: recipeapi.StatusCompleted},
	}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())
	tick(t, clock)
	waitRun(t, run)

	_, completed, errs, causes := rec.snapshot()
	assert.Zero(t, completed)
	require.Len(t, errs, 1)
	assert.Equal(t, MsgPollFailed, errs[0])
	assert.ErrorIs(t, causes[0], boom)
	assert.Equal(t, 2, src.Calls())
}

func TestPollerUnknownStatus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{{status: "paused"}}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())
	waitRun(t, run)

	statuses, _, errs, causes := rec.snapshot()
	assert.Empty(t, statuses)
	require.Len(t, errs, 1)
	assert.Equal(t, MsgUnexpected, errs[0])
	assert.ErrorIs(t, causes[0], ErrUnknownStatus)
}

// blockingSource holds each request until released.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
	status  recipeapi.JobStatus
}

func (b *blockingSource) JobStatus(context.Context, string) (*recipeapi.JobStatusResponse, error) {
	b.entered <- struct{}{}
	<-b.release
	return &recipeapi.JobStatusResponse{Status: b.status}, nil
}

func TestPollerStopDiscardsInFlightResponse(t *testing.T) {
	src := &blockingSource{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		status:  recipeapi.StatusCompleted,
	}
	rec := &recorder{}
	run := newTestPoller(src, clockwork.NewFakeClock()).Start(context.Background(), "job-1", rec.callbacks())

	<-src.entered
	run.Stop()
	run.Stop()
	close(src.release)
	waitRun(t, run)

	statuses, completed, errs, _ := rec.snapshot()
	assert.Empty(t, statuses)
	assert.Zero(t, completed)
	assert.Empty(t, errs)
}

func TestPollerStopCancelsPendingTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{{status: recipeapi.StatusProcessing}}}
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(context.Background(), "job-1", rec.callbacks())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	run.Stop()
	waitRun(t, run)
	clock.Advance(time.Minute)

	statuses, completed, errs, _ := rec.snapshot()
	assert.Equal(t, []Status{StatusProcessing}, statuses)
	assert.Zero(t, completed)
	assert.Empty(t, errs)
	assert.Equal(t, 1, src.Calls())
}

func TestPollerStartStopsPreviousRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{{status: recipeapi.StatusProcessing}}}
	p := newTestPoller(src, clock)

	first := p.Start(context.Background(), "job-1", (&recorder{}).callbacks())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	second := p.Start(context.Background(), "job-2", (&recorder{}).callbacks())
	waitRun(t, first)
	assert.True(t, first.Stopped())
	assert.Same(t, second, p.Active())

	p.Stop()
	waitRun(t, second)
	assert.Nil(t, p.Active())
}

func TestPollerParentContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{script: []scriptedStatus{{status: recipeapi.StatusQueued}}}
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	run := newTestPoller(src, clock).Start(ctx, "job-1", rec.callbacks())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()
	waitRun(t, run)

	_, completed, errs, _ := rec.snapshot()
	assert.Zero(t, completed)
	assert.Empty(t, errs)
}
