package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/larder/internal/metrics"
	"github.com/five82/larder/internal/recipeapi"
)

const (
	// DefaultPollInterval is the fixed gap between status polls.
	DefaultPollInterval = 1500 * time.Millisecond
	// DefaultMaxPolls caps a job at roughly three minutes of polling.
	DefaultMaxPolls = 120
)

// StatusSource is the single call the poller makes.
type StatusSource interface {
	JobStatus(ctx context.Context, jobID string) (*recipeapi.JobStatusResponse, error)
}

// PollerOptions tune a Poller. Zero values use the defaults.
type PollerOptions struct {
	Interval time.Duration
	MaxPolls int
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  metrics.Recorder
}

// Update is one applied status response.
type Update struct {
	Status        Status
	Progress      float64
	StatusMessage string
	CurrentTier   int
}

// Callbacks receive the results of a run. At most one of OnCompleted and
// OnError is called, at most once. Callbacks run on the polling goroutine and
// must not block on the run that invoked them.
type Callbacks struct {
	OnStatus    func(Update)
	OnCompleted func(ctx context.Context)
	OnError     func(message string, cause error)
}

// Poller drives one job from submit to a terminal state by polling its status
// on a fixed interval. Only one run is active at a time.
type Poller struct {
	source   StatusSource
	interval time.Duration
	maxPolls int
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  metrics.Recorder

	mu      sync.Mutex
	current *Run
}

// NewPoller builds a Poller over source.
func NewPoller(source StatusSource, opts PollerOptions) *Poller {
	p := &Poller{
		source:   source,
		interval: opts.Interval,
		maxPolls: opts.MaxPolls,
		clock:    opts.Clock,
		logger:   opts.Logger,
		metrics:  metrics.OrNoop(opts.Metrics),
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.maxPolls <= 0 {
		p.maxPolls = DefaultMaxPolls
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Clock returns the clock the poller schedules on.
func (p *Poller) Clock() clockwork.Clock {
	return p.clock
}

// Start stops any previous run and begins polling jobID. The first poll is
// issued immediately; later polls wait for the interval after the previous
// response has been handled, so polls for a job never overlap.
func (p *Poller) Start(ctx context.Context, jobID string, cb Callbacks) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		jobID:  jobID,
		ctx:    runCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.current
	p.current = run
	p.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	go p.loop(run, cb)
	return run
}

// Stop stops the active run, if any. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	run := p.current
	p.current = nil
	p.mu.Unlock()
	if run != nil {
		run.Stop()
	}
}

// Active returns the current run, or nil.
func (p *Poller) Active() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Poller) loop(run *Run, cb Callbacks) {
	defer close(run.done)
	defer run.cancel()
	logger := p.logger.With("job_id", run.jobID)

	for {
		if int(run.polls.Load()) >= p.maxPolls {
			if run.finish() {
				logger.Warn("job poll budget exhausted", "polls", run.polls.Load())
				callError(cb, MsgTimedOut, ErrPollTimeout)
			}
			return
		}

		resp, err := p.source.JobStatus(run.ctx, run.jobID)
		if run.Stopped() {
			return
		}
		run.polls.Add(1)

		if err != nil {
			p.metrics.IncStatusPoll("failed")
			if run.finish() {
				logger.Warn("job status poll failed", "error", err)
				callError(cb, MsgPollFailed, err)
			}
			return
		}
		p.metrics.IncStatusPoll(string(resp.Status))
		update := Update{
			Status:        Status(resp.Status),
			Progress:      resp.Progress,
			StatusMessage: resp.StatusMessage,
			CurrentTier:   resp.CurrentTier,
		}
		logger.Debug("job status", "status", resp.Status, "progress", resp.Progress, "poll", run.polls.Load())

		switch resp.Status {
		case recipeapi.StatusCompleted:
			if run.finish() {
				callStatus(cb, update)
				if cb.OnCompleted != nil {
					cb.OnCompleted(run.ctx)
				}
			}
			return
		case recipeapi.StatusError:
			if run.finish() {
				logger.Warn("job failed on server", "message", resp.StatusMessage)
				callError(cb, MsgServerFailed, ErrJobFailed)
			}
			return
		case recipeapi.StatusQueued, recipeapi.StatusProcessing:
			if run.Stopped() {
				return
			}
			callStatus(cb, update)
		default:
			if run.finish() {
				callError(cb, MsgUnexpected, fmt.Errorf("%w: %q", ErrUnknownStatus, resp.Status))
			}
			return
		}

		timer := p.clock.NewTimer(p.interval)
		select {
		case <-run.ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
	}
}

func callStatus(cb Callbacks, u Update) {
	if cb.OnStatus != nil {
		cb.OnStatus(u)
	}
}

func callError(cb Callbacks, message string, cause error) {
	if cb.OnError != nil {
		cb.OnError(message, cause)
	}
}

// Run is the handle for one polling loop.
type Run struct {
	jobID   string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
	polls   atomic.Int32
	done    chan struct{}
}

// JobID returns the job being polled.
func (r *Run) JobID() string {
	return r.jobID
}

// Stop prevents any further poll result from being applied and cancels the
// pending timer or in-flight request. Safe to call repeatedly and from any
// state.
func (r *Run) Stop() {
	r.stopped.Store(true)
	r.cancel()
}

// Stopped reports whether the run was stopped or reached a terminal state.
func (r *Run) Stopped() bool {
	return r.stopped.Load()
}

// Polls returns the number of status responses received.
func (r *Run) Polls() int {
	return int(r.polls.Load())
}

// Done is closed when the polling goroutine exits.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the polling goroutine exits or ctx ends.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish claims the single terminal transition. It fails if the run was
// stopped first.
func (r *Run) finish() bool {
	return r.stopped.CompareAndSwap(false, true)
}
