package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/larder/internal/metrics"
	"github.com/five82/larder/internal/recipeapi"
	"github.com/five82/larder/internal/state"
	"github.com/five82/larder/internal/youtube"
)

// ErrSuperseded is returned when a reset or newer submit replaced the job an
// operation was working on.
var ErrSuperseded = errors.New("job superseded")

// SessionOptions configure a Session.
type SessionOptions struct {
	Poller  PollerOptions
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Session owns the single live extraction job and its checked-item ledger.
// Every poll callback carries the generation it was started for and is
// dropped if the session has moved on.
type Session struct {
	api     recipeapi.JobAPI
	poller  *Poller
	logger  *slog.Logger
	metrics metrics.Recorder

	mu      sync.Mutex
	gen     uint64
	job     Job
	ledger  Ledger
	started time.Time

	fetchMu sync.Mutex
	changes state.Subject[Job]
}

// NewSession builds an idle Session.
func NewSession(api recipeapi.JobAPI, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := metrics.OrNoop(opts.Metrics)
	pollOpts := opts.Poller
	if pollOpts.Logger == nil {
		pollOpts.Logger = logger
	}
	if pollOpts.Metrics == nil {
		pollOpts.Metrics = rec
	}
	return &Session{
		api:     api,
		poller:  NewPoller(api, pollOpts),
		logger:  logger,
		metrics: rec,
		job:     Job{Status: StatusIdle},
	}
}

// Subscribe registers fn for job and ledger changes.
func (s *Session) Subscribe(fn func(Job)) func() {
	return s.changes.Subscribe(fn)
}

// Job returns a snapshot of the live job.
func (s *Session) Job() Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Submit validates rawURL, cancels any previous job, clears the ledger and
// starts a new extraction. ctx bounds the polling loop as well as the submit
// request, so callers pass a long-lived context. An invalid link is rejected
// before any network call and leaves the session untouched.
func (s *Session) Submit(ctx context.Context, rawURL string) (Job, error) {
	link, err := youtube.Validate(rawURL)
	if err != nil {
		return s.Job(), err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.cancelLocked()
	s.job = Job{Status: StatusIdle}
	s.ledger.Clear()
	snap := s.job
	s.mu.Unlock()
	s.changes.Notify(snap)

	resp, err := s.api.SubmitExtraction(ctx, link)
	if err != nil {
		s.logger.Warn("submit extraction failed", "url", link, "error", err)
		return s.Job(), fmt.Errorf("submit extraction: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Info("submitted job abandoned", "job_id", resp.JobID)
		return s.Job(), ErrSuperseded
	}
	s.job = Job{ID: resp.JobID, SourceURL: link, Status: StatusQueued}
	s.started = s.poller.Clock().Now()
	s.poller.Start(ctx, resp.JobID, s.callbacks(gen))
	snap = s.job
	s.mu.Unlock()

	s.logger.Info("extraction submitted", "job_id", resp.JobID, "url", link)
	s.changes.Notify(snap)
	return snap, nil
}

// Reset abandons the live job, if any, and returns to idle. Results of the
// abandoned job that arrive later are discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	s.gen++
	s.cancelLocked()
	s.job = Job{Status: StatusIdle}
	s.ledger.Clear()
	snap := s.job
	s.mu.Unlock()
	s.changes.Notify(snap)
}

// cancelLocked stops polling and records a cancelled outcome for an active
// job. Poller.Stop does not block, so it is safe under s.mu.
func (s *Session) cancelLocked() {
	s.poller.Stop()
	if s.job.Active() {
		s.metrics.IncJobOutcome(metrics.OutcomeCancelled)
		s.logger.Info("extraction cancelled", "job_id", s.job.ID)
	}
}

// Results returns the completed job's results, fetching them on first use.
// Concurrent callers share one fetch. A failed fetch leaves the job completed
// so the next call retries.
func (s *Session) Results(ctx context.Context) (*recipeapi.Results, error) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	job, gen := s.job, s.gen
	s.mu.Unlock()

	if job.Results != nil {
		return job.Results, nil
	}
	if job.Status != StatusCompleted {
		return nil, ErrNoJob
	}
	res, err := s.api.JobResults(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	if !s.update(gen, func(j *Job) { j.Results = res }) {
		return nil, ErrSuperseded
	}
	return res, nil
}

// ToggleChecked flips name in the ledger and returns its new state.
func (s *Session) ToggleChecked(name string) bool {
	s.mu.Lock()
	on := s.ledger.Toggle(name)
	snap := s.job
	s.mu.Unlock()
	s.changes.Notify(snap)
	return on
}

// IsChecked reports whether name is checked.
func (s *Session) IsChecked(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.IsChecked(name)
}

// CheckedKeys returns the checked canonical keys in sorted order.
func (s *Session) CheckedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Keys()
}

// ShoppingText renders the checked shopping-list items of the live results.
// It returns "" when no results are loaded.
func (s *Session) ShoppingText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job.Results == nil {
		return ""
	}
	return ShoppingText(s.job.Results.RecipeName, s.job.Results.ShoppingList, s.ledger.IsChecked)
}

func (s *Session) callbacks(gen uint64) Callbacks {
	return Callbacks{
		OnStatus: func(u Update) {
			s.update(gen, func(j *Job) {
				j.Status = u.Status
				j.Progress = u.Progress
				j.StatusMessage = u.StatusMessage
				j.CurrentTier = u.CurrentTier
			})
		},
		OnCompleted: func(ctx context.Context) {
			if !s.recordOutcome(gen, metrics.OutcomeCompleted) {
				return
			}
			if _, err := s.Results(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
				s.logger.Warn("fetch results failed", "error", err)
			}
		},
		OnError: func(message string, cause error) {
			outcome := metrics.OutcomeError
			if errors.Is(cause, ErrPollTimeout) {
				outcome = metrics.OutcomeTimeout
			}
			if !s.recordOutcome(gen, outcome) {
				return
			}
			s.update(gen, func(j *Job) {
				j.Status = StatusError
				j.Error = message
				j.Cause = cause
			})
		},
	}
}

func (s *Session) recordOutcome(gen uint64, outcome string) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	id := s.job.ID
	elapsed := s.poller.Clock().Since(s.started)
	s.mu.Unlock()

	s.metrics.IncJobOutcome(outcome)
	s.metrics.ObserveJobDuration(elapsed)
	s.logger.Info("extraction finished", "job_id", id, "outcome", outcome, "elapsed", elapsed)
	return true
}

// update applies fn to the job if gen is still current and notifies.
func (s *Session) update(gen uint64, fn func(*Job)) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	fn(&s.job)
	snap := s.job
	s.mu.Unlock()
	s.changes.Notify(snap)
	return true
}
