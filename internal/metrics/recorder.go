package metrics

import "time"

// Job outcomes reported through IncJobOutcome.
const (
	OutcomeCompleted = "completed"
	OutcomeError     = "error"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Back-fill results reported through IncBackfill.
const (
	BackfillFilled    = "filled"
	BackfillExhausted = "exhausted"
	BackfillGone      = "gone"
)

// Device sync results reported through IncDeviceSync.
const (
	SyncRefreshed    = "refreshed"
	SyncRegistered   = "registered"
	SyncReregistered = "reregistered"
	SyncFailed       = "failed"
)

// Recorder receives client-side observability events. Implementations must be
// safe for concurrent use.
type Recorder interface {
	IncStatusPoll(result string)
	IncJobOutcome(outcome string)
	ObserveJobDuration(d time.Duration)
	IncBackfill(result string)
	IncDeviceSync(result string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncStatusPoll(string)             {}
func (NoopRecorder) IncJobOutcome(string)             {}
func (NoopRecorder) ObserveJobDuration(time.Duration) {}
func (NoopRecorder) IncBackfill(string)               {}
func (NoopRecorder) IncDeviceSync(string)             {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
