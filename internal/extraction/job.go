package extraction

import (
	"errors"

	"github.com/five82/larder/internal/recipeapi"
)

// Status is the client-side state of the live job.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the polling loop has finished.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// User-facing failure messages. The underlying cause is kept on Job.Cause for
// logging and is not shown verbatim.
const (
	MsgServerFailed = "Processing failed. Please try another video."
	MsgTimedOut     = "Processing took too long. Please try again."
	MsgPollFailed   = "Could not check processing status. Please try again."
	MsgUnexpected   = "Received an unexpected status. Please try again."
)

var (
	// ErrPollTimeout means the poll budget ran out before a terminal state.
	ErrPollTimeout = errors.New("extraction poll budget exhausted")
	// ErrJobFailed means the server reported the job as failed.
	ErrJobFailed = errors.New("extraction failed on server")
	// ErrUnknownStatus means the server sent a status outside the enum.
	ErrUnknownStatus = errors.New("unknown job status")
	// ErrNoJob is returned by Session.Results when no job has completed.
	ErrNoJob = errors.New("no completed job")
)

// Job is a value snapshot of the live extraction. Results is non-nil only when
// Status is completed; Error is non-empty only when Status is error. A
// completed job with nil Results has its results pending or retryable.
type Job struct {
	ID            string
	SourceURL     string
	Status        Status
	Progress      float64
	StatusMessage string
	CurrentTier   int
	Results       *recipeapi.Results
	Error         string
	Cause         error
}

// Active reports whether the job is queued or processing.
func (j Job) Active() bool {
	return j.Status == StatusQueued || j.Status == StatusProcessing
}
