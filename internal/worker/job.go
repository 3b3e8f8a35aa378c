package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"csvgrid/internal/config"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Stats summarize a finished export.
type Stats struct {
	Rows     int
	Files    int
	Duration time.Duration
}

// ExportJob represents a single unit of work for the export service.
type ExportJob struct {
	// ID is the unique UUID v4 for the job.
	ID string
	// Def is the export definition the job runs.
	Def config.Job
	// Timestamps for job lifecycle tracking.
	Submitted time.Time
	Started   time.Time
	Finished  time.Time
	// Status tracks the current state (PENDING, PROCESSING, COMPLETED, FAILED).
	Status JobStatus
	// Error holds any error encountered during processing.
	Error error
	Stats Stats
	// Location is the destination path or the storage URL of the artifact.
	Location string

	// Context manages the lifecycle/cancellation of the job.
	Ctx    context.Context
	Cancel context.CancelFunc

	done chan struct{}
}

// NewExportJob prepares a job. The definition's own timeout wins over timeout.
func NewExportJob(def config.Job, timeout time.Duration) *ExportJob {
	if def.Timeout > 0 {
		timeout = def.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return &ExportJob{
		ID:        uuid.New().String(),
		Def:       def,
		Submitted: time.Now(),
		Status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Done is closed once the job completed or failed. Job fields are stable afterwards.
func (j *ExportJob) Done() <-chan struct{} {
	return j.done
}

func (j *ExportJob) finish(status JobStatus, err error) {
	j.Status = status
	j.Error = err
	j.Finished = time.Now()
	j.Cancel()
	close(j.done)
}
