// Package server exposes the progressive driver over HTTP: job
// submission, SSE progress streaming, cancellation, and a grayscale
// debug preview (spec.md §6 "caller responsibilities" plus the ambient
// HTTP surface this core is meant to sit behind).
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/mandelcore/internal/render"
)

// JobState is the lifecycle state of a submitted render job.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Job is a render request plus its progress and result.
type Job struct {
	ID    string   `json:"id"`
	State JobState `json:"state"`
	Spec  render.JobSpec `json:"-"` // not serializable: carries a context.Context

	RowSetsDone int `json:"rowSetsDone"`
	RowSetCount int `json:"rowSetCount"`

	Buffer *render.Buffer `json:"-"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`

	cancel context.CancelFunc
}

// JobManager tracks render jobs in memory and dispatches them to a
// shared Driver. Jobs and their result buffers do not outlive the
// process (spec.md §6, "no persisted state owned by the core").
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
	driver      *render.Driver
}

// NewJobManager returns a manager dispatching onto driver.
func NewJobManager(driver *render.Driver) *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
		driver:      driver,
	}
}

// CreateJob registers a new job and returns it without starting work;
// callers start it with Run.
func (jm *JobManager) CreateJob(spec render.JobSpec) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Spec:      spec,
		StartTime: time.Now(),
	}
	jm.jobs[job.ID] = job
	return job
}

// GetJob retrieves a job by ID.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, ok := jm.jobs[id]
	return job, ok
}

// ListJobs returns every tracked job.
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	jobs := make([]*Job, 0, len(jm.jobs))
	for _, j := range jm.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// UpdateJob atomically mutates a tracked job.
func (jm *JobManager) UpdateJob(id string, fn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("server: job not found: %s", id)
	}
	fn(job)
	return nil
}

// Cancel requests cancellation of a running job. Returns false if the
// job is unknown or was never started.
func (jm *JobManager) Cancel(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job, ok := jm.jobs[id]
	if !ok || job.cancel == nil {
		return false
	}
	job.cancel()
	return true
}
