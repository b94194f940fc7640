// internal/server/jobs.go
package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/crawler"
)

// JobStatus is the lifecycle state of a submitted crawl.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job tracks one submitted crawl session.
type Job struct {
	ID         string                 `json:"jobId"`
	Status     JobStatus              `json:"status"`
	Request    crawler.Request        `json:"request"`
	Result     *schemas.SessionResult `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`

	cancel context.CancelFunc
}

// jobRegistry is the in-memory job table.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*Job)}
}

func (r *jobRegistry) create(req crawler.Request, cancel context.CancelFunc) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobQueued,
		Request:   req,
		CreatedAt: time.Now().UTC(),
		cancel:    cancel,
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// get returns a copy so callers can serialize it without holding the lock.
func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// snapshot returns copies of all jobs, newest first.
func (r *jobRegistry) snapshot() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *jobRegistry) setRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok && job.Status == JobQueued {
		job.Status = JobRunning
	}
}

func (r *jobRegistry) finish(id string, result *schemas.SessionResult, runErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Result = result
	if job.Status == JobCancelled {
		return
	}
	if runErr != nil {
		job.Status = JobFailed
		job.Error = runErr.Error()
		return
	}
	job.Status = JobCompleted
}

// cancelJob cancels a queued or running job. Returns false when the job does
// not exist or already finished.
func (r *jobRegistry) cancelJob(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || (job.Status != JobQueued && job.Status != JobRunning) {
		return false
	}
	job.Status = JobCancelled
	job.cancel()
	return true
}
