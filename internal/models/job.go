package models

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job represents one async copy run.
type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`   // "segment-copy"
	Status     string     `json:"status"` // "running", "completed", "failed", "cancelled"
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Events     []Event    `json:"events"`

	mu     sync.Mutex
	cancel context.CancelFunc
}

// AppendEvent adds a status event to the job.
func (j *Job) AppendEvent(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Events = append(j.Events, e)
}

// EventsSince returns events starting from the given index.
func (j *Job) EventsSince(offset int) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Events) {
		return nil
	}
	events := make([]Event, len(j.Events)-offset)
	copy(events, j.Events[offset:])
	return events
}

// SetCancel attaches the run's cancel function.
func (j *Job) SetCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel stops the run. Safe to call on finished jobs.
func (j *Job) Cancel() {
	j.mu.Lock()
	cancel := j.cancel
	if j.Status == "running" {
		j.Status = "cancelled"
		now := time.Now()
		j.FinishedAt = &now
	}
	j.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// CurrentStatus returns the status under the lock.
func (j *Job) CurrentStatus() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	return j.CurrentStatus() != "running"
}

// Complete marks the job as completed.
func (j *Job) Complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != "running" {
		return
	}
	j.Status = "completed"
	now := time.Now()
	j.FinishedAt = &now
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != "running" {
		return
	}
	j.Status = "failed"
	j.Error = err
	now := time.Now()
	j.FinishedAt = &now
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new job, assigning it a UUID.
func (s *JobStore) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    "running",
		StartedAt: time.Now(),
		Events:    []Event{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].StartedAt.After(result[i].StartedAt) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result
}
