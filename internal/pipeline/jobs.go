package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an export job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusConverting JobStatus = "converting"
	StatusAssembling JobStatus = "assembling"
	StatusRendering  JobStatus = "rendering"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

var phaseStatus = map[string]JobStatus{
	"parsing":    StatusParsing,
	"converting": StatusConverting,
	"assembling": StatusAssembling,
	"rendering":  StatusRendering,
}

// Job tracks the state of a single asynchronous export.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Format   string    `json:"format"`
	Title    string    `json:"title"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	request  Request
	document []byte
	errors   []string
}

// Progress reports what an export did.
type Progress struct {
	Blocks      int      `json:"blocks"`
	Proofread   int      `json:"paragraphs_proofread"`
	Corrected   int      `json:"paragraphs_corrected"`
	Corrections int      `json:"corrections_applied"`
	Fallbacks   int      `json:"fallbacks"`
	Bytes       int      `json:"bytes"`
	Errors      []string `json:"errors"`
}

// NewJob wraps req in a queued job with a fresh id.
func NewJob(req Request) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  req.Filename,
		Format:    req.Format,
		Title:     req.Title,
		CreatedAt: now,
		UpdatedAt: now,
		request:   req,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetPhase moves the job to the status for an export phase.
func (j *Job) SetPhase(phase string) {
	status, ok := phaseStatus[phase]
	if !ok {
		return
	}
	j.SetStatus(status, phase)
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Complete stores the finished document and its counts.
func (j *Job) Complete(res *Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.document = res.Document
	if j.Title == "" {
		j.Title = res.Title
	}
	j.Progress.Blocks = res.Blocks
	j.Progress.Proofread = res.Proofread
	j.Progress.Corrected = res.Corrected
	j.Progress.Corrections = res.Corrections
	j.Progress.Fallbacks = res.Fallbacks
	j.Progress.Bytes = len(res.Document)
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Request returns the export request the job was created with.
func (j *Job) Request() Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.request
}

// Document returns the rendered .docx, or nil until the job completes.
func (j *Job) Document() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.document
}

// releaseRequest drops the request content once it is no longer needed.
func (j *Job) releaseRequest() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.request.Content = nil
	j.request.Template = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Title     string    `json:"title"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Format:    j.Format,
		Title:     j.Title,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
