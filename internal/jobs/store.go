// Package jobs tracks document jobs for the lifetime of the process. Jobs
// are never evicted by the pipeline; only an explicit Remove deletes one.
package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textra-dev/textra/constants"
)

// Job is one user-submitted file as it flows through extraction.
// SourceName, DeclaredSize and DeclaredMime are immutable after creation.
type Job struct {
	ID            uuid.UUID           `json:"id"`
	SourceName    string              `json:"source_name"`
	DeclaredSize  int64               `json:"declared_size"`
	DeclaredMime  string              `json:"declared_mime_type"`
	Status        constants.JobStatus `json:"status"`
	Progress      float64             `json:"progress"`
	ExtractedText string              `json:"extracted_text,omitempty"`
	Pages         int                 `json:"pages,omitempty"`
	Method        string              `json:"method,omitempty"`
	ErrorCode     string              `json:"error_code,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	UploadedAt    time.Time           `json:"uploaded_at"`
	UpdatedAt     time.Time           `json:"updated_at"`

	// SourcePath is where the uploaded bytes live on disk. Not exposed.
	SourcePath string `json:"-"`
}

// Store is an in-memory, mutex-guarded job table.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[uuid.UUID]*Job)}
}

// Create registers a new job in UPLOADED state.
func (s *Store) Create(sourceName string, size int64, mimeType, sourcePath string) Job {
	now := time.Now()
	j := &Job{
		ID:           uuid.New(),
		SourceName:   sourceName,
		DeclaredSize: size,
		DeclaredMime: mimeType,
		Status:       constants.JobStatusUploaded,
		UploadedAt:   now,
		UpdatedAt:    now,
		SourcePath:   sourcePath,
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	return *j
}

func (s *Store) Get(id uuid.UUID) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns all jobs ordered by upload time.
func (s *Store) List() []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].UploadedAt.Before(out[k].UploadedAt) })
	return out
}

// Transition moves a job to the given status, enforcing the legal edges.
// Entering PROCESSING clears text, error and progress.
func (s *Store) Transition(id uuid.UUID, to constants.JobStatus) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s not found", id)
	}
	if !constants.CanTransition(j.Status, to) {
		return Job{}, fmt.Errorf("job %s: illegal transition %s -> %s", id, j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = time.Now()
	if to == constants.JobStatusProcessing {
		j.ExtractedText = ""
		j.ErrorCode = ""
		j.ErrorMessage = ""
		j.Progress = 0
	}
	return *j, nil
}

// SetProgress records a progress value. Values never move backwards within
// one processing run.
func (s *Store) SetProgress(id uuid.UUID, percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	if percent > j.Progress {
		j.Progress = percent
		j.UpdatedAt = time.Now()
	}
}

// Complete marks the job READY with its extracted text.
func (s *Store) Complete(id uuid.UUID, text, method string, pages int) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s not found", id)
	}
	if !constants.CanTransition(j.Status, constants.JobStatusReady) {
		return Job{}, fmt.Errorf("job %s: illegal transition %s -> %s", id, j.Status, constants.JobStatusReady)
	}
	j.Status = constants.JobStatusReady
	j.ExtractedText = text
	j.Method = method
	j.Pages = pages
	j.UpdatedAt = time.Now()
	return *j, nil
}

// Fail marks the job ERROR with a classified code and message.
func (s *Store) Fail(id uuid.UUID, code, message string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s not found", id)
	}
	if !constants.CanTransition(j.Status, constants.JobStatusError) {
		return Job{}, fmt.Errorf("job %s: illegal transition %s -> %s", id, j.Status, constants.JobStatusError)
	}
	j.Status = constants.JobStatusError
	j.ErrorCode = code
	j.ErrorMessage = message
	j.UpdatedAt = time.Now()
	return *j, nil
}

// Remove deletes a job and reports whether it existed.
func (s *Store) Remove(id uuid.UUID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	delete(s.jobs, id)
	return *j, true
}
