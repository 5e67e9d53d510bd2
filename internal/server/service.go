package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/textra-dev/textra/constants"
	"github.com/textra-dev/textra/internal/common"
	"github.com/textra-dev/textra/internal/extract"
	"github.com/textra-dev/textra/internal/format"
	"github.com/textra-dev/textra/internal/jobs"
)

// Service orchestrates the two halves of the system for the HTTP surface:
// submitted files run through the extraction pipeline (one operation in
// flight per document), and formatting requests pass straight through to the
// dispatcher. The halves share nothing but the plain-text handoff.
type Service struct {
	jobs       *jobs.Store
	pipeline   *extract.Pipeline
	dispatcher *format.Dispatcher
	hub        *Hub
	uploadsDir string
	logger     *slog.Logger
}

func NewService(store *jobs.Store, pipeline *extract.Pipeline, dispatcher *format.Dispatcher, hub *Hub, uploadsDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if uploadsDir == "" {
		uploadsDir = os.TempDir()
	}
	return &Service{
		jobs:       store,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		hub:        hub,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

// Submit stores the uploaded bytes, registers a job, and starts extraction
// in the background. The returned job is already PROCESSING.
func (s *Service) Submit(ctx context.Context, name, mimeType string, size int64, src io.Reader) (jobs.Job, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return jobs.Job{}, fmt.Errorf("uploads dir: %w", err)
	}
	dst, err := os.CreateTemp(s.uploadsDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return jobs.Job{}, fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return jobs.Job{}, fmt.Errorf("store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return jobs.Job{}, fmt.Errorf("close upload: %w", err)
	}

	job := s.jobs.Create(name, size, mimeType, dst.Name())
	job, err = s.jobs.Transition(job.ID, constants.JobStatusProcessing)
	if err != nil {
		return jobs.Job{}, err
	}
	s.hub.BroadcastJob(job)

	go s.runExtraction(job.ID)
	return job, nil
}

// Retry resets a terminal job back to PROCESSING and re-runs extraction.
// A job already in flight is rejected by the transition rules, which keeps
// one conceptual operation per document.
func (s *Service) Retry(id uuid.UUID) (jobs.Job, error) {
	job, err := s.jobs.Transition(id, constants.JobStatusProcessing)
	if err != nil {
		return jobs.Job{}, err
	}
	s.hub.BroadcastJob(job)
	go s.runExtraction(id)
	return job, nil
}

// Remove deletes a job and its stored upload.
func (s *Service) Remove(id uuid.UUID) bool {
	job, ok := s.jobs.Remove(id)
	if !ok {
		return false
	}
	if job.SourcePath != "" {
		if err := os.Remove(job.SourcePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("jobs.remove.source", "job_id", id, "error", err)
		}
	}
	return true
}

// Format passes a formatting request to the dispatcher.
func (s *Service) Format(ctx context.Context, cfg format.Config, instruction, text, outputFormat string) (string, error) {
	return s.dispatcher.Format(ctx, cfg, instruction, text, outputFormat, nil)
}

func (s *Service) runExtraction(id uuid.UUID) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return
	}

	onProgress := func(percent float64) {
		s.jobs.SetProgress(id, percent)
		if snap, ok := s.jobs.Get(id); ok {
			s.hub.BroadcastJob(snap)
		}
	}

	res, err := s.pipeline.Extract(context.Background(), job.SourcePath, job.DeclaredMime, onProgress)
	if err != nil {
		code := common.CodeOf(err)
		if code == "" {
			code = common.CodeDecodeError
		}
		failed, ferr := s.jobs.Fail(id, code, err.Error())
		if ferr != nil {
			s.logger.Error("jobs.fail", "job_id", id, "error", ferr)
			return
		}
		s.hub.BroadcastJob(failed)
		return
	}

	done, err := s.jobs.Complete(id, res.Text, res.Method, res.Pages)
	if err != nil {
		s.logger.Error("jobs.complete", "job_id", id, "error", err)
		return
	}
	s.hub.BroadcastJob(done)
}
