package service

import (
	"context"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/jobs"
	"github.com/frontier-maritime/intranet-api/pkg/storage"
)

// Export job lifecycle states.
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportJob tracks one asynchronous ledger export.
type ExportJob struct {
	ID        string     `json:"id"`
	Format    string     `json:"format"`
	Status    string     `json:"status"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	file string
}

// ExportJobService renders large ledger exports off the request path. Files
// land on local storage and are fetched back with a signed, expiring token,
// so the download endpoint needs no session.
type ExportJobService struct {
	exports   *ExportService
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	queue     *jobs.Queue
	retention time.Duration

	cancel context.CancelFunc

	mu   sync.RWMutex
	byID map[string]*ExportJob
}

// NewExportJobService constructs the export worker service.
func NewExportJobService(exports *ExportService, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, workers int, retention time.Duration) *ExportJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	s := &ExportJobService{
		exports:   exports,
		store:     store,
		signer:    signer,
		logger:    logger,
		retention: retention,
		byID:      make(map[string]*ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return s
}

// Start launches the workers and the retention sweeper.
func (s *ExportJobService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)
	go s.sweep(ctx)
}

// Stop drains the workers.
func (s *ExportJobService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

// EnqueueCashflow schedules a ledger export and returns the pending job.
func (s *ExportJobService) EnqueueCashflow(format string, filter models.CashflowFilter) (*ExportJob, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &ExportJob{
		ID:        uuid.NewString(),
		Format:    format,
		Status:    ExportStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.byID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "cashflow_" + format, Payload: filter}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule export")
	}
	return s.snapshot(job.ID), nil
}

// Get returns the job state.
func (s *ExportJobService) Get(jobID string) (*ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Download validates a signed token and opens the exported file. The token is
// the sole credential; expiry is enforced by the signer.
func (s *ExportJobService) Download(token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		s.logger.Warn("export file missing", zap.String("job_id", jobID), zap.Error(err))
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	contentType := "text/csv"
	if path.Ext(relPath) == ".pdf" {
		contentType = "application/pdf"
	}
	return file, contentType, nil
}

func (s *ExportJobService) process(ctx context.Context, job jobs.Job) error {
	filter, ok := job.Payload.(models.CashflowFilter)
	if !ok {
		s.fail(job.ID, appErrors.ErrInternal)
		return nil
	}

	var (
		data []byte
		err  error
		name string
	)
	switch job.Type {
	case "cashflow_pdf":
		data, err = s.exports.RenderCashflowPDF(ctx, filter)
		name = path.Join("cashflow", job.ID+".pdf")
	default:
		data, err = s.exports.RenderCashflowCSV(ctx, filter)
		name = path.Join("cashflow", job.ID+".csv")
	}
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	if _, err := s.store.Save(name, data); err != nil {
		s.fail(job.ID, err)
		return err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, name)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	s.mu.Lock()
	if j, ok := s.byID[job.ID]; ok {
		j.Status = ExportStatusCompleted
		j.Token = token
		j.ExpiresAt = &expiresAt
		j.Error = ""
		j.file = name
	}
	s.mu.Unlock()
	return nil
}

func (s *ExportJobService) fail(jobID string, err error) {
	s.mu.Lock()
	if j, ok := s.byID[jobID]; ok {
		j.Status = ExportStatusFailed
		j.Error = err.Error()
	}
	s.mu.Unlock()
}

func (s *ExportJobService) snapshot(jobID string) *ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byID[jobID]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

// sweep drops expired files and forgets finished jobs past retention.
func (s *ExportJobService) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.retention)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
			cutoff := time.Now().UTC().Add(-s.retention)
			s.mu.Lock()
			for id, job := range s.byID {
				if job.CreatedAt.Before(cutoff) {
					delete(s.byID, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
