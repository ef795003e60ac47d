package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type auditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, int, error)
}

// AuditService exposes the read side of the audit trail.
type AuditService struct {
	audits auditReader
	logger *zap.Logger
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(audits auditReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{audits: audits, logger: logger}
}

// List returns audit events matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditEvent, int, error) {
	events, total, err := s.audits.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit events")
	}
	return events, total, nil
}
