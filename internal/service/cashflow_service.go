package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/authz"
	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type cashflowRepository interface {
	Append(ctx context.Context, entry *models.CashflowEntry) error
	List(ctx context.Context, filter models.CashflowFilter) ([]models.CashflowEntry, int, int64, error)
	Balance(ctx context.Context) (int64, error)
}

// CashflowService exposes the append-only company ledger with running
// balances.
type CashflowService struct {
	entries cashflowRepository
	logger  *zap.Logger
}

// NewCashflowService constructs a CashflowService instance.
func NewCashflowService(entries cashflowRepository, logger *zap.Logger) *CashflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashflowService{entries: entries, logger: logger}
}

// Record appends one ledger entry. Entries cannot be edited or removed.
func (s *CashflowService) Record(ctx context.Context, actor *authz.Context, entry *models.CashflowEntry) (*models.CashflowEntry, error) {
	if entry.Category == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry category is required")
	}
	if entry.Amount == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry amount must be non-zero")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	entry.RecordedBy = actorID(actor)
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record entry")
	}
	return entry, nil
}

// List returns ledger lines oldest first, each carrying the running balance
// after it, seeded from the balance carried into the page.
func (s *CashflowService) List(ctx context.Context, filter models.CashflowFilter) ([]models.CashflowLine, int, error) {
	entries, total, carried, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger")
	}
	lines := make([]models.CashflowLine, 0, len(entries))
	balance := carried
	for _, e := range entries {
		balance += e.Amount
		lines = append(lines, models.CashflowLine{CashflowEntry: e, Balance: balance})
	}
	return lines, total, nil
}

// Balance returns the full ledger balance.
func (s *CashflowService) Balance(ctx context.Context) (int64, error) {
	balance, err := s.entries.Balance(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute balance")
	}
	return balance, nil
}
