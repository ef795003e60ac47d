package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
)

type mockCashflowRepo struct {
	entries []models.CashflowEntry
	total   int
	carried int64
	balance int64
	err     error

	appended *models.CashflowEntry
}

func (m *mockCashflowRepo) Append(ctx context.Context, entry *models.CashflowEntry) error {
	if m.err != nil {
		return m.err
	}
	m.appended = entry
	return nil
}

func (m *mockCashflowRepo) List(ctx context.Context, filter models.CashflowFilter) ([]models.CashflowEntry, int, int64, error) {
	return m.entries, m.total, m.carried, m.err
}

func (m *mockCashflowRepo) Balance(ctx context.Context) (int64, error) {
	return m.balance, m.err
}

func TestCashflowServiceListBuildsRunningBalance(t *testing.T) {
	repo := &mockCashflowRepo{
		entries: []models.CashflowEntry{
			{ID: "e1", Amount: 5000},
			{ID: "e2", Amount: -1500},
			{ID: "e3", Amount: 300},
		},
		total:   10,
		carried: 2000,
	}
	svc := NewCashflowService(repo, zap.NewNop())

	lines, total, err := svc.List(context.Background(), models.CashflowFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	require.Len(t, lines, 3)
	assert.Equal(t, int64(7000), lines[0].Balance)
	assert.Equal(t, int64(5500), lines[1].Balance)
	assert.Equal(t, int64(5800), lines[2].Balance)
}

func TestCashflowServiceRecordValidation(t *testing.T) {
	repo := &mockCashflowRepo{}
	svc := NewCashflowService(repo, zap.NewNop())

	_, err := svc.Record(context.Background(), nil, &models.CashflowEntry{Amount: 100})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.Record(context.Background(), nil, &models.CashflowEntry{Category: "fuel"})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCashflowServiceRecordStampsActorAndTime(t *testing.T) {
	repo := &mockCashflowRepo{}
	svc := NewCashflowService(repo, zap.NewNop())
	actor := managerContext(t, &models.Employee{ID: "mgr1", UserStatus: models.StatusActiveStaff})

	entry, err := svc.Record(context.Background(), actor, &models.CashflowEntry{Category: "fuel", Amount: -4200})
	require.NoError(t, err)
	require.NotNil(t, repo.appended)
	require.NotNil(t, entry.RecordedBy)
	assert.Equal(t, "mgr1", *entry.RecordedBy)
	assert.WithinDuration(t, time.Now().UTC(), entry.OccurredAt, time.Minute)
}

func TestCashflowServiceRecordKeepsOccurredAt(t *testing.T) {
	repo := &mockCashflowRepo{}
	svc := NewCashflowService(repo, zap.NewNop())
	occurred := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	entry, err := svc.Record(context.Background(), nil, &models.CashflowEntry{
		Category: "charter", Amount: 90000, OccurredAt: occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, occurred, entry.OccurredAt)
	assert.Nil(t, entry.RecordedBy)
}

func TestCashflowServiceBalance(t *testing.T) {
	svc := NewCashflowService(&mockCashflowRepo{balance: 123456}, zap.NewNop())

	balance, err := svc.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123456), balance)

	svc = NewCashflowService(&mockCashflowRepo{err: errors.New("db down")}, zap.NewNop())
	_, err = svc.Balance(context.Background())
	require.Error(t, err)
}
