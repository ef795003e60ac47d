package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/frontier-maritime/intranet-api/internal/models"
	appErrors "github.com/frontier-maritime/intranet-api/pkg/errors"
	"github.com/frontier-maritime/intranet-api/pkg/export"
)

// ExportService renders downloadable artifacts: the training certificate and
// ledger exports.
type ExportService struct {
	employees   collegeEmployeeRepository
	cashflow    cashflowRepository
	certificate *export.CertificateRenderer
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger

	companyName string
}

// NewExportService constructs an ExportService instance.
func NewExportService(employees collegeEmployeeRepository, cashflow cashflowRepository, logger *zap.Logger, companyName string) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		employees:   employees,
		cashflow:    cashflow,
		certificate: export.NewCertificateRenderer(),
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		companyName: companyName,
	}
}

// RenderCertificate produces the completion certificate for an employee who
// has passed college training.
func (s *ExportService) RenderCertificate(ctx context.Context, employeeID string) ([]byte, error) {
	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}
	if employee.CollegePassedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "employee has not passed college training")
	}
	data, err := s.certificate.Render(export.Certificate{
		CompanyName:  s.companyName,
		EmployeeName: employee.Username,
		Serial:       employee.Serial,
		PassedAt:     employee.CollegePassedAt.Format("2 January 2006"),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return data, nil
}

// RenderCashflowCSV exports the filtered ledger as CSV.
func (s *ExportService) RenderCashflowCSV(ctx context.Context, filter models.CashflowFilter) ([]byte, error) {
	dataset, err := s.cashflowDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// RenderCashflowPDF exports the filtered ledger as a tabular PDF.
func (s *ExportService) RenderCashflowPDF(ctx context.Context, filter models.CashflowFilter) ([]byte, error) {
	dataset, err := s.cashflowDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(*dataset, s.companyName+" cashflow ledger")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}

func (s *ExportService) cashflowDataset(ctx context.Context, filter models.CashflowFilter) (*export.Dataset, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 200
	}
	entries, _, carried, err := s.cashflow.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}
	dataset := &export.Dataset{
		Headers: []string{"Date", "Category", "Description", "Amount", "Balance"},
	}
	balance := carried
	for _, e := range entries {
		balance += e.Amount
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":        e.OccurredAt.Format(time.RFC3339),
			"Category":    e.Category,
			"Description": e.Description,
			"Amount":      formatCents(e.Amount),
			"Balance":     formatCents(balance),
		})
	}
	return dataset, nil
}

// formatCents renders integer cents as a decimal string.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, strconv.FormatInt(cents/100, 10), cents%100)
}
