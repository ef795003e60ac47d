package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Certificate holds the fields rendered onto a training certificate.
type Certificate struct {
	CompanyName  string
	EmployeeName string
	Serial       string
	PassedAt     string
}

// CertificateRenderer produces the college completion certificate PDF.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a certificate renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render lays out a landscape A4 certificate.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.EmployeeName == "" {
		return nil, fmt.Errorf("certificate requires an employee name")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 18, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, cert.CompanyName+" certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, cert.EmployeeName, "", 1, "C", false, 0, "")
	if cert.Serial != "" {
		pdf.SetFont("Arial", "I", 11)
		pdf.CellFormat(0, 7, "Serial "+cert.Serial, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "has completed the onboarding college training program", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Passed on "+cert.PassedAt, "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
