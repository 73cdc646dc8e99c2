// Package printing keeps generated invoice PDFs consistent with the invoices
// they render and serves them on demand.
package printing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	contentTypePDF = "application/pdf"
	objectPrefix   = "invoices/"
)

// Document is a downloadable PDF. Content is set when the backend can stream
// the object; otherwise URL points at it.
type Document struct {
	Filename    string
	ContentType string
	Key         string
	Content     []byte
	URL         string
}

// PDFInfo describes the stored document of an invoice
type PDFInfo struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	HasPDF    bool      `json:"has_pdf"`
	PDFURL    *string   `json:"pdf_url"`
	PDFSize   *string   `json:"pdf_size"`
	PDFPath   *string   `json:"pdf_path,omitempty"`
}

// DownloadFilename is the attachment name offered to clients
func DownloadFilename(number string) string {
	return "Invoice_" + number + ".pdf"
}

// objectKey builds invoices/invoice_{slug}_{timestamp}_{random}.pdf
func objectKey(number string, at time.Time, suffix string) string {
	return objectPrefix + "invoice_" + slugify(number) + "_" + at.Format("2006-01-02_15-04-05") + "_" + suffix + ".pdf"
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// slugify lower-cases s and collapses every run of other characters to "-"
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// HumanSize renders a byte count as "12.5 KB", dividing while above 1024
func HumanSize(bytes int64) string {
	v := decimal.NewFromInt(bytes)
	kib := decimal.NewFromInt(1024)
	i := 0
	for v.GreaterThan(kib) && i < len(sizeUnits)-1 {
		v = v.Div(kib)
		i++
	}
	return v.Round(2).String() + " " + sizeUnits[i]
}
