package printing

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PaperSize names a supported output page size
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"
	PaperSizeA5     PaperSize = "A5"
	PaperSizeLetter PaperSize = "Letter"
	PaperSizeLegal  PaperSize = "Legal"
)

// ParsePaperSize matches name case-insensitively, defaulting to A4
func ParsePaperSize(name string) PaperSize {
	for _, p := range []PaperSize{PaperSizeA4, PaperSizeA5, PaperSizeLetter, PaperSizeLegal} {
		if strings.EqualFold(strings.TrimSpace(name), string(p)) {
			return p
		}
	}
	return PaperSizeA4
}

// IsValid reports whether p is a known size
func (p PaperSize) IsValid() bool {
	_, _, ok := p.dimensions()
	return ok
}

// Dimensions returns width and height in millimeters
func (p PaperSize) Dimensions() (width, height float64) {
	width, height, _ = p.dimensions()
	return width, height
}

func (p PaperSize) dimensions() (float64, float64, bool) {
	switch p {
	case PaperSizeA4:
		return 210, 297, true
	case PaperSizeA5:
		return 148, 210, true
	case PaperSizeLetter:
		return 215.9, 279.4, true
	case PaperSizeLegal:
		return 215.9, 355.6, true
	}
	return 0, 0, false
}

// Margins in millimeters
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins are used when a request leaves margins unset
var DefaultMargins = Margins{Top: 15, Right: 12, Bottom: 15, Left: 12}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML      string
	PaperSize PaperSize
	Margins   Margins
	Title     string
	// Timeout overrides the engine default when positive
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer converts HTML documents to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeBinaryNotFound   = "BINARY_NOT_FOUND"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeTemplateFailed   = "TEMPLATE_FAILED"
)

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// validateRequest applies the checks every engine shares and fills defaults
func validateRequest(req *RenderRequest) error {
	if req == nil {
		return NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if req.PaperSize == "" {
		req.PaperSize = PaperSizeA4
	}
	if !req.PaperSize.IsValid() {
		return NewRenderError(ErrCodeInvalidPaperSize, "invalid paper size: "+string(req.PaperSize), nil)
	}
	if req.Margins == (Margins{}) {
		req.Margins = DefaultMargins
	}
	return nil
}

// timeoutError classifies a failed render whose context ended
func timeoutError(ctx context.Context, timeout time.Duration, cause error) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return NewRenderError(ErrCodeRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), cause)
	case context.Canceled:
		return NewRenderError(ErrCodeRenderTimeout, "PDF rendering was cancelled", cause)
	}
	return nil
}

// estimatePageCount counts page objects, excluding the page tree root
func estimatePageCount(pdf []byte) int {
	s := string(pdf)
	count := strings.Count(s, "/Type /Page") - strings.Count(s, "/Type /Pages")
	return max(count, 1)
}
