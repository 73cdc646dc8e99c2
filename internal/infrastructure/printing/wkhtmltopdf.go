package printing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWkhtmltopdfBinary  = "wkhtmltopdf"
	defaultWkhtmltopdfTimeout = 30 * time.Second
	defaultDPI                = 150
)

// WkhtmltopdfConfig contains configuration for the wkhtmltopdf renderer
type WkhtmltopdfConfig struct {
	// BinaryPath is an absolute path or a name looked up in PATH
	BinaryPath     string
	DefaultTimeout time.Duration
	TempDir        string
	DPI            int
	Logger         *zap.Logger
}

// WkhtmltopdfRenderer renders HTML to PDF by running the wkhtmltopdf binary
type WkhtmltopdfRenderer struct {
	binary  string
	timeout time.Duration
	tempDir string
	dpi     int
	logger  *zap.Logger
}

// NewWkhtmltopdfRenderer resolves the binary up front so a missing
// installation fails at startup.
func NewWkhtmltopdfRenderer(cfg *WkhtmltopdfConfig) (*WkhtmltopdfRenderer, error) {
	if cfg == nil {
		cfg = &WkhtmltopdfConfig{}
	}
	binary := cfg.BinaryPath
	if binary == "" {
		binary = defaultWkhtmltopdfBinary
	}
	resolved, err := resolveBinaryPath(binary)
	if err != nil {
		return nil, NewRenderError(ErrCodeBinaryNotFound, "wkhtmltopdf binary not found: "+binary, err)
	}

	r := &WkhtmltopdfRenderer{
		binary:  resolved,
		timeout: cfg.DefaultTimeout,
		tempDir: cfg.TempDir,
		dpi:     cfg.DPI,
		logger:  cfg.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = defaultWkhtmltopdfTimeout
	}
	if r.tempDir == "" {
		r.tempDir = os.TempDir()
	}
	if r.dpi <= 0 {
		r.dpi = defaultDPI
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

// Render writes the HTML to a temp file and converts it
func (r *WkhtmltopdfRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workDir, err := os.MkdirTemp(r.tempDir, "invoice-pdf-*")
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	htmlPath := filepath.Join(workDir, "input.html")
	pdfPath := filepath.Join(workDir, "output.pdf")
	if err := os.WriteFile(htmlPath, []byte(completeHTML(req)), 0o600); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to write HTML input", err)
	}

	args := r.buildArgs(req, htmlPath, pdfPath)
	r.logger.Debug("executing wkhtmltopdf", zap.String("binary", r.binary), zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if terr := timeoutError(ctx, timeout, err); terr != nil {
			return nil, terr
		}
		r.logger.Warn("wkhtmltopdf failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return nil, NewRenderError(ErrCodeRenderFailed, "wkhtmltopdf execution failed", err)
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to read generated PDF", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	result := &RenderResult{
		PDFData:        pdf,
		PageCount:      estimatePageCount(pdf),
		RenderDuration: time.Since(start),
	}
	r.logger.Debug("PDF rendered",
		zap.String("engine", "wkhtmltopdf"),
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return result, nil
}

// buildArgs constructs the wkhtmltopdf command line. JavaScript and local
// file access stay disabled.
func (r *WkhtmltopdfRenderer) buildArgs(req *RenderRequest, htmlPath, pdfPath string) []string {
	args := []string{
		"--quiet",
		"--encoding", "UTF-8",
		"--dpi", strconv.Itoa(r.dpi),
		"--page-size", string(req.PaperSize),
		"--orientation", "Portrait",
		"--margin-top", mm(req.Margins.Top),
		"--margin-right", mm(req.Margins.Right),
		"--margin-bottom", mm(req.Margins.Bottom),
		"--margin-left", mm(req.Margins.Left),
		"--disable-javascript",
		"--disable-local-file-access",
	}
	if req.Title != "" {
		args = append(args, "--title", req.Title)
	}
	return append(args, htmlPath, pdfPath)
}

func mm(v float64) string {
	return fmt.Sprintf("%gmm", v)
}

// Close is a no-op; every render runs its own process
func (r *WkhtmltopdfRenderer) Close() error {
	return nil
}

// Ensure WkhtmltopdfRenderer implements PDFRenderer
var _ PDFRenderer = (*WkhtmltopdfRenderer)(nil)
