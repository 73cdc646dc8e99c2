package printing

import (
	"context"
	"fmt"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DocumentRenderer produces invoice PDFs from DocumentData
type DocumentRenderer struct {
	engine    PDFRenderer
	templates *TemplateEngine
	paper     PaperSize
}

// NewDocumentRenderer combines a layout and an HTML-to-PDF engine
func NewDocumentRenderer(engine PDFRenderer, templates *TemplateEngine, paper PaperSize) *DocumentRenderer {
	if !paper.IsValid() {
		paper = PaperSizeA4
	}
	return &DocumentRenderer{engine: engine, templates: templates, paper: paper}
}

// NewFromConfig builds the renderer for the configured engine
func NewFromConfig(cfg *config.PrintingConfig, logger *zap.Logger) (*DocumentRenderer, error) {
	templates, err := NewTemplateEngine(cfg.Locale)
	if err != nil {
		return nil, err
	}

	var engine PDFRenderer
	switch cfg.Engine {
	case "", "chromedp":
		engine = NewChromedpRenderer(&ChromedpConfig{
			DefaultTimeout: cfg.RenderTimeout,
			ExecPath:       cfg.ChromePath,
			NoSandbox:      true,
			Logger:         logger,
		})
	case "wkhtmltopdf":
		engine, err = NewWkhtmltopdfRenderer(&WkhtmltopdfConfig{
			BinaryPath:     cfg.WkhtmltopdfPath,
			DefaultTimeout: cfg.RenderTimeout,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown printing engine %q", cfg.Engine)
	}
	return NewDocumentRenderer(engine, templates, ParsePaperSize(cfg.PageSize)), nil
}

// Render lays out data and converts it to PDF bytes
func (r *DocumentRenderer) Render(ctx context.Context, data *DocumentData) ([]byte, error) {
	html, err := r.templates.Render(data)
	if err != nil {
		return nil, err
	}
	result, err := r.engine.Render(ctx, &RenderRequest{
		HTML:      html,
		PaperSize: r.paper,
		Title:     "Invoice " + data.Number,
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}

// Close releases the engine
func (r *DocumentRenderer) Close() error {
	return r.engine.Close()
}
