package printing

import (
	"context"
	"testing"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	last   *RenderRequest
	closed bool
	err    error
}

func (r *recordingRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.last = req
	return &RenderResult{PDFData: []byte("%PDF-1.4"), PageCount: 1}, nil
}

func (r *recordingRenderer) Close() error {
	r.closed = true
	return nil
}

func TestDocumentRenderer_Render(t *testing.T) {
	templates, err := NewTemplateEngine("en")
	require.NoError(t, err)
	engine := &recordingRenderer{}
	renderer := NewDocumentRenderer(engine, templates, "bogus")

	pdf, err := renderer.Render(context.Background(), NewDocumentData(sampleInvoice(t), "Acme"))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)

	require.NotNil(t, engine.last)
	assert.Equal(t, PaperSizeA4, engine.last.PaperSize)
	assert.Equal(t, "Invoice INV-202610-0001", engine.last.Title)
	assert.Contains(t, engine.last.HTML, "INV-202610-0001")

	require.NoError(t, renderer.Close())
	assert.True(t, engine.closed)
}

func TestDocumentRenderer_EngineError(t *testing.T) {
	templates, err := NewTemplateEngine("en")
	require.NoError(t, err)
	renderer := NewDocumentRenderer(&recordingRenderer{err: NewRenderError(ErrCodeRenderFailed, "down", nil)}, templates, PaperSizeLetter)

	_, err = renderer.Render(context.Background(), NewDocumentData(sampleInvoice(t), "Acme"))
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeRenderFailed, rerr.Code)
}

func TestNewFromConfig(t *testing.T) {
	r, err := NewFromConfig(&config.PrintingConfig{Engine: "chromedp", PageSize: "letter"}, nil)
	require.NoError(t, err)
	assert.Equal(t, PaperSizeLetter, r.paper)
	require.NoError(t, r.Close())

	_, err = NewFromConfig(&config.PrintingConfig{Engine: "prince"}, nil)
	assert.Error(t, err)

	_, err = NewFromConfig(&config.PrintingConfig{Engine: "wkhtmltopdf", WkhtmltopdfPath: "/nonexistent/wkhtmltopdf"}, nil)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeBinaryNotFound, rerr.Code)
}
