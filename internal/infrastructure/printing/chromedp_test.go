package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrintParams(t *testing.T) {
	req := &RenderRequest{HTML: "<p>x</p>", PaperSize: PaperSizeLetter, Margins: Margins{Top: 25.4, Right: 12.7, Bottom: 25.4, Left: 12.7}}
	params := buildPrintParams(req)

	assert.True(t, params.PrintBackground)
	assert.InDelta(t, 8.5, params.PaperWidth, 0.001)
	assert.InDelta(t, 11.0, params.PaperHeight, 0.001)
	assert.InDelta(t, 1.0, params.MarginTop, 0.001)
	assert.InDelta(t, 0.5, params.MarginLeft, 0.001)
}

func TestCompleteHTML(t *testing.T) {
	full := "<!DOCTYPE html><html><body>ok</body></html>"
	assert.Equal(t, full, completeHTML(&RenderRequest{HTML: full}))

	wrapped := completeHTML(&RenderRequest{HTML: "<p>hi</p>", Title: "Invoice <1>"})
	assert.Contains(t, wrapped, "<!DOCTYPE html>")
	assert.Contains(t, wrapped, "<title>Invoice &lt;1&gt;</title>")
	assert.Contains(t, wrapped, "<body><p>hi</p></body>")
}

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r := NewChromedpRenderer(nil)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.timeout)
	assert.NotNil(t, r.logger)
	assert.NotNil(t, r.allocCtx)
}
