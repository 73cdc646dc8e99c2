package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaperSize(t *testing.T) {
	assert.Equal(t, PaperSizeLetter, ParsePaperSize(" letter "))
	assert.Equal(t, PaperSizeA5, ParsePaperSize("a5"))
	assert.Equal(t, PaperSizeA4, ParsePaperSize("tabloid"))
	assert.Equal(t, PaperSizeA4, ParsePaperSize(""))
	assert.False(t, PaperSize("B3").IsValid())

	w, h := PaperSizeA4.Dimensions()
	assert.Equal(t, 210.0, w)
	assert.Equal(t, 297.0, h)
}

func TestValidateRequest(t *testing.T) {
	var rerr *RenderError

	err := validateRequest(nil)
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)

	err = validateRequest(&RenderRequest{HTML: "   "})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidHTML, rerr.Code)

	err = validateRequest(&RenderRequest{HTML: "<p>x</p>", PaperSize: "B3"})
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ErrCodeInvalidPaperSize, rerr.Code)

	req := &RenderRequest{HTML: "<p>x</p>"}
	require.NoError(t, validateRequest(req))
	assert.Equal(t, PaperSizeA4, req.PaperSize)
	assert.Equal(t, DefaultMargins, req.Margins)
}

func TestTimeoutError(t *testing.T) {
	cause := errors.New("killed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	var rerr *RenderError
	require.ErrorAs(t, timeoutError(ctx, time.Second, cause), &rerr)
	assert.Equal(t, ErrCodeRenderTimeout, rerr.Code)
	assert.ErrorIs(t, rerr, cause)

	assert.Nil(t, timeoutError(context.Background(), time.Second, cause))
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount([]byte("%PDF-1.4")))
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
}
