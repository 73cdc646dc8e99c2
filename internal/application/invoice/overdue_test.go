package invoice_test

import (
	"context"
	"testing"
	"time"

	app "github.com/infinity-9427/invoicing/internal/application/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverdueSweeper_DueBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := h.request()
	req.DueDate = "2026-10-20"
	created, err := h.svc.Create(ctx, h.owner.Actor(), req)
	require.NoError(t, err)
	due := time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)

	result, err := h.sweeper.Sweep(ctx, due)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.Empty(t, result.Invoices)

	result, err = h.sweeper.Sweep(ctx, due.Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, created.ID, result.Invoices[0].ID)
	assert.Equal(t, "2026-10-20", result.Invoices[0].DueDate)
	assert.Equal(t, 0, result.Invoices[0].DaysOverdue)

	stored, err := h.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOverdue, stored.Status)
}

func TestOverdueSweeper_RerendersFlippedInvoices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t, h.owner)
	oldKey := h.storedKey(t, created.ID)

	result, err := h.sweeper.Sweep(ctx, time.Date(2026, time.November, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, 10, result.Invoices[0].DaysOverdue)

	assert.Equal(t, 2, h.renderer.Calls())
	assert.NotEqual(t, oldKey, h.storedKey(t, created.ID))

	// Already overdue invoices are not swept again
	result, err = h.sweeper.Sweep(ctx, time.Date(2026, time.November, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 2, h.renderer.Calls())
}

func TestOverdueSweeper_SkipsPaidInvoices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created := h.create(t, h.owner)
	_, err := h.svc.UpdateStatus(ctx, h.owner.Actor(), created.ID, "paid")
	require.NoError(t, err)

	result, err := h.sweeper.Sweep(ctx, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)

	got, err := h.svc.GetByID(ctx, h.owner.Actor(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", got.Status)
}

func TestOverdueSweeper_Run(t *testing.T) {
	h := newHarness(t)
	sweeper := app.NewOverdueSweeper(h.repo, nil, nil, nil)

	req := h.request()
	req.IssueDate = "2020-01-01"
	req.DueDate = "2020-01-31"
	_, err := h.svc.Create(context.Background(), h.owner.Actor(), req)
	require.NoError(t, err)

	require.NoError(t, sweeper.Run(context.Background()))

	stats, err := h.svc.Statistics(context.Background(), h.admin.Actor())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.OverdueInvoices)
}
