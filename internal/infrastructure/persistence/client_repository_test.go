package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/client"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormClientRepository_CreateConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.clients.Create(ctx, mustClient(t, "CC-1001", "other@example.com"))
	assert.ErrorIs(t, err, client.ErrDocumentConflict)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))

	err = f.clients.Create(ctx, mustClient(t, "CC-2002", "maria@example.com"))
	assert.ErrorIs(t, err, client.ErrEmailConflict)
}

func TestGormClientRepository_UpdateAndFind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.client.Update(client.Details{
		FirstName:      "Maria José",
		LastName:       "Gomez",
		DocumentType:   client.DocumentPasaporte,
		DocumentNumber: "PA-77",
		Email:          "mj@example.com",
	}))
	require.NoError(t, f.clients.Update(ctx, f.client))

	got, err := f.clients.FindByID(ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria José Gomez", got.FullName())
	assert.Equal(t, client.DocumentPasaporte, got.DocumentType)
	assert.Equal(t, "mj@example.com", got.Email)

	_, err = f.clients.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, client.ErrClientNotFound)
}

func TestGormClientRepository_Exists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exists, err := f.clients.ExistsByDocumentNumber(ctx, "CC-1001", nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.clients.ExistsByDocumentNumber(ctx, "CC-1001", uuidPtr(f.client.ID))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = f.clients.ExistsByEmail(ctx, "  MARIA@example.com ", nil)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormClientRepository_Delete(t *testing.T) {
	t.Run("refuses while invoices reference the client", func(t *testing.T) {
		f := newFixture(t)
		f.store(t, f.newInvoice(t, 1, f.owner, baseDay))

		err := f.clients.Delete(context.Background(), f.client.ID)
		assert.ErrorIs(t, err, client.ErrClientHasInvoices)
	})

	t.Run("removes an unreferenced client", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		require.NoError(t, f.clients.Delete(ctx, f.client.ID))
		assert.ErrorIs(t, f.clients.Delete(ctx, f.client.ID), client.ErrClientNotFound)
	})
}

func TestGormClientRepository_FindAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := mustClient(t, "NIT-900", "acme@example.com")
	require.NoError(t, other.Update(client.Details{
		FirstName:      "Acme",
		LastName:       "Corp",
		DocumentType:   client.DocumentNIT,
		DocumentNumber: "NIT-900",
		Email:          "acme@example.com",
	}))
	require.NoError(t, f.clients.Create(ctx, other))

	filter := client.Filter{Filter: shared.DefaultFilter()}
	all, total, err := f.clients.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	nit := client.DocumentNIT
	filter.DocumentType = &nit
	found, total, err := f.clients.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, other.ID, found[0].ID)

	filter = client.Filter{Filter: shared.DefaultFilter()}
	filter.Search = "gomez"
	found, total, err = f.clients.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, f.client.ID, found[0].ID)
}
