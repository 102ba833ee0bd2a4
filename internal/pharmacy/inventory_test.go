package pharmacy

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospadmin/internal/models"
	"hospadmin/internal/store"
)

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()
	inv := New(store.NewMemStore(), store.NewMemStore(), nil, zerolog.New(io.Discard))
	require.NoError(t, inv.Add(context.Background(),
		models.Medicine{ID: "MD001", Name: "Paracetamol", Stock: 10, Price: 3.5}))
	return inv
}

func TestDispense(t *testing.T) {
	ctx := context.Background()
	inv := newTestInventory(t)

	m, err := inv.Dispense(ctx, "MD001", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Stock)

	_, err = inv.Dispense(ctx, "MD001", 7)
	assert.ErrorIs(t, err, ErrInsufficient)

	_, err = inv.Dispense(ctx, "MD999", 1)
	assert.ErrorIs(t, err, ErrMedicineNotFound)
}

func TestReplenishmentFlow(t *testing.T) {
	ctx := context.Background()
	inv := newTestInventory(t)

	req, err := inv.RequestReplenishment(ctx, "MD001", 25)
	require.NoError(t, err)
	assert.Equal(t, "RQ001", req.ID)

	pending, err := inv.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, inv.ApproveReplenishment(ctx, req.ID))

	m, err := inv.Get(ctx, "MD001")
	require.NoError(t, err)
	assert.Equal(t, 35, m.Stock)

	pending, err = inv.PendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Approving twice is a no-op.
	require.NoError(t, inv.ApproveReplenishment(ctx, req.ID))
	m, err = inv.Get(ctx, "MD001")
	require.NoError(t, err)
	assert.Equal(t, 35, m.Stock)

	assert.ErrorIs(t, inv.ApproveReplenishment(ctx, "RQ999"), ErrRequestNotFound)
}

func TestRequestReplenishment_UnknownMedicine(t *testing.T) {
	ctx := context.Background()
	inv := newTestInventory(t)

	_, err := inv.RequestReplenishment(ctx, "MD404", 5)
	assert.ErrorIs(t, err, ErrMedicineNotFound)
}
