package billing

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospadmin/internal/events"
	"hospadmin/internal/store"
)

func TestIssueAndSettle(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	var settled []string
	bus.Subscribe(events.TypeBillSettled, func(e events.Event) {
		settled = append(settled, e.Payload["bill_id"])
	})
	s := New(store.NewMemStore(), bus, zerolog.New(io.Discard))

	bill, err := s.Issue(ctx, "PT001", "AP001", 50)
	require.NoError(t, err)
	assert.Equal(t, "BL001", bill.ID)
	assert.False(t, bill.Settled)

	require.NoError(t, s.Settle(ctx, bill.ID))
	assert.Equal(t, []string{"BL001"}, settled)

	// Settling again is a no-op and raises no second event.
	require.NoError(t, s.Settle(ctx, bill.ID))
	assert.Len(t, settled, 1)

	assert.ErrorIs(t, s.Settle(ctx, "BL999"), ErrBillNotFound)

	bills, err := s.ForPatient(ctx, "PT001")
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.True(t, bills[0].Settled)
}
