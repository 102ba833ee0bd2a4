package outcome

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hospadmin/internal/models"
	"hospadmin/internal/scheduler"
	"hospadmin/internal/store"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCompleter) Get(ctx context.Context, id string) (models.Appointment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Appointment), args.Error(1)
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	st := store.NewMemStore()
	completer := new(mockCompleter)
	r := New(st, completer, logger)

	completer.On("Complete", ctx, "AP001").Return(nil).Once()

	o, err := r.Record(ctx, "AP001", "flu", "rest and fluids", "follow up in a week")
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "AP001", o.AppointmentID)

	outcomes, err := r.ForAppointment(ctx, "AP001")
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "flu", outcomes[0].Diagnosis)

	completer.AssertExpectations(t)
}

func TestRecord_RefusedTransitionWritesNothing(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	st := store.NewMemStore()
	completer := new(mockCompleter)
	r := New(st, completer, logger)

	completer.On("Complete", ctx, "AP002").Return(scheduler.ErrInvalidTransition).Once()

	_, err := r.Record(ctx, "AP002", "flu", "", "")
	assert.ErrorIs(t, err, scheduler.ErrInvalidTransition)

	outcomes, err := r.ForAppointment(ctx, "AP002")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
