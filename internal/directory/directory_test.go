package directory

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

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d := New(store.NewMemStore(), zerolog.New(io.Discard))
	ctx := context.Background()
	require.NoError(t, d.Create(ctx, models.User{ID: "DR001", Password: "pw", Role: models.RoleDoctor, Name: "Dr. Grey"}))
	require.NoError(t, d.Create(ctx, models.User{ID: "PT001", Password: "pw", Role: models.RolePatient, Name: "Alex"}))
	return d
}

func TestLookupRole(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	role, err := d.LookupRole(ctx, "DR001")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, role)

	_, err = d.LookupRole(ctx, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	u, err := d.Authenticate(ctx, "PT001", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alex", u.Name)

	_, err = d.Authenticate(ctx, "PT001", "wrong")
	assert.ErrorIs(t, err, ErrBadPassword)

	_, err = d.Authenticate(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	err := d.Create(ctx, models.User{ID: "DR001", Password: "x", Role: models.RoleDoctor, Name: "dup"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	require.NoError(t, d.Update(ctx, models.User{ID: "PT001", Password: "new", Role: models.RolePatient, Name: "Alex"}))
	u, err := d.Get(ctx, "PT001")
	require.NoError(t, err)
	assert.Equal(t, "new", u.Password)

	require.NoError(t, d.Delete(ctx, "PT001"))
	_, err = d.Get(ctx, "PT001")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, d.Delete(ctx, "PT001"), ErrUserNotFound)
}

func TestListByRole(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory(t)

	doctors, err := d.ListByRole(ctx, models.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "DR001", doctors[0].ID)

	admins, err := d.ListByRole(ctx, models.RoleAdministrator)
	require.NoError(t, err)
	assert.Empty(t, admins)
}
