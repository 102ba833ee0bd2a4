package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "appointments.csv")
	s := NewCSVStore(path, &logger)

	t.Run("MissingFileReadsEmpty", func(t *testing.T) {
		records, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	records := []Record{
		{"AP001", "DR001", "PT001", "01-06-24", "10:00-10:30", "PENDING"},
		{"AP002", "DR001", "PT002", "01-06-24", "11:00-11:30", "CANCELLED"},
	}
	require.NoError(t, s.Save(ctx, records))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	t.Run("SaveRewritesWholeFile", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, records[:1]))
		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, records[:1], got)
	})

	t.Run("NoTempFilesLeftBehind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestCSVCatalog(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	c := NewCSVCatalog(t.TempDir(), &logger)

	require.NoError(t, c.Users().Save(ctx, []Record{{"AD001", "admin", "ADMINISTRATOR", "Root"}}))
	require.NoError(t, c.Appointments().Save(ctx, []Record{{"AP001", "DR001", "PT001", "01-06-24", "10:00-10:30", "PENDING"}}))

	// Collections do not bleed into each other.
	users, err := c.Users().Load(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "AD001", users[0][0])

	appts, err := c.Appointments().Load(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
	assert.Equal(t, "AP001", appts[0][0])

	// RunInTx is a plain passthrough for files.
	var ran bool
	require.NoError(t, c.RunInTx(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
