package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barangay/pkg/platform/sentinel"
)

func TestImageStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	images, err := NewImageStore(filepath.Join(dir, "announcements"))
	require.NoError(t, err)

	t.Run("saves under a fresh lowercase name", func(t *testing.T) {
		first, err := images.Save(ctx, ".PNG", []byte("one"))
		require.NoError(t, err)
		second, err := images.Save(ctx, ".PNG", []byte("two"))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.True(t, strings.HasSuffix(first, ".png"))
		assert.NotContains(t, first, "-")

		data, err := images.Read(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), data)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		name, err := images.Save(ctx, ".jpg", []byte("x"))
		require.NoError(t, err)
		require.NoError(t, images.Remove(ctx, name))
		require.NoError(t, images.Remove(ctx, name))

		_, err = images.Read(ctx, name)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("refuses names outside the directory", func(t *testing.T) {
		outside := filepath.Join(dir, "secret.png")
		require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

		_, err := images.Read(ctx, "../secret.png")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, images.Remove(ctx, "../secret.png"), ErrInvalidImageName)
		assert.ErrorIs(t, images.Remove(ctx, ".hidden"), ErrInvalidImageName)
		assert.FileExists(t, outside)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := images.Save(cancelled, ".png", []byte("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
