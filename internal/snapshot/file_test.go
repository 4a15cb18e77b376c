package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShopCatalog/internal/catalog"
)

func TestFileStore_DumpRestoreNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "tmp"), nil)
	now := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return now }

	older := sampleEntries()[:1]
	h1, err := s.Dump(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, "catalog-1700000000000.tmp", h1)

	h2, err := s.Dump(ctx, sampleEntries())
	require.NoError(t, err)
	assert.Equal(t, "catalog-1700000000001.tmp", h2)

	got, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, older, got)

	_, err = s.Restore(ctx)
	assert.ErrorIs(t, err, catalog.ErrNoSnapshot)
}

func TestFileStore_MissingDirMeansNoSnapshot(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent"), nil)
	_, err := s.Restore(context.Background())
	assert.ErrorIs(t, err, catalog.ErrNoSnapshot)
}

func TestFileStore_MalformedSnapshotIsKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog-42.tmp")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog-notanumber.tmp"), []byte("x"), 0o644))

	s := NewFileStore(dir, nil)
	_, err := s.Restore(context.Background())
	assert.ErrorIs(t, err, ErrMalformed)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestFileStore_NoPartialFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, nil)

	_, err := s.Dump(context.Background(), sampleEntries())
	require.NoError(t, err)

	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, des, 1)
	assert.Regexp(t, `^catalog-\d+\.tmp$`, des[0].Name())
}
