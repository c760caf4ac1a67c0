package blobstore

import (
	"bytes"
	"os"
	"testing"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTripInline(t *testing.T) {
	s := newTestStore(t, Config{})
	data := []byte("an xbrl instance document")
	id, err := s.Put(data, types.RoleXbrlInstance, "https://example.org/doc.xml")
	require.NoError(t, err)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	meta, err := s.Meta(id)
	require.NoError(t, err)
	assert.Equal(t, types.StorageInline, meta.StorageMode)
	assert.Equal(t, types.RoleXbrlInstance, meta.LogicalRole)
}

func TestPutAboveThresholdGoesExternal(t *testing.T) {
	s := newTestStore(t, Config{MaxInlineBytes: 8})
	data := bytes.Repeat([]byte("x"), 100)
	id, err := s.Put(data, types.RoleXbrlSchema, "")
	require.NoError(t, err)

	meta, err := s.Meta(id)
	require.NoError(t, err)
	assert.Equal(t, types.StorageExternal, meta.StorageMode)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestPutWithCompressionRoundTrips(t *testing.T) {
	s := newTestStore(t, Config{CompressionEnabled: true, Compression: types.CompressionZstd})
	data := bytes.Repeat([]byte("repeat-me "), 500)
	id, err := s.Put(data, types.RoleXbrlInstance, "")
	require.NoError(t, err)

	meta, err := s.Meta(id)
	require.NoError(t, err)
	assert.Equal(t, types.CompressionZstd, meta.Compression)
	assert.Less(t, meta.StoredSize, meta.OriginalSize)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestGetDetectsTamperedExternalBlob(t *testing.T) {
	s := newTestStore(t, Config{MaxInlineBytes: 1})
	id, err := s.Put([]byte("original content"), types.RoleXbrlInstance, "")
	require.NoError(t, err)

	meta, err := s.Meta(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.externalPath(meta.SHA256), []byte("tampered content"), 0o644))

	_, err = s.Get(id)
	assert.Equal(t, xerrors.Corrupt, xerrors.KindOf(err))

	meta2, err := s.Meta(id)
	require.NoError(t, err)
	assert.Equal(t, types.ProcessingFailed, meta2.ProcessingStatus)
}

func TestDeleteRemovesBlob(t *testing.T) {
	s := newTestStore(t, Config{})
	id, err := s.Put([]byte("gone soon"), types.RoleXbrlInstance, "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(id))

	_, err = s.Get(id)
	assert.Equal(t, xerrors.NotFound, xerrors.KindOf(err))
}

func TestStatsCountsInlineExternalCompressed(t *testing.T) {
	s := newTestStore(t, Config{MaxInlineBytes: 8, CompressionEnabled: true})
	_, err := s.Put([]byte("tiny"), types.RoleXbrlInstance, "")
	require.NoError(t, err)
	_, err = s.Put(bytes.Repeat([]byte("y"), 1000), types.RoleXbrlSchema, "")
	require.NoError(t, err)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	assert.Equal(t, int64(2), st.CompressedCount)
}
