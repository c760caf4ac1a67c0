// Package blobstore is the content-addressed blob store (C5): opaque
// bytes (raw XBRL instance documents, schemas, linkbases) keyed by a
// generated BlobId, with metadata persisted in bbolt the way the
// teacher's pkg/storage persists its resource records (spec §4.5).
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// defaultMaxInlineBytes is the spec §6.2 default for the inline/external
// storage-mode threshold.
const defaultMaxInlineBytes = 100 * 1024 * 1024

// Config parameterizes a Store.
type Config struct {
	// DataDir holds metadata.db and the external-blob subdirectory.
	DataDir string
	// MaxInlineBytes is the storage-mode split threshold (spec §4.5
	// step 2). Zero means defaultMaxInlineBytes.
	MaxInlineBytes int64
	// CompressionEnabled toggles step 3's compression pass.
	CompressionEnabled bool
	// Compression is the algorithm applied when CompressionEnabled.
	Compression types.CompressionCode
	// CompressionLevel is the zstd level (spec §6.4
	// blob.compression_level, 1-22) used when Compression is
	// types.CompressionZstd. <= 0 means the zstd library's default tier.
	CompressionLevel int
}

// Store is a bbolt-backed, content-addressed blob store.
type Store struct {
	db               *bolt.DB
	externalDir      string
	maxInline        int64
	compress         bool
	compression      types.CompressionCode
	compressionLevel int
}

// record is the persisted shape of a Blob plus its inline bytes, if any.
type record struct {
	Meta   types.Blob `json:"meta"`
	Inline []byte     `json:"inline,omitempty"`
}

// Open initializes (or reopens) a blob store at cfg.DataDir.
func Open(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, xerrors.New(xerrors.Invalid, "blobstore: DataDir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.Invalid, "create blobstore data dir", err)
	}
	externalDir := filepath.Join(cfg.DataDir, "external")
	if err := os.MkdirAll(externalDir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.Invalid, "create blobstore external dir", err)
	}

	db, err := bolt.Open(filepath.Join(cfg.DataDir, "metadata.db"), 0o600, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open blobstore metadata.db", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	}); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.Transport, "create blobs bucket", err)
	}

	maxInline := cfg.MaxInlineBytes
	if maxInline <= 0 {
		maxInline = defaultMaxInlineBytes
	}
	compression := cfg.Compression
	if compression == "" {
		compression = types.CompressionZstd
	}

	return &Store{
		db:               db,
		externalDir:      externalDir,
		maxInline:        maxInline,
		compress:         cfg.CompressionEnabled,
		compression:      compression,
		compressionLevel: cfg.CompressionLevel,
	}, nil
}

// Close closes the underlying metadata database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) externalPath(sha256Hex string) string {
	return filepath.Join(s.externalDir, sha256Hex[:2], sha256Hex)
}

// Put stores bytes under logical role role, optionally recording
// sourceURL provenance, and returns the new blob's id (spec §4.5 put).
func (s *Store) Put(data []byte, role types.LogicalRole, sourceURL string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	blobID := uuid.New().String()
	meta := types.Blob{
		BlobID:           blobID,
		LogicalRole:      role,
		OriginalSize:     int64(len(data)),
		SHA256:           hash,
		SourceURL:        sourceURL,
		ProcessingStatus: types.ProcessingComplete,
		CreatedAt:        time.Now().UTC(),
		Compression:      types.CompressionNone,
	}

	stored := data
	if s.compress {
		c, err := s.compressZstd(data)
		if err != nil {
			return "", err
		}
		stored = c
		meta.Compression = s.compression
	}
	meta.StoredSize = int64(len(stored))

	if meta.StoredSize > s.maxInline {
		meta.StorageMode = types.StorageExternal
		if err := s.writeExternal(hash, stored); err != nil {
			return "", err
		}
	} else {
		meta.StorageMode = types.StorageInline
	}

	rec := record{Meta: meta}
	if meta.StorageMode == types.StorageInline {
		rec.Inline = stored
	}
	if err := s.putRecord(rec); err != nil {
		return "", err
	}
	return blobID, nil
}

func (s *Store) writeExternal(hash string, data []byte) error {
	path := s.externalPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Wrap(xerrors.Invalid, "create external blob dir", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write external blob", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.Wrap(xerrors.Transport, "rename external blob into place", err)
	}
	return nil
}

func (s *Store) putRecord(rec record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.Meta.BlobID), data)
	})
}

func (s *Store) getRecord(blobID string) (record, error) {
	var rec record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		data := b.Get([]byte(blobID))
		if data == nil {
			return xerrors.Newf(xerrors.NotFound, "blob %q not found", blobID)
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		return json.Unmarshal(cp, &rec)
	})
	return rec, err
}

// Get returns the decompressed, integrity-verified bytes for blobID.
// A sha256 mismatch marks the blob Failed and returns Corrupt without
// returning any bytes (spec §4.5 integrity rule).
func (s *Store) Get(blobID string) ([]byte, error) {
	rec, err := s.getRecord(blobID)
	if err != nil {
		return nil, err
	}

	var stored []byte
	if rec.Meta.StorageMode == types.StorageInline {
		stored = rec.Inline
	} else {
		stored, err = os.ReadFile(s.externalPath(rec.Meta.SHA256))
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Transport, "read external blob", err)
		}
	}

	data := stored
	if rec.Meta.Compression != types.CompressionNone && rec.Meta.Compression != "" {
		data, err = decompressZstd(stored)
		if err != nil {
			return nil, s.markFailed(rec, err)
		}
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != rec.Meta.SHA256 {
		return nil, s.markFailed(rec, fmt.Errorf("sha256 mismatch"))
	}
	return data, nil
}

func (s *Store) markFailed(rec record, cause error) error {
	rec.Meta.ProcessingStatus = types.ProcessingFailed
	rec.Meta.ProcessingError = cause.Error()
	_ = s.putRecord(rec)
	return xerrors.Wrap(xerrors.Corrupt, "blob integrity check failed", cause)
}

// Delete removes a blob's metadata and bytes. Both the bbolt entry and
// any external file are removed; deleting an external file that is
// already gone is not an error (spec §4.5 "removes metadata and bytes
// atomically").
func (s *Store) Delete(blobID string) error {
	rec, err := s.getRecord(blobID)
	if err != nil {
		return err
	}
	if rec.Meta.StorageMode == types.StorageExternal {
		if err := os.Remove(s.externalPath(rec.Meta.SHA256)); err != nil && !os.IsNotExist(err) {
			return xerrors.Wrap(xerrors.Transport, "remove external blob", err)
		}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete([]byte(blobID))
	})
}

// Meta returns the metadata record for blobID without reading bytes.
func (s *Store) Meta(blobID string) (types.Blob, error) {
	rec, err := s.getRecord(blobID)
	if err != nil {
		return types.Blob{}, err
	}
	return rec.Meta, nil
}

// Stats is the summary returned by Store.Stats.
type Stats struct {
	Total           int64 `json:"total"`
	TotalSize       int64 `json:"total_size"`
	InlineCount     int64 `json:"inline_count"`
	ExternalCount   int64 `json:"external_count"`
	CompressedCount int64 `json:"compressed_count"`
}

// Stats summarizes the store's current contents (spec §4.5 stats).
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			st.Total++
			st.TotalSize += rec.Meta.StoredSize
			if rec.Meta.StorageMode == types.StorageInline {
				st.InlineCount++
			} else {
				st.ExternalCount++
			}
			if rec.Meta.Compression != types.CompressionNone && rec.Meta.Compression != "" {
				st.CompressedCount++
			}
			return nil
		})
	})
	return st, err
}

func (s *Store) compressZstd(data []byte) ([]byte, error) {
	level := zstd.SpeedDefault
	if s.compressionLevel > 0 {
		level = zstd.EncoderLevelFromZstd(s.compressionLevel)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "init zstd encoder", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "init zstd decoder", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "zstd decode", err)
	}
	return out, nil
}
