package filingpipeline

import (
	"encoding/json"
	"path/filepath"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketFilings = []byte("filings")
	bucketDTS     = []byte("dts_references")
)

// FilingStore is the durable record of Filing and DTSReference state,
// bbolt-backed on the same pattern as pkg/blobstore and pkg/queue
// (spec §4.7 step 5, §4.7.1).
type FilingStore struct {
	db *bolt.DB
}

// OpenFilingStore initializes (or reopens) a filing store rooted at dir.
func OpenFilingStore(dir string) (*FilingStore, error) {
	db, err := bolt.Open(filepath.Join(dir, "filings.db"), 0o600, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open filings db", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketFilings); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketDTS)
		return err
	}); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.Transport, "create filing buckets", err)
	}
	return &FilingStore{db: db}, nil
}

// Close closes the underlying database.
func (s *FilingStore) Close() error { return s.db.Close() }

// PutFiling upserts a filing record.
func (s *FilingStore) PutFiling(f types.Filing) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(f)
		if err != nil {
			return xerrors.Wrap(xerrors.Invalid, "marshal filing", err)
		}
		return tx.Bucket(bucketFilings).Put([]byte(f.AccessionNumber), data)
	})
}

// GetFiling returns a filing record by accession number.
func (s *FilingStore) GetFiling(accession string) (types.Filing, error) {
	var f types.Filing
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketFilings).Get([]byte(accession))
		if data == nil {
			return xerrors.Newf(xerrors.NotFound, "filing %q not found", accession)
		}
		return json.Unmarshal(data, &f)
	})
	return f, err
}

// ListFilings returns every filing recorded for issuerID (CIK).
func (s *FilingStore) ListFilings(issuerID string) ([]types.Filing, error) {
	var out []types.Filing
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFilings).ForEach(func(k, v []byte) error {
			var f types.Filing
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			if f.CIK == issuerID {
				out = append(out, f)
			}
			return nil
		})
	})
	return out, err
}

// PutDTSReferences appends refs for a filing's instance document.
func (s *FilingStore) PutDTSReferences(accession string, refs []types.DTSReference) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketDTS)
		existing, err := getDTS(b, accession)
		if err != nil {
			return err
		}
		merged := append(existing, refs...)
		data, err := json.Marshal(merged)
		if err != nil {
			return xerrors.Wrap(xerrors.Invalid, "marshal dts references", err)
		}
		return b.Put([]byte(accession), data)
	})
}

func getDTS(b *bolt.Bucket, accession string) ([]types.DTSReference, error) {
	data := b.Get([]byte(accession))
	if data == nil {
		return nil, nil
	}
	var refs []types.DTSReference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "unmarshal dts references", err)
	}
	return refs, nil
}

// GetDTSReferences returns every DTS reference recorded for accession.
func (s *FilingStore) GetDTSReferences(accession string) ([]types.DTSReference, error) {
	var out []types.DTSReference
	err := s.db.View(func(tx *bolt.Tx) error {
		refs, err := getDTS(tx.Bucket(bucketDTS), accession)
		out = refs
		return err
	})
	return out, err
}
