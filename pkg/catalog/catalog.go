// Package catalog is the durable index of known series: metadata,
// coverage, and the external_id / date-range lookups the storage
// engine needs before it can enumerate partitions (spec §4.3).
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
)

const (
	catalogFileName = "catalog.json"
	indexFileName   = "index.json"
)

// document is the on-disk shape of catalog.json: every known series
// keyed by series_id.
type document struct {
	Series map[string]types.SeriesRecord `json:"series"`
}

// indexDocument is the on-disk shape of index.json: derived lookups
// kept up to date on every upsert and read back as stored on load (they
// are not rebuilt from document), so the file is human-inspectable on
// its own (spec §6.3).
type indexDocument struct {
	ExternalIndex map[string]string `json:"external_index"` // "source_id/external_id" -> series_id
}

// Stats is the summary returned by Catalog.Stats.
type Stats struct {
	TotalSeries int64      `json:"total_series"`
	TotalPoints int64      `json:"total_points"`
	Earliest    *types.Date `json:"earliest,omitempty"`
	Latest      *types.Date `json:"latest,omitempty"`
	LastUpdated time.Time  `json:"last_updated"`
}

// ValidationReport is the result of Catalog.Validate.
type ValidationReport struct {
	MissingFiles  []string `json:"missing_files"`
	OrphanedFiles []string `json:"orphaned_files"`
	Errors        []string `json:"errors"`
}

// Catalog is a single-writer-per-process, JSON-backed series index.
// All mutating operations hold mu for their full duration, matching
// spec §4.3's "concurrent writers MUST serialize updates" requirement.
type Catalog struct {
	mu   sync.RWMutex
	dir  string
	doc  document
	idx  indexDocument
}

// Open loads (or initializes) the catalog rooted at dir, creating dir
// and empty documents if none exist yet.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.Invalid, "create catalog dir", err)
	}
	c := &Catalog{
		dir: dir,
		doc: document{Series: map[string]types.SeriesRecord{}},
		idx: indexDocument{ExternalIndex: map[string]string{}},
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load() error {
	if err := readJSONIfExists(filepath.Join(c.dir, catalogFileName), &c.doc); err != nil {
		return xerrors.Wrap(xerrors.Corrupt, "load catalog.json", err)
	}
	if c.doc.Series == nil {
		c.doc.Series = map[string]types.SeriesRecord{}
	}
	if err := readJSONIfExists(filepath.Join(c.dir, indexFileName), &c.idx); err != nil {
		return xerrors.Wrap(xerrors.Corrupt, "load index.json", err)
	}
	if c.idx.ExternalIndex == nil {
		c.idx.ExternalIndex = map[string]string{}
	}
	return nil
}

func readJSONIfExists(path string, v any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// persist writes both documents atomically (write-temp-then-rename),
// grounded on the teacher's crash-safe BoltDB persistence idiom
// generalized to plain files since spec §6.3 mandates human-readable
// JSON here rather than a binary KV store.
func (c *Catalog) persist() error {
	if err := atomicWriteJSON(filepath.Join(c.dir, catalogFileName), c.doc); err != nil {
		return xerrors.Wrap(xerrors.Transport, "persist catalog.json", err)
	}
	if err := atomicWriteJSON(filepath.Join(c.dir, indexFileName), c.idx); err != nil {
		return xerrors.Wrap(xerrors.Transport, "persist index.json", err)
	}
	return nil
}

func atomicWriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func externalKey(sourceID, externalID string) string {
	return sourceID + "/" + externalID
}

// UpsertSeries creates or overwrites a series' metadata, updating the
// external_id index. It does not touch Coverage for an existing
// record.
func (c *Catalog) UpsertSeries(meta types.Series) error {
	if err := meta.Validate(); err != nil {
		return xerrors.Wrap(xerrors.Invalid, "validate series", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, had := c.doc.Series[meta.SeriesID]
	rec := types.SeriesRecord{Meta: meta, Coverage: existing.Coverage}
	if !had {
		rec.Coverage = types.Coverage{}
	}
	c.doc.Series[meta.SeriesID] = rec
	c.idx.ExternalIndex[externalKey(meta.SourceID, meta.ExternalID)] = meta.SeriesID

	if err := c.persist(); err != nil {
		return err
	}
	log.WithSeriesID(meta.SeriesID).Debug().Bool("existed", had).Msg("catalog upsert_series")
	return nil
}

// GetSeries returns the full record for series_id.
func (c *Catalog) GetSeries(seriesID string) (types.SeriesRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.doc.Series[seriesID]
	if !ok {
		return types.SeriesRecord{}, xerrors.Newf(xerrors.NotFound, "series %q not found", seriesID)
	}
	return rec, nil
}

// FindByExternal resolves (source_id, external_id) to a series record.
func (c *Catalog) FindByExternal(sourceID, externalID string) (types.SeriesRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seriesID, ok := c.idx.ExternalIndex[externalKey(sourceID, externalID)]
	if !ok {
		return types.SeriesRecord{}, xerrors.Newf(xerrors.NotFound, "external_id %q/%q not found", sourceID, externalID)
	}
	rec, ok := c.doc.Series[seriesID]
	if !ok {
		return types.SeriesRecord{}, xerrors.Newf(xerrors.Corrupt, "index points at missing series_id %q", seriesID)
	}
	return rec, nil
}

// ListSeries returns every known series record, ordered by series_id
// for deterministic output.
func (c *Catalog) ListSeries() []types.SeriesRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.SeriesRecord, 0, len(c.doc.Series))
	for _, rec := range c.doc.Series {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta.SeriesID < out[j].Meta.SeriesID })
	return out
}

// UpdateCoverage applies a coverage delta after a successful engine
// write: widens [start,end] to include the new range, adds pointsAdded
// to the running total, and appends fileAdded to the file list
// (deduplicated).
func (c *Catalog) UpdateCoverage(seriesID string, start, end types.Date, pointsAdded int64, fileAdded string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.doc.Series[seriesID]
	if !ok {
		return xerrors.Newf(xerrors.NotFound, "series %q not found", seriesID)
	}
	cov := rec.Coverage
	if cov.StartDate == nil || start.Before(*cov.StartDate) {
		s := start
		cov.StartDate = &s
	}
	if cov.EndDate == nil || end.After(*cov.EndDate) {
		e := end
		cov.EndDate = &e
	}
	cov.TotalPoints += pointsAdded
	if fileAdded != "" && !containsString(cov.FilePaths, fileAdded) {
		cov.FilePaths = append(cov.FilePaths, fileAdded)
	}
	cov.LastUpdated = time.Now().UTC()
	rec.Coverage = cov
	c.doc.Series[seriesID] = rec
	return c.persist()
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// FindByDateRange returns every series whose coverage overlaps
// [start, end], scanning the in-memory index ordered by start_date
// (spec §4.3's documented overlap-scan algorithm).
func (c *Catalog) FindByDateRange(start, end types.Date) []types.Series {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := make([]types.SeriesRecord, 0, len(c.doc.Series))
	for _, rec := range c.doc.Series {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		si, sj := recs[i].Coverage.StartDate, recs[j].Coverage.StartDate
		if si == nil {
			return sj != nil
		}
		if sj == nil {
			return false
		}
		return si.Before(*sj)
	})

	var out []types.Series
	for _, rec := range recs {
		cs := rec.Coverage.StartDate
		ce := rec.Coverage.EndDate
		if cs == nil || ce == nil {
			continue
		}
		if cs.After(end) {
			break
		}
		if ce.Before(start) {
			continue
		}
		out = append(out, rec.Meta)
	}
	return out
}

// Stats summarizes the catalog's current contents.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{TotalSeries: int64(len(c.doc.Series))}
	for _, rec := range c.doc.Series {
		st.TotalPoints += rec.Coverage.TotalPoints
		if rec.Coverage.StartDate != nil && (st.Earliest == nil || rec.Coverage.StartDate.Before(*st.Earliest)) {
			d := *rec.Coverage.StartDate
			st.Earliest = &d
		}
		if rec.Coverage.EndDate != nil && (st.Latest == nil || rec.Coverage.EndDate.After(*st.Latest)) {
			d := *rec.Coverage.EndDate
			st.Latest = &d
		}
		if rec.Coverage.LastUpdated.After(st.LastUpdated) {
			st.LastUpdated = rec.Coverage.LastUpdated
		}
	}
	return st
}

// Validate cross-checks every series' coverage file list against
// dataRoot's filesystem contents, reporting files the catalog believes
// exist but does not (missing) and series data files on disk that no
// coverage entry references (orphaned).
func (c *Catalog) Validate(dataRoot string) ValidationReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var report ValidationReport
	referenced := map[string]bool{}
	for _, rec := range c.doc.Series {
		for _, rel := range rec.Coverage.FilePaths {
			referenced[rel] = true
			abs := filepath.Join(dataRoot, rel)
			if _, err := os.Stat(abs); err != nil {
				report.MissingFiles = append(report.MissingFiles, rel)
			}
		}
	}

	err := filepath.WalkDir(dataRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dataRoot, path)
		if relErr != nil {
			return nil
		}
		if !referenced[rel] {
			report.OrphanedFiles = append(report.OrphanedFiles, rel)
		}
		return nil
	})
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
	}

	sort.Strings(report.MissingFiles)
	sort.Strings(report.OrphanedFiles)
	return report
}
