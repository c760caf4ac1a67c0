// Package engine is the storage engine (C4): it owns the mapping from
// (series_id, date range) to partitioned codec files on disk, using
// pkg/catalog for coverage bookkeeping and pkg/codec for the on-disk
// row format (spec §4.4).
package engine

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/econdata/tsengine/pkg/codec"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/partition"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/google/uuid"
)

const dataFileExt = "tsc"

// lockStripes bounds the number of per-series mutexes held at once;
// each series hashes to one stripe, so unrelated series contend only
// when their ids land on the same stripe (spec §4.4 "reading never
// blocks writing of other series"), generalizing the teacher's single
// coarse resource lock into a sharded one.
const lockStripes = 256

// Engine is the storage engine over a single data root directory.
type Engine struct {
	root             string
	cat              *catalog.Catalog
	compression      types.CompressionCode
	compressionLevel int
	locks            [lockStripes]sync.RWMutex
}

// New returns an Engine rooted at root, using cat for series metadata
// and coverage, compressing new partition files with compression at
// compressionLevel (spec §6.4 blob.compression_level; <= 0 means the
// zstd library's default tier).
func New(root string, cat *catalog.Catalog, compression types.CompressionCode, compressionLevel int) *Engine {
	return &Engine{root: root, cat: cat, compression: compression, compressionLevel: compressionLevel}
}

func (e *Engine) lockFor(seriesID string) *sync.RWMutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seriesID))
	return &e.locks[h.Sum32()%lockStripes]
}

// WriteSeries upserts a series' metadata via the catalog.
func (e *Engine) WriteSeries(meta types.Series) error {
	return e.cat.UpsertSeries(meta)
}

// ListSeries returns every known series from the catalog.
func (e *Engine) ListSeries() []types.SeriesRecord {
	return e.cat.ListSeries()
}

// WritePoints routes points to their date partitions, merging each
// partition's points into the (possibly pre-existing) per-series file
// there, deduplicating on (series_id, date, revision_date), and
// emitting a coverage delta to the catalog once the write lands
// (spec §4.4).
func (e *Engine) WritePoints(seriesID string, points []types.DataPoint) error {
	if len(points) == 0 {
		return nil
	}
	lock := e.lockFor(seriesID)
	lock.Lock()
	defer lock.Unlock()

	byDate := map[types.Date][]types.DataPoint{}
	for _, p := range points {
		if p.SeriesID == "" {
			p.SeriesID = seriesID
		}
		byDate[p.Date] = append(byDate[p.Date], p)
	}

	dates := make([]types.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		relPath := partition.SeriesFilePath(d, seriesID, dataFileExt)
		absPath := filepath.Join(e.root, relPath)
		merged, err := e.mergePartition(absPath, byDate[d])
		if err != nil {
			return err
		}
		if err := e.writePartitionAtomic(absPath, merged); err != nil {
			return err
		}

		log.WithSeriesID(seriesID).Debug().Str("partition", relPath).Int("rows", len(merged)).Msg("engine write_points partition")

		if err := e.cat.UpdateCoverage(seriesID, d, d, int64(len(byDate[d])), relPath); err != nil {
			return err
		}
	}

	return nil
}

// mergePartition reads the existing file at absPath (if any), merges
// in incoming, deduplicating on (date, revision_date) with incoming
// winning ties (idempotent re-publication, spec §4.4), and returns the
// full sorted point set for the partition.
func (e *Engine) mergePartition(absPath string, incoming []types.DataPoint) ([]types.DataPoint, error) {
	existing, err := e.readPartitionFile(absPath)
	if err != nil && xerrors.KindOf(err) != xerrors.NotFound {
		return nil, err
	}

	type key struct {
		date         types.Date
		revisionDate types.Date
	}
	merged := map[key]types.DataPoint{}
	for _, p := range existing {
		merged[key{p.Date, p.RevisionDate}] = p
	}
	for _, p := range incoming {
		merged[key{p.Date, p.RevisionDate}] = p
	}

	out := make([]types.DataPoint, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].RevisionDate.Before(out[j].RevisionDate)
	})
	return out, nil
}

func (e *Engine) readPartitionFile(absPath string) ([]types.DataPoint, error) {
	f, err := os.Open(absPath)
	if os.IsNotExist(err) {
		return nil, xerrors.New(xerrors.NotFound, "partition file not found")
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open partition file", err)
	}
	defer f.Close()

	r, err := codec.NewReader(f)
	if err != nil {
		return nil, err
	}
	batches, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []types.DataPoint
	for _, b := range batches {
		out = append(out, batchToPoints(b)...)
	}
	return out, nil
}

func (e *Engine) writePartitionAtomic(absPath string, points []types.DataPoint) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return xerrors.Wrap(xerrors.Invalid, "create partition dir", err)
	}
	tmp := absPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerrors.Wrap(xerrors.Transport, "create temp partition file", err)
	}

	w := codec.NewWriter(f, codec.DataPointsSchema, e.compression)
	w.SetCompressionLevel(e.compressionLevel)
	batch := pointsToBatch(points)
	if err := w.WriteBatch(batch); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.Wrap(xerrors.Transport, "flush partition file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return xerrors.Wrap(xerrors.Transport, "close partition file", err)
	}
	if err := os.Rename(tmp, absPath); err != nil {
		return xerrors.Wrap(xerrors.Transport, "rename partition file into place", err)
	}
	return nil
}

// PartialReadError records a single partition file the engine could
// not decode while reading, without aborting the rest of the scan
// (spec §4.4 "tolerates and hides codec-level Corrupt... MUST NOT
// silently drop data").
type PartialReadError struct {
	Path string
	Err  error
}

func (e *PartialReadError) Error() string {
	return "partition " + e.Path + ": " + e.Err.Error()
}

func (e *PartialReadError) Unwrap() error { return e.Err }

// ReadPoints reads every point for seriesID in [start, end] (either
// bound may be nil for open-ended), filters/orders per mode, and
// returns any per-partition decode errors alongside the points it
// could recover.
func (e *Engine) ReadPoints(seriesID string, start, end *types.Date, mode types.ReadMode) ([]types.DataPoint, []*PartialReadError, error) {
	lock := e.lockFor(seriesID)
	lock.RLock()
	defer lock.RUnlock()

	rec, err := e.cat.GetSeries(seriesID)
	if err != nil {
		if xerrors.KindOf(err) == xerrors.NotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if rec.Coverage.StartDate == nil || rec.Coverage.EndDate == nil {
		return nil, nil, nil
	}

	qs, qe := partition.Clamp(start, end, rec.Coverage.StartDate, rec.Coverage.EndDate)
	if qs == nil || qe == nil {
		return nil, nil, nil
	}

	var all []types.DataPoint
	var partialErrs []*PartialReadError
	for _, d := range partition.Range(qs, qe) {
		absPath := filepath.Join(e.root, partition.SeriesFilePath(d, seriesID, dataFileExt))
		pts, err := e.readPartitionFile(absPath)
		if err != nil {
			if xerrors.KindOf(err) == xerrors.NotFound {
				continue
			}
			partialErrs = append(partialErrs, &PartialReadError{Path: absPath, Err: err})
			continue
		}
		all = append(all, pts...)
	}

	filtered := all[:0:0]
	for _, p := range all {
		if (start != nil && p.Date.Before(*start)) || (end != nil && p.Date.After(*end)) {
			continue
		}
		filtered = append(filtered, p)
	}

	out := applyMode(filtered, mode)
	return out, partialErrs, nil
}

// applyMode filters/dedupes points per spec §4.4 step 5 and orders the
// result ascending by date, then by the mode-relevant revision_date.
func applyMode(points []types.DataPoint, mode types.ReadMode) []types.DataPoint {
	var selected []types.DataPoint
	switch mode {
	case types.ModeAll:
		selected = points
	case types.ModeOriginal:
		for _, p := range points {
			if p.IsOriginalRelease {
				selected = append(selected, p)
			}
		}
	case types.ModeLatest:
		latest := map[types.Date]types.DataPoint{}
		for _, p := range points {
			cur, ok := latest[p.Date]
			if !ok || p.RevisionDate.After(cur.RevisionDate) {
				latest[p.Date] = p
			}
		}
		for _, p := range latest {
			selected = append(selected, p)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].Date.Equal(selected[j].Date) {
			return selected[i].Date.Before(selected[j].Date)
		}
		return selected[i].RevisionDate.Before(selected[j].RevisionDate)
	})
	return selected
}

func pointsToBatch(points []types.DataPoint) *codec.Batch {
	b := codec.NewBatch(codec.DataPointsSchema, len(points))
	for i, p := range points {
		pointID := p.PointID
		if pointID == "" {
			pointID = uuid.New().String()
		}
		_ = b.SetUtf8("id", i, pointID, false)
		_ = b.SetUtf8("series_id", i, p.SeriesID, false)
		_ = b.SetInt32("date", i, p.Date.DaysSinceEpoch(), false)
		if p.Value == nil {
			_ = b.SetFloat64("value", i, 0, true)
		} else {
			_ = b.SetFloat64("value", i, *p.Value, false)
		}
		_ = b.SetInt32("revision_date", i, p.RevisionDate.DaysSinceEpoch(), false)
		_ = b.SetBool("is_original_release", i, p.IsOriginalRelease, false)
		_ = b.SetTimestamp("created_at", i, p.CreatedAt, false)
		_ = b.SetTimestamp("updated_at", i, p.UpdatedAt, false)
	}
	return b
}

func batchToPoints(b *codec.Batch) []types.DataPoint {
	out := make([]types.DataPoint, b.Rows)
	for i := 0; i < b.Rows; i++ {
		p := types.DataPoint{
			PointID:           b.Utf8At("id", i),
			SeriesID:          b.Utf8At("series_id", i),
			Date:              types.DateFromEpochDays(b.Int32At("date", i)),
			RevisionDate:      types.DateFromEpochDays(b.Int32At("revision_date", i)),
			IsOriginalRelease: b.BoolAt("is_original_release", i),
			CreatedAt:         b.TimestampAt("created_at", i),
			UpdatedAt:         b.TimestampAt("updated_at", i),
		}
		if !b.IsNull("value", i) {
			v := b.Float64At("value", i)
			p.Value = &v
		}
		out[i] = p
	}
	return out
}
