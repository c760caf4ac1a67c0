/*
Package types defines the core data structures shared by the storage
engine and the EDGAR ingest pipeline.

This package contains all fundamental types that represent the
domain model: named time series, individual observations (possibly
revised), content-addressed blobs holding raw XBRL artifacts, SEC
filings, their taxonomy (DTS) references, and durable work-queue
items. These types are used by every other package for persistence,
read/write APIs, and pipeline orchestration.

# Architecture

The types package is the foundation of the data model. It defines:

  - Series metadata and per-series coverage summaries
  - Data points, including revision history
  - Blob storage metadata (inline vs. external, compression, integrity)
  - Filings and their processing state machine
  - DTS (taxonomy) references discovered during filing processing
  - Work queue items and their lifecycle states

All types are designed to be:
  - Serializable (JSON, and via pkg/codec's binary columnar format for
    DataPoint in bulk)
  - Self-documenting (clear field names and doc comments)
  - Validated (constants for enums, validation helpers on the type
    itself where the invariant is local)

# Core Types

The main types in this package are:

Series & Data:
  - Series: A named, frequency-tagged time series
  - Frequency: Daily, weekly, monthly, quarterly, annual, or other
  - DataPoint: A single observation, possibly a revision of a prior
    release
  - Coverage: Per-series summary (date range, point count, file paths)
  - SeriesRecord: The catalog's unit of storage (Series + Coverage)
  - ReadMode: Selects latest/original/all records for a date in
    read_points

Blob Storage:
  - Blob: Opaque, content-addressed, optionally compressed bytes
  - CompressionCode: none, zstd, lz4, or gzip
  - StorageMode: inline (in the metadata store) or external (on disk,
    content-addressed by sha256)
  - LogicalRole: xbrl_instance, xbrl_schema, or xbrl_linkbase
  - ProcessingStatus: pending, complete, or failed verification

Filings & Taxonomy:
  - Filing: A single SEC EDGAR submission
  - FilingState: pending, downloading, downloaded, parsing, processed,
    or failed
  - DTSReference: Links a filing's instance document to one taxonomy
    component (schema or linkbase)
  - DTSReferenceType, DTSSourceType, DTSFileType: classify a taxonomy
    reference by role, namespace, and file kind

Work Queue:
  - WorkItem: A durable unit of ingest work
  - WorkItemStatus: pending, processing, completed, failed, or
    retrying

# Usage

Creating a Series:

	series := &types.Series{
		SeriesID:   uuid.New().String(),
		SourceID:   "sec-edgar",
		ExternalID: "0000320193:Revenues",
		Title:      "Apple Inc. Revenues",
		Frequency:  types.FrequencyQuarterly,
		IsActive:   true,
	}

Appending a DataPoint:

	point := types.DataPoint{
		PointID:           uuid.New().String(),
		SeriesID:          series.SeriesID,
		Date:              types.NewDate(2026, 6, 30),
		Value:             ptrFloat64(94836000000),
		RevisionDate:      types.NewDate(2026, 7, 30),
		IsOriginalRelease: true,
	}

Recording a Blob:

	blob := &types.Blob{
		BlobID:      uuid.New().String(),
		LogicalRole: types.RoleXbrlInstance,
		Compression: types.CompressionZstd,
		StorageMode: types.StorageExternal,
		SHA256:      sha256Hex,
	}

Enqueuing ingest work:

	itemID, err := q.Enqueue(types.WorkItem{
		Source:   "edgar",
		TargetID: "0000320193",
		Priority: 5,
	})

# State Machines

Filings follow a state machine (see pkg/filingpipeline):

	Pending → Downloading → Downloaded → Parsing → Processed
	            ↓              ↓            ↓
	          Failed         Failed       Failed

Work items follow a state machine (see pkg/queue):

	Pending → Processing → Completed
	             ↓
	          Retrying → Pending (once scheduled_for is reached)
	             ↓
	          Failed (once max_retries is exhausted)

# Design Patterns

Enumeration Pattern:

	All enums use typed string constants for safety and clarity:
	  type FilingState string
	  const (
	      FilingPending   FilingState = "pending"
	      FilingProcessed FilingState = "processed"
	  )

Optional Fields:

	Optional values use pointers so "absent" is distinguishable from
	the zero value:
	  - *Date: nil = no start/end bound known
	  - *time.Time: nil = not yet started/completed/locked
	  - *float64: nil = a scheduled release with no value reported yet

# Integration Points

This package is used by:

  - pkg/catalog: persists SeriesRecord (Series + Coverage) as JSON
  - pkg/engine: reads/writes DataPoint through pkg/codec's columnar
    files, keyed by Series
  - pkg/blobstore: persists Blob metadata and bytes
  - pkg/fetcher: fetches the bytes later wrapped into a Blob
  - pkg/edgar: parses EDGAR's submissions JSON and instance documents
    into its own FilingInfo and discovered-reference records
  - pkg/filingpipeline: builds Filing/DTSReference values from those
    records and drives them through their state machines
  - pkg/queue: persists and leases WorkItem

# Validation

Key validation rules:

Series:
  - (source_id, external_id) must be unique (enforced by pkg/catalog,
    which owns the index needed to detect a collision)
  - start_date must be <= end_date when both are set (Series.Validate)

DataPoint:
  - (series_id, date, revision_date) must be unique within a series

Blob:
  - sha256 must match the stored bytes (verified by pkg/blobstore on
    read)

WorkItem:
  - retry_count must not exceed max_retries before the item is marked
    Failed

# Thread Safety

Types in this package are plain data: read-safe from multiple
goroutines, write-unsafe without external synchronization. pkg/engine
and pkg/queue own the locking needed around mutation of persisted
state; callers must not mutate a value handed back by a Get/Read call
while another goroutine might be reading it.

# See Also

  - pkg/catalog for Series/Coverage persistence
  - pkg/codec for the binary columnar format DataPoint is read/written
    through in bulk
  - pkg/queue for WorkItem lease/complete/fail/reap semantics
*/
package types
