// Package types defines the domain entities shared by the storage engine
// and the EDGAR ingest pipeline (spec §3).
package types

import "time"

// Frequency is the sampling cadence of a Series.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyOther     Frequency = "other"
)

// Series is a named, frequency-tagged time series (spec §3 "Series (S)").
type Series struct {
	SeriesID           string    `json:"series_id"`
	SourceID           string    `json:"source_id"`
	ExternalID         string    `json:"external_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Units              string    `json:"units,omitempty"`
	Frequency          Frequency `json:"frequency"`
	SeasonalAdjustment string    `json:"seasonal_adjustment,omitempty"`
	StartDate          *Date     `json:"start_date,omitempty"`
	EndDate            *Date     `json:"end_date,omitempty"`
	IsActive           bool      `json:"is_active"`
	// InternalNotes carries the original catalog's free-text
	// administrative annotation; the engine never interprets it.
	InternalNotes string    `json:"internal_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate enforces invariant I2 (start_date <= end_date when both set).
// Uniqueness of (source_id, external_id) (I1) is enforced by the catalog,
// which owns the index needed to detect a collision.
func (s *Series) Validate() error {
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return errInvalidDateRange
	}
	return nil
}

// DataPoint is a single observation, possibly a revision of a prior
// release (spec §3 "DataPoint (P)").
type DataPoint struct {
	PointID           string    `json:"point_id"`
	SeriesID          string    `json:"series_id"`
	Date              Date      `json:"date"`
	Value             *float64  `json:"value"`
	RevisionDate      Date      `json:"revision_date"`
	IsOriginalRelease bool      `json:"is_original_release"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ReadMode selects which records read_points yields for a given date
// (spec §4.4).
type ReadMode int

const (
	ModeLatest ReadMode = iota
	ModeOriginal
	ModeAll
)

// Coverage is the per-series summary maintained by the catalog (spec §3
// "Coverage (CV)").
type Coverage struct {
	StartDate   *Date     `json:"start_date,omitempty"`
	EndDate     *Date     `json:"end_date,omitempty"`
	TotalPoints int64     `json:"total_points"`
	FilePaths   []string  `json:"file_paths"`
	LastUpdated time.Time `json:"last_updated"`
}

// SeriesRecord is the catalog's unit of storage: metadata plus coverage.
type SeriesRecord struct {
	Meta     Series   `json:"meta"`
	Coverage Coverage `json:"coverage"`
}

// CompressionCode names the compression applied to a blob or columnar
// file (spec §3 "Blob (B)").
type CompressionCode string

const (
	CompressionNone CompressionCode = "none"
	CompressionZstd CompressionCode = "zstd"
	CompressionLz4  CompressionCode = "lz4"
	CompressionGzip CompressionCode = "gzip"
)

// StorageMode is how a Blob's bytes are physically stored.
type StorageMode string

const (
	StorageInline   StorageMode = "inline"
	StorageExternal StorageMode = "external"
)

// LogicalRole classifies the contents of a stored XBRL artifact.
type LogicalRole string

const (
	RoleXbrlInstance LogicalRole = "xbrl_instance"
	RoleXbrlSchema   LogicalRole = "xbrl_schema"
	RoleXbrlLinkbase LogicalRole = "xbrl_linkbase"
)

// ProcessingStatus is the lifecycle state of a stored Blob's content
// verification/processing.
type ProcessingStatus string

const (
	ProcessingPending  ProcessingStatus = "pending"
	ProcessingComplete ProcessingStatus = "complete"
	ProcessingFailed   ProcessingStatus = "failed"
)

// Blob is opaque, content-addressed, optionally compressed bytes (spec
// §3 "Blob (B)").
type Blob struct {
	BlobID                string           `json:"blob_id"`
	LogicalRole           LogicalRole      `json:"logical_role"`
	OriginalSize          int64            `json:"original_size"`
	StoredSize            int64            `json:"stored_size"`
	Compression           CompressionCode  `json:"compression"`
	SHA256                string           `json:"sha256"`
	StorageMode           StorageMode      `json:"storage_mode"`
	SourceURL             string           `json:"source_url,omitempty"`
	ProcessingStatus      ProcessingStatus `json:"processing_status"`
	ProcessingError       string           `json:"processing_error,omitempty"`
	ProcessingStartedAt   *time.Time       `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time       `json:"processing_completed_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
}

// FilingState is the filing processing state machine (spec §4.7.1).
type FilingState string

const (
	FilingPending     FilingState = "pending"
	FilingDownloading FilingState = "downloading"
	FilingDownloaded  FilingState = "downloaded"
	FilingParsing     FilingState = "parsing"
	FilingProcessed   FilingState = "processed"
	FilingFailed      FilingState = "failed"
)

// Filing is a single SEC EDGAR submission (spec §3 "Filing (F)").
type Filing struct {
	AccessionNumber   string   `json:"accession_number"`
	CIK               string   `json:"cik"`
	Company           string   `json:"company"`
	Form              string   `json:"form"`
	FilingDate        Date     `json:"filing_date"`
	PeriodEndDate     *Date    `json:"period_end_date,omitempty"`
	FiscalYear        int      `json:"fiscal_year"`
	FiscalQuarter     int      `json:"fiscal_quarter,omitempty"`
	PrimaryBlobID     string   `json:"primary_blob_id,omitempty"`
	ReferencedBlobIDs []string `json:"referenced_blob_ids,omitempty"`
	// IsAmendment/AmendsAccession track restated filings (e.g. 10-K/A),
	// a feature present in original_source/crawler.rs that the
	// distillation dropped; see SPEC_FULL.md §3.
	IsAmendment           bool        `json:"is_amendment"`
	AmendsAccession       string      `json:"amends_accession,omitempty"`
	State                 FilingState `json:"state"`
	ProcessingError       string      `json:"processing_error,omitempty"`
	ProcessingStartedAt   *time.Time  `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time  `json:"processing_completed_at,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// DTSReferenceType distinguishes schemaRef from linkbaseRef elements.
type DTSReferenceType string

const (
	RefSchema   DTSReferenceType = "schema_ref"
	RefLinkbase DTSReferenceType = "linkbase_ref"
)

// DTSSourceType classifies a taxonomy component by namespace/path
// heuristics (spec §4.7 step 4).
type DTSSourceType string

const (
	SourceUsGaap          DTSSourceType = "us_gaap"
	SourceSecDei          DTSSourceType = "sec_dei"
	SourceFasbSrt         DTSSourceType = "fasb_srt"
	SourceIfrs            DTSSourceType = "ifrs"
	SourceCompanySpecific DTSSourceType = "company_specific"
)

// DTSFileType classifies a taxonomy component by contents/filename.
type DTSFileType string

const (
	FileSchema               DTSFileType = "schema"
	FileLabelLinkbase        DTSFileType = "label_linkbase"
	FilePresentationLinkbase DTSFileType = "presentation_linkbase"
	FileCalculationLinkbase  DTSFileType = "calculation_linkbase"
	FileDefinitionLinkbase   DTSFileType = "definition_linkbase"
)

// DTSReference links a filing's instance document to one taxonomy
// component (spec §3 "DTS Reference (R)").
type DTSReference struct {
	FilingAccession string           `json:"filing_accession"`
	ReferenceType   DTSReferenceType `json:"reference_type"`
	Href            string           `json:"href"`
	Role            string           `json:"role,omitempty"`
	Arcrole         string           `json:"arcrole,omitempty"`
	SourceType      DTSSourceType    `json:"source_type,omitempty"`
	FileType        DTSFileType      `json:"file_type,omitempty"`
	ResolvedBlobID  string           `json:"resolved_blob_id,omitempty"`
	IsResolved      bool             `json:"is_resolved"`
	ResolutionError string           `json:"resolution_error,omitempty"`
}

// WorkItemStatus is the lifecycle state of a queue item (spec §3 "Work
// Item (W)").
type WorkItemStatus string

const (
	WorkPending    WorkItemStatus = "pending"
	WorkProcessing WorkItemStatus = "processing"
	WorkCompleted  WorkItemStatus = "completed"
	WorkFailed     WorkItemStatus = "failed"
	WorkRetrying   WorkItemStatus = "retrying"
)

// WorkItem is a durable unit of ingest work (spec §3, §4.8).
type WorkItem struct {
	ItemID       string         `json:"item_id"`
	Source       string         `json:"source"`
	TargetID     string         `json:"target_id"`
	Priority     int32          `json:"priority"`
	Status       WorkItemStatus `json:"status"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	LockedBy     string         `json:"locked_by,omitempty"`
	LockedAt     *time.Time     `json:"locked_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	LastError    string         `json:"last_error,omitempty"`
	// Principal is an opaque authenticated-context capability the core
	// never introspects (spec §9 design notes, "permission enumerations").
	Principal  string    `json:"principal,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
