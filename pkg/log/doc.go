/*
Package log provides structured logging for the ingest daemon using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific and entity-specific child loggers, a configurable log
level, and helper functions for common logging patterns. All logs include
timestamps and support filtering by severity level for production
debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Entity Loggers                      │          │
	│  │  - WithComponent("queue")                   │          │
	│  │  - WithSeriesID("series-abc123")            │          │
	│  │  - WithBlobID("blob-xyz789")                │          │
	│  │  - WithCIK("0000320193")                    │          │
	│  │  - WithAccession("0000320193-24-000010")    │          │
	│  │  - WithWorkItemID("item-def456")            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "queue",                    │          │
	│  │    "time": "2026-07-31T10:30:00Z",          │          │
	│  │    "message": "reaped expired leases"        │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF reaped expired leases component=queue │    │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init(), or lazily with sane defaults by
    this package's own init() so tests and libraries can log before
    cmd/ingestd ever calls Init
  - Accessible from every package in this module

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Entity Loggers:
  - WithComponent: tag logs with a subsystem name (fetcher, queue,
    ingestd, ...)
  - WithSeriesID: tag logs with the catalog series_id a write/read
    touches
  - WithBlobID: tag logs with the blob_id a blob store operation
    touches
  - WithCIK: tag logs with the issuer CIK a filing pipeline run
    touches
  - WithAccession: tag logs with the SEC accession number a filing
    belongs to
  - WithWorkItemID: tag logs with the work queue item_id being
    leased/completed/failed

# Usage

Initializing the Logger:

	import "github.com/econdata/tsengine/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

Simple Logging:

	log.Info("catalog loaded")
	log.Debug("checking queue depth")
	log.Warn("fetch retried after 503")
	log.Error("blob integrity check failed")
	log.Fatal("cannot start without catalog root") // exits process

Structured Logging:

	log.Logger.Info().
		Str("series_id", seriesID).
		Int("points", len(points)).
		Msg("wrote partition")

	log.Logger.Error().
		Err(err).
		Str("blob_id", blobID).
		Msg("blob integrity check failed")

Entity Loggers:

	seriesLog := log.WithSeriesID(seriesID)
	seriesLog.Info().Msg("coverage updated")

	filingLog := log.WithCIK(cik).With().Str("accession", accession).Logger()
	filingLog.Warn().Err(err).Msg("DTS reference failed to resolve")

# Integration Points

This package is used by:

  - pkg/catalog: series upsert/coverage logging
  - pkg/engine: partition write/read logging via WithSeriesID
  - pkg/fetcher: request/retry/timeout logging via WithComponent("fetcher")
  - pkg/filingpipeline: oversized-filing warnings via WithAccession
  - pkg/queue: enqueue/lease logging via WithWorkItemID, reap logging
    via WithComponent("queue")

pkg/blobstore does not log.
  - cmd/ingestd: daemon lifecycle logging via WithComponent("ingestd")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing a logger through
    every constructor

Entity Logger Pattern:
  - Create child loggers scoped to one series/blob/CIK/work item
  - Pass the child logger down instead of repeating the field at
    every call site

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Parseable by log aggregation tools instead of string concatenation

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Scope logs to the series/blob/CIK/work item they're about
  - Log errors with .Err() to keep the error chain intact

Don't:
  - Log secrets (none should ever flow through this package, since
    request credentials live only in pkg/fetcher's HTTP client)
  - Use Debug level in production
  - Concatenate strings into the message instead of using .Str/.Int

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
