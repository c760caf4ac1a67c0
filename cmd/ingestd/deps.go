package main

import (
	"fmt"
	"time"

	"github.com/econdata/tsengine/pkg/blobstore"
	"github.com/econdata/tsengine/pkg/config"
	"github.com/econdata/tsengine/pkg/edgar"
	"github.com/econdata/tsengine/pkg/fetcher"
	"github.com/econdata/tsengine/pkg/filingpipeline"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/metrics"
	"github.com/econdata/tsengine/pkg/queue"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/spf13/cobra"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Config{}, fmt.Errorf("--config is required")
	}
	return config.Load(path)
}

func blobCompression(cfg config.Config) types.CompressionCode {
	if cfg.Blob.CompressionEnabled {
		return types.CompressionZstd
	}
	return types.CompressionNone
}

func openBlobstore(cfg config.Config) (*blobstore.Store, error) {
	return blobstore.Open(blobstore.Config{
		DataDir:            cfg.DataRoot + "/blobs",
		MaxInlineBytes:     cfg.Blob.MaxInlineBytes,
		CompressionEnabled: cfg.Blob.CompressionEnabled,
		Compression:        blobCompression(cfg),
		CompressionLevel:   cfg.Blob.CompressionLevel,
	})
}

func openQueue(cfg config.Config) (*queue.Queue, error) {
	return queue.Open(cfg.DataRoot+"/queue.db", queue.Config{})
}

// fetcherObserver wires the fetcher's observability hooks to pkg/metrics.
func fetcherObserver() fetcher.Observer {
	return fetcher.Observer{
		OnRequest: func(origin, endpoint string, status int, dur time.Duration) {
			metrics.FetchRequestsTotal.WithLabelValues(statusClass(status)).Inc()
			metrics.FetchDuration.Observe(dur.Seconds())
		},
		OnBytes: func(origin string, n int) {
			metrics.FetchBytesTotal.Add(float64(n))
		},
		OnRateLimit: func(origin string) {
			metrics.FetchRateLimitedTotal.Inc()
		},
		OnRetry: func(origin string, attempt int) {
			metrics.FetchRetriesTotal.Inc()
		},
		OnTimeout: func(origin string) {
			metrics.FetchTimeoutsTotal.Inc()
		},
		OnError: func(origin string, kind xerrors.Kind) {
			log.WithComponent("fetcher").Warn().Str("kind", string(kind)).Msg("fetch error")
		},
	}
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "transport_error"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func newFetcher(cfg config.Config) *fetcher.Fetcher {
	return fetcher.New("sec-edgar", fetcher.Config{
		MaxRequestsPerSecond: cfg.Fetcher.MaxRequestsPerSecond,
		PerRequestTimeout:    cfg.Fetcher.PerRequestTimeout(),
		MaxRetries:           cfg.Fetcher.MaxRetries,
		Concurrency:          cfg.Fetcher.MaxConcurrentRequests,
		UserAgent:            cfg.Fetcher.UserAgent,
	}, fetcherObserver())
}

func newPipeline(cfg config.Config, fetch *fetcher.Fetcher, blobs *blobstore.Store, filings *filingpipeline.FilingStore) (*filingpipeline.Pipeline, error) {
	startDate, err := cfg.Pipeline.StartDateValue()
	if err != nil {
		return nil, err
	}
	endDate, err := cfg.Pipeline.EndDateValue()
	if err != nil {
		return nil, err
	}
	return filingpipeline.New(edgar.SECOrigin{}, fetch, blobs, filings, filingpipeline.Config{
		FormTypes:        cfg.FormTypeSet(),
		StartDate:        startDate,
		EndDate:          endDate,
		MaxFileSizeBytes: cfg.Pipeline.MaxFileSizeBytes,
	}), nil
}
