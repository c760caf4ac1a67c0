package main

import (
	"context"
	"fmt"

	"github.com/econdata/tsengine/pkg/filingpipeline"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest CIK [CIK...]",
	Short: "Run the filing pipeline once for one or more issuer CIKs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	blobs, err := openBlobstore(cfg)
	if err != nil {
		return fmt.Errorf("open blobstore: %w", err)
	}
	defer blobs.Close()

	filings, err := filingpipeline.OpenFilingStore(cfg.DataRoot + "/filings")
	if err != nil {
		return fmt.Errorf("open filing store: %w", err)
	}
	defer filings.Close()

	fetch := newFetcher(cfg)
	pipe, err := newPipeline(cfg, fetch, blobs, filings)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	results := pipe.RunBatch(context.Background(), args)

	var failed int
	for _, r := range results {
		log.WithComponent("ingest").Info().
			Str("issuer", r.IssuerID).
			Int("processed", len(r.Filings)).
			Msg("issuer ingest complete")
		for _, f := range r.Filings {
			if f.Err != nil {
				failed++
				log.WithComponent("ingest").Warn().
					Str("issuer", r.IssuerID).
					Str("accession", f.Filing.AccessionNumber).
					Err(f.Err).
					Msg("filing failed")
			}
		}
	}

	fmt.Printf("ingest complete: %d issuer(s), %d filing failure(s)\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d filing(s) failed", failed)
	}
	return nil
}
