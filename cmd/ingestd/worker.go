package main

import (
	"context"
	"fmt"
	"time"

	"github.com/econdata/tsengine/pkg/filingpipeline"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var queueWorkerCmd = &cobra.Command{
	Use:   "queue-worker",
	Short: "Lease and process work items from the durable queue until it is empty",
	RunE:  runQueueWorker,
}

func init() {
	queueWorkerCmd.Flags().String("worker-id", "", "Worker identity for leases (default: a generated UUID)")
	queueWorkerCmd.Flags().Duration("lease-ttl", 10*time.Minute, "Lease TTL before an item is reapable")
}

func runQueueWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	workerID, _ := cmd.Flags().GetString("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()
	}
	leaseTTL, _ := cmd.Flags().GetDuration("lease-ttl")

	q, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer q.Close()

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

	ctx := context.Background()
	logger := log.WithComponent("queue-worker")

	reaped, err := q.ReapExpiredLeases(time.Now().UTC(), leaseTTL)
	if err != nil {
		return fmt.Errorf("reap expired leases: %w", err)
	}
	if reaped > 0 {
		logger.Info().Int("reaped", reaped).Msg("reaped expired leases")
	}

	processed := 0
	for {
		item, err := q.LeaseNext(workerID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("lease next: %w", err)
		}
		if item == nil {
			break
		}

		result := pipe.Run(ctx, item.TargetID)
		if result.Err != nil {
			if failErr := q.Fail(item.ItemID, result.Err, time.Now().UTC()); failErr != nil {
				return fmt.Errorf("mark item failed: %w", failErr)
			}
			logger.Warn().Str("target", item.TargetID).Err(result.Err).Msg("work item failed")
			continue
		}

		if err := q.Complete(item.ItemID); err != nil {
			return fmt.Errorf("mark item complete: %w", err)
		}
		processed++
		logger.Info().Str("target", item.TargetID).Int("filings", len(result.Filings)).Msg("work item complete")
	}

	fmt.Printf("queue drained: %d item(s) processed\n", processed)
	return nil
}
