// Package queue is the durable priority work queue (C8): bbolt-backed
// lease/complete/fail/reap semantics over types.WorkItem, grounded on
// the teacher's BoltDB persistence pattern (spec §4.8).
package queue

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketItems = []byte("work_items")

const (
	defaultMaxRetries  = 3
	defaultBackoffBase = 30 * time.Second
	defaultMaxBackoff  = time.Hour
)

// Config parameterizes a Queue's backoff policy.
type Config struct {
	BackoffBase time.Duration
	MaxBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// Backoff computes backoff(n) = base * 2^(n-1), capped at max_backoff
// (spec §4.8).
func (c Config) Backoff(retryCount int) time.Duration {
	c = c.withDefaults()
	if retryCount < 1 {
		retryCount = 1
	}
	d := c.BackoffBase
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// Queue is a bbolt-backed durable FIFO with priority and lease
// semantics.
type Queue struct {
	db  *bolt.DB
	cfg Config
}

// Open initializes (or reopens) a queue at dbPath.
func Open(dbPath string, cfg Config) (*Queue, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open queue db", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	}); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.Transport, "create work_items bucket", err)
	}
	return &Queue{db: db, cfg: cfg.withDefaults()}, nil
}

// Close closes the underlying database.
func (q *Queue) Close() error { return q.db.Close() }

// Enqueue adds item with spec §4.8 defaults applied, returning its
// assigned item_id.
func (q *Queue) Enqueue(item types.WorkItem) (string, error) {
	if item.ItemID == "" {
		item.ItemID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = types.WorkPending
	}
	if item.MaxRetries == 0 {
		item.MaxRetries = defaultMaxRetries
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	err := q.db.Update(func(tx *bolt.Tx) error {
		return putItem(tx, item)
	})
	if err != nil {
		return "", err
	}
	log.WithWorkItemID(item.ItemID).Debug().Str("source", item.Source).Msg("queue enqueue")
	return item.ItemID, nil
}

func putItem(tx *bolt.Tx, item types.WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return xerrors.Wrap(xerrors.Invalid, "marshal work item", err)
	}
	return tx.Bucket(bucketItems).Put([]byte(item.ItemID), data)
}

func getItem(tx *bolt.Tx, itemID string) (types.WorkItem, error) {
	var item types.WorkItem
	data := tx.Bucket(bucketItems).Get([]byte(itemID))
	if data == nil {
		return item, xerrors.Newf(xerrors.NotFound, "work item %q not found", itemID)
	}
	if err := json.Unmarshal(data, &item); err != nil {
		return item, xerrors.Wrap(xerrors.Corrupt, "unmarshal work item", err)
	}
	return item, nil
}

// LeaseNext atomically selects the highest-priority eligible Pending
// item (ties broken by earliest enqueued_at, then item_id) whose
// scheduled_for is at or before now, marks it Processing/locked by
// workerID, and returns it. A nil item with a nil error means no
// eligible item was found (spec §4.8 lease_next).
func (q *Queue) LeaseNext(workerID string, now time.Time) (*types.WorkItem, error) {
	var leased *types.WorkItem
	err := q.db.Update(func(tx *bolt.Tx) error {
		if _, err := promoteReadyRetries(tx, now); err != nil {
			return err
		}
		b := tx.Bucket(bucketItems)
		var candidates []types.WorkItem
		if err := b.ForEach(func(k, v []byte) error {
			var item types.WorkItem
			if err := json.Unmarshal(v, &item); err != nil {
				return xerrors.Wrap(xerrors.Corrupt, "unmarshal work item during scan", err)
			}
			if item.Status != types.WorkPending {
				return nil
			}
			if item.ScheduledFor != nil && item.ScheduledFor.After(now) {
				return nil
			}
			candidates = append(candidates, item)
			return nil
		}); err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority > candidates[j].Priority
			}
			if !candidates[i].EnqueuedAt.Equal(candidates[j].EnqueuedAt) {
				return candidates[i].EnqueuedAt.Before(candidates[j].EnqueuedAt)
			}
			return candidates[i].ItemID < candidates[j].ItemID
		})

		chosen := candidates[0]
		chosen.Status = types.WorkProcessing
		chosen.LockedBy = workerID
		lockedAt := now
		chosen.LockedAt = &lockedAt
		if err := putItem(tx, chosen); err != nil {
			return err
		}
		leased = &chosen
		return nil
	})
	if err != nil {
		return nil, err
	}
	if leased != nil {
		log.WithWorkItemID(leased.ItemID).Debug().Str("worker_id", workerID).Msg("queue lease_next")
	}
	return leased, nil
}

// Complete marks itemID Completed.
func (q *Queue) Complete(itemID string) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		item, err := getItem(tx, itemID)
		if err != nil {
			return err
		}
		item.Status = types.WorkCompleted
		completedAt := time.Now().UTC()
		item.CompletedAt = &completedAt
		return putItem(tx, item)
	})
}

// Fail records a failure for itemID. If retry_count remains below
// max_retries, the item transitions Processing->Retrying with
// scheduled_for pushed out by Backoff(retry_count); promoteReadyRetries
// later moves it Retrying->Pending once scheduled_for is reached.
// Otherwise it is marked Failed permanently (spec §4.8 fail).
func (q *Queue) Fail(itemID string, cause error, now time.Time) error {
	return q.db.Update(func(tx *bolt.Tx) error {
		item, err := getItem(tx, itemID)
		if err != nil {
			return err
		}
		item.LastError = errString(cause)
		item.RetryCount++
		if item.RetryCount <= item.MaxRetries {
			item.Status = types.WorkRetrying
			scheduled := now.Add(q.cfg.Backoff(item.RetryCount))
			item.ScheduledFor = &scheduled
		} else {
			item.Status = types.WorkFailed
		}
		item.LockedBy = ""
		item.LockedAt = nil
		return putItem(tx, item)
	})
}

// promoteReadyRetries transitions every Retrying item whose
// scheduled_for has arrived back to Pending so LeaseNext's Pending-only
// scan can pick it up. It is run inside the same transaction as a
// lease attempt, and again periodically by the Reaper, so a retry never
// waits on either one alone to come due.
func promoteReadyRetries(tx *bolt.Tx, now time.Time) (int, error) {
	b := tx.Bucket(bucketItems)
	var ready []types.WorkItem
	if err := b.ForEach(func(k, v []byte) error {
		var item types.WorkItem
		if err := json.Unmarshal(v, &item); err != nil {
			return xerrors.Wrap(xerrors.Corrupt, "unmarshal work item during retry-promotion scan", err)
		}
		if item.Status == types.WorkRetrying && (item.ScheduledFor == nil || !item.ScheduledFor.After(now)) {
			ready = append(ready, item)
		}
		return nil
	}); err != nil {
		return 0, err
	}
	for _, item := range ready {
		item.Status = types.WorkPending
		if err := putItem(tx, item); err != nil {
			return 0, err
		}
	}
	return len(ready), nil
}

// PromoteReadyRetries is promoteReadyRetries run in its own transaction,
// called periodically by the Reaper alongside ReapExpiredLeases so
// retries become eligible even when nothing is actively leasing.
func (q *Queue) PromoteReadyRetries(now time.Time) (int, error) {
	var promoted int
	err := q.db.Update(func(tx *bolt.Tx) error {
		var err error
		promoted, err = promoteReadyRetries(tx, now)
		return err
	})
	return promoted, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ReapExpiredLeases reverts every Processing item whose lease has
// expired (locked_at + leaseTTL < now) back to Pending, grounded on
// the teacher's periodic reconciliation loop. It returns the number of
// items reverted.
func (q *Queue) ReapExpiredLeases(now time.Time, leaseTTL time.Duration) (int, error) {
	reverted := 0
	err := q.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		var expired []types.WorkItem
		if err := b.ForEach(func(k, v []byte) error {
			var item types.WorkItem
			if err := json.Unmarshal(v, &item); err != nil {
				return xerrors.Wrap(xerrors.Corrupt, "unmarshal work item during reap scan", err)
			}
			if item.Status == types.WorkProcessing && item.LockedAt != nil && item.LockedAt.Add(leaseTTL).Before(now) {
				expired = append(expired, item)
			}
			return nil
		}); err != nil {
			return err
		}
		for _, item := range expired {
			item.Status = types.WorkPending
			item.LockedBy = ""
			item.LockedAt = nil
			if err := putItem(tx, item); err != nil {
				return err
			}
			reverted++
		}
		return nil
	})
	if reverted > 0 {
		log.WithComponent("queue").Info().Int("reverted", reverted).Msg("reaped expired leases")
	}
	return reverted, err
}

// Stats is the summary returned by Queue.Stats.
type Stats struct {
	Total             int64         `json:"total"`
	Pending           int64         `json:"pending"`
	Processing        int64         `json:"processing"`
	Completed         int64         `json:"completed"`
	Failed            int64         `json:"failed"`
	Retrying          int64         `json:"retrying"`
	OldestPendingAge  time.Duration `json:"oldest_pending_age"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
}

// Stats summarizes the queue's current contents (spec §4.8 stats).
// avg_processing_time is the mean of (completed_at - locked_at) across
// every item that has completed at least one lease.
func (q *Queue) Stats(now time.Time) (Stats, error) {
	var st Stats
	var oldestPending *time.Time
	var processingTotal time.Duration
	var processingSamples int64
	err := q.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).ForEach(func(k, v []byte) error {
			var item types.WorkItem
			if err := json.Unmarshal(v, &item); err != nil {
				return xerrors.Wrap(xerrors.Corrupt, "unmarshal work item during stats scan", err)
			}
			st.Total++
			switch item.Status {
			case types.WorkPending:
				st.Pending++
				if oldestPending == nil || item.EnqueuedAt.Before(*oldestPending) {
					t := item.EnqueuedAt
					oldestPending = &t
				}
			case types.WorkProcessing:
				st.Processing++
			case types.WorkCompleted:
				st.Completed++
				if item.LockedAt != nil && item.CompletedAt != nil {
					processingTotal += item.CompletedAt.Sub(*item.LockedAt)
					processingSamples++
				}
			case types.WorkFailed:
				st.Failed++
			case types.WorkRetrying:
				st.Retrying++
			}
			return nil
		})
	})
	if oldestPending != nil {
		st.OldestPendingAge = now.Sub(*oldestPending)
	}
	if processingSamples > 0 {
		st.AvgProcessingTime = processingTotal / time.Duration(processingSamples)
	}
	return st, err
}
