package metrics

import (
	"time"

	"github.com/econdata/tsengine/pkg/blobstore"
	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/econdata/tsengine/pkg/queue"
)

// Collector periodically samples the catalog, blob store, and work
// queue and publishes their state as gauges.
type Collector struct {
	cat    *catalog.Catalog
	blobs  *blobstore.Store
	q      *queue.Queue
	period time.Duration
	stopCh chan struct{}
}

// NewCollector builds a Collector. Any of cat/blobs/q may be nil, in
// which case that group of gauges is left unset.
func NewCollector(cat *catalog.Catalog, blobs *blobstore.Store, q *queue.Queue) *Collector {
	return &Collector{cat: cat, blobs: blobs, q: q, period: 15 * time.Second, stopCh: make(chan struct{})}
}

// Start begins the periodic collection loop.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.period)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends the collection loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectCatalog()
	c.collectBlobs()
	c.collectQueue()
}

func (c *Collector) collectCatalog() {
	if c.cat == nil {
		return
	}
	stats := c.cat.Stats()
	CatalogSeriesTotal.Set(float64(stats.TotalSeries))
	CatalogPointsTotal.Set(float64(stats.TotalPoints))
}

func (c *Collector) collectBlobs() {
	if c.blobs == nil {
		return
	}
	stats, err := c.blobs.Stats()
	if err != nil {
		return
	}
	BlobBytesStored.Set(float64(stats.TotalSize))
}

func (c *Collector) collectQueue() {
	if c.q == nil {
		return
	}
	stats, err := c.q.Stats(time.Now().UTC())
	if err != nil {
		return
	}
	QueueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	QueueDepth.WithLabelValues("processing").Set(float64(stats.Processing))
	QueueDepth.WithLabelValues("completed").Set(float64(stats.Completed))
	QueueDepth.WithLabelValues("failed").Set(float64(stats.Failed))
	QueueOldestPendingSeconds.Set(stats.OldestPendingAge.Seconds())
}
