package metrics

import (
	"testing"

	"github.com/econdata/tsengine/pkg/blobstore"
	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/econdata/tsengine/pkg/queue"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCollectUpdatesGauges(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.Open(dir + "/catalog")
	require.NoError(t, err)

	require.NoError(t, cat.UpsertSeries(types.Series{
		SeriesID:   "s1",
		ExternalID: "ext-1",
		SourceID:   "edgar",
		Title:      "Test Series",
		Units:      "USD",
		Frequency:  types.FrequencyDaily,
	}))

	blobs, err := blobstore.Open(blobstore.Config{DataDir: dir + "/blobs"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })
	_, err = blobs.Put([]byte("hello"), types.RoleXbrlInstance, "")
	require.NoError(t, err)

	q, err := queue.Open(dir+"/queue.db", queue.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	_, err = q.Enqueue(types.WorkItem{Source: "ingest", TargetID: "cik-0000320193"})
	require.NoError(t, err)

	c := NewCollector(cat, blobs, q)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(CatalogSeriesTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(CatalogPointsTotal))
	assert.Greater(t, testutil.ToFloat64(BlobBytesStored), float64(0))
	assert.Equal(t, float64(1), testutil.ToFloat64(QueueDepth.WithLabelValues("pending")))
}

func TestCollectorCollectToleratesNilComponents(t *testing.T) {
	c := NewCollector(nil, nil, nil)
	assert.NotPanics(t, func() { c.collect() })
}
