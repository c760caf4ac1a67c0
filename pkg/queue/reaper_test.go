package queue

import (
	"testing"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperRevertsExpiredLeaseOnTick(t *testing.T) {
	q := newTestQueue(t, Config{})
	id, err := q.Enqueue(types.WorkItem{Source: "edgar", TargetID: "0000320193"})
	require.NoError(t, err)

	_, err = q.LeaseNext("worker-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	r := NewReaper(q, time.Minute, 20*time.Millisecond)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		leased, err := q.LeaseNext("worker-2", time.Now())
		return err == nil && leased != nil && leased.ItemID == id
	}, time.Second, 10*time.Millisecond)
}
