package filingpipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/econdata/tsengine/pkg/blobstore"
	"github.com/econdata/tsengine/pkg/edgar"
	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrigin struct {
	filings map[string][]edgar.FilingInfo
	fail    map[string]bool
}

func (f *fakeOrigin) EnumerateFilings(ctx context.Context, fetcher edgar.Fetcher, issuerID string) ([]edgar.FilingInfo, error) {
	if f.fail[issuerID] {
		return nil, fmt.Errorf("simulated enumeration failure for %s", issuerID)
	}
	return f.filings[issuerID], nil
}

func (f *fakeOrigin) PrimaryDocumentURL(issuerID string, filing edgar.FilingInfo) string {
	return fmt.Sprintf("https://fake.test/%s/%s.xml", issuerID, filing.AccessionNumber)
}

func (f *fakeOrigin) ResolveHref(documentURL, href string) string {
	return "https://fake.test/" + href
}

type fakeFetcher struct {
	mu        sync.Mutex
	fail      map[string]bool
	instances map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[url] {
		return nil, fmt.Errorf("simulated fetch failure for %s", url)
	}
	if b, ok := f.instances[url]; ok {
		return b, nil
	}
	return []byte("schema-bytes"), nil
}

func newTestPipeline(t *testing.T, origin *fakeOrigin, fetch *fakeFetcher) (*Pipeline, *blobstore.Store, *FilingStore) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := blobstore.Open(blobstore.Config{DataDir: dir + "/blobs"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	store, err := OpenFilingStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p := New(origin, fetch, blobs, store, Config{})
	return p, blobs, store
}

func sampleInstanceXML() []byte {
	return []byte(`<xbrl xmlns:xlink="http://www.w3.org/1999/xlink">
		<schemaRef xlink:href="co-20230101.xsd" />
		<linkbaseRef xlink:href="co-20230101_lab.xml" />
	</xbrl>`)
}

func TestRunProcessesFilteredFilings(t *testing.T) {
	origin := &fakeOrigin{filings: map[string][]edgar.FilingInfo{
		"0000320193": {
			{AccessionNumber: "0000320193-23-000106", Form: "10-K", FilingDate: types.NewDate(2023, 11, 3), IsXBRL: true},
			{AccessionNumber: "0000320193-23-000001", Form: "8-K", FilingDate: types.NewDate(2023, 1, 1), IsXBRL: false},
		},
	}}
	fetch := &fakeFetcher{instances: map[string][]byte{
		"https://fake.test/0000320193/0000320193-23-000106.xml": sampleInstanceXML(),
	}}
	p, _, store := newTestPipeline(t, origin, fetch)

	result := p.Run(context.Background(), "0000320193")
	require.NoError(t, result.Err)
	require.Len(t, result.Filings, 1)
	assert.Equal(t, types.FilingProcessed, result.Filings[0].Filing.State)
	assert.Equal(t, 2, result.Filings[0].DTSResolved)

	filing, err := store.GetFiling("0000320193-23-000106")
	require.NoError(t, err)
	assert.Equal(t, types.FilingProcessed, filing.State)
	assert.NotEmpty(t, filing.PrimaryBlobID)

	refs, err := store.GetDTSReferences("0000320193-23-000106")
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestProcessFilingIsolatesDTSFailure(t *testing.T) {
	origin := &fakeOrigin{filings: map[string][]edgar.FilingInfo{
		"c1": {{AccessionNumber: "0000320193-23-000106", Form: "10-K", FilingDate: types.NewDate(2023, 1, 1), IsXBRL: true}},
	}}
	fetch := &fakeFetcher{
		instances: map[string][]byte{
			"https://fake.test/c1/0000320193-23-000106.xml": sampleInstanceXML(),
		},
		fail: map[string]bool{
			"https://fake.test/co-20230101.xsd": true,
		},
	}
	p, _, _ := newTestPipeline(t, origin, fetch)

	result := p.Run(context.Background(), "c1")
	require.Len(t, result.Filings, 1)
	fr := result.Filings[0]
	assert.Equal(t, types.FilingProcessed, fr.Filing.State)
	assert.Equal(t, 1, fr.DTSResolved)
	assert.Equal(t, 1, fr.DTSFailed)
}

func TestRunSkipsNonXBRLAndWrongForm(t *testing.T) {
	origin := &fakeOrigin{filings: map[string][]edgar.FilingInfo{
		"c1": {
			{AccessionNumber: "0000320193-23-000002", Form: "10-K", FilingDate: types.NewDate(2023, 1, 1), IsXBRL: false},
		},
	}}
	fetch := &fakeFetcher{}
	p, _, _ := newTestPipeline(t, origin, fetch)
	p.cfg.FormTypes = map[string]bool{"10-Q": true}

	result := p.Run(context.Background(), "c1")
	assert.Empty(t, result.Filings)
}

func TestRunBatchIsolatesPerCompanyFailure(t *testing.T) {
	origin := &fakeOrigin{filings: map[string][]edgar.FilingInfo{
		"good": {{AccessionNumber: "0000320193-23-000106", Form: "10-K", FilingDate: types.NewDate(2023, 1, 1), IsXBRL: true}},
		"bad":  nil,
	}, fail: map[string]bool{"bad": true}}
	fetch := &fakeFetcher{
		instances: map[string][]byte{
			"https://fake.test/good/0000320193-23-000106.xml": sampleInstanceXML(),
		},
	}
	p, _, _ := newTestPipeline(t, origin, fetch)

	results := p.RunBatch(context.Background(), []string{"good", "bad"})
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Filings, 1)
	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Filings)
}
