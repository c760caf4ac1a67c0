// Package filingpipeline is the filing pipeline (C7): enumerate an
// issuer's filings, filter them, download the primary XBRL instance
// document plus its discovered taxonomy set, and persist everything
// via pkg/blobstore, driven across many issuers by
// golang.org/x/sync/errgroup (spec §4.7).
package filingpipeline

import (
	"context"
	"time"

	"github.com/econdata/tsengine/pkg/blobstore"
	"github.com/econdata/tsengine/pkg/edgar"
	"github.com/econdata/tsengine/pkg/log"
	"github.com/econdata/tsengine/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Config controls filtering and concurrency (spec §4.7 step 2, §4.7.2).
type Config struct {
	FormTypes             map[string]bool // empty/nil means "all"
	StartDate             *types.Date
	EndDate               *types.Date
	MaxFileSizeBytes      int64
	MaxConcurrentCompanies int
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentCompanies <= 0 {
		c.MaxConcurrentCompanies = 3
	}
	return c
}

func (c Config) formAllowed(form string) bool {
	if len(c.FormTypes) == 0 {
		return true
	}
	return c.FormTypes[form]
}

func (c Config) inDateRange(d types.Date) bool {
	if c.StartDate != nil && d.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && d.After(*c.EndDate) {
		return false
	}
	return true
}

// Pipeline wires an edgar.Origin, fetcher, blob store, and filing
// store together. It never imports EDGAR's concrete schema directly.
type Pipeline struct {
	origin edgar.Origin
	fetch  edgar.Fetcher
	blobs  *blobstore.Store
	store  *FilingStore
	cfg    Config
}

// New returns a Pipeline.
func New(origin edgar.Origin, fetch edgar.Fetcher, blobs *blobstore.Store, store *FilingStore, cfg Config) *Pipeline {
	return &Pipeline{origin: origin, fetch: fetch, blobs: blobs, store: store, cfg: cfg.withDefaults()}
}

// FilingResult is the per-filing outcome of Process.
type FilingResult struct {
	Filing      types.Filing
	DTSResolved int
	DTSFailed   int
	Err         error
}

// CompanyResult is the aggregate outcome of running one issuer's
// pipeline (spec §4.7.2 "per-CIK results").
type CompanyResult struct {
	IssuerID string
	Filings  []FilingResult
	Err      error
}

// Run executes the full per-issuer pipeline: enumerate, filter, and
// process every surviving filing (spec §4.7 steps 1-5).
func (p *Pipeline) Run(ctx context.Context, issuerID string) CompanyResult {
	result := CompanyResult{IssuerID: issuerID}

	infos, err := p.origin.EnumerateFilings(ctx, p.fetch, issuerID)
	if err != nil {
		result.Err = err
		return result
	}

	for _, info := range infos {
		if !p.shouldProcess(info) {
			continue
		}
		fr := p.processFiling(ctx, issuerID, info)
		result.Filings = append(result.Filings, fr)
	}
	return result
}

// shouldProcess applies spec §4.7 step 2's filters.
func (p *Pipeline) shouldProcess(info edgar.FilingInfo) bool {
	if !info.IsXBRL {
		return false
	}
	if !p.cfg.formAllowed(info.Form) {
		return false
	}
	if !p.cfg.inDateRange(info.FilingDate) {
		return false
	}
	if p.cfg.MaxFileSizeBytes > 0 && info.SizeBytes > p.cfg.MaxFileSizeBytes {
		log.WithAccession(info.AccessionNumber).Warn().Int64("size", info.SizeBytes).Msg("filing exceeds max_file_size_bytes, skipping")
		return false
	}
	return true
}

// processFiling runs steps 3-5 for a single already-filtered filing,
// advancing the state machine in spec §4.7.1 and never letting one
// taxonomy-component failure fail the whole filing.
func (p *Pipeline) processFiling(ctx context.Context, issuerID string, info edgar.FilingInfo) FilingResult {
	now := time.Now().UTC()
	filing := types.Filing{
		AccessionNumber: info.AccessionNumber,
		CIK:             issuerID,
		Form:            info.Form,
		FilingDate:      info.FilingDate,
		PeriodEndDate:   info.ReportDate,
		State:           types.FilingDownloading,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	filing.IsAmendment = isAmendmentForm(info.Form)
	started := now
	filing.ProcessingStartedAt = &started

	fail := func(err error) FilingResult {
		filing.State = types.FilingFailed
		filing.ProcessingError = err.Error()
		completed := time.Now().UTC()
		filing.ProcessingCompletedAt = &completed
		_ = p.store.PutFiling(filing)
		return FilingResult{Filing: filing, Err: err}
	}

	if err := edgar.ValidateAccessionNumber(info.AccessionNumber); err != nil {
		return fail(err)
	}
	_ = p.store.PutFiling(filing)

	docURL := p.origin.PrimaryDocumentURL(issuerID, info)
	instanceBytes, err := p.fetch.Fetch(ctx, docURL)
	if err != nil {
		return fail(err)
	}

	filing.State = types.FilingDownloaded
	blobID, err := p.blobs.Put(instanceBytes, types.RoleXbrlInstance, docURL)
	if err != nil {
		return fail(err)
	}
	filing.PrimaryBlobID = blobID
	_ = p.store.PutFiling(filing)

	filing.State = types.FilingParsing
	_ = p.store.PutFiling(filing)

	refs, resolvedCount, failedCount := p.resolveDTS(ctx, docURL, instanceBytes, info.AccessionNumber)
	if err := p.store.PutDTSReferences(info.AccessionNumber, refs); err != nil {
		return fail(err)
	}
	for _, r := range refs {
		if r.IsResolved {
			filing.ReferencedBlobIDs = append(filing.ReferencedBlobIDs, r.ResolvedBlobID)
		}
	}

	filing.State = types.FilingProcessed
	completed := time.Now().UTC()
	filing.ProcessingCompletedAt = &completed
	filing.UpdatedAt = completed
	if err := p.store.PutFiling(filing); err != nil {
		return FilingResult{Filing: filing, DTSResolved: resolvedCount, DTSFailed: failedCount, Err: err}
	}

	return FilingResult{Filing: filing, DTSResolved: resolvedCount, DTSFailed: failedCount}
}

func isAmendmentForm(form string) bool {
	return len(form) > 2 && form[len(form)-2:] == "/A"
}

// resolveDTS performs spec §4.7 step 4: discover, fetch, classify, and
// persist every schemaRef/linkbaseRef, isolating one component's
// failure from the rest.
func (p *Pipeline) resolveDTS(ctx context.Context, docURL string, instanceXML []byte, accession string) ([]types.DTSReference, int, int) {
	discovered, err := edgar.DiscoverDTS(p.origin, docURL, instanceXML)
	if err != nil {
		return nil, 0, 0
	}

	var refs []types.DTSReference
	var resolved, failed int
	for _, d := range discovered {
		ref := types.DTSReference{
			FilingAccession: accession,
			ReferenceType:   d.Type,
			Href:            d.Href,
			Role:            d.Role,
			Arcrole:         d.Arc,
			SourceType:      edgar.ClassifySource(d.Href),
			FileType:        edgar.ClassifyFile(d.Href),
		}

		bytes, err := p.fetch.Fetch(ctx, d.Href)
		if err != nil {
			ref.IsResolved = false
			ref.ResolutionError = err.Error()
			failed++
			refs = append(refs, ref)
			continue
		}

		role := roleForFileType(ref.FileType)
		blobID, err := p.blobs.Put(bytes, role, d.Href)
		if err != nil {
			ref.IsResolved = false
			ref.ResolutionError = err.Error()
			failed++
			refs = append(refs, ref)
			continue
		}

		ref.ResolvedBlobID = blobID
		ref.IsResolved = true
		resolved++
		refs = append(refs, ref)
	}
	return refs, resolved, failed
}

func roleForFileType(ft types.DTSFileType) types.LogicalRole {
	if ft == types.FileSchema {
		return types.RoleXbrlSchema
	}
	return types.RoleXbrlLinkbase
}

// RunBatch runs Run for every issuer in issuerIDs concurrently,
// bounded by cfg.MaxConcurrentCompanies, isolating one issuer's
// failure from the rest (spec §4.7.2).
func (p *Pipeline) RunBatch(ctx context.Context, issuerIDs []string) []CompanyResult {
	results := make([]CompanyResult, len(issuerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrentCompanies)

	for i, issuerID := range issuerIDs {
		i, issuerID := i, issuerID
		g.Go(func() error {
			results[i] = p.Run(gctx, issuerID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
