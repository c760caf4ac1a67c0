// Package edgar isolates every SEC EDGAR-specific detail — URL
// templates and the submissions-document JSON shape — behind an
// Origin interface, so pkg/filingpipeline never depends on EDGAR's
// concrete schema (Open Question in spec.md §9: "origin-specific URL
// building... must be factored so they can change without touching
// the pipeline").
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
)

// FilingInfo is one enumerated filing, origin-agnostic (spec §4.7
// step 1).
type FilingInfo struct {
	AccessionNumber string
	Form            string
	FilingDate      types.Date
	ReportDate      *types.Date
	IsXBRL          bool
	SizeBytes       int64
}

// Fetcher is the minimal capability pkg/edgar needs from pkg/fetcher,
// expressed as an interface so edgar never imports the concrete type.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Origin enumerates an issuer's filings and builds URLs to their
// constituent documents. pkg/filingpipeline depends only on this
// interface.
type Origin interface {
	EnumerateFilings(ctx context.Context, f Fetcher, issuerID string) ([]FilingInfo, error)
	PrimaryDocumentURL(issuerID string, filing FilingInfo) string
	ResolveHref(documentURL, href string) string
}

var accessionPattern = regexp.MustCompile(`^\d{10}-\d{2}-\d{6}$`)

// ValidateAccessionNumber enforces the original crawler's
// NNNNNNNNNN-NN-NNNNNN accession format (SPEC_FULL.md §3).
func ValidateAccessionNumber(accession string) error {
	if !accessionPattern.MatchString(accession) {
		return xerrors.Newf(xerrors.Invalid, "accession number %q does not match NNNNNNNNNN-NN-NNNNNN", accession)
	}
	return nil
}

// SECOrigin implements Origin against the real SEC EDGAR endpoints.
type SECOrigin struct{}

const submissionsURLTemplate = "https://data.sec.gov/submissions/CIK%s.json"

func normalizeCIK(cik string) string {
	cik = strings.TrimPrefix(strings.ToUpper(cik), "CIK")
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// submissionsDocument is the (trimmed) shape of SEC EDGAR's
// data.sec.gov/submissions/CIK##########.json response.
type submissionsDocument struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			IsXBRL          []int    `json:"isXBRL"`
			Size            []int64  `json:"size"`
		} `json:"recent"`
	} `json:"filings"`
}

// EnumerateFilings fetches and decodes the issuer's submissions
// document (spec §4.7 step 1).
func (SECOrigin) EnumerateFilings(ctx context.Context, f Fetcher, issuerID string) ([]FilingInfo, error) {
	url := fmt.Sprintf(submissionsURLTemplate, normalizeCIK(issuerID))
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc submissionsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "decode submissions document", err)
	}

	recent := doc.Filings.Recent
	n := len(recent.AccessionNumber)
	out := make([]FilingInfo, 0, n)
	for i := 0; i < n; i++ {
		fd, err := types.ParseDate(get(recent.FilingDate, i))
		if err != nil {
			continue
		}
		info := FilingInfo{
			AccessionNumber: get(recent.AccessionNumber, i),
			Form:            get(recent.Form, i),
			FilingDate:      fd,
			IsXBRL:          getInt(recent.IsXBRL, i) != 0,
			SizeBytes:       getInt64(recent.Size, i),
		}
		if rd := get(recent.ReportDate, i); rd != "" {
			if parsed, err := types.ParseDate(rd); err == nil {
				info.ReportDate = &parsed
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func get(ss []string, i int) string {
	if i < 0 || i >= len(ss) {
		return ""
	}
	return ss[i]
}

func getInt(ns []int, i int) int {
	if i < 0 || i >= len(ns) {
		return 0
	}
	return ns[i]
}

func getInt64(ns []int64, i int) int64 {
	if i < 0 || i >= len(ns) {
		return 0
	}
	return ns[i]
}

// PrimaryDocumentURL builds the primary XBRL instance document URL
// from an accession number (spec §4.7 step 3): EDGAR serves these
// under /Archives/edgar/data/<cik>/<accession-no-dashes>/<accession>.txt
// style directories; we use the canonical index-based path.
func (SECOrigin) PrimaryDocumentURL(issuerID string, filing FilingInfo) string {
	cik := strings.TrimLeft(normalizeCIK(issuerID), "0")
	accessionNoDashes := strings.ReplaceAll(filing.AccessionNumber, "-", "")
	return fmt.Sprintf("https://www.sec.gov/Archives/edgar/data/%s/%s/%s-index.htm", cik, accessionNoDashes, filing.AccessionNumber)
}

// ResolveHref resolves a schemaRef/linkbaseRef href relative to the
// document it was found in.
func (SECOrigin) ResolveHref(documentURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	idx := strings.LastIndex(documentURL, "/")
	if idx < 0 {
		return href
	}
	return documentURL[:idx+1] + href
}
