package edgar

import (
	"encoding/xml"
	"strings"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
)

// instanceRefs is the subset of an XBRL instance document's XML we
// need: the schemaRef and linkbaseRef elements in the xbrli/link
// namespaces (spec §4.7 step 4). encoding/xml (stdlib) is used because
// no XBRL/XML third-party parser appears anywhere in the retrieved
// corpus.
type instanceRefs struct {
	SchemaRefs   []refElement `xml:"schemaRef"`
	LinkbaseRefs []refElement `xml:"linkbaseRef"`
}

type refElement struct {
	Href    string `xml:"http://www.w3.org/1999/xlink href,attr"`
	Role    string `xml:"http://www.w3.org/1999/xlink role,attr"`
	Arcrole string `xml:"http://www.w3.org/1999/xlink arcrole,attr"`
}

// DiscoveredRef is one schemaRef/linkbaseRef found during DTS
// discovery, href already resolved to an absolute URL.
type DiscoveredRef struct {
	Type types.DTSReferenceType
	Href string
	Role string
	Arc  string
}

// DiscoverDTS parses instanceXML for schemaRef/linkbaseRef elements
// and resolves each href relative to documentURL.
func DiscoverDTS(o Origin, documentURL string, instanceXML []byte) ([]DiscoveredRef, error) {
	var doc instanceRefs
	if err := xml.Unmarshal(instanceXML, &doc); err != nil {
		return nil, xerrors.Wrap(xerrors.Corrupt, "parse xbrl instance for DTS discovery", err)
	}

	var out []DiscoveredRef
	for _, r := range doc.SchemaRefs {
		out = append(out, DiscoveredRef{
			Type: types.RefSchema,
			Href: o.ResolveHref(documentURL, r.Href),
			Role: r.Role,
			Arc:  r.Arcrole,
		})
	}
	for _, r := range doc.LinkbaseRefs {
		out = append(out, DiscoveredRef{
			Type: types.RefLinkbase,
			Href: o.ResolveHref(documentURL, r.Href),
			Role: r.Role,
			Arc:  r.Arcrole,
		})
	}
	return out, nil
}

// ClassifySource classifies a taxonomy component by namespace/path
// heuristics on its resolved href (spec §4.7 step 4).
func ClassifySource(href string) types.DTSSourceType {
	lower := strings.ToLower(href)
	switch {
	case strings.Contains(lower, "us-gaap"):
		return types.SourceUsGaap
	case strings.Contains(lower, "dei"):
		return types.SourceSecDei
	case strings.Contains(lower, "srt"):
		return types.SourceFasbSrt
	case strings.Contains(lower, "ifrs"):
		return types.SourceIfrs
	default:
		return types.SourceCompanySpecific
	}
}

// ClassifyFile classifies a taxonomy component by filename/content
// conventions (spec §4.7 step 4).
func ClassifyFile(href string) types.DTSFileType {
	lower := strings.ToLower(href)
	switch {
	case strings.Contains(lower, "_lab.xml") || strings.Contains(lower, "-lab.xml"):
		return types.FileLabelLinkbase
	case strings.Contains(lower, "_pre.xml") || strings.Contains(lower, "-pre.xml"):
		return types.FilePresentationLinkbase
	case strings.Contains(lower, "_cal.xml") || strings.Contains(lower, "-cal.xml"):
		return types.FileCalculationLinkbase
	case strings.Contains(lower, "_def.xml") || strings.Contains(lower, "-def.xml"):
		return types.FileDefinitionLinkbase
	default:
		return types.FileSchema
	}
}
