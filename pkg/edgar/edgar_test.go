package edgar

import (
	"testing"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccessionNumber(t *testing.T) {
	require.NoError(t, ValidateAccessionNumber("0000320193-23-000106"))
	assert.Error(t, ValidateAccessionNumber("not-an-accession"))
	assert.Error(t, ValidateAccessionNumber("0000320193-23-00010"))
}

func TestPrimaryDocumentURL(t *testing.T) {
	o := SECOrigin{}
	url := o.PrimaryDocumentURL("0000320193", FilingInfo{AccessionNumber: "0000320193-23-000106"})
	assert.Contains(t, url, "0000320193")
	assert.Contains(t, url, "000032019323000106")
}

func TestResolveHrefRelativeAndAbsolute(t *testing.T) {
	o := SECOrigin{}
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/schema.xsd",
		o.ResolveHref("https://www.sec.gov/Archives/edgar/data/320193/instance.xml", "schema.xsd"))
	assert.Equal(t, "https://other.example.org/abs.xsd",
		o.ResolveHref("https://www.sec.gov/Archives/edgar/data/320193/instance.xml", "https://other.example.org/abs.xsd"))
}

func TestDiscoverDTSParsesSchemaAndLinkbaseRefs(t *testing.T) {
	o := SECOrigin{}
	xmlDoc := []byte(`<xbrl xmlns:xlink="http://www.w3.org/1999/xlink" xmlns:link="http://www.xbrl.org/2003/linkbase">
		<link:schemaRef xlink:href="aapl-20230930.xsd" xlink:role="" />
		<link:linkbaseRef xlink:href="aapl-20230930_lab.xml" xlink:arcrole="http://www.w3.org/1999/xlink/properties/linkbase" />
	</xbrl>`)

	refs, err := DiscoverDTS(o, "https://www.sec.gov/Archives/edgar/data/320193/aapl-20230930.htm", xmlDoc)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, types.RefSchema, refs[0].Type)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/320193/aapl-20230930.xsd", refs[0].Href)
	assert.Equal(t, types.RefLinkbase, refs[1].Type)
}

func TestClassifySourceAndFile(t *testing.T) {
	assert.Equal(t, types.SourceUsGaap, ClassifySource("https://xbrl.fasb.org/us-gaap/2023/us-gaap-2023.xsd"))
	assert.Equal(t, types.SourceSecDei, ClassifySource("https://xbrl.sec.gov/dei/2023/dei-2023.xsd"))
	assert.Equal(t, types.SourceCompanySpecific, ClassifySource("https://www.sec.gov/Archives/edgar/data/320193/aapl-20230930.xsd"))

	assert.Equal(t, types.FileLabelLinkbase, ClassifyFile("aapl-20230930_lab.xml"))
	assert.Equal(t, types.FilePresentationLinkbase, ClassifyFile("aapl-20230930_pre.xml"))
	assert.Equal(t, types.FileSchema, ClassifyFile("aapl-20230930.xsd"))
}
