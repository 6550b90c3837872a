package xmltree_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<dat:dataPack xmlns:dat="http://www.stormware.cz/schema/version_2/data.xsd"
              xmlns:inv="http://www.stormware.cz/schema/version_2/invoice.xsd"
              xmlns:typ="http://www.stormware.cz/schema/version_2/type.xsd">
  <dat:dataPackItem>
    <inv:invoice>
      <inv:invoiceDetail>
        <inv:invoiceItem>
          <inv:text>First</inv:text>
          <inv:stockItem>
            <typ:stockItem>
              <typ:ids>A_B</typ:ids>
            </typ:stockItem>
          </inv:stockItem>
        </inv:invoiceItem>
        <inv:invoiceItem>
          <inv:text>Second</inv:text>
        </inv:invoiceItem>
      </inv:invoiceDetail>
    </inv:invoice>
  </dat:dataPackItem>
</dat:dataPack>`

func parseSample(t *testing.T) *xmltree.Document {
	t.Helper()
	doc, err := xmltree.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	return doc
}

func TestScopeOf(t *testing.T) {
	doc := parseSample(t)

	ns := doc.NS
	uri, ok := ns.Resolve("inv")
	require.True(t, ok)
	assert.Equal(t, "http://www.stormware.cz/schema/version_2/invoice.xsd", uri)

	_, ok = ns.Resolve("pri")
	assert.False(t, ok)

	uri, ok = ns.Resolve("xml")
	require.True(t, ok)
	assert.Equal(t, xmltree.XMLNamespace, uri)

	assert.ElementsMatch(t, []string{"dat", "inv", "typ"}, ns.Prefixes())
}

func TestScopeOf_NearestDeclarationWins(t *testing.T) {
	doc, err := xmltree.Parse([]byte(`<a:root xmlns:a="urn:outer"><a:child xmlns:a="urn:inner"><a:leaf/></a:child></a:root>`))
	require.NoError(t, err)

	leaf := doc.Root().FindElement("a:child/a:leaf")
	require.NotNil(t, leaf)

	uri, ok := xmltree.NamespaceOf(leaf)
	require.True(t, ok)
	assert.Equal(t, "urn:inner", uri)

	uri, ok = xmltree.NamespaceOf(doc.Root())
	require.True(t, ok)
	assert.Equal(t, "urn:outer", uri)
}

func TestParseQName(t *testing.T) {
	assert.Equal(t, xmltree.QName{Prefix: "inv", Local: "code"}, xmltree.ParseQName("inv:code"))
	assert.Equal(t, xmltree.QName{Local: "SHOP"}, xmltree.ParseQName("SHOP"))
	assert.Equal(t, "typ:ids", xmltree.ParseQName("typ:ids").String())
}

func TestAddElement(t *testing.T) {
	doc := parseSample(t)
	items, err := doc.FindAll("inv:invoiceItem")
	require.NoError(t, err)
	require.Len(t, items, 2)

	code, err := xmltree.AddElement(items[1], "inv:code", "100239")
	require.NoError(t, err)
	assert.Equal(t, "inv", code.Space)
	assert.Equal(t, "code", code.Tag)
	assert.Equal(t, "100239", code.Text())
	assert.Equal(t, code, items[1].ChildElements()[len(items[1].ChildElements())-1])
}

func TestAddElement_EmptyTextNotSet(t *testing.T) {
	doc := parseSample(t)

	el, err := xmltree.AddElement(doc.Root(), "dat:note", "")
	require.NoError(t, err)
	assert.Empty(t, el.Child)
}

func TestAddElement_AttributesInOrder(t *testing.T) {
	doc := parseSample(t)

	el, err := xmltree.AddElement(doc.Root(), "dat:note", "x",
		xmltree.Attr{Key: "version", Value: "2.0"},
		xmltree.Attr{Key: "id", Value: "n1"},
		xmltree.Attr{Key: "application", Value: "eshop"},
	)
	require.NoError(t, err)
	require.Len(t, el.Attr, 3)
	assert.Equal(t, "version", el.Attr[0].Key)
	assert.Equal(t, "id", el.Attr[1].Key)
	assert.Equal(t, "application", el.Attr[2].Key)
	assert.Equal(t, "eshop", el.SelectAttrValue("application", ""))
}

func TestAddElement_BareName(t *testing.T) {
	doc := parseSample(t)

	el, err := xmltree.AddElement(doc.Root(), "plain", "text")
	require.NoError(t, err)
	assert.Empty(t, el.Space)
	assert.Equal(t, "plain", el.Tag)
}

func TestAddElement_UnknownPrefix(t *testing.T) {
	doc := parseSample(t)

	el, err := xmltree.AddElement(doc.Root(), "pri:prijemka", "")
	require.Error(t, err)
	assert.Nil(t, el)

	var nsErr *model.NamespaceResolutionError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "pri", nsErr.Prefix)
	assert.Equal(t, "dat:dataPack", nsErr.Element)

	// nothing was appended
	for _, c := range doc.Root().ChildElements() {
		assert.NotEqual(t, "prijemka", c.Tag)
	}
}

func TestRemoveAndAppendElement(t *testing.T) {
	doc := parseSample(t)
	items, err := doc.FindAll("inv:invoiceItem")
	require.NoError(t, err)
	parent := items[0].Parent()

	xmltree.RemoveElement(items[0])
	assert.Len(t, parent.ChildElements(), 1)
	assert.Nil(t, items[0].Parent())

	xmltree.AppendElement(parent, items[0])
	children := parent.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, items[0], children[1])
}

func TestPath(t *testing.T) {
	doc := parseSample(t)

	p, err := doc.Compile("inv:stockItem/typ:stockItem/typ:ids")
	require.NoError(t, err)
	assert.Equal(t, "inv:stockItem/typ:stockItem/typ:ids", p.String())

	items, err := doc.FindAll("inv:invoiceItem")
	require.NoError(t, err)

	ids := p.Find(items[0])
	require.NotNil(t, ids)
	assert.Equal(t, "A_B", xmltree.Text(ids))

	assert.Nil(t, p.Find(items[1]))

	all := xmltree.MustCompilePath(doc.NS, "dat:dataPackItem/inv:invoice/inv:invoiceDetail/inv:invoiceItem").FindAll(doc.Root())
	assert.Len(t, all, 2)
}

func TestPath_UnknownPrefix(t *testing.T) {
	doc := parseSample(t)

	_, err := doc.Compile("inv:invoiceSummary/ftr:currency")
	var nsErr *model.NamespaceResolutionError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "ftr", nsErr.Prefix)

	_, err = doc.Compile("inv:invoice//typ:ids")
	require.Error(t, err)
}

func TestName_MatchesByNamespaceURI(t *testing.T) {
	// same namespace bound to a different prefix still matches
	doc, err := xmltree.Parse([]byte(`<d:dataPack xmlns:d="urn:dat" xmlns:i="urn:inv"><i:invoice/></d:dataPack>`))
	require.NoError(t, err)

	name := xmltree.Name{URI: "urn:inv", Local: "invoice"}
	found := xmltree.Descendants(doc.Root(), name)
	assert.Len(t, found, 1)

	other := xmltree.Name{URI: "urn:other", Local: "invoice"}
	assert.Empty(t, xmltree.Descendants(doc.Root(), other))
}

func TestRequire(t *testing.T) {
	doc := parseSample(t)

	require.NoError(t, doc.Require("dat", "inv", "typ"))

	err := doc.Require("inv", "pri")
	var nsErr *model.NamespaceResolutionError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "pri", nsErr.Prefix)
}

func TestLocate(t *testing.T) {
	doc := parseSample(t)
	items, err := doc.FindAll("inv:invoiceItem")
	require.NoError(t, err)

	assert.Equal(t, "/dat:dataPack/dat:dataPackItem/inv:invoice/inv:invoiceDetail/inv:invoiceItem[2]", xmltree.Locate(items[1]))
	assert.Equal(t, "/dat:dataPack", xmltree.Locate(doc.Root()))
}

func TestParse_Invalid(t *testing.T) {
	_, err := xmltree.Parse([]byte("<unclosed>"))
	require.Error(t, err)

	_, err = xmltree.Parse([]byte("not xml"))
	require.Error(t, err)

	_, err = xmltree.Parse(nil)
	require.Error(t, err)
}

func TestParse_Windows1250(t *testing.T) {
	// 0xE8 is "č" in Windows-1250
	data := append([]byte(`<?xml version="1.0" encoding="Windows-1250"?><root><name>`), 0xE8)
	data = append(data, []byte(`ep</name></root>`)...)

	doc, err := xmltree.Parse(data)
	require.NoError(t, err)

	name := doc.Root().SelectElement("name")
	require.NotNil(t, name)
	assert.Equal(t, "čep", name.Text())
}

func TestBytes(t *testing.T) {
	doc, err := xmltree.Parse([]byte(`<?xml version="1.0" encoding="Windows-1250"?>
<dat:dataPack xmlns:dat="urn:dat" xmlns:inv="urn:inv">

    <inv:invoice>   <inv:text>Hello</inv:text>
</inv:invoice></dat:dataPack>`))
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`), s)
	assert.NotContains(t, s, "Windows-1250")
	assert.Contains(t, s, "\n  <inv:invoice>\n    <inv:text>Hello</inv:text>\n  </inv:invoice>\n")

	// serialization leaves the document untouched and re-parses
	again, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, err = xmltree.Parse(out)
	require.NoError(t, err)
}
