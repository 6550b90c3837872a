package processor

import (
	"bytes"

	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/invoice"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/receipt"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// Detection describes a document without transforming it
type Detection struct {
	Kind    model.Dialect    `json:"kind"`
	Invoice *invoice.Summary `json:"invoice,omitempty"`
	Items   int              `json:"items"`
}

// Detect identifies data and counts what a transform would work on
func Detect(data []byte) (*Detection, error) {
	det := &Detection{Kind: DetectKind(data)}

	switch det.Kind {
	case model.DialectInvoice:
		doc, err := xmltree.Parse(data)
		if err != nil {
			return nil, model.NewParseError(det.Kind, "document", "XML parsing failed", err)
		}
		sum, err := invoice.Inspect(doc)
		if err != nil {
			return nil, err
		}
		det.Invoice = sum
		det.Items = sum.Items
	case model.DialectReceipt:
		items, err := receipt.ParseItems(data)
		if err != nil {
			return nil, err
		}
		det.Items = len(items)
	case model.DialectShop:
		items, err := receipt.ParseShop(data)
		if err != nil {
			return nil, err
		}
		det.Items = len(items)
	case model.DialectFeed:
		products, _, err := feed.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, model.NewParseError(det.Kind, "PRODUCTS", "failed to parse feed", err)
		}
		det.Items = len(products)
	}
	return det, nil
}

func hasDescendant(e *etree.Element, local string) bool {
	for _, c := range e.ChildElements() {
		if c.Tag == local || hasDescendant(c, local) {
			return true
		}
	}
	return false
}
