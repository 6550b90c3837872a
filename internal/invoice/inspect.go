package invoice

import (
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// Summary describes an invoice document without changing it
type Summary struct {
	Invoices     int      `json:"invoices"`
	Items        int      `json:"items"`
	Combos       int      `json:"combos"`
	ServiceLines int      `json:"service_lines"`
	Currencies   []string `json:"currencies,omitempty"`
}

// Inspect counts invoices, items and combo items of doc
func Inspect(doc *xmltree.Document) (*Summary, error) {
	if err := doc.Require(requiredPrefixes...); err != nil {
		return nil, err
	}
	n, err := resolveNames(doc)
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	sum := &Summary{}
	seen := make(map[string]bool)

	for _, inv := range xmltree.Descendants(root, n.invoice) {
		sum.Invoices++
		currency := ""
		if summary := xmltree.FindChild(inv, n.summary); summary != nil {
			currency = xmltree.Text(n.currencyIDs.Find(summary))
		}
		if currency != "" && !seen[currency] {
			seen[currency] = true
			sum.Currencies = append(sum.Currencies, currency)
		}
	}

	for _, item := range xmltree.Descendants(root, n.item) {
		sum.Items++
		if _, ok := model.SplitCombo(xmltree.Text(n.stockIDs.Find(item))); ok {
			sum.Combos++
		}
		if model.IsServiceCode(xmltree.Text(xmltree.FindChild(item, n.code))) {
			sum.ServiceLines++
		}
	}
	return sum, nil
}
