package invoice

import (
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// Namespace prefixes an invoice document must declare on its root
var requiredPrefixes = []string{"dat", "inv", "typ"}

// Tags written or matched by the rewriter
const (
	tagInvoice         = "inv:invoice"
	tagInvoiceHeader   = "inv:invoiceHeader"
	tagInvoiceSummary  = "inv:invoiceSummary"
	tagInvoiceItem     = "inv:invoiceItem"
	tagText            = "inv:text"
	tagQuantity        = "inv:quantity"
	tagUnit            = "inv:unit"
	tagPayVAT          = "inv:payVAT"
	tagRateVAT         = "inv:rateVAT"
	tagHomeCurrency    = "inv:homeCurrency"
	tagForeignCurrency = "inv:foreignCurrency"
	tagStockItem       = "inv:stockItem"
	tagCode            = "inv:code"
	tagAccount         = "inv:account"
	tagSymConst        = "inv:symConst"
	tagTypStockItem    = "typ:stockItem"
	tagTypStore        = "typ:store"
	tagIDs             = "typ:ids"
	tagUnitPrice       = "typ:unitPrice"
	tagPrice           = "typ:price"
	tagPriceVAT        = "typ:priceVAT"
	tagAccountNo       = "typ:accountNo"
	tagBankCode        = "typ:bankCode"

	pathStockIDs    = "inv:stockItem/typ:stockItem/typ:ids"
	pathCurrencyIDs = "inv:foreignCurrency/typ:currency/typ:ids"
)

// currencyEUR is the summary currency that triggers header enrichment
const currencyEUR = "EUR"

// names holds the tags above resolved against one document
type names struct {
	invoice   xmltree.Name
	header    xmltree.Name
	summary   xmltree.Name
	item      xmltree.Name
	quantity  xmltree.Name
	payVAT    xmltree.Name
	home      xmltree.Name
	foreign   xmltree.Name
	stockItem xmltree.Name
	code      xmltree.Name
	unitPrice xmltree.Name
	price     xmltree.Name
	priceVAT  xmltree.Name

	stockIDs    xmltree.Path
	currencyIDs xmltree.Path
}

func resolveNames(doc *xmltree.Document) (*names, error) {
	n := &names{}
	targets := []struct {
		dst *xmltree.Name
		tag string
	}{
		{&n.invoice, tagInvoice},
		{&n.header, tagInvoiceHeader},
		{&n.summary, tagInvoiceSummary},
		{&n.item, tagInvoiceItem},
		{&n.quantity, tagQuantity},
		{&n.payVAT, tagPayVAT},
		{&n.home, tagHomeCurrency},
		{&n.foreign, tagForeignCurrency},
		{&n.stockItem, tagStockItem},
		{&n.code, tagCode},
		{&n.unitPrice, tagUnitPrice},
		{&n.price, tagPrice},
		{&n.priceVAT, tagPriceVAT},
	}
	for _, t := range targets {
		name, err := doc.Name(t.tag)
		if err != nil {
			return nil, err
		}
		*t.dst = name
	}

	var err error
	if n.stockIDs, err = doc.Compile(pathStockIDs); err != nil {
		return nil, err
	}
	if n.currencyIDs, err = doc.Compile(pathCurrencyIDs); err != nil {
		return nil, err
	}
	return n, nil
}
