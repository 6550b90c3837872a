package invoice_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/invoice"
	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

const namespaces = `xmlns:dat="http://www.stormware.cz/schema/version_2/data.xsd" ` +
	`xmlns:inv="http://www.stormware.cz/schema/version_2/invoice.xsd" ` +
	`xmlns:typ="http://www.stormware.cz/schema/version_2/type.xsd"`

// invoiceDoc wraps items and a summary into a one-invoice data pack
func invoiceDoc(items, summary string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<dat:dataPack %s id="001" ico="12345678" application="eshop" version="2.0" note="import">
  <dat:dataPackItem id="ORD-1001" version="2.0">
    <inv:invoice version="2.0">
      <inv:invoiceHeader>
        <inv:invoiceType>issuedInvoice</inv:invoiceType>
        <inv:text>Order 1001</inv:text>
      </inv:invoiceHeader>
      <inv:invoiceDetail>
%s
      </inv:invoiceDetail>
%s
    </inv:invoice>
  </dat:dataPackItem>
</dat:dataPack>`, namespaces, items, summary)
}

func item(text, quantity, block, unitPrice, price, priceVAT, ids, code string) string {
	stock := ""
	if ids != "" {
		stock = fmt.Sprintf(`<inv:stockItem><typ:stockItem><typ:ids>%s</typ:ids></typ:stockItem></inv:stockItem>`, ids)
	}
	money := ""
	if block != "" {
		money = fmt.Sprintf(`<inv:%s><typ:unitPrice>%s</typ:unitPrice><typ:price>%s</typ:price><typ:priceVAT>%s</typ:priceVAT></inv:%s>`,
			block, unitPrice, price, priceVAT, block)
	}
	codeEl := ""
	if code != "" {
		codeEl = fmt.Sprintf(`<inv:code>%s</inv:code>`, code)
	}
	return fmt.Sprintf(`<inv:invoiceItem>
  <inv:text>%s</inv:text>
  <inv:quantity>%s</inv:quantity>
  <inv:unit>ks</inv:unit>
  <inv:payVAT>false</inv:payVAT>
  <inv:rateVAT>high</inv:rateVAT>
  %s
  %s
  %s
</inv:invoiceItem>`, text, quantity, money, stock, codeEl)
}

const homeSummary = `<inv:invoiceSummary><inv:roundingDocument>math2one</inv:roundingDocument></inv:invoiceSummary>`

func currencySummary(currency string) string {
	return fmt.Sprintf(`<inv:invoiceSummary>
  <inv:foreignCurrency>
    <typ:currency><typ:ids>%s</typ:ids></typ:currency>
    <typ:rate>25.2</typ:rate>
  </inv:foreignCurrency>
</inv:invoiceSummary>`, currency)
}

type fakeSource struct {
	catalog *feed.Catalog
	err     error
	calls   int
	url     string
	hash    string
}

func (f *fakeSource) FetchProducts(ctx context.Context, feedURL, hash string) (*feed.Catalog, error) {
	f.calls++
	f.url = feedURL
	f.hash = hash
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func product(code, name, price, priceVAT, vat string) model.Product {
	return model.Product{
		Code:       code,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		PriceVAT:   decimal.RequireFromString(priceVAT),
		VATPercent: vat,
	}
}

func defaultCatalog() *feed.Catalog {
	return feed.NewCatalog([]model.Product{
		product("102246", "Stripes Callin top", "826.45", "1000", "21"),
		product("100239", "Stripes Callin bottom", "743.80", "900", "12"),
		product("A", "Product A", "0.5", "1", "10"),
	})
}

func settings(t *testing.T, values map[string]string) *config.Settings {
	t.Helper()
	s, err := config.FromMap(values)
	require.NoError(t, err)
	return s
}

func parse(t *testing.T, data string) *xmltree.Document {
	t.Helper()
	doc, err := xmltree.Parse([]byte(data))
	require.NoError(t, err)
	return doc
}

func rewrite(t *testing.T, doc *xmltree.Document, src invoice.ProductSource, s *config.Settings) (*invoice.Report, error) {
	t.Helper()
	r := invoice.NewRewriter(src, invoice.WithLogger(logger.Discard()))
	return r.Rewrite(context.Background(), doc, s)
}

func items(t *testing.T, doc *xmltree.Document) []*etree.Element {
	t.Helper()
	found, err := doc.FindAll("inv:invoiceItem")
	require.NoError(t, err)
	return found
}

func find(t *testing.T, doc *xmltree.Document, el *etree.Element, path string) *etree.Element {
	t.Helper()
	p, err := doc.Compile(path)
	require.NoError(t, err)
	return p.Find(el)
}

func text(t *testing.T, doc *xmltree.Document, el *etree.Element, path string) string {
	t.Helper()
	return xmltree.Text(find(t, doc, el, path))
}

func TestRewrite_RemovesServiceCodes(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Shipping PPL", "1", "homeCurrency", "0", "99", "20.79", "", "SHIPPING_PPL")+
			item("Card payment", "1", "homeCurrency", "0", "10", "2.10", "", "BILLING")+
			item("Shirt", "1", "homeCurrency", "0", "500", "105", "100500", "100500"),
		homeSummary))

	src := &fakeSource{catalog: defaultCatalog()}
	report, err := rewrite(t, doc, src, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 3)
	assert.Nil(t, find(t, doc, got[0], "inv:code"))
	assert.Nil(t, find(t, doc, got[1], "inv:code"))
	assert.Equal(t, "100500", text(t, doc, got[2], "inv:code"))
	assert.Equal(t, 2, report.RemovedCodes)
	assert.Equal(t, 0, src.calls, "no combo, no feed fetch")
}

func TestRewrite_NormalizesPrices(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Shirt", "3", "homeCurrency", "0", "500", "105", "100500", "100500")+
			item("Socks", "1", "homeCurrency", "1", "82.64", "17.355", "100501", "100501"),
		homeSummary))

	report, err := rewrite(t, doc, &fakeSource{}, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 2)
	assert.Equal(t, "605.00", text(t, doc, got[0], "inv:homeCurrency/typ:unitPrice"))
	assert.Equal(t, "true", text(t, doc, got[0], "inv:payVAT"))
	assert.Equal(t, "100.00", text(t, doc, got[1], "inv:homeCurrency/typ:unitPrice"))
	assert.Equal(t, "500", text(t, doc, got[0], "inv:homeCurrency/typ:price"), "price is left as is")
	assert.Equal(t, 2, report.NormalizedPrices)
	assert.Empty(t, report.Warnings())
}

func TestRewrite_InvalidPriceIsWarning(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Broken", "1", "homeCurrency", "7", "abc", "21", "100500", "100500")+
			item("Fine", "1", "homeCurrency", "0", "100", "21", "100501", "100501"),
		homeSummary))

	report, err := rewrite(t, doc, &fakeSource{}, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	assert.Equal(t, "7", text(t, doc, got[0], "inv:homeCurrency/typ:unitPrice"))
	assert.Equal(t, "false", text(t, doc, got[0], "inv:payVAT"))
	assert.Equal(t, "121.00", text(t, doc, got[1], "inv:homeCurrency/typ:unitPrice"))

	require.Len(t, report.PriceErrors, 1)
	perr := report.PriceErrors[0]
	assert.Equal(t, 1, perr.Item)
	assert.Equal(t, model.CurrencyHome, perr.Block)
	assert.Equal(t, "price", perr.Field)
	assert.Equal(t, "abc", perr.Value)
	assert.Len(t, report.Warnings(), 1)
	assert.Equal(t, 1, report.NormalizedPrices)
}

func TestRewrite_MissingPriceElementIsWarning(t *testing.T) {
	missing := `<inv:invoiceItem>
  <inv:text>No VAT</inv:text>
  <inv:quantity>1</inv:quantity>
  <inv:payVAT>false</inv:payVAT>
  <inv:homeCurrency><typ:unitPrice>5</typ:unitPrice><typ:price>5</typ:price></inv:homeCurrency>
</inv:invoiceItem>`
	doc := parse(t, invoiceDoc(missing, homeSummary))

	report, err := rewrite(t, doc, &fakeSource{}, settings(t, nil))
	require.NoError(t, err)

	require.Len(t, report.PriceErrors, 1)
	assert.Equal(t, "priceVAT", report.PriceErrors[0].Field)
	assert.Equal(t, "5", text(t, doc, items(t, doc)[0], "inv:homeCurrency/typ:unitPrice"))
}

func TestRewrite_ExpandsHomeCombo(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Shirt", "1", "homeCurrency", "0", "500", "105", "100500", "100500")+
			item("Set Stripes Callin", "2", "homeCurrency", "1900", "1570", "330", "102246_100239", "102246_100239"),
		homeSummary))

	src := &fakeSource{catalog: defaultCatalog()}
	s := settings(t, map[string]string{
		config.KeyFeedURL: "https://shop.example.com/feed.xml",
		config.KeyHash:    "token",
		config.KeyStoreID: "SKLAD",
	})

	report, err := rewrite(t, doc, src, s)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "https://shop.example.com/feed.xml", src.url)
	assert.Equal(t, "token", src.hash)

	got := items(t, doc)
	require.Len(t, got, 3)
	for _, el := range got {
		assert.NotEqual(t, "102246_100239", text(t, doc, el, "inv:stockItem/typ:stockItem/typ:ids"))
	}

	top, bottom := got[1], got[2]
	assert.Equal(t, "Stripes Callin top", text(t, doc, top, "inv:text"))
	assert.Equal(t, "2", text(t, doc, top, "inv:quantity"))
	assert.Equal(t, "ks", text(t, doc, top, "inv:unit"))
	assert.Equal(t, "true", text(t, doc, top, "inv:payVAT"))
	assert.Equal(t, "high", text(t, doc, top, "inv:rateVAT"))
	assert.Equal(t, "1000.00", text(t, doc, top, "inv:homeCurrency/typ:unitPrice"))
	assert.Equal(t, "826.45", text(t, doc, top, "inv:homeCurrency/typ:price"))
	assert.Equal(t, "173.55", text(t, doc, top, "inv:homeCurrency/typ:priceVAT"))
	assert.Equal(t, "102246", text(t, doc, top, "inv:stockItem/typ:stockItem/typ:ids"))
	assert.Equal(t, "SKLAD", text(t, doc, top, "inv:stockItem/typ:store/typ:ids"))
	assert.Equal(t, "102246", text(t, doc, top, "inv:code"))

	assert.Equal(t, "2", text(t, doc, bottom, "inv:quantity"))
	assert.Equal(t, "medium", text(t, doc, bottom, "inv:rateVAT"))
	assert.Equal(t, "156.2", text(t, doc, bottom, "inv:homeCurrency/typ:priceVAT"))
	assert.Equal(t, "900.00", text(t, doc, bottom, "inv:homeCurrency/typ:unitPrice"))
	assert.Equal(t, "100239", text(t, doc, bottom, "inv:code"))

	assert.Equal(t, 1, report.ExpandedCombos)
	assert.Equal(t, 2, report.CreatedItems)
	assert.Equal(t, 3, report.InjectedStores)
	assert.Equal(t, 3, report.NormalizedPrices)
	assert.True(t, report.FeedFetched)
}

func TestRewrite_GeneratedItemLayout(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Set", "1", "homeCurrency", "0", "0", "0", "102246_100239", "102246_100239"),
		homeSummary))

	_, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 2)

	var tags []string
	for _, c := range got[0].ChildElements() {
		tags = append(tags, c.FullTag())
	}
	assert.Equal(t, []string{
		"inv:text", "inv:quantity", "inv:unit", "inv:payVAT", "inv:rateVAT",
		"inv:homeCurrency", "inv:stockItem", "inv:code",
	}, tags)
	assert.Nil(t, find(t, doc, got[0], "inv:stockItem/typ:store"), "no store configured")
}

func TestRewrite_ExpandsForeignCombo(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Set Stripes Callin", "1", "foreignCurrency", "75.4", "62.3", "13.1", "102246_100239", "102246_100239"),
		currencySummary("EUR")))

	s := settings(t, map[string]string{config.KeyEURRate: "25"})
	report, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, s)
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 2)

	top := got[0]
	assert.Nil(t, find(t, doc, top, "inv:homeCurrency"))
	assert.Equal(t, "33.06", text(t, doc, top, "inv:foreignCurrency/typ:price"))
	assert.Equal(t, "6.94", text(t, doc, top, "inv:foreignCurrency/typ:priceVAT"))
	assert.Equal(t, "40.00", text(t, doc, top, "inv:foreignCurrency/typ:unitPrice"))

	bottom := got[1]
	assert.Equal(t, "29.75", text(t, doc, bottom, "inv:foreignCurrency/typ:price"))
	assert.Equal(t, "6.25", text(t, doc, bottom, "inv:foreignCurrency/typ:priceVAT"))
	assert.Equal(t, "36.00", text(t, doc, bottom, "inv:foreignCurrency/typ:unitPrice"))

	assert.Equal(t, 2, report.CreatedItems)
}

func TestRewrite_ForeignPriceVATConvertedPerProduct(t *testing.T) {
	// PRICE_VAT 1, PRICE 0.5 at rate 3: unit 0.33, price 0.17, VAT 0.17.
	// Subtracting the rounded amounts would give 0.16.
	doc := parse(t, invoiceDoc(
		item("Combo", "1", "foreignCurrency", "0", "0", "0", "A_MISSING", "A_MISSING"),
		currencySummary("EUR")))

	s := settings(t, map[string]string{config.KeyEURRate: "3"})
	_, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, s)
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 1)
	assert.Equal(t, "0.17", text(t, doc, got[0], "inv:foreignCurrency/typ:price"))
	assert.Equal(t, "0.17", text(t, doc, got[0], "inv:foreignCurrency/typ:priceVAT"))
	assert.Equal(t, "0.34", text(t, doc, got[0], "inv:foreignCurrency/typ:unitPrice"))
	assert.Equal(t, "low", text(t, doc, got[0], "inv:rateVAT"))
}

func TestRewrite_ForeignComboRequiresRate(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Combo", "1", "foreignCurrency", "0", "0", "0", "A_B", "A_B"),
		currencySummary("EUR")))

	src := &fakeSource{catalog: defaultCatalog()}
	_, err := rewrite(t, doc, src, settings(t, nil))
	require.Error(t, err)

	var vErr *model.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, config.KeyEURRate, vErr.Field)
	assert.Equal(t, 0, src.calls)
}

func TestRewrite_MissingProductSkipped(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Combo", "4", "homeCurrency", "0", "0", "0", "102246_999999", "102246_999999"),
		homeSummary))

	report, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 1)
	assert.Equal(t, "102246", text(t, doc, got[0], "inv:code"))
	assert.Equal(t, []string{"999999"}, report.MissingProducts)
	require.Len(t, report.Warnings(), 1)
	assert.Contains(t, report.Warnings()[0], "999999")
}

func TestRewrite_ComboWithoutCurrencyBlock(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Combo", "1", "", "", "", "", "102246_100239", "102246_100239")+
			item("Shirt", "1", "homeCurrency", "0", "500", "105", "100500", "100500"),
		homeSummary))

	report, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, settings(t, nil))
	require.NoError(t, err)

	got := items(t, doc)
	require.Len(t, got, 1)
	assert.Equal(t, "Shirt", text(t, doc, got[0], "inv:text"))
	assert.Equal(t, 1, report.ExpandedCombos)
	assert.Equal(t, 0, report.CreatedItems)
}

func TestRewrite_FeedFailure(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Combo", "1", "homeCurrency", "0", "0", "0", "102246_100239", "102246_100239"),
		homeSummary))

	feedErr := model.NewFeedUnavailableError("https://shop.example.com/feed.xml", 503, "unexpected status", nil)
	report, err := rewrite(t, doc, &fakeSource{err: feedErr}, settings(t, nil))
	require.Error(t, err)
	assert.Nil(t, report)

	var fe *model.FeedUnavailableError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 503, fe.StatusCode)

	var te *model.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, invoice.StepFetch, te.Step)
	assert.Contains(t, te.Element, "inv:invoiceItem")
}

func TestRewrite_EnrichesEURHeader(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Shirt", "1", "foreignCurrency", "0", "20", "4.2", "100500", "100500"),
		currencySummary("EUR")))

	s := settings(t, map[string]string{
		config.KeyBankID:      "2",
		config.KeyAccountNo:   "2900000000",
		config.KeyBankCode:    "2010",
		config.KeyConstSymbol: "0308",
	})
	report, err := rewrite(t, doc, &fakeSource{}, s)
	require.NoError(t, err)

	headers, err := doc.FindAll("inv:invoiceHeader")
	require.NoError(t, err)
	require.Len(t, headers, 1)
	header := headers[0]

	accountName, err := doc.Name("inv:account")
	require.NoError(t, err)
	accounts := xmltree.FindChildren(header, accountName)
	require.Len(t, accounts, 1)

	assert.Equal(t, "2", text(t, doc, header, "inv:account/typ:ids"))
	assert.Equal(t, "2900000000", text(t, doc, header, "inv:account/typ:accountNo"))
	assert.Equal(t, "2010", text(t, doc, header, "inv:account/typ:bankCode"))
	assert.Equal(t, "0308", text(t, doc, header, "inv:symConst"))
	assert.Equal(t, 1, report.EnrichedHeaders)

	children := header.ChildElements()
	assert.Equal(t, "symConst", children[len(children)-1].Tag)
}

func TestRewrite_HeaderUntouched(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		values  map[string]string
	}{
		{"CZK invoice", currencySummary("CZK"), map[string]string{config.KeyBankID: "2"}},
		{"no foreign currency", homeSummary, map[string]string{config.KeyBankID: "2"}},
		{"no summary", "", map[string]string{config.KeyBankID: "2"}},
		{"bank not configured", currencySummary("EUR"), map[string]string{config.KeyConstSymbol: "0308"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, invoiceDoc(
				item("Shirt", "1", "homeCurrency", "0", "500", "105", "100500", "100500"),
				tt.summary))

			report, err := rewrite(t, doc, &fakeSource{}, settings(t, tt.values))
			require.NoError(t, err)

			headers, err := doc.FindAll("inv:invoiceHeader")
			require.NoError(t, err)
			assert.Nil(t, find(t, doc, headers[0], "inv:account"))
			assert.Nil(t, find(t, doc, headers[0], "inv:symConst"))
			assert.Equal(t, 0, report.EnrichedHeaders)
		})
	}
}

func TestRewrite_AccountWithoutConstSymbol(t *testing.T) {
	doc := parse(t, invoiceDoc("", currencySummary("EUR")))

	_, err := rewrite(t, doc, &fakeSource{}, settings(t, map[string]string{config.KeyBankID: "2"}))
	require.NoError(t, err)

	headers, err := doc.FindAll("inv:invoiceHeader")
	require.NoError(t, err)
	assert.NotNil(t, find(t, doc, headers[0], "inv:account"))
	assert.Nil(t, find(t, doc, headers[0], "inv:symConst"))
}

func TestRewrite_MissingNamespace(t *testing.T) {
	doc := parse(t, `<dat:dataPack xmlns:dat="urn:dat" xmlns:inv="urn:inv"><inv:invoice/></dat:dataPack>`)

	_, err := rewrite(t, doc, &fakeSource{}, settings(t, nil))
	require.Error(t, err)

	var nsErr *model.NamespaceResolutionError
	require.True(t, errors.As(err, &nsErr))
	assert.Equal(t, "typ", nsErr.Prefix)

	var te *model.TransformError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, invoice.StepNamespaces, te.Step)
}

func TestRewrite_OutputSerializes(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Set", "1", "homeCurrency", "0", "0", "0", "102246_100239", "102246_100239"),
		homeSummary))

	_, err := rewrite(t, doc, &fakeSource{catalog: defaultCatalog()}, settings(t, map[string]string{config.KeyStoreID: "1"}))
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)

	again := parse(t, string(out))
	assert.Len(t, items(t, again), 2)
	assert.Contains(t, string(out), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(out), "<typ:ids>102246</typ:ids>")
}

func TestInspect(t *testing.T) {
	doc := parse(t, invoiceDoc(
		item("Set", "1", "homeCurrency", "0", "0", "0", "102246_100239", "102246_100239")+
			item("Shirt", "1", "homeCurrency", "0", "500", "105", "100500", "100500")+
			item("Shipping", "1", "homeCurrency", "0", "99", "20.79", "", "SHIPPING"),
		currencySummary("EUR")))

	sum, err := invoice.Inspect(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Invoices)
	assert.Equal(t, 3, sum.Items)
	assert.Equal(t, 1, sum.Combos)
	assert.Equal(t, 1, sum.ServiceLines)
	assert.Equal(t, []string{"EUR"}, sum.Currencies)
}
