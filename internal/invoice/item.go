package invoice

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/pohoda-xml/internal/decimal"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// elementWriter adds elements until the first failure and keeps that error
type elementWriter struct {
	err error
}

func (w *elementWriter) add(parent *etree.Element, tag, text string) *etree.Element {
	if w.err != nil || parent == nil {
		return nil
	}
	el, err := xmltree.AddElement(parent, tag, text)
	if err != nil {
		w.err = err
		return nil
	}
	return el
}

// amounts is the money block of a generated item
type amounts struct {
	unitPrice string
	price     string
	priceVAT  string
}

// homeAmounts takes the feed prices as they are
func homeAmounts(p model.Product) amounts {
	return amounts{
		unitPrice: money.FormatExact(p.PriceVAT),
		price:     money.FormatExact(p.Price),
		priceVAT:  money.FormatExact(p.VATAmount()),
	}
}

// foreignAmounts converts each field on its own. priceVAT is the converted
// VAT amount, not unitPrice minus price.
func foreignAmounts(p model.Product, rate decimal.Decimal) (amounts, error) {
	var converted [3]decimal.Decimal
	for i, v := range []decimal.Decimal{p.PriceVAT, p.Price, p.VATAmount()} {
		c, err := money.Convert(v, rate)
		if err != nil {
			return amounts{}, fmt.Errorf("convert price of %s: %w", p.Code, err)
		}
		converted[i] = c
	}
	return amounts{
		unitPrice: money.Format(converted[0]),
		price:     money.Format(converted[1]),
		priceVAT:  money.Format(converted[2]),
	}, nil
}

// newItem appends an invoice item for one product to parent:
// text, quantity, unit, payVAT, rateVAT, money block, stock reference and
// code, in that order.
func newItem(parent *etree.Element, p model.Product, quantity string, block model.CurrencyBlock, a amounts) (*etree.Element, error) {
	w := &elementWriter{}

	item := w.add(parent, tagInvoiceItem, "")
	w.add(item, tagText, p.Name)
	w.add(item, tagQuantity, quantity)
	w.add(item, tagUnit, model.UnitPieces)
	w.add(item, tagPayVAT, "false")
	w.add(item, tagRateVAT, string(p.Tier()))

	blockTag := tagHomeCurrency
	if block == model.CurrencyForeign {
		blockTag = tagForeignCurrency
	}
	currency := w.add(item, blockTag, "")
	w.add(currency, tagUnitPrice, a.unitPrice)
	w.add(currency, tagPrice, a.price)
	w.add(currency, tagPriceVAT, a.priceVAT)

	stock := w.add(item, tagStockItem, "")
	stockRef := w.add(stock, tagTypStockItem, "")
	w.add(stockRef, tagIDs, p.Code)

	if !model.IsServiceCode(p.Code) {
		w.add(item, tagCode, p.Code)
	}

	if w.err != nil {
		return nil, w.err
	}
	return item, nil
}
