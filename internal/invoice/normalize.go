package invoice

import (
	"context"

	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/config"
	money "github.com/rezonia/pohoda-xml/internal/decimal"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// normalize recomputes unitPrice = price + priceVAT for every money block
// and adds the store reference to every stock item
func (r *Rewriter) normalize(ctx context.Context, root *etree.Element, n *names, s *config.Settings, report *Report) error {
	for i, item := range xmltree.Descendants(root, n.item) {
		index := i + 1

		for _, block := range []struct {
			kind model.CurrencyBlock
			name xmltree.Name
		}{
			{model.CurrencyHome, n.home},
			{model.CurrencyForeign, n.foreign},
		} {
			el := xmltree.FindChild(item, block.name)
			if el == nil {
				continue
			}
			perr, err := normalizeBlock(item, el, n, index, block.kind)
			if err != nil {
				return model.NewTransformError(StepNormalize, xmltree.Locate(item), err)
			}
			if perr != nil {
				report.PriceErrors = append(report.PriceErrors, perr)
				report.warn("%s", perr.Error())
				r.logger.WarnContext(ctx, "unit price not recomputed",
					"item", perr.Item,
					"block", string(perr.Block),
					"field", perr.Field,
					"error", perr.Message,
				)
				continue
			}
			report.NormalizedPrices++
		}

		if !s.HasStore() {
			continue
		}
		stock := xmltree.FindChild(item, n.stockItem)
		if stock == nil {
			continue
		}
		w := &elementWriter{}
		store := w.add(stock, tagTypStore, "")
		w.add(store, tagIDs, s.StoreID)
		if w.err != nil {
			return model.NewTransformError(StepNormalize, xmltree.Locate(item), w.err)
		}
		report.InjectedStores++
	}
	return nil
}

// normalizeBlock updates one money block. A *model.PriceError leaves the
// block unchanged; the plain error is fatal.
func normalizeBlock(item, block *etree.Element, n *names, index int, kind model.CurrencyBlock) (*model.PriceError, error) {
	priceEl := xmltree.FindChild(block, n.price)
	vatEl := xmltree.FindChild(block, n.priceVAT)
	unitEl := xmltree.FindChild(block, n.unitPrice)

	switch {
	case priceEl == nil:
		return model.NewPriceError(index, kind, "price", "", "element missing", nil), nil
	case vatEl == nil:
		return model.NewPriceError(index, kind, "priceVAT", "", "element missing", nil), nil
	case unitEl == nil:
		return model.NewPriceError(index, kind, "unitPrice", "", "element missing", nil), nil
	}

	price, err := money.FromString(priceEl.Text())
	if err != nil {
		return model.NewPriceError(index, kind, "price", priceEl.Text(), "not a number", err), nil
	}
	vat, err := money.FromString(vatEl.Text())
	if err != nil {
		return model.NewPriceError(index, kind, "priceVAT", vatEl.Text(), "not a number", err), nil
	}

	unitEl.SetText(money.Format(money.Sum(price, vat)))

	if payVAT := xmltree.FindChild(item, n.payVAT); payVAT != nil {
		payVAT.SetText("true")
		return nil, nil
	}
	if _, err := xmltree.AddElement(item, tagPayVAT, "true"); err != nil {
		return nil, err
	}
	return nil, nil
}
