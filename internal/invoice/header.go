package invoice

import (
	"context"

	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// enrichHeaders adds the bank account and constant symbol to the header of
// every invoice whose summary is in EUR
func (r *Rewriter) enrichHeaders(ctx context.Context, root *etree.Element, n *names, s *config.Settings, report *Report) error {
	if !s.HasBank() {
		return nil
	}

	for _, inv := range xmltree.Descendants(root, n.invoice) {
		summary := xmltree.FindChild(inv, n.summary)
		if summary == nil {
			continue
		}
		if xmltree.Text(n.currencyIDs.Find(summary)) != currencyEUR {
			continue
		}

		header := xmltree.FindChild(inv, n.header)
		if header == nil {
			location := xmltree.Locate(inv)
			report.warn("EUR invoice at %s has no header", location)
			r.logger.WarnContext(ctx, "EUR invoice without header", "element", location)
			continue
		}

		w := &elementWriter{}
		account := w.add(header, tagAccount, "")
		w.add(account, tagIDs, s.BankID)
		w.add(account, tagAccountNo, s.AccountNo)
		w.add(account, tagBankCode, s.BankCode)
		if s.ConstSymbol != "" {
			w.add(header, tagSymConst, s.ConstSymbol)
		}
		if w.err != nil {
			return model.NewTransformError(StepHeader, xmltree.Locate(header), w.err)
		}
		report.EnrichedHeaders++
	}
	return nil
}
