// Package invoice rewrites Pohoda invoice documents: combo stock items are
// expanded into their products, unit prices are recomputed, store references
// are injected and EUR invoices get bank details in the header.
package invoice

import (
	"context"
	"log/slog"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// Steps reported in model.TransformError
const (
	StepNamespaces = "namespaces"
	StepPlan       = "plan"
	StepFetch      = "fetch"
	StepExpand     = "expand"
	StepNormalize  = "normalize"
	StepHeader     = "header"
)

// ProductSource provides the product catalog for combo expansion
type ProductSource interface {
	FetchProducts(ctx context.Context, feedURL, hash string) (*feed.Catalog, error)
}

// Rewriter applies the invoice transform to parsed documents
type Rewriter struct {
	source ProductSource
	logger *slog.Logger
}

// Option configures a Rewriter
type Option func(*Rewriter)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		r.logger = l
	}
}

// NewRewriter creates a rewriter fetching products from source
func NewRewriter(source ProductSource, opts ...Option) *Rewriter {
	r := &Rewriter{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// combo is a planned expansion of one invoice item
type combo struct {
	item     *etree.Element
	parent   *etree.Element
	location string
	codes    []string
	quantity string
	block    model.CurrencyBlock
}

// Rewrite transforms doc in place. On error the document must be discarded;
// the error is a *model.TransformError wrapping the cause.
func (r *Rewriter) Rewrite(ctx context.Context, doc *xmltree.Document, s *config.Settings) (*Report, error) {
	if s == nil {
		s = &config.Settings{}
	}
	report := &Report{}

	if err := doc.Require(requiredPrefixes...); err != nil {
		return nil, model.NewTransformError(StepNamespaces, xmltree.Locate(doc.Root()), err)
	}
	n, err := resolveNames(doc)
	if err != nil {
		return nil, model.NewTransformError(StepNamespaces, xmltree.Locate(doc.Root()), err)
	}
	root := doc.Root()

	r.stripServiceCodes(root, n, report)

	plan, err := r.plan(root, n, s)
	if err != nil {
		return nil, err
	}

	if len(plan) > 0 {
		catalog, err := r.source.FetchProducts(ctx, s.FeedURL, s.Hash)
		if err != nil {
			return nil, model.NewTransformError(StepFetch, plan[0].location, err)
		}
		report.FeedFetched = true

		if err := r.expand(ctx, plan, catalog, s.EURRate, report); err != nil {
			return nil, err
		}
	}

	if err := r.normalize(ctx, root, n, s, report); err != nil {
		return nil, err
	}
	if err := r.enrichHeaders(ctx, root, n, s, report); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "invoice rewritten",
		"removed_codes", report.RemovedCodes,
		"expanded_combos", report.ExpandedCombos,
		"created_items", report.CreatedItems,
		"missing_products", len(report.MissingProducts),
		"normalized_prices", report.NormalizedPrices,
		"injected_stores", report.InjectedStores,
		"enriched_headers", report.EnrichedHeaders,
		"warnings", len(report.Warnings()),
	)
	return report, nil
}

// stripServiceCodes removes inv:code from shipping and billing lines
func (r *Rewriter) stripServiceCodes(root *etree.Element, n *names, report *Report) {
	for _, item := range xmltree.Descendants(root, n.item) {
		code := xmltree.FindChild(item, n.code)
		if code == nil {
			continue
		}
		if model.IsServiceCode(xmltree.Text(code)) {
			xmltree.RemoveElement(code)
			report.RemovedCodes++
		}
	}
}

// plan collects every combo item without touching the tree
func (r *Rewriter) plan(root *etree.Element, n *names, s *config.Settings) ([]combo, error) {
	var plan []combo
	for _, item := range xmltree.Descendants(root, n.item) {
		ids := n.stockIDs.Find(item)
		if ids == nil {
			continue
		}
		codes, ok := model.SplitCombo(xmltree.Text(ids))
		if !ok {
			continue
		}

		c := combo{
			item:     item,
			parent:   item.Parent(),
			location: xmltree.Locate(item),
			codes:    codes,
			quantity: xmltree.Text(xmltree.FindChild(item, n.quantity)),
			block:    model.CurrencyNone,
		}
		switch {
		case xmltree.FindChild(item, n.home) != nil:
			c.block = model.CurrencyHome
		case xmltree.FindChild(item, n.foreign) != nil:
			c.block = model.CurrencyForeign
		}

		if c.block == model.CurrencyForeign && !s.HasEURRate() {
			err := model.NewValidationError(config.KeyEURRate, nil, "required", "needed to expand foreign currency items")
			return nil, model.NewTransformError(StepPlan, c.location, err)
		}
		plan = append(plan, c)
	}
	return plan, nil
}

// expand replaces every planned combo with one item per product found in
// the catalog. Codes missing from the catalog are skipped.
func (r *Rewriter) expand(ctx context.Context, plan []combo, catalog *feed.Catalog, rate decimal.Decimal, report *Report) error {
	for _, c := range plan {
		xmltree.RemoveElement(c.item)
		report.ExpandedCombos++

		if c.block == model.CurrencyNone {
			r.logger.DebugContext(ctx, "combo without currency block removed", "element", c.location)
			continue
		}

		for _, code := range c.codes {
			product, ok := catalog.Lookup(code)
			if !ok {
				report.MissingProducts = append(report.MissingProducts, code)
				report.warn("product %s of combo at %s not found in feed", code, c.location)
				r.logger.WarnContext(ctx, "combo product not found", "code", code, "element", c.location)
				continue
			}

			a := homeAmounts(product)
			if c.block == model.CurrencyForeign {
				var err error
				if a, err = foreignAmounts(product, rate); err != nil {
					return model.NewTransformError(StepExpand, c.location, err)
				}
			}
			if _, err := newItem(c.parent, product, c.quantity, c.block, a); err != nil {
				return model.NewTransformError(StepExpand, c.location, err)
			}
			report.CreatedItems++
		}
	}
	return nil
}
