// Package pohoda provides a public API for transforming Pohoda XML exports.
//
// It rewrites invoice documents (combo expansion from the shop product feed,
// price normalization, store injection, EUR bank account headers) and
// converts stock receipts into the SHOP stock feed.
//
// Example usage:
//
//	s, err := pohoda.SettingsFromMap(map[string]string{
//	    "feed_url": "https://shop.example.cz/export/products.xml",
//	    "hash":     "secret",
//	    "store_id": "SKLAD",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pohoda.Transform(ctx, file, s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("modified_faktury.xml", res.Output, 0o644)
package pohoda

import (
	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/invoice"
	"github.com/rezonia/pohoda-xml/internal/model"
)

// Re-export core types for public API
type (
	Settings      = config.Settings
	Product       = model.Product
	ReceiptItem   = model.ReceiptItem
	Report        = invoice.Report
	Summary       = invoice.Summary
	Catalog       = feed.Catalog
	ProductSource = invoice.ProductSource
	Dialect       = model.Dialect
)

// Re-export document kinds
const (
	KindInvoice = model.DialectInvoice
	KindReceipt = model.DialectReceipt
	KindShop    = model.DialectShop
	KindFeed    = model.DialectFeed
	KindUnknown = model.DialectUnknown
)

// Re-export setting codes
const (
	KeyBankID      = config.KeyBankID
	KeyAccountNo   = config.KeyAccountNo
	KeyBankCode    = config.KeyBankCode
	KeyConstSymbol = config.KeyConstSymbol
	KeyStoreID     = config.KeyStoreID
	KeyFeedURL     = config.KeyFeedURL
	KeyHash        = config.KeyHash
	KeyEURRate     = config.KeyEURRate
)

// Re-export error types
type (
	ParseError               = model.ParseError
	NamespaceResolutionError = model.NamespaceResolutionError
	FeedUnavailableError     = model.FeedUnavailableError
	ReceiptParseError        = model.ReceiptParseError
	PriceError               = model.PriceError
	TransformError           = model.TransformError
	ValidationError          = model.ValidationError
)

// SettingsFromMap builds validated settings from setting codes and values
func SettingsFromMap(values map[string]string) (*Settings, error) {
	return config.FromMap(values)
}

// LoadSettingsFile reads validated settings from a YAML file
func LoadSettingsFile(path string) (*Settings, error) {
	return config.LoadSettingsFile(path)
}

// NewCatalog builds a product catalog, e.g. for a custom ProductSource
func NewCatalog(products []Product) *Catalog {
	return feed.NewCatalog(products)
}
