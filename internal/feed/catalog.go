package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/rezonia/pohoda-xml/internal/decimal"
	"github.com/rezonia/pohoda-xml/internal/model"
)

// Feed XML structures
type feedDocument struct {
	XMLName  xml.Name      `xml:"PRODUCTS"`
	Products []feedProduct `xml:"PRODUCT"`
}

type feedProduct struct {
	Code     string `xml:"PRODUCT_CODE"`
	Name     string `xml:"PRODUCT"`
	Price    string `xml:"PRICE"`     // ex-VAT
	PriceVAT string `xml:"PRICE_VAT"` // VAT inclusive
	VAT      string `xml:"VAT"`       // percent
}

// Skipped describes a feed record left out of the catalog
type Skipped struct {
	Code   string
	Reason string
}

// Parse reads a PRODUCTS document. Records without a code or with
// non-numeric prices are returned in skipped rather than failing the feed.
func Parse(r io.Reader) (products []model.Product, skipped []Skipped, err error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read feed: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil, errors.New("empty feed body")
	}

	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	var doc feedDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed XML: %w", err)
	}

	products = make([]model.Product, 0, len(doc.Products))
	for _, fp := range doc.Products {
		p, reason := convertProduct(fp)
		if reason != "" {
			skipped = append(skipped, Skipped{Code: fp.Code, Reason: reason})
			continue
		}
		products = append(products, p)
	}
	return products, skipped, nil
}

func convertProduct(fp feedProduct) (model.Product, string) {
	code := strings.TrimSpace(fp.Code)
	if code == "" {
		return model.Product{}, "missing PRODUCT_CODE"
	}
	price, err := decimal.FromString(fp.Price)
	if err != nil {
		return model.Product{}, fmt.Sprintf("invalid PRICE %q", fp.Price)
	}
	priceVAT, err := decimal.FromString(fp.PriceVAT)
	if err != nil {
		return model.Product{}, fmt.Sprintf("invalid PRICE_VAT %q", fp.PriceVAT)
	}
	return model.Product{
		Code:       code,
		Name:       strings.TrimSpace(fp.Name),
		Price:      price,
		PriceVAT:   priceVAT,
		VATPercent: strings.TrimSpace(fp.VAT),
	}, ""
}

// Catalog is the product sequence of one feed fetch
type Catalog struct {
	products []model.Product
}

// NewCatalog wraps products in feed order
func NewCatalog(products []model.Product) *Catalog {
	return &Catalog{products: products}
}

// Lookup returns the first product with the given code. A missing code is
// reported through the boolean, not as an error.
func (c *Catalog) Lookup(code string) (model.Product, bool) {
	if c == nil {
		return model.Product{}, false
	}
	for _, p := range c.products {
		if p.Code == code {
			return p, true
		}
	}
	return model.Product{}, false
}

// Len returns the number of products
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// Products returns the products in feed order
func (c *Catalog) Products() []model.Product {
	if c == nil {
		return nil
	}
	return c.products
}
