package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Dialect identifies one of the XML dialects handled by the transformer
type Dialect string

const (
	DialectInvoice Dialect = "INVOICE" // dat:dataPack with inv:invoice
	DialectReceipt Dialect = "RECEIPT" // dat:dataPack with pri:prijemka
	DialectShop    Dialect = "SHOP"    // SHOP/SHOPITEM
	DialectFeed    Dialect = "FEED"    // PRODUCTS/PRODUCT
	DialectUnknown Dialect = "UNKNOWN"
)

// CurrencyBlock names the money block an invoice item carries
type CurrencyBlock string

const (
	CurrencyHome    CurrencyBlock = "homeCurrency"
	CurrencyForeign CurrencyBlock = "foreignCurrency"
	CurrencyNone    CurrencyBlock = ""
)

// VATTier is the coarse VAT classification written to inv:rateVAT
type VATTier string

const (
	VATHigh   VATTier = "high"
	VATMedium VATTier = "medium"
	VATLow    VATTier = "low"
)

var vatTiers = map[int64]VATTier{
	21: VATHigh,
	12: VATMedium,
	10: VATLow,
}

// TierForPercent maps a VAT percentage from the feed to its tier.
// Unknown or unparseable values fall back to VATHigh.
func TierForPercent(percent string) VATTier {
	d, err := decimal.NewFromString(strings.TrimSpace(percent))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return VATHigh
	}
	if tier, ok := vatTiers[d.IntPart()]; ok {
		return tier
	}
	return VATHigh
}

// UnitPieces is the unit written to generated invoice items
const UnitPieces = "ks"

// Product is one record of the remote product feed
type Product struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`       // ex-VAT
	PriceVAT   decimal.Decimal `json:"price_vat"`   // VAT inclusive
	VATPercent string          `json:"vat_percent"` // raw VAT column
}

// VATAmount returns the VAT part of the price
func (p Product) VATAmount() decimal.Decimal {
	return p.PriceVAT.Sub(p.Price)
}

// Tier returns the VAT tier of the product
func (p Product) Tier() VATTier {
	return TierForPercent(p.VATPercent)
}

// ReceiptItem is one warehouse receipt line, also one SHOPITEM
type ReceiptItem struct {
	Code     string `json:"code"`
	Text     string `json:"text"`
	Quantity string `json:"quantity"`
}

var serviceCodeMarkers = []string{"SHIPPING", "BILLING"}

// IsServiceCode reports whether an item code marks a shipping or billing line.
// Such lines never carry inv:code in the output.
func IsServiceCode(code string) bool {
	for _, marker := range serviceCodeMarkers {
		if strings.Contains(code, marker) {
			return true
		}
	}
	return false
}

// ComboSeparator joins product codes inside a combo stock reference
const ComboSeparator = "_"

// SplitCombo splits a stock identifier into its product codes. The second
// result is false when the identifier is not a combo.
func SplitCombo(ids string) ([]string, bool) {
	if !strings.Contains(ids, ComboSeparator) {
		return nil, false
	}
	return strings.Split(ids, ComboSeparator), true
}
