package receipt

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/net/html/charset"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// shopHeader is the declaration written in front of SHOP documents
const shopHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// SHOP XML structures
type shopDocument struct {
	XMLName xml.Name   `xml:"SHOP"`
	Items   []shopItem `xml:"SHOPITEM"`
}

type shopItem struct {
	Code  string    `xml:"CODE"`
	Name  string    `xml:"NAME"`
	Stock shopStock `xml:"STOCK"`
}

type shopStock struct {
	Amount string `xml:"AMOUNT"`
}

// BuildShopXML renders items as a SHOP document, one SHOPITEM per item in
// order, tab indented
func BuildShopXML(items []model.ReceiptItem) ([]byte, error) {
	doc := shopDocument{Items: make([]shopItem, 0, len(items))}
	for _, it := range items {
		doc.Items = append(doc.Items, shopItem{
			Code:  it.Code,
			Name:  it.Text,
			Stock: shopStock{Amount: it.Quantity},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to render SHOP XML: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(shopHeader) + len(body) + 1)
	buf.WriteString(shopHeader)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// ParseShop reads a SHOP document back into items
func ParseShop(data []byte) ([]model.ReceiptItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var doc shopDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, model.NewParseError(model.DialectShop, "SHOP", "failed to parse shop document", err)
	}

	items := make([]model.ReceiptItem, 0, len(doc.Items))
	for _, si := range doc.Items {
		items = append(items, model.ReceiptItem{
			Code:     si.Code,
			Text:     si.Name,
			Quantity: si.Stock.Amount,
		})
	}
	return items, nil
}

// Convert parses a receipt document and renders its SHOP equivalent
func Convert(data []byte) ([]byte, []model.ReceiptItem, error) {
	items, err := ParseItems(data)
	if err != nil {
		return nil, nil, err
	}
	out, err := BuildShopXML(items)
	if err != nil {
		return nil, nil, err
	}
	return out, items, nil
}
