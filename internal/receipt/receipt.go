// Package receipt converts Pohoda warehouse receipts (pri:prijemka) into the
// SHOP stock document read by the e-shop.
package receipt

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

const (
	tagDataPack     = "dat:dataPack"
	tagDataPackItem = "dat:dataPackItem"
	tagReceipt      = "pri:prijemka"
	tagDetail       = "pri:prijemkaDetail"
	tagItem         = "pri:prijemkaItem"
	tagCode         = "pri:code"
	tagText         = "pri:text"
	tagQuantity     = "pri:quantity"
)

// ParseItems reads every receipt item of a receipt document in document
// order. A node missing anywhere on the way is a *model.ReceiptParseError.
func ParseItems(data []byte) ([]model.ReceiptItem, error) {
	doc, err := xmltree.Parse(data)
	if err != nil {
		return nil, model.NewParseError(model.DialectReceipt, "document", "not well-formed XML", err)
	}
	return Items(doc)
}

// Items reads the receipt items of an already parsed document
func Items(doc *xmltree.Document) ([]model.ReceiptItem, error) {
	p := &parser{}

	root := doc.Root()
	if !p.is(root, tagDataPack) {
		return nil, model.NewReceiptParseError(tagDataPack, "unexpected root <"+xmltree.Qualified(root)+">", p.err)
	}

	packItems := p.children(root, tagDataPackItem)
	if len(packItems) == 0 {
		return nil, p.missing(tagDataPack, tagDataPackItem)
	}

	var items []model.ReceiptItem
	for _, packItem := range packItems {
		receipt := p.child(packItem, tagReceipt)
		if receipt == nil {
			return nil, p.missing(xmltree.Locate(packItem), tagReceipt)
		}
		detail := p.child(receipt, tagDetail)
		if detail == nil {
			return nil, p.missing(xmltree.Locate(receipt), tagDetail)
		}
		lines := p.children(detail, tagItem)
		if len(lines) == 0 {
			return nil, p.missing(xmltree.Locate(detail), tagItem)
		}

		for _, line := range lines {
			item, err := p.item(line)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

type parser struct {
	err error
}

// is reports whether e is tag, with the prefix resolved in the scope of e
func (p *parser) is(e *etree.Element, tag string) bool {
	if e.Tag != xmltree.ParseQName(tag).Local {
		return false
	}
	name, err := xmltree.ResolveName(xmltree.ScopeOf(e), tag)
	if err != nil {
		p.err = err
		return false
	}
	return name.Matches(e)
}

// scopeErr records why tag cannot be resolved below e
func (p *parser) scopeErr(e *etree.Element, tag string) {
	if _, err := xmltree.ResolveName(xmltree.ScopeOf(e), tag); err != nil {
		p.err = err
	}
}

func (p *parser) child(e *etree.Element, tag string) *etree.Element {
	p.err = nil
	for _, c := range e.ChildElements() {
		if p.is(c, tag) {
			return c
		}
	}
	p.scopeErr(e, tag)
	return nil
}

func (p *parser) children(e *etree.Element, tag string) []*etree.Element {
	p.err = nil
	var found []*etree.Element
	for _, c := range e.ChildElements() {
		if p.is(c, tag) {
			found = append(found, c)
		}
	}
	if len(found) == 0 {
		p.scopeErr(e, tag)
	}
	return found
}

func (p *parser) missing(at, tag string) error {
	return model.NewReceiptParseError(at, "missing <"+tag+">", p.err)
}

func (p *parser) item(line *etree.Element) (model.ReceiptItem, error) {
	fields := make(map[string]string, 3)
	for _, tag := range []string{tagCode, tagText, tagQuantity} {
		el := p.child(line, tag)
		if el == nil {
			return model.ReceiptItem{}, p.missing(xmltree.Locate(line), tag)
		}
		fields[tag] = strings.TrimSpace(el.Text())
	}
	return model.ReceiptItem{
		Code:     fields[tagCode],
		Text:     fields[tagText],
		Quantity: fields[tagQuantity],
	}, nil
}
