package xmltree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// Declaration is written in front of every serialized document
const Declaration = `version="1.0" encoding="UTF-8"`

// IndentSpaces is the indentation width of serialized documents
const IndentSpaces = 2

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a parsed XML document together with the namespace map declared
// on its root element
type Document struct {
	doc *etree.Document
	NS  NSMap
}

// Parse reads an XML document. Non UTF-8 input is decoded according to its
// declaration and a leading UTF-8 byte order mark is skipped. Whitespace-only
// text between elements is dropped so the output can be re-indented.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty XML document")
	}
	stripBlankText(root)

	return &Document{
		doc: doc,
		NS:  ScopeOf(root),
	}, nil
}

// Root returns the document element
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Require checks that every prefix is declared on the root element
func (d *Document) Require(prefixes ...string) error {
	for _, p := range prefixes {
		if _, ok := d.NS.Resolve(p); !ok {
			return model.NewNamespaceResolutionError(p, p+":*", Qualified(d.Root()))
		}
	}
	return nil
}

// Compile resolves a path against the root namespace map
func (d *Document) Compile(expr string) (Path, error) {
	return CompilePath(d.NS, expr)
}

// Name resolves a single tag against the root namespace map
func (d *Document) Name(tag string) (Name, error) {
	return ResolveName(d.NS, tag)
}

// FindAll returns every element below the root matching tag, in document order
func (d *Document) FindAll(tag string) ([]*etree.Element, error) {
	name, err := d.Name(tag)
	if err != nil {
		return nil, err
	}
	return Descendants(d.Root(), name), nil
}

// Bytes serializes the document as indented UTF-8 with an XML declaration.
// The receiver is not modified.
func (d *Document) Bytes() ([]byte, error) {
	out := etree.NewDocument()
	out.CreateProcInst("xml", Declaration)
	out.SetRoot(d.Root().Copy())
	out.Indent(IndentSpaces)

	data, err := out.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}
	return data, nil
}

// stripBlankText removes whitespace-only character data from elements that
// have element children. Leaf text is kept as is.
func stripBlankText(e *etree.Element) {
	children := e.ChildElements()
	if len(children) == 0 {
		return
	}
	for _, tok := range append([]etree.Token(nil), e.Child...) {
		if cd, ok := tok.(*etree.CharData); ok && cd.IsWhitespace() {
			e.RemoveChild(cd)
		}
	}
	for _, c := range children {
		stripBlankText(c)
	}
}
