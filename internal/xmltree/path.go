package xmltree

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// Name is a resolved element name
type Name struct {
	URI   string
	Local string
}

// Matches reports whether e has this namespace URI and local name
func (n Name) Matches(e *etree.Element) bool {
	if e.Tag != n.Local {
		return false
	}
	uri, ok := NamespaceOf(e)
	return ok && uri == n.URI
}

// ResolveName resolves a prefix:local tag against a namespace map
func ResolveName(ns NSMap, tag string) (Name, error) {
	q := ParseQName(tag)
	uri, ok := ns.Resolve(q.Prefix)
	if !ok {
		if q.Prefix != "" {
			return Name{}, model.NewNamespaceResolutionError(q.Prefix, tag, "")
		}
		uri = ""
	}
	return Name{URI: uri, Local: q.Local}, nil
}

// Path is a sequence of child steps, written "a:x/b:y"
type Path struct {
	expr  string
	steps []Name
}

// CompilePath resolves every step of a slash separated path against ns
func CompilePath(ns NSMap, expr string) (Path, error) {
	parts := strings.Split(expr, "/")
	steps := make([]Name, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("empty step in path %q", expr)
		}
		name, err := ResolveName(ns, part)
		if err != nil {
			return Path{}, err
		}
		steps = append(steps, name)
	}
	return Path{expr: expr, steps: steps}, nil
}

// MustCompilePath is CompilePath that panics on error
func MustCompilePath(ns NSMap, expr string) Path {
	p, err := CompilePath(ns, expr)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	return p.expr
}

// Find returns the first element reached from e, taking the first matching
// child at every step, or nil
func (p Path) Find(e *etree.Element) *etree.Element {
	cur := e
	for _, step := range p.steps {
		cur = FindChild(cur, step)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// FindAll returns every element reachable from e along the path, in
// document order
func (p Path) FindAll(e *etree.Element) []*etree.Element {
	cur := []*etree.Element{e}
	for _, step := range p.steps {
		var next []*etree.Element
		for _, el := range cur {
			next = append(next, FindChildren(el, step)...)
		}
		if len(next) == 0 {
			return nil
		}
		cur = next
	}
	return cur
}

// FindChild returns the first child of e matching name
func FindChild(e *etree.Element, name Name) *etree.Element {
	for _, c := range e.ChildElements() {
		if name.Matches(c) {
			return c
		}
	}
	return nil
}

// FindChildren returns every child of e matching name
func FindChildren(e *etree.Element, name Name) []*etree.Element {
	var found []*etree.Element
	for _, c := range e.ChildElements() {
		if name.Matches(c) {
			found = append(found, c)
		}
	}
	return found
}

// Descendants returns every descendant of e matching name in document order,
// e itself excluded
func Descendants(e *etree.Element, name Name) []*etree.Element {
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if name.Matches(c) {
				found = append(found, c)
			}
			walk(c)
		}
	}
	walk(e)
	return found
}

// Text returns the trimmed text content of e; nil yields ""
func Text(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}

// Locate describes where e sits in its document, e.g.
// /dat:dataPack/dat:dataPackItem[2]/inv:invoice
func Locate(e *etree.Element) string {
	var parts []string
	for el := e; el != nil && el.Tag != ""; el = el.Parent() {
		part := Qualified(el)
		if parent := el.Parent(); parent != nil {
			same, index := 0, 0
			for _, sib := range parent.ChildElements() {
				if sib.Space == el.Space && sib.Tag == el.Tag {
					same++
					if sib == el {
						index = same
					}
				}
			}
			if same > 1 {
				part = fmt.Sprintf("%s[%d]", part, index)
			}
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}
