// Package xmltree builds and queries namespace-qualified XML trees addressed
// with prefix:local tags. Prefixes are always resolved against an explicit
// namespace map; an undeclared prefix is an error, never a silent default.
package xmltree

import (
	"strings"

	"github.com/beevik/etree"
)

// XMLNamespace is bound to the xml prefix in every scope
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// NSMap maps namespace prefixes to URIs. The empty prefix holds the default
// namespace.
type NSMap map[string]string

// Resolve looks a prefix up in the map
func (m NSMap) Resolve(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	uri, ok := m[prefix]
	return uri, ok
}

// Prefixes returns the declared prefixes, default namespace excluded
func (m NSMap) Prefixes() []string {
	prefixes := make([]string, 0, len(m))
	for p := range m {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// ScopeOf collects the namespace declarations in scope at e. A declaration on
// a nearer ancestor shadows one further up.
func ScopeOf(e *etree.Element) NSMap {
	m := NSMap{}
	for el := e; el != nil; el = el.Parent() {
		for _, a := range el.Attr {
			var prefix string
			switch {
			case a.Space == "xmlns":
				prefix = a.Key
			case a.Space == "" && a.Key == "xmlns":
				prefix = ""
			default:
				continue
			}
			if _, seen := m[prefix]; !seen {
				m[prefix] = a.Value
			}
		}
	}
	return m
}

// QName is a tag split into prefix and local name
type QName struct {
	Prefix string
	Local  string
}

// ParseQName splits "prefix:local". A bare name has an empty prefix.
func ParseQName(tag string) QName {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return QName{Prefix: tag[:i], Local: tag[i+1:]}
	}
	return QName{Local: tag}
}

func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Qualified returns the tag of e as written in the document
func Qualified(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return QName{Prefix: e.Space, Local: e.Tag}.String()
}

// NamespaceOf returns the namespace URI of e. The second result is false when
// the element's own prefix is undeclared. An unprefixed element outside any
// default namespace has the empty URI.
func NamespaceOf(e *etree.Element) (string, bool) {
	uri, ok := ScopeOf(e).Resolve(e.Space)
	if !ok && e.Space == "" {
		return "", true
	}
	return uri, ok
}
