package xmltree

import (
	"github.com/beevik/etree"

	"github.com/rezonia/pohoda-xml/internal/model"
)

// Attr is an attribute applied by AddElement, in order
type Attr struct {
	Key   string
	Value string
}

// AddElement appends a new child to parent. A prefixed tag must resolve in
// the namespace scope of parent; text is only set when non-empty.
func AddElement(parent *etree.Element, tag string, text string, attrs ...Attr) (*etree.Element, error) {
	q := ParseQName(tag)
	if q.Prefix != "" {
		if _, ok := ScopeOf(parent).Resolve(q.Prefix); !ok {
			return nil, model.NewNamespaceResolutionError(q.Prefix, tag, Qualified(parent))
		}
	}

	child := parent.CreateElement(q.String())
	if text != "" {
		child.SetText(text)
	}
	for _, a := range attrs {
		child.CreateAttr(a.Key, a.Value)
	}
	return child, nil
}

// RemoveElement detaches e from its parent
func RemoveElement(e *etree.Element) {
	if parent := e.Parent(); parent != nil {
		parent.RemoveChild(e)
	}
}

// AppendElement moves e under parent as its last child
func AppendElement(parent, e *etree.Element) {
	RemoveElement(e)
	parent.AddChild(e)
}
