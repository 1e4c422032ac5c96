package soap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/afipws/internal/decimal"
)

// Node walks a response document by local element name, ignoring
// namespace prefixes. A nil *Node is an absent element: every accessor
// returns the zero value.
type Node struct {
	el *etree.Element
}

// NewNode wraps an etree element
func NewNode(el *etree.Element) *Node {
	if el == nil {
		return nil
	}
	return &Node{el: el}
}

// ParseNode parses an XML document and returns its root
func ParseNode(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("failed to parse XML: empty document")
	}
	return NewNode(root), nil
}

// Exists reports whether the element was present
func (n *Node) Exists() bool {
	return n != nil && n.el != nil
}

// Name returns the local element name
func (n *Node) Name() string {
	if !n.Exists() {
		return ""
	}
	return n.el.Tag
}

// Element exposes the underlying etree element
func (n *Node) Element() *etree.Element {
	if !n.Exists() {
		return nil
	}
	return n.el
}

// Child follows path, taking the first child with each name
func (n *Node) Child(path ...string) *Node {
	cur := n
	for _, name := range path {
		if !cur.Exists() {
			return nil
		}
		var next *Node
		for _, c := range cur.el.ChildElements() {
			if c.Tag == name {
				next = &Node{el: c}
				break
			}
		}
		cur = next
	}
	return cur
}

// All returns the direct children named name
func (n *Node) All(name string) []*Node {
	if !n.Exists() {
		return nil
	}
	var out []*Node
	for _, c := range n.el.ChildElements() {
		if c.Tag == name {
			out = append(out, &Node{el: c})
		}
	}
	return out
}

// Children returns every child element
func (n *Node) Children() []*Node {
	if !n.Exists() {
		return nil
	}
	children := n.el.ChildElements()
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		out = append(out, &Node{el: c})
	}
	return out
}

// Find returns the first descendant named name, depth first
func (n *Node) Find(name string) *Node {
	if !n.Exists() {
		return nil
	}
	for _, c := range n.el.ChildElements() {
		if c.Tag == name {
			return &Node{el: c}
		}
		if found := (&Node{el: c}).Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant named name in document order
func (n *Node) FindAll(name string) []*Node {
	if !n.Exists() {
		return nil
	}
	var out []*Node
	for _, c := range n.el.ChildElements() {
		if c.Tag == name {
			out = append(out, &Node{el: c})
		}
		out = append(out, (&Node{el: c}).FindAll(name)...)
	}
	return out
}

// Text returns the trimmed text at path
func (n *Node) Text(path ...string) string {
	target := n.Child(path...)
	if !target.Exists() {
		return ""
	}
	return strings.TrimSpace(target.el.Text())
}

// Int returns the integer at path, zero when absent or malformed
func (n *Node) Int(path ...string) int {
	v, _ := strconv.Atoi(n.Text(path...))
	return v
}

// Int64 returns the integer at path, zero when absent or malformed
func (n *Node) Int64(path ...string) int64 {
	v, _ := strconv.ParseInt(n.Text(path...), 10, 64)
	return v
}

// Decimal returns the amount at path, zero when absent or malformed
func (n *Node) Decimal(path ...string) decimal.Decimal {
	s := n.Text(path...)
	if s == "" {
		return decimal.Zero
	}
	d, err := money.FromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Bool accepts true/1/S/Y
func (n *Node) Bool(path ...string) bool {
	switch strings.ToUpper(n.Text(path...)) {
	case "TRUE", "1", "S", "SI", "Y":
		return true
	}
	return false
}

// Time parses the text at path with layout, trying RFC3339 afterwards
func (n *Node) Time(layout string, path ...string) time.Time {
	s := n.Text(path...)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(layout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// Attr returns an attribute value by local key
func (n *Node) Attr(key string) string {
	if !n.Exists() {
		return ""
	}
	for _, a := range n.el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Leaves maps each childless child element to its text
func (n *Node) Leaves() map[string]string {
	out := make(map[string]string)
	for _, c := range n.Children() {
		if len(c.el.ChildElements()) == 0 {
			out[c.Name()] = c.Text()
		}
	}
	return out
}

// String serializes the element
func (n *Node) String() string {
	if !n.Exists() {
		return ""
	}
	doc := etree.NewDocument()
	doc.SetRoot(n.el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
