package entity

import (
	"sort"
	"strings"
)

// Node is one captured DOM element. Values are owned by the PageModel that
// produced them and are never updated; re-reading the page yields new Nodes.
type Node struct {
	Handle int
	// Parent is the handle of the nearest captured ancestor, -1 for roots.
	Parent int

	Tag  string
	Role string
	Type string
	Name string
	ID   string

	Classes      []string
	AriaLabel    string
	AriaHidden   string
	AriaDisabled string
	Hidden       bool
	Style        string
	TabIndex     string
	Placeholder  string
	Label        string
	Text         string

	Checked         bool
	Disabled        bool
	HasClickHandler bool

	Data       map[string]string
	Attributes map[string]string
}

// SearchText is the case-folded text used by keyword matching.
func (n Node) SearchText() string {
	return strings.ToLower(n.Text)
}

// VisibleText is what a user would read on or next to the element: its
// text, else its label, else its placeholder.
func (n Node) VisibleText() string {
	switch {
	case n.Text != "":
		return n.Text
	case n.Label != "":
		return n.Label
	default:
		return n.Placeholder
	}
}

func (n Node) Attr(name string) string {
	return n.Attributes[strings.ToLower(name)]
}

func (n Node) HasAttr(name string) bool {
	_, ok := n.Attributes[strings.ToLower(name)]

	return ok
}

func (n Node) ClassString() string {
	return strings.Join(n.Classes, " ")
}

// DataValues returns the data-* values ordered by attribute name.
func (n Node) DataValues() []string {
	keys := make([]string, 0, len(n.Data))
	for k := range n.Data {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, n.Data[k])
	}

	return values
}

func (n Node) clone() Node {
	c := n

	if n.Classes != nil {
		c.Classes = append([]string(nil), n.Classes...)
	}

	c.Data = cloneMap(n.Data)
	c.Attributes = cloneMap(n.Attributes)

	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
