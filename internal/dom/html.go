package dom

import (
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/pkg/apperr"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"meta":     true,
	"link":     true,
	"title":    true,
	"svg":      true,
}

// FromHTML builds a PageModel from serialized page content. It is the
// fallback when the snapshot script cannot run, and it produces the same
// nodes and XPaths the script does.
func FromHTML(url string, r io.Reader) (*entity.PageModel, error) {
	const op = "FromHTML"

	doc, err := html.Parse(r)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "html_parse_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	w := &walker{labels: make(map[string]string)}
	w.collectLabels(doc)

	root := findElement(doc, "body")
	if root == nil {
		root = findElement(doc, "html")
	}

	if root != nil {
		w.visit(root, -1, xpathOf(root))
	}

	return Build(url, extractTitle(doc), w.records)
}

type walker struct {
	records []Record
	labels  map[string]string
}

// visit appends n before its descendants so handles follow document order,
// and returns the text content of n.
func (w *walker) visit(n *html.Node, parent int, xpath string) string {
	tag := strings.ToLower(n.Data)

	index := len(w.records)
	attrs := attributes(n)

	_, checked := attrs["checked"]
	_, disabled := attrs["disabled"]

	w.records = append(w.records, Record{
		Tag:        tag,
		Parent:     parent,
		Attributes: attrs,
		Checked:    checked,
		Disabled:   disabled,
		XPath:      xpath,
		Selector:   cssSelector(tag, attrs),
	})

	var text strings.Builder

	counts := make(map[string]int)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
			text.WriteString(" ")
		case html.ElementNode:
			childTag := strings.ToLower(c.Data)
			if skippedElements[childTag] {
				continue
			}

			counts[childTag]++
			childPath := fmt.Sprintf("%s/%s[%d]", xpath, childTag, counts[childTag])

			text.WriteString(w.visit(c, index, childPath))
			text.WriteString(" ")
		}
	}

	content := normalizeSpace(text.String())
	w.records[index].Text = content

	if tag == "input" || tag == "select" || tag == "textarea" {
		w.records[index].Label = w.labelFor(n, attrs)
	}

	return content
}

func (w *walker) collectLabels(n *html.Node) {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "label") {
		if target, ok := attributes(n)["for"]; ok && target != "" {
			w.labels[target] = normalizeSpace(textContent(n))
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.collectLabels(c)
	}
}

func (w *walker) labelFor(n *html.Node, attrs map[string]string) string {
	if id := attrs["id"]; id != "" {
		if label, ok := w.labels[id]; ok {
			return label
		}
	}

	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.EqualFold(p.Data, "label") {
			return normalizeSpace(textContent(p))
		}
	}

	return ""
}

func attributes(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[strings.ToLower(a.Key)] = a.Val
	}

	return attrs
}

func textContent(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}

		if node.Type == html.ElementNode && skippedElements[strings.ToLower(node.Data)] {
			return
		}

		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}

	return nil
}

func extractTitle(doc *html.Node) string {
	if title := findElement(doc, "title"); title != nil {
		return normalizeSpace(textContent(title))
	}

	return ""
}

// xpathOf builds the absolute path of n by counting same-tag siblings.
func xpathOf(n *html.Node) string {
	var parts []string

	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		tag := strings.ToLower(cur.Data)
		index := 1

		for s := cur.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode && strings.EqualFold(s.Data, cur.Data) {
				index++
			}
		}

		parts = append([]string{fmt.Sprintf("%s[%d]", tag, index)}, parts...)
	}

	return "/" + strings.Join(parts, "/")
}

func cssSelector(tag string, attrs map[string]string) string {
	if id := attrs["id"]; id != "" && !strings.ContainsAny(id, " .#:[]") {
		return "#" + id
	}

	if name := attrs["name"]; name != "" && (tag == "input" || tag == "select" || tag == "textarea" || tag == "button") {
		return fmt.Sprintf(`%s[name="%s"]`, tag, name)
	}

	return ""
}
