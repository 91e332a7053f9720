package entity

import (
	"browser-agent-engine/pkg/apperr"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Locator addresses one element of one snapshot in the live page.
type Locator struct {
	Snapshot uuid.UUID
	Handle   int
	XPath    string
	Selector string
}

func (l Locator) String() string {
	if l.XPath != "" {
		return l.XPath
	}

	return l.Selector
}

// ElementPath is how a builder tells the PageModel where a node lives.
type ElementPath struct {
	XPath    string
	Selector string
}

// PageModel is one snapshot of a page: its nodes in document order plus the
// selector map from handle to locator. Handles are only meaningful against
// the snapshot that issued them.
type PageModel struct {
	id          uuid.UUID
	url         string
	title       string
	takenAt     time.Time
	nodes       []Node
	selectorMap map[int]Locator
}

// NewPageModel freezes nodes into a snapshot. Handles are reassigned to the
// node's index; paths[i] locates nodes[i].
func NewPageModel(url, title string, nodes []Node, paths []ElementPath) (*PageModel, error) {
	const op = "NewPageModel"

	if len(nodes) != len(paths) {
		return nil, apperr.InvalidReqError(op, "paths",
			fmt.Errorf("got %d paths for %d nodes", len(paths), len(nodes)))
	}

	model := &PageModel{
		id:          uuid.New(),
		url:         url,
		title:       title,
		takenAt:     time.Now(),
		nodes:       make([]Node, len(nodes)),
		selectorMap: make(map[int]Locator, len(nodes)),
	}

	for i, n := range nodes {
		node := n.clone()
		node.Handle = i

		if node.Parent >= i || node.Parent < -1 {
			node.Parent = -1
		}

		model.nodes[i] = node
		model.selectorMap[i] = Locator{
			Snapshot: model.id,
			Handle:   i,
			XPath:    paths[i].XPath,
			Selector: paths[i].Selector,
		}
	}

	return model, nil
}

func (p *PageModel) ID() uuid.UUID      { return p.id }
func (p *PageModel) URL() string        { return p.url }
func (p *PageModel) Title() string      { return p.title }
func (p *PageModel) TakenAt() time.Time { return p.takenAt }
func (p *PageModel) Len() int           { return len(p.nodes) }

// Nodes returns copies of all nodes in document order.
func (p *PageModel) Nodes() []Node {
	out := make([]Node, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.clone()
	}

	return out
}

func (p *PageModel) Node(handle int) (Node, error) {
	if handle < 0 || handle >= len(p.nodes) {
		return Node{}, p.handleError("Node", handle)
	}

	return p.nodes[handle].clone(), nil
}

func (p *PageModel) Locator(handle int) (Locator, error) {
	loc, ok := p.selectorMap[handle]
	if !ok {
		return Locator{}, p.handleError("Locator", handle)
	}

	return loc, nil
}

// Owns rejects locators issued by another snapshot.
func (p *PageModel) Owns(loc Locator) error {
	const op = "PageModel.Owns"

	if loc.Snapshot != p.id {
		return apperr.Wrap(op, apperr.CodeStaleHandle, fmt.Errorf("locator from snapshot %s", loc.Snapshot), map[string]any{
			apperr.MetaReason: "foreign_snapshot",
			apperr.MetaHandle: loc.Handle,
		})
	}

	if _, ok := p.selectorMap[loc.Handle]; !ok {
		return p.handleError(op, loc.Handle)
	}

	return nil
}

// Filter returns all nodes satisfying match, in document order.
func (p *PageModel) Filter(match func(Node) bool) []Node {
	var out []Node

	for _, n := range p.nodes {
		if match(n) {
			out = append(out, n.clone())
		}
	}

	return out
}

// Ancestors walks from the parent of handle up to the root.
func (p *PageModel) Ancestors(handle int) []Node {
	if handle < 0 || handle >= len(p.nodes) {
		return nil
	}

	var out []Node

	for h := p.nodes[handle].Parent; h >= 0; h = p.nodes[h].Parent {
		out = append(out, p.nodes[h].clone())
	}

	return out
}

// Innermost drops every handle that is an ancestor of another handle in the
// set, keeping the input order.
func (p *PageModel) Innermost(handles []int) []int {
	ancestors := make(map[int]struct{})

	for _, h := range handles {
		if h < 0 || h >= len(p.nodes) {
			continue
		}

		for a := p.nodes[h].Parent; a >= 0; a = p.nodes[a].Parent {
			ancestors[a] = struct{}{}
		}
	}

	out := make([]int, 0, len(handles))

	for _, h := range handles {
		if h < 0 || h >= len(p.nodes) {
			continue
		}

		if _, isAncestor := ancestors[h]; !isAncestor {
			out = append(out, h)
		}
	}

	return out
}

func (p *PageModel) handleError(op string, handle int) error {
	return apperr.Wrap(op, apperr.CodeStaleHandle, fmt.Errorf("handle %d not in snapshot %s", handle, p.id), map[string]any{
		apperr.MetaReason: "handle_out_of_range",
		apperr.MetaHandle: handle,
	})
}
