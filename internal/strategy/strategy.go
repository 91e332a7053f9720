package strategy

import (
	"browser-agent-engine/internal/classify"
	"browser-agent-engine/internal/entity"
)

const (
	StructuralName = "structural"
	ClassName      = "class"
	TextName       = "literal_text"
	AriaName       = "aria"
)

// Candidate is one ranked match of a strategy.
type Candidate struct {
	Handle  int
	Pattern string
}

// Strategy proposes candidates for a target from a snapshot. Candidates are
// ranked: earlier is more specific. Implementations never touch the page.
type Strategy interface {
	Name() string
	Candidates(page *entity.PageModel, target Target) []Candidate
}

type patternStrategy struct {
	name  string
	table map[TargetKind][]Pattern
	// innermost keeps only the deepest of nested matches, so text found in a
	// button is not attributed to every ancestor of that button.
	innermost bool
}

// DefaultStrategies returns the four strategies in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&patternStrategy{name: StructuralName, table: structuralPatterns},
		&patternStrategy{name: ClassName, table: classPatterns},
		&patternStrategy{name: TextName, table: textPatterns, innermost: true},
		&patternStrategy{name: AriaName, table: ariaPatterns},
	}
}

func (s *patternStrategy) Name() string {
	return s.name
}

func (s *patternStrategy) patterns(target Target) []Pattern {
	if target.Kind == TargetText {
		return textTokenPatterns(s.name, target.Token)
	}

	return s.table[target.Kind]
}

func (s *patternStrategy) Candidates(page *entity.PageModel, target Target) []Candidate {
	var out []Candidate

	seen := make(map[int]bool)
	nodes := page.Nodes()

	for _, pattern := range s.patterns(target) {
		var matched []int

		for _, n := range nodes {
			if !seen[n.Handle] && pattern.Match(page, n) {
				matched = append(matched, n.Handle)
			}
		}

		if s.innermost {
			matched = rankClickableFirst(nodes, page.Innermost(matched))
		}

		for _, h := range matched {
			seen[h] = true
			out = append(out, Candidate{Handle: h, Pattern: pattern.Name})
		}
	}

	return out
}

// rankClickableFirst moves interactive nodes ahead of plain text, keeping
// document order within each group.
func rankClickableFirst(nodes []entity.Node, handles []int) []int {
	clickable := make([]int, 0, len(handles))
	rest := make([]int, 0, len(handles))

	for _, h := range handles {
		if classify.IsInteractive(nodes[h]) {
			clickable = append(clickable, h)
		} else {
			rest = append(rest, h)
		}
	}

	return append(clickable, rest...)
}
