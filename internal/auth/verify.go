package auth

import (
	"browser-agent-engine/internal/classify"
	"browser-agent-engine/internal/entity"
	"strings"
)

type Verdict string

const (
	VerdictSuccess   Verdict = "success"
	VerdictError     Verdict = "error"
	VerdictAmbiguous Verdict = "ambiguous"
)

var (
	errorClassMarkers = []string{"error", "alert"}
	errorTextMarkers  = []string{"incorrect", "failed"}

	successTextMarkers  = []string{"logout", "log out", "sign out", "profile", "account", "welcome"}
	successClassMarkers = []string{"profile", "logged-in", "user-menu", "avatar"}
)

// Verify classifies the page reached after submitting credentials. An error
// indicator anywhere on the page outweighs any success indicator.
func Verify(model *entity.PageModel) Verdict {
	nodes := model.Nodes()

	if shownMatch(model, nodes, isErrorMarked, errorTextMarkers) {
		return VerdictError
	}

	if shownMatch(model, nodes, isSuccessMarked, successTextMarkers) {
		return VerdictSuccess
	}

	return VerdictAmbiguous
}

// shownMatch reports whether a visible node carries an indicator, either on
// its own attributes or in the part of its text a user can see.
func shownMatch(model *entity.PageModel, nodes []entity.Node, marked func(entity.Node) bool, text []string) bool {
	for _, n := range nodes {
		if !shown(model, n) {
			continue
		}

		if marked(n) || classify.ContainsAny(shownText(nodes, n), text) {
			return true
		}
	}

	return false
}

func shown(model *entity.PageModel, n entity.Node) bool {
	if !classify.IsVisible(n) {
		return false
	}

	for _, a := range model.Ancestors(n.Handle) {
		if !classify.IsVisible(a) {
			return false
		}
	}

	return true
}

// shownText is n's lower-cased text without the text of its hidden
// descendants. Nodes are in document order, so descendants directly follow n.
func shownText(nodes []entity.Node, n entity.Node) string {
	text := strings.ToLower(n.Text)

	for i := n.Handle + 1; i < len(nodes) && text != ""; i++ {
		d := nodes[i]

		inside, exposed := descends(nodes, d, n.Handle)
		if !inside {
			break
		}

		if exposed && d.Text != "" && !classify.IsVisible(d) {
			text = strings.Replace(text, strings.ToLower(d.Text), " ", 1)
		}
	}

	return text
}

// descends reports whether d lies under the node at root and whether every
// node between them is visible.
func descends(nodes []entity.Node, d entity.Node, root int) (inside, exposed bool) {
	exposed = true

	for h := d.Parent; h >= 0 && h < len(nodes); h = nodes[h].Parent {
		if h == root {
			return true, exposed
		}

		if !classify.IsVisible(nodes[h]) {
			exposed = false
		}
	}

	return false, false
}

func isErrorMarked(n entity.Node) bool {
	return classify.ContainsAny(strings.ToLower(n.ClassString()), errorClassMarkers)
}

func isSuccessMarked(n entity.Node) bool {
	markers := strings.ToLower(n.ClassString() + " " + n.Role + " " + n.ID)

	return classify.ContainsAny(markers, successClassMarkers)
}
