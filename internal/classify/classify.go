// Package classify decides, for a single captured node, whether it is
// interactive, visible and/or consent-related. Every function is pure and
// total: it looks only at the node and never fails.
package classify

import (
	"browser-agent-engine/internal/entity"
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var interactiveTags = mapset.NewThreadUnsafeSet(
	"a", "button", "input", "select", "textarea", "summary", "dialog", "details",
)

// Generic containers count as interactive only when they carry a click handler.
var genericContainers = mapset.NewThreadUnsafeSet(
	"div", "span", "li", "label", "img", "td", "section",
)

var interactiveRoles = mapset.NewThreadUnsafeSet(
	"button", "link", "menuitem", "tab", "checkbox", "radio", "switch", "option",
	"combobox", "textbox", "searchbox", "slider", "spinbutton", "scrollbar",
	"progressbar", "tooltip", "dialog", "alertdialog", "banner",
	"menuitemcheckbox", "menuitemradio",
)

var buttonLikeRoles = mapset.NewThreadUnsafeSet(
	"button", "link", "menuitem", "tab",
)

// consentKeywords are matched as substrings of the aggregated search string.
var consentKeywords = []string{
	"cookie", "cookies", "consent", "accept", "agree", "privacy", "gdpr", "ccpa",
	"allow", "accept all", "got it", "i accept", "continue", "ok", "yes", "dismiss",
}

var (
	displayNone      = regexp.MustCompile(`(?i)display\s*:\s*none`)
	visibilityHidden = regexp.MustCompile(`(?i)visibility\s*:\s*hidden`)
)

// IsInteractive reports whether a user could act on the node.
func IsInteractive(n entity.Node) bool {
	switch {
	case interactiveTags.Contains(n.Tag):
		return true
	case genericContainers.Contains(n.Tag) && n.HasClickHandler:
		return true
	case interactiveRoles.Contains(n.Role):
		return true
	case n.TabIndex == "0":
		return true
	}

	// Consent banners are built from arbitrary containers.
	return IsConsentRelated(n)
}

// IsVisible is an attribute-level visibility proxy; it does not look at
// rendered geometry.
func IsVisible(n entity.Node) bool {
	switch {
	case displayNone.MatchString(n.Style), visibilityHidden.MatchString(n.Style):
		return false
	case n.Hidden:
		return false
	case n.AriaHidden == "true", n.AriaDisabled == "true":
		return false
	case n.Type == "hidden":
		return false
	}

	return true
}

// IsConsentRelated matches the consent keyword table against the node's
// text, id, classes, aria-label and data-* values.
func IsConsentRelated(n entity.Node) bool {
	return ContainsAny(SearchString(n), consentKeywords)
}

// IsButtonLike reports whether the node affords a click the way a button or
// link does.
func IsButtonLike(n entity.Node) bool {
	if n.Tag == "button" || n.Tag == "a" {
		return true
	}

	if buttonLikeRoles.Contains(n.Role) {
		return true
	}

	if n.Tag == "input" {
		switch n.Type {
		case "button", "submit":
			return true
		}
	}

	return false
}

// SearchString aggregates the node's matchable text, lower-cased.
func SearchString(n entity.Node) string {
	parts := []string{n.Text, n.ID, n.ClassString(), n.AriaLabel}
	parts = append(parts, n.DataValues()...)

	return strings.ToLower(strings.Join(parts, " "))
}

// ContainsAny reports whether s contains any of the terms. s and terms are
// expected to be lower-case already.
func ContainsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}

	return false
}
