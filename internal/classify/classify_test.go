package classify

import (
	"testing"

	"browser-agent-engine/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name string
		node entity.Node
		want bool
	}{
		{name: "plain", node: entity.Node{Tag: "button"}, want: true},
		{name: "display none", node: entity.Node{Tag: "div", Style: "color: red; display:none"}, want: false},
		{name: "display none spaced upper", node: entity.Node{Tag: "div", Style: "DISPLAY : NONE"}, want: false},
		{name: "visibility hidden", node: entity.Node{Tag: "div", Style: "visibility: hidden"}, want: false},
		{name: "visibility visible", node: entity.Node{Tag: "div", Style: "visibility: visible"}, want: true},
		{name: "hidden attribute", node: entity.Node{Tag: "div", Hidden: true}, want: false},
		{name: "aria disabled", node: entity.Node{Tag: "button", AriaDisabled: "true"}, want: false},
		{name: "hidden input", node: entity.Node{Tag: "input", Type: "hidden"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.node))
		})
	}
}

func TestAriaHiddenAlwaysInvisible(t *testing.T) {
	n := entity.Node{
		Tag:             "button",
		Role:            "button",
		Text:            "Accept all cookies",
		Style:           "display: block",
		TabIndex:        "0",
		HasClickHandler: true,
		AriaHidden:      "true",
	}

	assert.False(t, IsVisible(n))
}

func TestIsInteractive(t *testing.T) {
	tests := []struct {
		name string
		node entity.Node
		want bool
	}{
		{name: "button tag", node: entity.Node{Tag: "button"}, want: true},
		{name: "details tag", node: entity.Node{Tag: "details"}, want: true},
		{name: "bare div", node: entity.Node{Tag: "div", Text: "Latest news"}, want: false},
		{name: "div with click handler", node: entity.Node{Tag: "div", HasClickHandler: true}, want: true},
		{name: "paragraph with click handler", node: entity.Node{Tag: "p", HasClickHandler: true, Text: "News"}, want: false},
		{name: "role tab", node: entity.Node{Tag: "li", Role: "tab"}, want: true},
		{name: "tabindex zero", node: entity.Node{Tag: "span", TabIndex: "0"}, want: true},
		{name: "tabindex minus one", node: entity.Node{Tag: "span", TabIndex: "-1", Text: "News"}, want: false},
		{name: "consent keyword", node: entity.Node{Tag: "section", ID: "gdpr-banner"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInteractive(tt.node))
		})
	}
}

func TestIsConsentRelatedSources(t *testing.T) {
	assert.True(t, IsConsentRelated(entity.Node{Text: "We use Cookies"}))
	assert.True(t, IsConsentRelated(entity.Node{ID: "CybotCookiebotDialog"}))
	assert.True(t, IsConsentRelated(entity.Node{Classes: []string{"cmp", "privacy-notice"}}))
	assert.True(t, IsConsentRelated(entity.Node{AriaLabel: "Dismiss banner"}))
	assert.True(t, IsConsentRelated(entity.Node{Data: map[string]string{"data-action": "ccpa-optout"}}))
	assert.False(t, IsConsentRelated(entity.Node{Text: "Read the news", ID: "main"}))
}

// Short keywords match inside longer words; callers rely on the button-like
// filter and the live probe to narrow them down.
func TestIsConsentRelatedKeepsSubstringMatches(t *testing.T) {
	assert.True(t, IsConsentRelated(entity.Node{Text: "Our bookshop"}))
	assert.True(t, IsConsentRelated(entity.Node{Text: "Eyes on the road"}))
}

func TestConsentButtonOnGenericContainer(t *testing.T) {
	n := entity.Node{Tag: "span", Role: "button", Text: "Got it"}

	assert.True(t, IsConsentRelated(n))
	assert.True(t, IsButtonLike(n))
	assert.True(t, IsInteractive(n))
}

func TestAcceptAllCookiesDiv(t *testing.T) {
	n := entity.Node{Tag: "div", Classes: []string{"banner-btn"}, Text: "Accept All Cookies"}

	assert.True(t, IsConsentRelated(n))
	assert.True(t, IsInteractive(n))
	assert.True(t, IsVisible(n))
	assert.False(t, IsButtonLike(n))
}

func TestIsButtonLike(t *testing.T) {
	assert.True(t, IsButtonLike(entity.Node{Tag: "a"}))
	assert.True(t, IsButtonLike(entity.Node{Tag: "div", Role: "menuitem"}))
	assert.True(t, IsButtonLike(entity.Node{Tag: "input", Type: "submit"}))
	assert.False(t, IsButtonLike(entity.Node{Tag: "input", Type: "text"}))
	assert.False(t, IsButtonLike(entity.Node{Tag: "div", Role: "dialog"}))
}

func TestSearchStringLowercasesAllSources(t *testing.T) {
	n := entity.Node{
		Text:      "Accept",
		ID:        "Btn-OK",
		Classes:   []string{"Primary", "Large"},
		AriaLabel: "Close Notice",
		Data:      map[string]string{"data-track": "Banner"},
	}

	assert.Equal(t, "accept btn-ok primary large close notice banner", SearchString(n))
}
