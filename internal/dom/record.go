package dom

import (
	"browser-agent-engine/internal/entity"
	"browser-agent-engine/pkg/apperr"
	"fmt"
	"strings"
)

// Record is one element as captured from the page, before classification
// fields are derived.
type Record struct {
	Tag        string
	Parent     int
	Attributes map[string]string
	Text       string
	Label      string
	Checked    bool
	Disabled   bool
	Clickable  bool
	XPath      string
	Selector   string
}

// Build freezes records into a PageModel.
func Build(url, title string, records []Record) (*entity.PageModel, error) {
	nodes := make([]entity.Node, len(records))
	paths := make([]entity.ElementPath, len(records))

	for i, r := range records {
		nodes[i] = NodeFromRecord(r)
		paths[i] = entity.ElementPath{XPath: r.XPath, Selector: r.Selector}
	}

	return entity.NewPageModel(url, title, nodes, paths)
}

func NodeFromRecord(r Record) entity.Node {
	attrs := make(map[string]string, len(r.Attributes))
	data := make(map[string]string)

	for k, v := range r.Attributes {
		key := strings.ToLower(k)
		attrs[key] = v

		if strings.HasPrefix(key, "data-") {
			data[key] = v
		}
	}

	tag := strings.ToLower(r.Tag)
	typ := strings.ToLower(attrs["type"])
	_, hasHref := attrs["href"]
	_, hidden := attrs["hidden"]
	_, disabledAttr := attrs["disabled"]
	_, onclick := attrs["onclick"]

	role := strings.ToLower(strings.TrimSpace(attrs["role"]))
	if role == "" {
		role = ImplicitRole(tag, typ, hasHref)
	}

	return entity.Node{
		Parent:          r.Parent,
		Tag:             tag,
		Role:            role,
		Type:            typ,
		Name:            attrs["name"],
		ID:              attrs["id"],
		Classes:         strings.Fields(attrs["class"]),
		AriaLabel:       attrs["aria-label"],
		AriaHidden:      strings.ToLower(attrs["aria-hidden"]),
		AriaDisabled:    strings.ToLower(attrs["aria-disabled"]),
		Hidden:          hidden,
		Style:           attrs["style"],
		TabIndex:        strings.TrimSpace(attrs["tabindex"]),
		Placeholder:     attrs["placeholder"],
		Label:           normalizeSpace(r.Label),
		Text:            normalizeSpace(r.Text),
		Checked:         r.Checked,
		Disabled:        r.Disabled || disabledAttr,
		HasClickHandler: r.Clickable || onclick,
		Data:            data,
		Attributes:      attrs,
	}
}

// ImplicitRole maps an element to the ARIA role it carries without a role
// attribute.
func ImplicitRole(tag, typ string, hasHref bool) string {
	switch tag {
	case "a", "area":
		if hasHref {
			return "link"
		}
	case "button", "summary":
		return "button"
	case "select":
		return "combobox"
	case "textarea":
		return "textbox"
	case "dialog":
		return "dialog"
	case "option":
		return "option"
	case "progress":
		return "progressbar"
	case "input":
		switch typ {
		case "", "text", "email", "tel", "url":
			return "textbox"
		case "search":
			return "searchbox"
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "range":
			return "slider"
		case "number":
			return "spinbutton"
		case "button", "submit", "reset", "image":
			return "button"
		}
	}

	return ""
}

// RecordsFromEvaluate decodes the value returned by the snapshot script.
func RecordsFromEvaluate(result interface{}) ([]Record, error) {
	const op = "RecordsFromEvaluate"

	items, ok := result.([]interface{})
	if !ok {
		return nil, apperr.Wrap(op, apperr.CodeInternal, fmt.Errorf("unexpected result type %T", result), map[string]any{
			apperr.MetaReason: "unexpected_result_type",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	records := make([]Record, 0, len(items))

	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		r := Record{
			Tag:        getString(m, "tag"),
			Parent:     getInt(m, "parent", -1),
			Attributes: make(map[string]string),
			Text:       getString(m, "text"),
			Label:      getString(m, "label"),
			Checked:    getBool(m, "checked"),
			Disabled:   getBool(m, "disabled"),
			Clickable:  getBool(m, "clickable"),
			XPath:      getString(m, "xpath"),
			Selector:   getString(m, "selector"),
		}

		if attrs, ok := m["attributes"].(map[string]interface{}); ok {
			for k, v := range attrs {
				if s, ok := v.(string); ok {
					r.Attributes[k] = s
				}
			}
		}

		records = append(records, r)
	}

	return records, nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getInt(m map[string]interface{}, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}

	return fallback
}
