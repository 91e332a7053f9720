package strategy

import (
	"browser-agent-engine/internal/classify"
	"browser-agent-engine/internal/entity"
	"strings"
)

type matchFunc func(page *entity.PageModel, n entity.Node) bool

// Pattern is one named heuristic within a strategy. Patterns are listed from
// most to least specific.
type Pattern struct {
	Name  string
	Match matchFunc
}

func nodeOnly(fn func(entity.Node) bool) matchFunc {
	return func(_ *entity.PageModel, n entity.Node) bool {
		return fn(n)
	}
}

func all(fns ...func(entity.Node) bool) matchFunc {
	return nodeOnly(func(n entity.Node) bool {
		for _, fn := range fns {
			if !fn(n) {
				return false
			}
		}

		return true
	})
}

func tagIs(tags ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		for _, t := range tags {
			if n.Tag == t {
				return true
			}
		}

		return false
	}
}

func typeIs(types ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		for _, t := range types {
			if n.Type == t {
				return true
			}
		}

		return false
	}
}

func attrIs(name string, values ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		v := strings.ToLower(n.Attr(name))
		for _, want := range values {
			if v == want {
				return true
			}
		}

		return false
	}
}

func idOrNameContains(terms ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		return classify.ContainsAny(strings.ToLower(n.ID+" "+n.Name), terms)
	}
}

func classContains(terms ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		return classify.ContainsAny(strings.ToLower(n.ClassString()), terms)
	}
}

func textContains(phrases ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		return classify.ContainsAny(strings.ToLower(n.VisibleText()), phrases)
	}
}

func textEquals(values ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		text := strings.ToLower(n.VisibleText())
		for _, v := range values {
			if text == v {
				return true
			}
		}

		return false
	}
}

func ariaContains(terms ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		return classify.ContainsAny(strings.ToLower(n.AriaLabel), terms)
	}
}

func dataContains(terms ...string) func(entity.Node) bool {
	return func(n entity.Node) bool {
		return classify.ContainsAny(strings.ToLower(strings.Join(n.DataValues(), " ")), terms)
	}
}

func either(fns ...func(entity.Node) bool) func(entity.Node) bool {
	return func(n entity.Node) bool {
		for _, fn := range fns {
			if fn(n) {
				return true
			}
		}

		return false
	}
}

func textEntry(n entity.Node) bool {
	if n.Tag == "input" {
		switch n.Type {
		case "", "text", "email", "tel":
			return true
		}

		return false
	}

	return n.Role == "textbox" && n.Tag != "textarea"
}

func passwordEntry(n entity.Node) bool {
	return n.Tag == "input" && (n.Type == "password" || n.Type == "" || n.Type == "text")
}

func button(n entity.Node) bool {
	return n.Tag == "button" || n.Role == "button"
}

func checkbox(n entity.Node) bool {
	return (n.Tag == "input" && n.Type == "checkbox") || n.Role == "checkbox" || n.Role == "switch"
}

func insideDialog(page *entity.PageModel, n entity.Node) bool {
	for _, a := range page.Ancestors(n.Handle) {
		if a.Role == "dialog" || a.Role == "alertdialog" {
			return true
		}
	}

	return false
}

var (
	userTerms    = []string{"user", "email", "login"}
	consentTerms = []string{"accept", "agree", "allow", "consent", "cookie"}
)

var structuralPatterns = map[TargetKind][]Pattern{
	TargetUsername: {
		{Name: "input[autocomplete=username]", Match: all(textEntry, attrIs("autocomplete", "username", "email"))},
		{Name: "input[type=email]", Match: all(tagIs("input"), typeIs("email"))},
		{Name: "input[id|name*=user|email|login]", Match: all(textEntry, idOrNameContains(userTerms...))},
		{Name: "input[type=text]", Match: all(tagIs("input"), typeIs("text"))},
	},
	TargetPassword: {
		{Name: "input[type=password]", Match: all(tagIs("input"), typeIs("password"))},
		{Name: "input[id|name*=password|passwd|pwd]", Match: all(passwordEntry, idOrNameContains("password", "passwd", "pwd"))},
	},
	TargetSubmit: {
		{Name: "button[type=submit]", Match: all(tagIs("button"), typeIs("submit"))},
		{Name: "input[type=submit]", Match: all(tagIs("input"), typeIs("submit"))},
		{Name: "button:text(sign|log)", Match: all(button, textContains("sign", "log"))},
	},
	TargetRememberMe: {
		{Name: "input[type=checkbox][id|name*=remember|keep|persist]", Match: all(checkbox, idOrNameContains("remember", "keep", "persist"))},
	},
	TargetConsent: {
		{Name: "#onetrust-accept-btn-handler", Match: all(classify.IsButtonLike, attrIs("id", "onetrust-accept-btn-handler"))},
		{Name: "#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll", Match: all(classify.IsButtonLike, attrIs("id", "cybotcookiebotdialogbodylevelbuttonleveloptinallowall"))},
		{Name: "button[id*=accept|agree|allow]", Match: all(classify.IsButtonLike, idOrNameContains("accept", "agree", "allow"))},
		{Name: "button[data-*=accept|cookie|consent]", Match: all(classify.IsButtonLike, dataContains("accept", "cookie", "consent"))},
	},
}

var classPatterns = map[TargetKind][]Pattern{
	TargetUsername: {
		{Name: "input[class*=username|user-name|login-email|email]", Match: all(textEntry, classContains("username", "user-name", "login-email", "email"))},
	},
	TargetPassword: {
		{Name: "input[class*=password]", Match: all(passwordEntry, classContains("password"))},
	},
	TargetSubmit: {
		{Name: "[class*=login-button|btn-login|login-btn|signin|sign-in]", Match: all(classify.IsButtonLike, classContains("login-button", "btn-login", "login-btn", "signin", "sign-in"))},
		{Name: "[class*=submit]", Match: all(classify.IsButtonLike, classContains("submit"))},
	},
	TargetRememberMe: {
		{Name: "input[type=checkbox][class*=remember]", Match: all(checkbox, classContains("remember"))},
	},
	TargetConsent: {
		{Name: "[class*=cookie-accept|accept-cookies|consent-accept|cc-allow|cc-accept]", Match: all(classContains("cookie-accept", "accept-cookies", "consent-accept", "cc-allow", "cc-accept"))},
		{Name: "[class*=cookie-consent|cookie-banner]", Match: all(classContains("cookie-consent", "cookie-banner"))},
	},
}

var textPatterns = map[TargetKind][]Pattern{
	TargetUsername: {
		{Name: "text(username|user name|email|e-mail|login)", Match: all(textEntry, textContains("username", "user name", "email", "e-mail", "login"))},
	},
	TargetPassword: {
		{Name: "text(password)", Match: all(passwordEntry, textContains("password"))},
	},
	TargetSubmit: {
		{Name: "text(log in|login|sign in|signin)", Match: all(classify.IsButtonLike, textContains("log in", "login", "sign in", "signin"))},
		{Name: "text(submit|continue)", Match: all(classify.IsButtonLike, textContains("submit", "continue"))},
	},
	TargetRememberMe: {
		{Name: "text(remember me|keep me signed in|stay signed in)", Match: all(checkbox, textContains("remember me", "keep me signed in", "stay signed in", "keep me logged in"))},
	},
	TargetConsent: {
		{Name: "text(accept all cookies|allow all cookies)", Match: all(textContains("accept all cookies", "allow all cookies"))},
		{Name: "text(accept all|allow all|accept cookies|allow cookies)", Match: all(textContains("accept all", "allow all", "accept cookies", "allow cookies"))},
		{Name: "text(i accept|i agree|agree and continue|got it)", Match: all(textContains("i accept", "i agree", "agree and continue", "got it"))},
		{Name: "button:text(accept|agree|allow)", Match: all(classify.IsButtonLike, textContains("accept", "agree", "allow"))},
		{Name: "button:text(=ok|okay|yes)", Match: all(classify.IsButtonLike, textEquals("ok", "okay", "yes"))},
	},
}

var ariaPatterns = map[TargetKind][]Pattern{
	TargetUsername: {
		{Name: "[aria-label*=user|email|login]", Match: all(textEntry, ariaContains(userTerms...))},
	},
	TargetPassword: {
		{Name: "[aria-label*=password]", Match: all(passwordEntry, ariaContains("password"))},
	},
	TargetSubmit: {
		{Name: "[aria-label*=log in|login|sign in|submit]", Match: all(classify.IsButtonLike, ariaContains("log in", "login", "sign in", "submit"))},
	},
	TargetRememberMe: {
		{Name: "[aria-label*=remember]", Match: all(checkbox, ariaContains("remember"))},
	},
	TargetConsent: {
		{Name: "[aria-label*=accept|agree|allow|consent|cookie]", Match: all(classify.IsButtonLike, ariaContains(consentTerms...))},
		{Name: "[role=dialog|alertdialog] button", Match: func(page *entity.PageModel, n entity.Node) bool {
			return classify.IsButtonLike(n) && classify.IsConsentRelated(n) && insideDialog(page, n)
		}},
		{Name: "[role=dialog|alertdialog]", Match: all(either(tagIs("dialog"), func(n entity.Node) bool {
			return n.Role == "dialog" || n.Role == "alertdialog"
		}), classify.IsConsentRelated)},
	},
}

// textTokenPatterns builds the per-strategy patterns for a literal token.
func textTokenPatterns(kind string, token string) []Pattern {
	if token == "" {
		return nil
	}

	switch kind {
	case StructuralName:
		var out []Pattern
		if match, ok := simpleSelector(token); ok {
			out = append(out, Pattern{Name: "selector(" + token + ")", Match: nodeOnly(match)})
		}

		return append(out, []Pattern{
			{Name: "[id|name=" + token + "]", Match: nodeOnly(func(n entity.Node) bool {
				return strings.EqualFold(n.ID, token) || strings.EqualFold(n.Name, token)
			})},
			{Name: "[data-testid=" + token + "]", Match: all(either(attrIs("data-testid", token), attrIs("data-test-id", token)))},
		}...)
	case ClassName:
		return []Pattern{{Name: "[class*=" + token + "]", Match: all(classContains(token))}}
	case TextName:
		return []Pattern{{Name: "text(" + token + ")", Match: all(textContains(token))}}
	case AriaName:
		return []Pattern{
			{Name: "[aria-label*=" + token + "]", Match: all(ariaContains(token))},
			{Name: "[role=" + token + "]", Match: nodeOnly(func(n entity.Node) bool { return n.Role == token })},
		}
	}

	return nil
}

// simpleSelector matches tokens shaped "#id", ".class", "[attr]" or
// "[attr=value]", each optionally prefixed by a tag name.
func simpleSelector(token string) (func(entity.Node) bool, bool) {
	i := strings.IndexAny(token, "#.[")
	if i < 0 || (i > 0 && !isIdent(token[:i])) {
		return nil, false
	}

	tag, rest := token[:i], token[i:]

	var match func(entity.Node) bool

	switch rest[0] {
	case '#':
		id := rest[1:]
		if !isIdent(id) {
			return nil, false
		}

		match = func(n entity.Node) bool { return strings.EqualFold(n.ID, id) }
	case '.':
		class := rest[1:]
		if !isIdent(class) {
			return nil, false
		}

		match = func(n entity.Node) bool {
			for _, c := range n.Classes {
				if strings.EqualFold(c, class) {
					return true
				}
			}

			return false
		}
	case '[':
		if !strings.HasSuffix(rest, "]") {
			return nil, false
		}

		name, value, hasValue := strings.Cut(rest[1:len(rest)-1], "=")
		name = strings.TrimSpace(name)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if !isIdent(name) {
			return nil, false
		}

		match = func(n entity.Node) bool {
			if !hasValue {
				return n.HasAttr(name)
			}

			return n.HasAttr(name) && strings.EqualFold(n.Attr(name), value)
		}
	}

	if tag == "" {
		return match, true
	}

	return func(n entity.Node) bool { return n.Tag == tag && match(n) }, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return false
		}
	}

	return true
}
