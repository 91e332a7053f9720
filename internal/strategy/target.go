package strategy

import "strings"

type TargetKind string

const (
	TargetUsername   TargetKind = "username"
	TargetPassword   TargetKind = "password"
	TargetSubmit     TargetKind = "submit"
	TargetRememberMe TargetKind = "remember_me"
	TargetConsent    TargetKind = "consent"
	TargetText       TargetKind = "text"
)

// Target is what the chain is asked to find: a fixed semantic target or a
// literal text token.
type Target struct {
	Kind  TargetKind
	Token string
}

func Username() Target   { return Target{Kind: TargetUsername} }
func Password() Target   { return Target{Kind: TargetPassword} }
func Submit() Target     { return Target{Kind: TargetSubmit} }
func RememberMe() Target { return Target{Kind: TargetRememberMe} }
func Consent() Target    { return Target{Kind: TargetConsent} }

// Text targets the element best described by a literal token.
func Text(token string) Target {
	return Target{Kind: TargetText, Token: strings.ToLower(strings.TrimSpace(token))}
}

func (t Target) String() string {
	if t.Kind == TargetText {
		return "text:" + t.Token
	}

	return string(t.Kind)
}
