package entity

import (
	"browser-agent-engine/pkg/apperr"
	"errors"
	"fmt"
	"strings"
)

// ElementState is the live probe of one locator.
type ElementState struct {
	Attached  bool
	Displayed bool
	Enabled   bool
}

func (s ElementState) Actionable() bool {
	return s.Attached && s.Displayed && s.Enabled
}

type Outcome string

const (
	OutcomeFound      Outcome = "found"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeNotVisible Outcome = "not_visible"
	OutcomeNotEnabled Outcome = "not_enabled"
	OutcomeFault      Outcome = "fault"
	OutcomeTimedOut   Outcome = "timed_out"
)

// rank orders failure outcomes by how close the strategy came to succeeding.
func (o Outcome) rank() int {
	switch o {
	case OutcomeFound:
		return 5
	case OutcomeNotEnabled:
		return 4
	case OutcomeNotVisible:
		return 3
	case OutcomeFault:
		return 2
	case OutcomeTimedOut:
		return 1
	default:
		return 0
	}
}

// Closer returns whichever of o and other got further.
func (o Outcome) Closer(other Outcome) Outcome {
	if other.rank() > o.rank() {
		return other
	}

	return o
}

type StrategyAttempt struct {
	Strategy   string
	Outcome    Outcome
	Candidates int
	Detail     string
}

// ResolutionResult is either a resolved locator or the trail of why every
// strategy failed.
type ResolutionResult struct {
	Target   string
	Locator  *Locator
	Node     Node
	Strategy string
	Pattern  string
	Attempts []StrategyAttempt
}

func (r ResolutionResult) Resolved() bool {
	return r.Locator != nil
}

// Trail renders the attempts as "strategy=outcome" pairs.
func (r ResolutionResult) Trail() string {
	parts := make([]string, 0, len(r.Attempts))

	for _, a := range r.Attempts {
		part := fmt.Sprintf("%s=%s", a.Strategy, a.Outcome)
		if a.Detail != "" {
			part += "(" + a.Detail + ")"
		}

		parts = append(parts, part)
	}

	return strings.Join(parts, "; ")
}

// Err is nil for a resolved result and a typed exhaustion error otherwise.
func (r ResolutionResult) Err() error {
	const op = "StrategyChain.Resolve"

	if r.Resolved() {
		return nil
	}

	code := apperr.CodeNotFound
	best := OutcomeNotFound

	for _, a := range r.Attempts {
		best = best.Closer(a.Outcome)

		if a.Outcome == OutcomeTimedOut {
			code = apperr.CodeTimeout
		}
	}

	if code != apperr.CodeTimeout && (best == OutcomeNotVisible || best == OutcomeNotEnabled) {
		code = apperr.CodeNotActionable
	}

	return apperr.Wrap(op, code, errors.New("all strategies exhausted"), map[string]any{
		apperr.MetaReason:   string(best),
		apperr.MetaStage:    apperr.StageResolution,
		apperr.MetaTarget:   r.Target,
		apperr.MetaAttempts: r.Trail(),
	})
}
