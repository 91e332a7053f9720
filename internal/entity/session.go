package entity

import "time"

// Credentials for the login sequence.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

type LoginState string

const (
	LoginStateNoCredentials LoginState = "no_credentials"
	LoginStateNavigating    LoginState = "navigating"
	LoginStateScanning      LoginState = "scanning"
	LoginStateFieldsMissing LoginState = "fields_missing"
	LoginStateFieldsFound   LoginState = "fields_found"
	LoginStateFilling       LoginState = "filling"
	LoginStateSubmitting    LoginState = "submitting"
	LoginStateVerifying     LoginState = "verifying"
	LoginStateSuccess       LoginState = "success"
	LoginStateFailure       LoginState = "failure"
)

// LoginReport is the terminal state of one login attempt and the states
// passed through on the way.
type LoginReport struct {
	State   LoginState
	Reason  string
	History []LoginState
}

func (r LoginReport) Success() bool {
	return r.State == LoginStateSuccess
}

// PageRef identifies one open tab/window of a session.
type PageRef struct {
	ID  string
	URL string
}

type TeardownStepResult struct {
	Name     string
	Effect   string
	Err      error
	Duration time.Duration
}

type TeardownReport struct {
	Skipped bool
	Steps   []TeardownStepResult
}

// Failed returns the steps that reported an error.
func (r TeardownReport) Failed() []TeardownStepResult {
	var out []TeardownStepResult

	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s)
		}
	}

	return out
}
