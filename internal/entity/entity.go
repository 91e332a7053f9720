package entity

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionTypeNavigate ActionType = "navigate"
	ActionTypeConsent  ActionType = "consent"
	ActionTypeLogin    ActionType = "login"
	ActionTypeFind     ActionType = "find"
	ActionTypeTeardown ActionType = "teardown"
)

// EngineAction is one request from the orchestration layer.
type EngineAction struct {
	Type ActionType
	URL  string
	Text string
}

// ActionRecord is the outcome of one EngineAction.
type ActionRecord struct {
	ID          uuid.UUID
	Type        ActionType
	Description string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Detail      string
	Error       string
}
