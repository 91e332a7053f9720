package logg

// Field names shared by every structured log line.
const (
	Layer     = "layer"
	Operation = "op"
	Action    = "action"
	ActionID  = "action_id"
	Selector  = "selector"
	URL       = "url"
	Target    = "target"
	Strategy  = "strategy"
	Pattern   = "pattern"
	Handle    = "handle"
	Snapshot  = "snapshot"
	Step      = "step"
	State     = "state"
	PageRef   = "page_ref"
)
