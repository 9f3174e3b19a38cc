// Package audit persists an immutable trail of validation decisions and
// execution outcomes. Two backends share one Recorder contract: an
// append-only JSONL log partitioned by UTC day, and a SQLite store with
// in-place result updates for deployments that want an indexed view.
package audit

// Kind distinguishes terminal command checks from code checks.
type Kind string

const (
	KindTerminal Kind = "terminal"
	KindCode     Kind = "code"
)

// ExecutionResult is the outcome reported after the caller ran the
// approved action.
type ExecutionResult string

const (
	ResultSuccess ExecutionResult = "success"
	ResultError   ExecutionResult = "error"
	ResultTimeout ExecutionResult = "timeout"
)

// recordTypeUpdate tags the follow-up record appended by the JSONL backend
// when an execution outcome arrives. Decision records carry no type tag.
const recordTypeUpdate = "update"

// Entry is one audit record. A decision entry is written at validation
// time; execution outcome fields are filled in later, either by folding an
// update record into the original (JSONL) or by an UPDATE (SQLite).
type Entry struct {
	ID        string `json:"id"`
	Type      string `json:"type,omitempty"` // "" for decisions, "update" for outcome records
	Timestamp string `json:"timestamp"`      // RFC 3339, UTC
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id,omitempty"`
	Kind      Kind   `json:"kind"`

	Command  string `json:"command,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	Reason       string   `json:"reason,omitempty"` // caller-supplied purpose of the action
	Approved     bool     `json:"approved"`
	Blocked      bool     `json:"blocked"`
	BlockReason  string   `json:"block_reason,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	RiskWarnings []string `json:"risk_warnings,omitempty"`
	WorkingDir   string   `json:"working_directory,omitempty"`

	ExecutionResult ExecutionResult `json:"execution_result,omitempty"`
	DurationMs      int64           `json:"duration_ms,omitempty"`
}

// QueryOpts filters SQLite store queries.
type QueryOpts struct {
	AgentID string
	Blocked *bool
	Since   string // RFC 3339 lower bound
	Limit   int
}
