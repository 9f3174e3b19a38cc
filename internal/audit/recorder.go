package audit

// Recorder is the persistence contract the gateway composes. Record and
// UpdateResult never return errors: persistence failure is logged on a
// side channel and must not influence a security decision.
type Recorder interface {
	// Record persists one decision entry.
	Record(e Entry)
	// UpdateResult attaches an execution outcome to a previously recorded
	// entry, identified by id.
	UpdateResult(id string, result ExecutionResult, durationMs int64)
	// Recent returns up to limit recent entries in chronological order,
	// with execution outcomes folded into their decision entries.
	Recent(limit int) ([]Entry, error)
	// Close releases backend resources after draining pending writes.
	Close() error
}
