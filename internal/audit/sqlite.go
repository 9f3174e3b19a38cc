package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS exec_audit (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	user_id TEXT,
	kind TEXT NOT NULL,
	command TEXT,
	code TEXT,
	language TEXT,
	reason TEXT,
	approved INTEGER NOT NULL,
	blocked INTEGER NOT NULL,
	block_reason TEXT,
	severity TEXT,
	risk_warnings TEXT,
	working_directory TEXT,
	execution_result TEXT,
	duration_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_exec_audit_agent ON exec_audit(agent_id);
CREATE INDEX IF NOT EXISTS idx_exec_audit_blocked ON exec_audit(blocked);
CREATE INDEX IF NOT EXISTS idx_exec_audit_timestamp ON exec_audit(timestamp);
`

// SQLiteStore is the indexed audit backend. Unlike the JSONL log it keys
// entries by id and records execution outcomes with an in-place UPDATE, so
// the read path needs no merging. Writes go through an async buffer; use
// Flush in tests before reading back.
type SQLiteStore struct {
	db     *sql.DB
	writes chan writeOp
	done   chan struct{}
	logger *slog.Logger
}

type writeOp struct {
	entry   *Entry
	update  *resultUpdate
	flushed chan struct{}
}

type resultUpdate struct {
	id         string
	result     ExecutionResult
	durationMs int64
}

// NewSQLiteStore opens (or creates) the audit database at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	// WAL keeps readers unblocked while the write loop runs.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("setting WAL mode: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("creating schema: %w (also: close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		writes: make(chan writeOp, 256),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.writeLoop()
	return s, nil
}

// Record enqueues one decision entry. A full buffer drops the entry with a
// warning rather than blocking the security decision.
func (s *SQLiteStore) Record(e Entry) {
	select {
	case s.writes <- writeOp{entry: &e}:
	default:
		s.logger.Warn("audit write buffer full, dropping entry", "id", e.ID)
	}
}

// UpdateResult records an execution outcome on the original row.
func (s *SQLiteStore) UpdateResult(id string, result ExecutionResult, durationMs int64) {
	op := writeOp{update: &resultUpdate{id: id, result: result, durationMs: durationMs}}
	select {
	case s.writes <- op:
	default:
		s.logger.Warn("audit write buffer full, dropping result update", "id", id)
	}
}

// Recent returns the last limit entries in chronological order.
func (s *SQLiteStore) Recent(limit int) ([]Entry, error) {
	return s.Query(QueryOpts{Limit: limit})
}

// Query returns entries matching the filters, in chronological order.
func (s *SQLiteStore) Query(opts QueryOpts) ([]Entry, error) {
	query := `SELECT id, timestamp, agent_id, user_id, kind, command, code, language,
		reason, approved, blocked, block_reason, severity, risk_warnings,
		working_directory, execution_result, duration_ms
		FROM exec_audit WHERE 1=1`
	var args []any

	if opts.AgentID != "" {
		query += " AND agent_id = ?"
		args = append(args, opts.AgentID)
	}
	if opts.Blocked != nil {
		query += " AND blocked = ?"
		args = append(args, boolToInt(*opts.Blocked))
	}
	if opts.Since != "" {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since)
	}

	query += " ORDER BY timestamp DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var userID, command, code, language, reason sql.NullString
		var blockReason, severity, warnings, workdir, result sql.NullString
		var approved, blocked int
		var durationMs sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.AgentID, &userID, &e.Kind,
			&command, &code, &language, &reason, &approved, &blocked,
			&blockReason, &severity, &warnings, &workdir, &result, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.UserID = userID.String
		e.Command = command.String
		e.Code = code.String
		e.Language = language.String
		e.Reason = reason.String
		e.Approved = approved == 1
		e.Blocked = blocked == 1
		e.BlockReason = blockReason.String
		e.Severity = severity.String
		e.WorkingDir = workdir.String
		e.ExecutionResult = ExecutionResult(result.String)
		e.DurationMs = durationMs.Int64
		if warnings.String != "" {
			if err := json.Unmarshal([]byte(warnings.String), &e.RiskWarnings); err != nil {
				s.logger.Warn("malformed risk_warnings column", "id", e.ID, "error", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DESC query picked the most recent rows; reverse back to
	// chronological order for the caller.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Flush blocks until every enqueued write has been applied.
func (s *SQLiteStore) Flush() {
	flushed := make(chan struct{})
	s.writes <- writeOp{flushed: flushed}
	<-flushed
}

// Close drains pending writes and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func (s *SQLiteStore) writeLoop() {
	defer close(s.done)
	for op := range s.writes {
		switch {
		case op.flushed != nil:
			close(op.flushed)
		case op.entry != nil:
			s.insert(*op.entry)
		case op.update != nil:
			s.applyUpdate(*op.update)
		}
	}
}

func (s *SQLiteStore) insert(e Entry) {
	warnings := ""
	if len(e.RiskWarnings) > 0 {
		if data, err := json.Marshal(e.RiskWarnings); err == nil {
			warnings = string(data)
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO exec_audit (id, timestamp, agent_id, user_id, kind, command, code,
			language, reason, approved, blocked, block_reason, severity, risk_warnings,
			working_directory, execution_result, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.AgentID, e.UserID, string(e.Kind), e.Command, e.Code,
		e.Language, e.Reason, boolToInt(e.Approved), boolToInt(e.Blocked),
		e.BlockReason, e.Severity, warnings, e.WorkingDir,
		string(e.ExecutionResult), e.DurationMs,
	)
	if err != nil {
		s.logger.Error("audit write failed", "id", e.ID, "error", err)
	}
}

func (s *SQLiteStore) applyUpdate(u resultUpdate) {
	res, err := s.db.Exec(
		`UPDATE exec_audit SET execution_result = ?, duration_ms = ? WHERE id = ?`,
		string(u.result), u.durationMs, u.id,
	)
	if err != nil {
		s.logger.Error("audit result update failed", "id", u.id, "error", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Warn("audit result update matched no entry", "id", u.id)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
