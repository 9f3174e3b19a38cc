// Package execguard is the execution security gateway that sits between an
// autonomous agent and the host. It classifies proposed terminal commands
// and code snippets against data-driven rule tables, applies per-agent
// rate limits, validates working directories, sanitizes environments for
// child processes, and records every decision in an audit trail. It never
// executes anything itself.
//
// Basic usage:
//
//	g, err := execguard.New(config.Defaults(), execguard.WithLogger(logger))
//	res := g.PreExecutionCheck(ctx, execguard.Request{
//		AgentID: "coder", Kind: audit.KindTerminal, Command: "ls -la",
//	})
//	if res.Validation.Allowed {
//		// spawn with g.SanitizeEnvironment(), then:
//		g.UpdateResult(res.AuditEntry.ID, audit.ResultSuccess, elapsedMs)
//	}
package execguard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/execguard/execguard/internal/approval"
	"github.com/execguard/execguard/internal/audit"
	"github.com/execguard/execguard/internal/config"
	"github.com/execguard/execguard/internal/metrics"
	"github.com/execguard/execguard/internal/pathguard"
	"github.com/execguard/execguard/internal/ratelimit"
	"github.com/execguard/execguard/internal/rules"
	"github.com/execguard/execguard/internal/sanitize"
	"github.com/execguard/execguard/internal/validate"
)

// Request describes one proposed action.
type Request struct {
	AgentID  string
	UserID   string
	Kind     audit.Kind // KindTerminal or KindCode
	Command  string     // terminal requests
	Code     string     // code requests
	Language string     // code requests
	Reason   string     // caller-supplied purpose, recorded verbatim
	WorkDir  string     // optional; empty means the caller's safe default
}

// Result is the composed verdict returned to the tool-execution engine.
type Result struct {
	Validation   validate.Result
	RiskWarnings []string
	AuditEntry   audit.Entry
}

// Guard is the gateway service object. It holds all state explicitly (no
// package-level singletons) so hosts can run isolated instances and tests
// can inject clocks and recorders.
type Guard struct {
	cfg      *config.Config
	provider rules.Provider
	watcher  *rules.Watcher

	commands *validate.CommandValidator
	code     *validate.CodeValidator
	advisor  *validate.RiskAdvisor
	limiter  ratelimit.Limiter
	paths    *pathguard.Guard
	recorder audit.Recorder
	metrics  *metrics.Set
	logger   *slog.Logger
	clock    ratelimit.Clock
}

// Option customizes Guard construction.
type Option func(*Guard)

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithClock injects the clock used for rate limiting and audit timestamps.
func WithClock(clock ratelimit.Clock) Option {
	return func(g *Guard) { g.clock = clock }
}

// WithRecorder injects an audit backend, overriding the configured one.
func WithRecorder(rec audit.Recorder) Option {
	return func(g *Guard) { g.recorder = rec }
}

// WithLimiter injects a rate limiter, overriding the configured one.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(g *Guard) { g.limiter = l }
}

// WithRegistry sets the Prometheus registry for the gateway's collectors.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(g *Guard) { g.metrics = metrics.New(reg) }
}

// New builds a gateway from configuration. Callers should Close it when
// done to stop the rule watcher and drain the audit backend.
func New(cfg *config.Config, opts ...Option) (*Guard, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	g := &Guard{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.clock == nil {
		g.clock = ratelimit.SystemClock{}
	}

	if err := g.initRules(); err != nil {
		return nil, err
	}
	g.commands = validate.NewCommandValidator(g.provider)
	g.code = validate.NewCodeValidator(g.provider)
	g.advisor = validate.NewRiskAdvisor(g.provider)
	g.paths = pathguard.New(cfg.Paths.ExtraRestricted)

	if g.limiter == nil {
		rlCfg := ratelimit.Config{
			PerMinute:    cfg.RateLimit.PerMinute,
			PerHour:      cfg.RateLimit.PerHour,
			CooldownBase: cfg.RateLimit.Cooldown(),
		}
		if cfg.RateLimit.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
			g.limiter = ratelimit.NewRedisLimiter(client, rlCfg, g.clock, g.logger)
		} else {
			g.limiter = ratelimit.NewMemoryLimiter(rlCfg, g.clock)
		}
	}

	if g.recorder == nil {
		rec, err := newRecorder(cfg, g.logger)
		if err != nil {
			return nil, err
		}
		g.recorder = rec
	}

	if g.metrics == nil {
		g.metrics = metrics.New(prometheus.NewRegistry())
	}

	return g, nil
}

func (g *Guard) initRules() error {
	if g.cfg.CustomRulesDir != "" {
		w, err := rules.NewWatcher(g.cfg.CustomRulesDir, g.logger)
		if err != nil {
			return fmt.Errorf("loading custom rules: %w", err)
		}
		g.watcher = w
		g.provider = w
		return nil
	}
	tables, err := rules.LoadEmbedded()
	if err != nil {
		return err
	}
	g.provider = rules.NewStatic(tables)
	return nil
}

func newRecorder(cfg *config.Config, logger *slog.Logger) (audit.Recorder, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Audit.DBPath, logger)
	default:
		return audit.NewLog(cfg.Audit.Dir, logger)
	}
}

// PreExecutionCheck runs the full decision pipeline: rate limit, then the
// kind-specific validator, then risk advisory and working-directory
// validation for terminal requests. Exactly one audit entry is written
// before returning, whatever the verdict.
func (g *Guard) PreExecutionCheck(ctx context.Context, req Request) Result {
	start := time.Now()
	defer func() {
		g.metrics.CheckDuration.Observe(time.Since(start).Seconds())
	}()

	entry := audit.Entry{
		ID:         uuid.New().String(),
		Timestamp:  g.clock.Now().UTC().Format(time.RFC3339Nano),
		AgentID:    req.AgentID,
		UserID:     req.UserID,
		Kind:       req.Kind,
		Command:    req.Command,
		Code:       truncateCode(req.Code),
		Language:   req.Language,
		Reason:     req.Reason,
		WorkingDir: req.WorkDir,
	}

	if d := g.limiter.Check(ctx, req.AgentID); !d.Allowed {
		validation := validate.Result{
			Allowed:  false,
			Reason:   d.Reason,
			Severity: rules.SeverityMedium,
		}
		g.metrics.Decisions.WithLabelValues(string(req.Kind), "rate_limited").Inc()
		return g.finish(entry, validation, nil)
	}

	var validation validate.Result
	var warnings []string

	switch req.Kind {
	case audit.KindCode:
		validation = g.code.Validate(req.Code, req.Language)
	default:
		validation = g.commands.Validate(req.Command)
		warnings = g.advisor.Warnings(req.Command)
		if validation.Allowed && req.WorkDir != "" {
			validation = g.paths.Validate(req.WorkDir)
		}
	}

	outcome := "allowed"
	if !validation.Allowed {
		outcome = "blocked"
		if validation.RuleID != "" {
			g.metrics.RuleHits.WithLabelValues(validation.RuleID).Inc()
		}
	}
	g.metrics.Decisions.WithLabelValues(string(req.Kind), outcome).Inc()

	return g.finish(entry, validation, warnings)
}

// finish fills verdict fields, persists the single audit entry, and
// assembles the result.
func (g *Guard) finish(entry audit.Entry, validation validate.Result, warnings []string) Result {
	entry.Approved = validation.Allowed
	entry.Blocked = !validation.Allowed
	entry.BlockReason = validation.Reason
	if validation.Severity != 0 {
		entry.Severity = validation.Severity.String()
	}
	entry.RiskWarnings = warnings

	g.recorder.Record(entry)

	if entry.Blocked {
		g.logger.Warn("execution request blocked",
			"agent", entry.AgentID, "kind", entry.Kind,
			"reason", entry.BlockReason, "severity", entry.Severity)
	}

	return Result{
		Validation:   validation,
		RiskWarnings: warnings,
		AuditEntry:   entry,
	}
}

// PendingApproval is an outstanding human confirmation for an action that
// already passed validation. It resolves exactly once; callers Wait with
// their own deadline context.
type PendingApproval = approval.Pending

// RequestApproval wraps a validated request in a single-resolution
// confirmation handle for the host's approval queue. The gateway does not
// run the queue or the UI; it only guarantees the resolve-once contract.
func (g *Guard) RequestApproval(req Request) *PendingApproval {
	label := req.Command
	if req.Kind == audit.KindCode {
		label = req.Language + " code"
	}
	return approval.NewPending(approval.Request{
		AgentID:     req.AgentID,
		Kind:        req.Kind,
		Command:     req.Command,
		Code:        req.Code,
		Language:    req.Language,
		Reason:      req.Reason,
		ActionLabel: label,
	})
}

// UpdateResult records the execution outcome for a previously returned
// audit entry id.
func (g *Guard) UpdateResult(auditID string, result audit.ExecutionResult, durationMs int64) {
	g.recorder.UpdateResult(auditID, result, durationMs)
}

// RecentAuditEntries returns up to limit recent entries in chronological
// order, with execution outcomes folded in.
func (g *Guard) RecentAuditEntries(limit int) ([]audit.Entry, error) {
	return g.recorder.Recent(limit)
}

// SanitizeEnvironment returns a scrubbed copy of the process environment
// for the child process the caller will spawn.
func (g *Guard) SanitizeEnvironment() map[string]string {
	return sanitize.Environment(g.cfg.Env.ExtraSecretPrefixes)
}

// Rules returns metadata for every loaded detection rule.
func (g *Guard) Rules() []rules.Info {
	return g.provider.Tables().List()
}

// Close stops the rule watcher and drains the audit backend.
func (g *Guard) Close() error {
	var firstErr error
	if g.watcher != nil {
		if err := g.watcher.Close(); err != nil {
			firstErr = err
		}
	}
	if err := g.recorder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// truncateCode bounds what gets persisted for code requests; validation
// sees the full snippet, the audit log does not need megabytes of it.
func truncateCode(code string) string {
	if len(code) <= 4096 {
		return code
	}
	return code[:4096] + "..."
}
