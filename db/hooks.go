package db

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Statement events
// ─────────────────────────────────────────────────────────────────────────────

// StatementKind tells hooks which entry point ran a statement.
type StatementKind string

const (
	KindExec  StatementKind = "exec"
	KindQuery StatementKind = "query"
	// KindRow is reported when the caller scans the row, not when the
	// statement is sent, so the outcome is known.
	KindRow StatementKind = "row"
)

// QueryEvent describes one finished statement.
type QueryEvent struct {
	Kind     StatementKind
	Query    string
	Args     []any
	InTx     bool
	Prepared bool
	Duration time.Duration
	// Rows is the affected-row count of an exec, -1 when unknown.
	Rows int64
	// Err is the mapped error returned to the caller, nil on success.
	Err error
}

// Hook is called before and after every statement.
//
// Implementations MUST be goroutine-safe and SHOULD be non-blocking.
// Panics inside a hook are recovered by the hook chain and logged.
type Hook interface {
	BeforeQuery(ctx context.Context, query string, args []any)
	AfterQuery(ctx context.Context, ev QueryEvent)
}

// ─────────────────────────────────────────────────────────────────────────────
// hookChain: internal dispatcher
// ─────────────────────────────────────────────────────────────────────────────

type hookChain struct {
	hooks []Hook
}

func newHookChain(hooks []Hook) hookChain {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return hookChain{hooks: filtered}
}

// begin runs the BeforeQuery hooks and returns the span that reports the
// matching AfterQuery.
func (c hookChain) begin(ctx context.Context, ev QueryEvent) *span {
	for _, h := range c.hooks {
		safeBeforeQuery(h, ctx, ev.Query, ev.Args)
	}
	ev.Rows = -1
	return &span{chain: c, ctx: ctx, ev: ev, start: time.Now()}
}

// span is one in-flight statement. end reports it at most once.
type span struct {
	chain hookChain
	ctx   context.Context
	ev    QueryEvent
	start time.Time
	done  bool
}

func (s *span) end(err error) {
	if s == nil || s.done {
		return
	}
	s.done = true
	s.ev.Duration = time.Since(s.start)
	s.ev.Err = err
	for _, h := range s.chain.hooks {
		safeAfterQuery(h, s.ctx, s.ev)
	}
}

func (s *span) endExec(res sql.Result, err error) {
	if err == nil && res != nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			s.ev.Rows = n
		}
	}
	s.end(err)
}

func safeBeforeQuery(h Hook, ctx context.Context, query string, args []any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("jobly/db: hook panic in BeforeQuery", "panic", r)
		}
	}()
	h.BeforeQuery(ctx, query, args)
}

func safeAfterQuery(h Hook, ctx context.Context, ev QueryEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("jobly/db: hook panic in AfterQuery", "panic", r, "kind", string(ev.Kind))
		}
	}()
	h.AfterQuery(ctx, ev)
}

// ─────────────────────────────────────────────────────────────────────────────
// Built-in hooks
// ─────────────────────────────────────────────────────────────────────────────

// ── Logging hook ─────────────────────────────────────────────────────────────

// LogHookConfig configures the structured logging hook.
type LogHookConfig struct {
	// Logger defaults to slog.Default() if nil.
	Logger *slog.Logger
	// SlowQueryThreshold logs a warning when duration exceeds this value.
	// Zero disables slow-query logging.
	SlowQueryThreshold time.Duration
	// LogArgs includes bound parameters in log entries. Leave it off when
	// args may carry personal data.
	LogArgs bool
}

// NewLogHook returns a Hook that emits structured log entries via slog.
//
// A row lookup that finds nothing is logged at DEBUG. Every other error is
// logged at ERROR.
func NewLogHook(cfg LogHookConfig) Hook {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &logHook{cfg: cfg, logger: logger}
}

type logHook struct {
	cfg    LogHookConfig
	logger *slog.Logger
}

func (h *logHook) BeforeQuery(context.Context, string, []any) {}

func (h *logHook) AfterQuery(ctx context.Context, ev QueryEvent) {
	attrs := []any{
		slog.String("kind", string(ev.Kind)),
		slog.String("query", trimQuery(ev.Query)),
		slog.Duration("duration", ev.Duration),
	}
	if ev.InTx {
		attrs = append(attrs, slog.Bool("tx", true))
	}
	if ev.Rows >= 0 {
		attrs = append(attrs, slog.Int64("rows", ev.Rows))
	}
	if h.cfg.LogArgs && len(ev.Args) > 0 {
		attrs = append(attrs, slog.Any("args", ev.Args))
	}

	switch {
	case IsNotFound(ev.Err):
		h.logger.DebugContext(ctx, "jobly/db: no rows", attrs...)
	case ev.Err != nil:
		h.logger.ErrorContext(ctx, "jobly/db: query error", append(attrs, slog.Any("error", ev.Err))...)
	case h.cfg.SlowQueryThreshold > 0 && ev.Duration > h.cfg.SlowQueryThreshold:
		h.logger.WarnContext(ctx, "jobly/db: slow query", attrs...)
	default:
		h.logger.DebugContext(ctx, "jobly/db: query", attrs...)
	}
}

// trimQuery collapses the indentation of multi-line statements and caps the
// logged length.
func trimQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > 500 {
		return q[:500] + "…"
	}
	return q
}

// ── Metrics hook ─────────────────────────────────────────────────────────────

// MetricsCollector receives one event per finished statement. QueryStats is
// the in-process implementation the CLI uses.
type MetricsCollector interface {
	RecordQuery(ev QueryEvent)
}

// NewMetricsHook returns a Hook that delegates to a MetricsCollector.
func NewMetricsHook(collector MetricsCollector) Hook {
	return &metricsHook{c: collector}
}

type metricsHook struct{ c MetricsCollector }

func (h *metricsHook) BeforeQuery(context.Context, string, []any) {}
func (h *metricsHook) AfterQuery(_ context.Context, ev QueryEvent) { h.c.RecordQuery(ev) }
