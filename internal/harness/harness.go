package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/logger"
	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/store"
	"github.com/roach88/nodeversion/internal/temporal"
	"github.com/roach88/nodeversion/internal/testutil"
)

// Harness is the scenario execution engine.
type Harness struct {
	store     *store.Store
	table     *schema.Table
	versioner *temporal.Versioner
	clock     *testutil.ManualClock
	params    []any
	log       *logger.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	log *logger.Logger
}

// WithLogger routes harness and temporal logs to l.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh SQLite database in a temporary directory.
// Failed expectations and assertions are reported in the result; an error is
// returned only when the scenario cannot be executed.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := os.MkdirTemp("", "nodeversion-harness-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	runID := uuid.Must(uuid.NewV7()).String()
	base := o.log.With("run_id", runID)

	ctx := context.Background()
	h, err := newHarness(ctx, st, scenario, base)
	if err != nil {
		return nil, err
	}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult(runID)
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, failure := range h.evaluateAssertions(ctx, scenario.Assertions, result.Trace) {
		result.AddError(failure)
	}

	shadow, err := h.shadowState(ctx)
	if err != nil {
		return nil, err
	}
	result.Shadow = shadow

	h.log.Info().
		Str("scenario", scenario.Name).
		Bool("pass", result.Pass).
		Int("steps", len(result.Trace)).
		Msg("scenario finished")
	return result, nil
}

func newHarness(ctx context.Context, st *store.Store, s *Scenario, log *logger.Logger) (*Harness, error) {
	reg, err := s.Schema.Registry()
	if err != nil {
		return nil, fmt.Errorf("load scenario schema: %w", err)
	}
	for _, name := range reg.Tables() {
		t, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		if err := st.CreateLiveTable(ctx, t); err != nil {
			return nil, err
		}
	}

	table, err := reg.Lookup(s.Table)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureShadowTable(ctx, table, table.AutoIncrement); err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock(s.now())
	v := temporal.New(reg, temporal.WithClock(clock), temporal.WithLogger(log))
	if err := v.SetTable(s.Table); err != nil {
		return nil, err
	}
	v.SetWherePart(s.Where)
	for _, j := range s.Joins {
		v.AddJoin(j.Join())
	}

	return &Harness{
		store:     st,
		table:     table,
		versioner: v,
		clock:     clock,
		params:    normalizeValues(s.Params),
		log:       log.Component("harness"),
	}, nil
}

// now returns the initial clock of the scenario.
func (s *Scenario) now() int64 {
	if s.Now != 0 {
		return s.Now
	}
	var latest int64
	for _, step := range s.Steps {
		latest = max(latest, step.At)
	}
	return latest
}

func (h *Harness) executeSetup(ctx context.Context, setup []string) error {
	if len(setup) == 0 {
		return nil
	}
	return h.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range setup {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("setup[%d]: %w", i, err)
			}
		}
		return nil
	})
}

// executeStep runs one step in a transaction and records its outcome.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{
		Step:   index,
		Action: step.Action,
		At:     step.At,
		User:   step.User,
		Exec:   len(step.Exec),
	}
	if event.Action == "" {
		event.Action = "exec"
	}
	if step.Now != nil {
		h.clock.Set(*step.Now)
	}

	err := h.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range step.Exec {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec[%d]: %w", i, err)
			}
		}
		return h.invoke(ctx, tx, step, &event)
	})
	if err != nil {
		return err
	}

	if step.ExpectWritten != nil && event.Written != nil && *step.ExpectWritten != *event.Written {
		result.AddError(fmt.Sprintf("step %d (%s at %d): expected written=%t, got %t",
			index, event.Action, step.At, *step.ExpectWritten, *event.Written))
	}
	result.AddTrace(event)

	h.log.Debug().
		Int("step", index).
		Str("action", event.Action).
		Int64("at", step.At).
		Msg("step completed")
	return nil
}

func (h *Harness) invoke(ctx context.Context, tx *sqlx.Tx, step Step, event *TraceEvent) error {
	v := h.versioner
	switch step.Action {
	case "":
		return nil
	case ActionVersion:
		written, err := v.CreateVersion(ctx, tx, h.params, step.At, step.User, step.FutureOrPast)
		event.Written = &written
		return err
	case ActionVersion2:
		written, err := v.CreateVersion2(ctx, tx, h.params, step.At, step.User)
		event.Written = &written
		return err
	case ActionRestore:
		return v.RestoreVersion(ctx, tx, h.params, step.At)
	case ActionRestoreIfDiff:
		restored, err := v.RestoreIfDiff(ctx, tx, h.params, step.At)
		event.Written = &restored
		return err
	case ActionPurge:
		res, err := v.PurgeVersions(ctx, tx, h.params, step.At)
		event.Result = map[string]any{"rewritten": res.Rewritten, "deleted": res.Deleted}
		return err
	case ActionSeed:
		n, err := v.CreateInitialVersions(ctx, tx, step.At, step.User, step.Seed, normalizeValues(step.Args)...)
		event.Result = map[string]any{"seeded": n}
		return err
	case ActionSetLatest:
		return v.SetLatestFlag(ctx, tx, h.params)
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

// shadowState reads the whole shadow table.
func (h *Harness) shadowState(ctx context.Context) ([]ShadowState, error) {
	out := []ShadowState{}
	query := fmt.Sprintf(`
		SELECT id, %s, %s, %s, %s FROM %s ORDER BY id ASC, %s ASC
	`, schema.TimestampColumn, schema.UserColumn, schema.LatestColumn, schema.RemovedColumn,
		h.table.ShadowName(), schema.TimestampColumn)
	if err := sqlx.SelectContext(ctx, h.store.DB(), &out, query); err != nil {
		return nil, fmt.Errorf("read shadow table: %w", err)
	}
	return out, nil
}

// normalizeValues converts YAML-decoded numbers to int64.
func normalizeValues(vals []any) []any {
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case uint64:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
	case []byte:
		return string(x)
	}
	return v
}
