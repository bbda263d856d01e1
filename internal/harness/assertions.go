package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/temporal"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s at=%d", event.Step, event.Action, event.At)
		if event.Written != nil {
			fmt.Fprintf(&buf, " written=%t", *event.Written)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// evaluateAssertions runs every assertion and returns the failure messages.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion, trace []TraceEvent) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertDataAt:
			err = h.assertDataAt(ctx, a)
		case AssertDiff:
			err = h.assertDiff(ctx, a)
		case AssertVersions:
			err = h.assertVersions(ctx, a)
		case AssertLatest:
			err = h.assertLatest(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err == nil {
			continue
		}
		if ae, ok := err.(*AssertionError); ok {
			ae.Trace = trace
		}
		failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
	}
	return failures
}

// assertDataAt compares the point-in-time projection at a.At with a.Rows.
// Only the columns listed in each expected row are compared.
func (h *Harness) assertDataAt(ctx context.Context, a Assertion) error {
	rows, err := h.versioner.GetVersionData(ctx, h.store.DB(), h.params, a.At)
	if err != nil {
		return err
	}

	mismatch := func(actual string) error {
		return &AssertionError{
			Type:     AssertDataAt,
			Expected: fmt.Sprintf("at %d: %v", a.At, a.Rows),
			Actual:   actual,
		}
	}

	if len(rows) != len(a.Rows) {
		return mismatch(fmt.Sprintf("%d rows %v", len(rows), rowValues(rows)))
	}
	for i, want := range a.Rows {
		got := rows[i]
		if normalizeValue(want["id"]) != got.ID {
			return mismatch(fmt.Sprintf("row %d has id %d", i, got.ID))
		}
		for col, v := range want {
			if !reflect.DeepEqual(normalizeValue(v), normalizeValue(got.Get(col))) {
				return mismatch(fmt.Sprintf("id %d column %s = %v", got.ID, col, got.Get(col)))
			}
		}
	}
	return nil
}

// assertDiff compares the diff between a.From and a.To with a.Diffs.
func (h *Harness) assertDiff(ctx context.Context, a Assertion) error {
	diffs, err := h.versioner.GetDiff(ctx, h.store.DB(), h.params, a.From, a.To)
	if err != nil {
		return err
	}

	got := make([]ExpectedDiff, len(diffs))
	for i, d := range diffs {
		got[i] = ExpectedDiff{ID: d.ID, Kind: d.Kind.String(), Columns: d.Columns}
	}
	want := a.Diffs
	if want == nil {
		want = []ExpectedDiff{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertDiff,
			Expected: fmt.Sprintf("%d..%d: %v", a.From, a.To, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertVersions compares the history summary with a.Versions.
func (h *Harness) assertVersions(ctx context.Context, a Assertion) error {
	versions, err := h.versioner.GetVersions(ctx, h.store.DB(), h.params)
	if err != nil {
		return err
	}

	got := make([]ExpectedVersion, len(versions))
	for i, v := range versions {
		got[i] = ExpectedVersion(v)
	}
	want := a.Versions
	if want == nil {
		want = []ExpectedVersion{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertVersions,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertLatest compares the shadow rows carrying the latest flag with
// a.Latest. The whole shadow table is checked, not only the record set.
func (h *Harness) assertLatest(ctx context.Context, a Assertion) error {
	got := []ExpectedLatest{}
	query := fmt.Sprintf(`
		SELECT id, %s AS timestamp FROM %s WHERE %s <> 0 ORDER BY id ASC
	`, schema.TimestampColumn, h.table.ShadowName(), schema.LatestColumn)
	if err := sqlx.SelectContext(ctx, h.store.DB(), &got, query); err != nil {
		return fmt.Errorf("read latest rows: %w", err)
	}

	want := a.Latest
	if want == nil {
		want = []ExpectedLatest{}
	}
	if !reflect.DeepEqual(want, got) {
		return &AssertionError{
			Type:     AssertLatest,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func rowValues(rows []temporal.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out
}
