package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/temporal"
)

// Scenario is one temporal-store conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema declares the tables. Every table gets a live table; Table also
	// gets its shadow table.
	Schema schema.File `yaml:"schema"`

	// Table is the versioned table the steps operate on.
	Table string `yaml:"table"`

	// Where and Params select the record set of every step.
	Where  string `yaml:"where,omitempty"`
	Params []any  `yaml:"params,omitempty"`

	// Joins are the tables Where refers to besides Table.
	Joins []JoinSpec `yaml:"joins,omitempty"`

	// Now is the clock used for the latest flag. Zero means the largest step
	// timestamp. A step's now overrides it from that step on.
	Now int64 `yaml:"now,omitempty"`

	// Setup holds SQL statements run before the first step.
	Setup []string `yaml:"setup,omitempty"`

	// Steps run in order, each in its own transaction.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	// Supported types: data_at, diff, versions, latest
	Assertions []Assertion `yaml:"assertions"`
}

// JoinSpec is the YAML form of temporal.Join.
type JoinSpec struct {
	Table        string `yaml:"table"`
	Column       string `yaml:"column"`
	JoinedTable  string `yaml:"joined_table"`
	JoinedColumn string `yaml:"joined_column"`
}

// Join converts the join to a temporal.Join.
func (j JoinSpec) Join() temporal.Join {
	return temporal.Join{
		Table:        j.Table,
		Column:       j.Column,
		JoinedTable:  j.JoinedTable,
		JoinedColumn: j.JoinedColumn,
	}
}

// Step mutates the live tables and then invokes at most one operation.
type Step struct {
	// Exec holds SQL statements run before the action.
	Exec []string `yaml:"exec,omitempty"`

	// Action is the operation to invoke. Empty means exec only.
	Action string `yaml:"action,omitempty"`

	// At is the version timestamp, restore target, purge cutoff or seed
	// timestamp depending on Action.
	At int64 `yaml:"at,omitempty"`

	User int64 `yaml:"user,omitempty"`

	// FutureOrPast lets a full version write keep later history consistent.
	FutureOrPast bool `yaml:"future_or_past,omitempty"`

	// Now moves the clock before the action runs.
	Now *int64 `yaml:"now,omitempty"`

	// Seed narrows the live rows of a seed action. Args bind to it.
	Seed string `yaml:"seed,omitempty"`
	Args []any  `yaml:"args,omitempty"`

	// ExpectWritten checks the boolean outcome of version, version2 and
	// restore_if_diff.
	ExpectWritten *bool `yaml:"expect_written,omitempty"`
}

// Action names.
const (
	ActionVersion       = "version"
	ActionVersion2      = "version2"
	ActionRestore       = "restore"
	ActionRestoreIfDiff = "restore_if_diff"
	ActionPurge         = "purge"
	ActionSeed          = "seed"
	ActionSetLatest     = "set_latest"
)

// Assertion checks the store after all steps ran.
type Assertion struct {
	// Type is one of data_at, diff, versions, latest.
	Type string `yaml:"type"`

	// At is the read timestamp of data_at; -1 reads the live table.
	At int64 `yaml:"at,omitempty"`

	// From and To bound a diff.
	From int64 `yaml:"from,omitempty"`
	To   int64 `yaml:"to,omitempty"`

	// Rows are the expected records of data_at ordered by id. Each row must
	// carry "id"; only the listed columns are compared.
	Rows []map[string]any `yaml:"rows,omitempty"`

	Diffs    []ExpectedDiff    `yaml:"diffs,omitempty"`
	Versions []ExpectedVersion `yaml:"versions,omitempty"`
	Latest   []ExpectedLatest  `yaml:"latest,omitempty"`
}

// ExpectedDiff is one expected diff entry.
type ExpectedDiff struct {
	ID      int64    `yaml:"id"`
	Kind    string   `yaml:"kind"`
	Columns []string `yaml:"columns,omitempty"`
}

// ExpectedVersion is one expected history summary entry.
type ExpectedVersion struct {
	Timestamp int64 `yaml:"timestamp"`
	User      int64 `yaml:"user"`
	Changes   int   `yaml:"changes"`
}

// ExpectedLatest is one shadow row expected to carry the latest flag.
type ExpectedLatest struct {
	ID        int64 `yaml:"id"`
	Timestamp int64 `yaml:"timestamp"`
}

// Assertion type constants.
const (
	AssertDataAt   = "data_at"
	AssertDiff     = "diff"
	AssertVersions = "versions"
	AssertLatest   = "latest"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Schema.Tables) == 0 {
		return fmt.Errorf("schema.tables is required and must be non-empty")
	}

	if s.Table == "" {
		return fmt.Errorf("table is required")
	}

	found := false
	for _, t := range s.Schema.Tables {
		if t.Name == s.Table {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("table %q is not declared in schema", s.Table)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case "":
		if len(s.Exec) == 0 {
			return fmt.Errorf("steps[%d]: exec or action is required", index)
		}
	case ActionVersion, ActionVersion2, ActionRestoreIfDiff:
	case ActionRestore, ActionPurge, ActionSeed, ActionSetLatest:
		if s.ExpectWritten != nil {
			return fmt.Errorf("steps[%d]: expect_written is not supported for %s", index, s.Action)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}

	if s.Seed != "" && s.Action != ActionSeed {
		return fmt.Errorf("steps[%d]: seed is only valid for the seed action", index)
	}
	if s.FutureOrPast && s.Action != ActionVersion {
		return fmt.Errorf("steps[%d]: future_or_past is only valid for the version action", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDataAt:
		for j, row := range a.Rows {
			if _, ok := row["id"]; !ok {
				return fmt.Errorf("assertions[%d].rows[%d]: id is required", index, j)
			}
		}
	case AssertDiff:
		for j, d := range a.Diffs {
			switch d.Kind {
			case "ADD", "DEL":
			case "MOD":
				if len(d.Columns) == 0 {
					return fmt.Errorf("assertions[%d].diffs[%d]: columns is required for MOD", index, j)
				}
			default:
				return fmt.Errorf("assertions[%d].diffs[%d]: unknown kind %q", index, j, d.Kind)
			}
		}
	case AssertVersions, AssertLatest:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
