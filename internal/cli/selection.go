package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/temporal"
)

// SelectionOptions selects the table and record set of a command.
type SelectionOptions struct {
	Table  string
	Where  string
	Params []string
	Joins  []string // "table.column=joined_table.joined_column"
}

func addSelectionFlags(cmd *cobra.Command, sel *SelectionOptions) {
	cmd.Flags().StringVar(&sel.Table, "table", "", "versioned table (required)")
	_ = cmd.MarkFlagRequired("table")
	cmd.Flags().StringVar(&sel.Where, "where", "", "predicate selecting the record set, with ? placeholders")
	cmd.Flags().StringArrayVar(&sel.Params, "param", nil, "value bound to the next ? of --where (repeatable)")
	cmd.Flags().StringArrayVar(&sel.Joins, "join", nil, "join used by --where, as table.column=joined.column (repeatable)")
}

// params converts --param values: integers bind as int64, anything else as
// text.
func (s *SelectionOptions) params() []any {
	return parseParams(s.Params)
}

func parseParams(raw []string) []any {
	if len(raw) == 0 {
		return nil
	}
	out := make([]any, len(raw))
	for i, p := range raw {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			out[i] = n
		} else {
			out[i] = p
		}
	}
	return out
}

func (s *SelectionOptions) joins() ([]temporal.Join, error) {
	out := make([]temporal.Join, 0, len(s.Joins))
	for _, spec := range s.Joins {
		j, err := parseJoin(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// parseJoin parses "table.column=joined_table.joined_column".
func parseJoin(spec string) (temporal.Join, error) {
	left, right, ok := strings.Cut(spec, "=")
	if !ok {
		return temporal.Join{}, fmt.Errorf("join %q: missing '='", spec)
	}
	table, column, ok := strings.Cut(strings.TrimSpace(left), ".")
	if !ok || table == "" || column == "" {
		return temporal.Join{}, fmt.Errorf("join %q: left side must be table.column", spec)
	}
	joined, joinedColumn, ok := strings.Cut(strings.TrimSpace(right), ".")
	if !ok || joined == "" || joinedColumn == "" {
		return temporal.Join{}, fmt.Errorf("join %q: right side must be table.column", spec)
	}
	return temporal.Join{
		Table:        table,
		Column:       column,
		JoinedTable:  joined,
		JoinedColumn: joinedColumn,
	}, nil
}
