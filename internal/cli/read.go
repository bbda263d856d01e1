package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/temporal"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Selection SelectionOptions
	At        int64
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the record set at a point in time",
		Long: `Print the records of the record set as they were at --at. Unversioned
columns always show their live value. Without --at the live rows are shown.

Examples:
  nodeversion show --table page --at 1700000000
  nodeversion show --table page --where "page.folder_id = ?" --param 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.At, "at", temporal.Current, "point in time in Unix seconds (-1 for live)")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}
		rows, err := v.GetVersionData(ctx, e.store.DB(), opts.Selection.params(), opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "read failed", err)
		}
		if rows == nil {
			rows = []temporal.Row{}
		}

		cols := v.Table().ColumnNames()
		return newFormatter(opts.RootOptions, cmd).Result(rows, func(w io.Writer) error {
			if len(rows) == 0 {
				fmt.Fprintln(w, "No rows.")
				return nil
			}
			out := make([][]string, len(rows))
			for i, r := range rows {
				line := make([]string, len(cols))
				for j, c := range cols {
					line[j] = formatValue(r.Get(c))
				}
				out[i] = line
			}
			return writeTable(w, upper(cols), out)
		})
	})
}

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Selection SelectionOptions
	From      int64
	To        int64
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the record set at two points in time",
		Long: `List the records added, modified or deleted between --from and --to.
Either side may be -1 for the live rows; --to defaults to live.

Examples:
  nodeversion diff --table page --from 1600000000
  nodeversion diff --table page --from 1600000000 --to 1700000000 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.From, "from", 0, "older point in time (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().Int64Var(&opts.To, "to", temporal.Current, "newer point in time (-1 for live)")

	return cmd
}

func runDiff(opts *DiffOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}
		diffs, err := v.GetDiff(ctx, e.store.DB(), opts.Selection.params(), opts.From, opts.To)
		if err != nil {
			return WrapExitError(ExitCommandError, "diff failed", err)
		}
		if diffs == nil {
			diffs = []temporal.Diff{}
		}

		return newFormatter(opts.RootOptions, cmd).Result(diffs, func(w io.Writer) error {
			if len(diffs) == 0 {
				fmt.Fprintln(w, "No differences.")
				return nil
			}
			rows := make([][]string, len(diffs))
			for i, d := range diffs {
				rows[i] = []string{d.Kind.String(), strconv.FormatInt(d.ID, 10), strings.Join(d.Columns, ",")}
			}
			return writeTable(w, []string{"KIND", "ID", "COLUMNS"}, rows)
		})
	})
}

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Selection SelectionOptions
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the versions of the record set",
		Long: `List every timestamp at which the record set has history, with the
acting user and the number of records written.

Examples:
  nodeversion history --table page
  nodeversion history --table page --where "page.folder_id = ?" --param 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}
		versions, err := v.GetVersions(ctx, e.store.DB(), opts.Selection.params())
		if err != nil {
			return WrapExitError(ExitCommandError, "history failed", err)
		}

		return newFormatter(opts.RootOptions, cmd).Result(versions, func(w io.Writer) error {
			if len(versions) == 0 {
				fmt.Fprintln(w, "No versions.")
				return nil
			}
			rows := make([][]string, len(versions))
			for i, ver := range versions {
				rows[i] = []string{
					strconv.FormatInt(ver.Timestamp, 10),
					strconv.FormatInt(ver.User, 10),
					strconv.Itoa(ver.Changes),
				}
			}
			return writeTable(w, []string{"TIMESTAMP", "USER", "CHANGES"}, rows)
		})
	})
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(n)
	}
	return out
}
