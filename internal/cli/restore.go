package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/temporal"
)

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Selection SelectionOptions
	At        int64
	IfDiff    bool
}

// RestoreResult reports one restore.
type RestoreResult struct {
	Table    string `json:"table"`
	At       int64  `json:"at"`
	Restored bool   `json:"restored"`
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Put the record set back to a point in time",
		Long: `Replace the live rows of the record set with their state at --at.
Rows created after --at are deleted; unversioned columns keep their live value
where the row still exists. History is not changed: take a snapshot afterwards
to record the restore as a new version.

Examples:
  nodeversion restore --table page --at 1600000000
  nodeversion restore --table page --at 1600000000 --if-diff`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.At, "at", 0, "point in time to restore (required)")
	_ = cmd.MarkFlagRequired("at")
	cmd.Flags().BoolVar(&opts.IfDiff, "if-diff", false, "skip the restore when nothing differs")

	return cmd
}

func runRestore(opts *RestoreOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}

		params := opts.Selection.params()
		restored := true
		err = e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			if opts.IfDiff {
				var err error
				restored, err = v.RestoreIfDiff(ctx, tx, params, opts.At)
				return err
			}
			return v.RestoreVersion(ctx, tx, params, opts.At)
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "restore failed", err)
		}

		res := RestoreResult{Table: opts.Selection.Table, At: opts.At, Restored: restored}
		return newFormatter(opts.RootOptions, cmd).Result(res, func(w io.Writer) error {
			if restored {
				fmt.Fprintf(w, "Restored %s to %d\n", res.Table, res.At)
			} else {
				fmt.Fprintf(w, "%s already matches %d\n", res.Table, res.At)
			}
			return nil
		})
	})
}

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	Selection SelectionOptions
	Cutoff    int64
}

// PurgeResult reports one purge.
type PurgeResult struct {
	Table  string `json:"table"`
	Cutoff int64  `json:"cutoff"`
	temporal.PurgeResult
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop history older than a cutoff",
		Long: `Delete the versions of the record set older than --cutoff. The version in
effect at the cutoff is kept and moved to the cutoff, so reads at or after it
are unchanged. Reads before the cutoff return nothing afterwards.

Examples:
  nodeversion purge --table page --cutoff 1600000000
  nodeversion purge --table page --where "page.folder_id = ?" --param 3 --cutoff 1600000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.Cutoff, "cutoff", 0, "oldest point in time to keep (required)")
	_ = cmd.MarkFlagRequired("cutoff")

	return cmd
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}

		var purged temporal.PurgeResult
		err = e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			purged, err = v.PurgeVersions(ctx, tx, opts.Selection.params(), opts.Cutoff)
			return err
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "purge failed", err)
		}

		res := PurgeResult{Table: opts.Selection.Table, Cutoff: opts.Cutoff, PurgeResult: purged}
		return newFormatter(opts.RootOptions, cmd).Result(res, func(w io.Writer) error {
			fmt.Fprintf(w, "Purged %s before %d: %d rows deleted, %d moved to the cutoff\n",
				res.Table, res.Cutoff, res.Deleted, res.Rewritten)
			return nil
		})
	})
}
