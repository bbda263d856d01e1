package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/temporal"
)

// Snapshot algorithms.
const (
	AlgorithmFull = "full"
	AlgorithmDiff = "diff"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	Selection    SelectionOptions
	At           int64
	User         int64
	Algorithm    string
	FutureOrPast bool
}

// SnapshotResult reports one snapshot.
type SnapshotResult struct {
	Table     string `json:"table"`
	At        int64  `json:"at"`
	User      int64  `json:"user"`
	Algorithm string `json:"algorithm"`
	Written   bool   `json:"written"`
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record the live record set as a version",
		Long: `Record the live rows of the record set as the version at --at.

The full algorithm accepts any timestamp and keeps later versions consistent.
The diff algorithm is faster but expects --at to be at or after the latest
version. Nothing is written when the record set did not change.

Exit codes:
  0 - Snapshot taken (or nothing changed)
  2 - Command error (missing schema, unknown table, database error)

Examples:
  nodeversion snapshot --table page --where "page.folder_id = ?" --param 3 --user 7
  nodeversion snapshot --table page --at 1700000000 --algorithm diff
  nodeversion snapshot --table page --at 1600000000 --future-or-past`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.At, "at", 0, "version timestamp in Unix seconds (default now)")
	cmd.Flags().Int64Var(&opts.User, "user", 0, "id of the acting user")
	cmd.Flags().StringVar(&opts.Algorithm, "algorithm", AlgorithmFull, "full|diff")
	cmd.Flags().BoolVar(&opts.FutureOrPast, "future-or-past", false, "do not flag written rows as latest (full only)")

	return cmd
}

func runSnapshot(opts *SnapshotOptions, cmd *cobra.Command) error {
	switch opts.Algorithm {
	case AlgorithmFull:
	case AlgorithmDiff:
		if opts.FutureOrPast {
			return NewExitError(ExitCommandError, "--future-or-past requires --algorithm full")
		}
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid algorithm %q: must be full or diff", opts.Algorithm))
	}
	if !cmd.Flags().Changed("at") {
		opts.At = temporal.SystemClock{}.Now()
	}

	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection)
		if err != nil {
			return err
		}

		params := opts.Selection.params()
		var written bool
		err = e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			if opts.Algorithm == AlgorithmDiff {
				written, err = v.CreateVersion2(ctx, tx, params, opts.At, opts.User)
			} else {
				written, err = v.CreateVersion(ctx, tx, params, opts.At, opts.User, opts.FutureOrPast)
			}
			return err
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "snapshot failed", err)
		}

		res := SnapshotResult{
			Table:     opts.Selection.Table,
			At:        opts.At,
			User:      opts.User,
			Algorithm: opts.Algorithm,
			Written:   written,
		}
		return newFormatter(opts.RootOptions, cmd).Result(res, func(w io.Writer) error {
			if written {
				fmt.Fprintf(w, "Version %d of %s recorded\n", res.At, res.Table)
			} else {
				fmt.Fprintf(w, "No changes in %s at %d\n", res.Table, res.At)
			}
			return nil
		})
	})
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Table  string
	At     int64
	User   int64
	Where  string
	Params []string
}

// SeedResult reports seeded rows.
type SeedResult struct {
	Table  string `json:"table"`
	At     int64  `json:"at"`
	Seeded int64  `json:"seeded"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Give live rows without history an initial version",
		Long: `Copy every live row that has no shadow row yet into the shadow table as
its first version at --at. Use it once after adding versioning to a table
that already holds data.

Examples:
  nodeversion seed --table page
  nodeversion seed --table page --at 1600000000 --where "page.folder_id = ?" --param 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "versioned table (required)")
	_ = cmd.MarkFlagRequired("table")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "version timestamp in Unix seconds (default now)")
	cmd.Flags().Int64Var(&opts.User, "user", 0, "id of the acting user")
	cmd.Flags().StringVar(&opts.Where, "where", "", "predicate narrowing the seeded live rows")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "value bound to the next ? of --where (repeatable)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	if !cmd.Flags().Changed("at") {
		opts.At = temporal.SystemClock{}.Now()
	}

	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &SelectionOptions{Table: opts.Table})
		if err != nil {
			return err
		}

		var n int64
		err = e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			var err error
			n, err = v.CreateInitialVersions(ctx, tx, opts.At, opts.User, opts.Where, parseParams(opts.Params)...)
			return err
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "seed failed", err)
		}

		res := SeedResult{Table: opts.Table, At: opts.At, Seeded: n}
		return newFormatter(opts.RootOptions, cmd).Result(res, func(w io.Writer) error {
			fmt.Fprintf(w, "Seeded %d rows of %s at %d\n", res.Seeded, res.Table, res.At)
			return nil
		})
	})
}

// LatestOptions holds flags for the latest command.
type LatestOptions struct {
	*RootOptions
	Selection SelectionOptions
	Now       int64
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Recompute the latest flag",
		Long: `Flag, for every record of the record set, the shadow row in effect now.
Run it periodically when versions are written ahead of time.

Examples:
  nodeversion latest --table page
  nodeversion latest --table page --now 1700000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(opts, cmd)
		},
	}

	addSelectionFlags(cmd, &opts.Selection)
	cmd.Flags().Int64Var(&opts.Now, "now", 0, "evaluate at this Unix time instead of the wall clock")

	return cmd
}

func runLatest(opts *LatestOptions, cmd *cobra.Command) error {
	var clockOpts []temporal.Option
	if cmd.Flags().Changed("now") {
		now := opts.Now
		clockOpts = append(clockOpts, temporal.WithClock(temporal.ClockFunc(func() int64 { return now })))
	}

	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		v, err := e.versioner(ctx, &opts.Selection, clockOpts...)
		if err != nil {
			return err
		}
		err = e.store.WithTx(ctx, func(tx *sqlx.Tx) error {
			return v.SetLatestFlag(ctx, tx, opts.Selection.params())
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "latest flag update failed", err)
		}
		return newFormatter(opts.RootOptions, cmd).Success(fmt.Sprintf("Latest flags of %s updated", opts.Selection.Table))
	})
}
