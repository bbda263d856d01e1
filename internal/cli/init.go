package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Tables        []string
	CreateLive    bool
	AutoIncrement bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create shadow tables",
		Long: `Create the shadow table of every table in the schema, or of the tables
named with --table. Existing shadow tables are left alone.

Exit codes:
  0 - Shadow tables exist
  2 - Command error (missing schema, unknown table, database error)

Examples:
  nodeversion init --schema tables.yaml --db app.db
  nodeversion init --schema tables.yaml --table page --create-live
  nodeversion init --schema tables.yaml --table page --auto-increment`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Tables, "table", nil, "table to initialize (repeatable, default all)")
	cmd.Flags().BoolVar(&opts.CreateLive, "create-live", false, "also create missing live tables")
	cmd.Flags().BoolVar(&opts.AutoIncrement, "auto-increment", false, "give new shadow tables the auto_id surrogate key (default from schema)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	return runStore(opts.RootOptions, cmd, func(ctx context.Context, e *env) error {
		names := opts.Tables
		if len(names) == 0 {
			names = e.registry.Tables()
		}

		for _, name := range names {
			t, err := e.table(name)
			if err != nil {
				return err
			}
			if opts.CreateLive {
				if err := e.store.CreateLiveTable(ctx, t); err != nil {
					return WrapExitError(ExitCommandError, "failed to create live table", err)
				}
			}
			autoIncrement := t.AutoIncrement
			if cmd.Flags().Changed("auto-increment") {
				autoIncrement = opts.AutoIncrement
			}
			if err := e.store.EnsureShadowTable(ctx, t, autoIncrement); err != nil {
				return WrapExitError(ExitCommandError, "failed to create shadow table", err)
			}
			e.log.Debug().Str("table", t.Name).Str("shadow", t.ShadowName()).Bool("auto_increment", autoIncrement).Msg("shadow table ready")
		}

		return listShadowTables(ctx, e, newFormatter(opts.RootOptions, cmd))
	})
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List shadow tables",
		Long: `List the shadow tables recorded in the database.

Examples:
  nodeversion tables --schema tables.yaml --db app.db
  nodeversion tables --schema tables.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(rootOpts, cmd, func(ctx context.Context, e *env) error {
				return listShadowTables(ctx, e, newFormatter(rootOpts, cmd))
			})
		},
	}
}

func listShadowTables(ctx context.Context, e *env, out *OutputFormatter) error {
	tables, err := e.store.ShadowTables(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list shadow tables", err)
	}
	if tables == nil {
		tables = []store.ShadowTable{}
	}

	return out.Result(tables, func(w io.Writer) error {
		if len(tables) == 0 {
			fmt.Fprintln(w, "No shadow tables.")
			return nil
		}
		rows := make([][]string, len(tables))
		for i, t := range tables {
			rows[i] = []string{
				t.TableName,
				t.ShadowTable,
				strconv.FormatBool(t.AutoIncrement),
				time.Unix(t.CreatedAt, 0).UTC().Format(time.RFC3339),
			}
		}
		return writeTable(w, []string{"TABLE", "SHADOW", "AUTO_ID", "CREATED"}, rows)
	})
}
