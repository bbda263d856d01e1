package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/nodeversion/internal/config"
	"github.com/roach88/nodeversion/internal/logger"
	"github.com/roach88/nodeversion/internal/metrics"
	"github.com/roach88/nodeversion/internal/schema"
	"github.com/roach88/nodeversion/internal/store"
	"github.com/roach88/nodeversion/internal/temporal"
)

// env is what a store command needs: resolved config, registry, open store,
// logger and a per-run metrics registry.
type env struct {
	cfg      config.Config
	registry *schema.Registry
	store    *store.Store
	log      *logger.Logger

	prom        *prometheus.Registry
	metrics     *metrics.Metrics
	metricsFile string
}

// openEnv resolves the configuration for opts and opens the store. Flags
// override the config file and environment.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	cfg = cfg.Merge(config.Config{Database: opts.Database, Schema: opts.Schema})
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if cfg.Schema == "" {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("schema path required (--schema or %s)", config.EnvSchema))
	}

	reg, err := schema.LoadFile(cfg.Schema, schema.WithShadowSuffix(cfg.ShadowSuffix))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	prom := prometheus.NewRegistry()
	return &env{
		cfg:      cfg,
		registry: reg,
		store:    st,
		log: logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Pretty: cfg.Log.Pretty,
			Output: cmd.ErrOrStderr(),
		}).Component("cli"),
		prom:        prom,
		metrics:     metrics.New(prom),
		metricsFile: opts.MetricsFile,
	}, nil
}

// close closes the store and writes the metrics file when one was requested.
func (e *env) close() error {
	err := e.store.Close()
	if e.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(e.metricsFile, e.prom); werr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics file: %w", werr))
		}
	}
	return err
}

// table looks up a registered table.
func (e *env) table(name string) (*schema.Table, error) {
	t, err := e.registry.Lookup(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "unknown table", err)
	}
	return t, nil
}

// versioner builds a Versioner for the selected record set. The auto-increment
// setting recorded when the shadow table was created wins over the schema
// default.
func (e *env) versioner(ctx context.Context, sel *SelectionOptions, opts ...temporal.Option) (*temporal.Versioner, error) {
	v := temporal.New(e.registry, append([]temporal.Option{
		temporal.WithBatchSize(e.cfg.BatchSize),
		temporal.WithLogger(e.log),
		temporal.WithMetrics(e.metrics),
	}, opts...)...)
	if err := v.SetTable(sel.Table); err != nil {
		return nil, WrapExitError(ExitCommandError, "unknown table", err)
	}

	recorded, err := e.store.ShadowTables(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read shadow tables", err)
	}
	found := false
	for _, rec := range recorded {
		if rec.TableName == sel.Table {
			v.SetAutoIncrement(rec.AutoIncrement)
			found = true
		}
	}
	if !found {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("table %s has no shadow table (run nodeversion init)", sel.Table))
	}

	v.SetWherePart(sel.Where)
	joins, err := sel.joins()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --join", err)
	}
	for _, j := range joins {
		v.AddJoin(j)
	}
	return v, nil
}

// runStore opens the environment, calls fn and closes it again.
func runStore(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, e *env) error) (err error) {
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "failed to close", cerr)
		}
	}()
	return fn(cmd.Context(), e)
}
