package run

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/ratehist/cmd/env"
	"github.com/sig-0/ratehist/config"
	"github.com/sig-0/ratehist/daterange"
	"github.com/sig-0/ratehist/pipeline"
	"github.com/sig-0/ratehist/plot"
	"github.com/sig-0/ratehist/provider/frankfurter"
	"github.com/sig-0/ratehist/storage"
	"github.com/sig-0/ratehist/storage/types"
)

var errNoActionFlags = errors.New("no action flags provided (-populate, -visualize, -update)")

// runCfg wraps the run configuration
type runCfg struct {
	config *config.Config

	configPath string

	start      string
	end        string
	currencies string

	populate  bool
	visualize bool
	update    bool
}

// NewRunCmd creates the run subcommand
func NewRunCmd() *ffcli.Command {
	cfg := &runCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "run",
		ShortUsage: "run <subcommand> [flags]",
		LongHelp:   "Runs the rate pipeline stages: populate, visualize, update",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newRunSQLCmd(cfg),
		newRunMemoryCmd(cfg),
	}

	return cmd
}

func (c *runCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the TOML configuration, if any",
	)

	fs.StringVar(
		&c.config.BaseCurrency,
		"base",
		config.DefaultBaseCurrency,
		"the base currency for fetched rates",
	)

	fs.StringVar(
		&c.start,
		"start",
		"",
		"the population start date, YYYY-MM-DD (default: from config)",
	)

	fs.StringVar(
		&c.end,
		"end",
		"",
		"the population end date, YYYY-MM-DD (default: today)",
	)

	fs.StringVar(
		&c.currencies,
		"currencies",
		"USD,CAD",
		"the comma-separated target currencies for the chart",
	)

	fs.StringVar(
		&c.config.ChartOutput,
		"out",
		config.DefaultChartOutput,
		"the output path for the rendered chart",
	)

	fs.BoolVar(
		&c.populate,
		"populate",
		false,
		"populate the table from the start date through the end date",
	)

	fs.BoolVar(
		&c.visualize,
		"visualize",
		false,
		"render the comparative exchange rate chart",
	)

	fs.BoolVar(
		&c.update,
		"update",
		false,
		"run the daily updater indefinitely",
	)
}

// exec runs the requested pipeline stages, in a fixed order:
// populate, then visualize, then update
func (c *runCfg) exec(ctx context.Context, store storage.Storage) error {
	// Read the configuration, if any
	if c.configPath != "" {
		cfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read config, %w", err)
		}

		c.config = cfg
	}

	// Validate the configuration
	if err := config.ValidateConfig(c.config); err != nil {
		return fmt.Errorf("invalid configuration, %w", err)
	}

	// Make sure there is something to do
	if !c.populate && !c.visualize && !c.update {
		return errNoActionFlags
	}

	// Create a new logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Resolve the day range
	rng, err := c.dayRange()
	if err != nil {
		return err
	}

	var (
		base = types.Currency(c.config.BaseCurrency)

		rateProvider = frankfurter.NewProvider(
			c.config.ProviderURL,
			config.DefaultFetchTimeout,
		)
	)

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	defer cancelFn()

	// Populate the table
	if c.populate {
		populator := pipeline.NewPopulator(
			store,
			rateProvider,
			base,
			pipeline.WithPopulateLogger(logger),
		)

		if err := populator.Run(runCtx, rng); err != nil {
			return fmt.Errorf("unable to populate table: %w", err)
		}
	}

	// Render the comparative chart
	if c.visualize {
		targets, err := parseCurrencies(c.currencies)
		if err != nil {
			return err
		}

		plotter := plot.NewPlotter(store)

		// Render fully in memory, so a failed run leaves any previously
		// written chart untouched
		var buf bytes.Buffer

		if err := plotter.Render(runCtx, &buf, base, targets, rng); err != nil {
			return fmt.Errorf("unable to render chart: %w", err)
		}

		if err := os.WriteFile(c.config.ChartOutput, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("unable to write chart output: %w", err)
		}

		logger.Info(
			"chart written",
			"path", c.config.ChartOutput,
		)
	}

	// Run the daily updater until terminated
	if c.update {
		updater := pipeline.NewUpdater(
			store,
			rateProvider,
			base,
			rng.Start(),
			pipeline.WithUpdateLogger(logger),
		)

		if err := updater.Start(runCtx); err != nil {
			return fmt.Errorf("unable to run daily updater: %w", err)
		}
	}

	return nil
}

// dayRange resolves the start and end flags into an inclusive day range
func (c *runCfg) dayRange() (daterange.Range, error) {
	startRaw := c.start
	if startRaw == "" {
		startRaw = c.config.StartDate
	}

	start, err := time.Parse(time.DateOnly, startRaw)
	if err != nil {
		return daterange.Range{}, fmt.Errorf("invalid start date %q: %w", startRaw, err)
	}

	end := daterange.Normalize(time.Now())

	if c.end != "" {
		end, err = time.Parse(time.DateOnly, c.end)
		if err != nil {
			return daterange.Range{}, fmt.Errorf("invalid end date %q: %w", c.end, err)
		}
	}

	return daterange.New(start, end)
}

// parseCurrencies parses the comma-separated currency list
func parseCurrencies(raw string) ([]types.Currency, error) {
	parts := strings.Split(raw, ",")

	out := make([]types.Currency, 0, len(parts))

	for _, part := range parts {
		code := strings.ToUpper(strings.TrimSpace(part))
		if len(code) != 3 {
			return nil, fmt.Errorf("invalid currency %q (must be 3 letters)", part)
		}

		out = append(out, types.Currency(code))
	}

	return out, nil
}
