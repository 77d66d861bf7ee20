package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/relaysync/internal/config"
	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     formatFlag
	ConfigPath string
	Database   string
	Driver     string

	// Resolved in PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger

	// Now stamps drafts and DTags mints identifiers. Tests replace both.
	Now   func() time.Time
	DTags dtag.Factory
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// formatFlag is a pflag.Value restricted to ValidFormats, so a bad
// --format fails during flag parsing.
type formatFlag string

var _ pflag.Value = (*formatFlag)(nil)

func (f *formatFlag) String() string { return string(*f) }

func (f *formatFlag) Set(v string) error {
	if !isValidFormat(v) {
		return fmt.Errorf("must be one of %s", strings.Join(ValidFormats, "|"))
	}
	*f = formatFlag(v)
	return nil
}

func (f *formatFlag) Type() string { return "format" }

// NewRootCommand creates the root command for the relaysync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Format: "text", Now: time.Now, DTags: dtag.UUIDv7Factory{}})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relaysync",
		Short: "relaysync - relay event codec and sync core",
		Long: `Encode and decode relay events, ingest them with last-write-wins
semantics, track shard checkpoints and build sync bundles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().Var(&opts.Format, "format", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml, .json or .jsonc)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "store", "", "store driver: sqlite, redis or memory (overrides store.driver)")

	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewCheckpointCommand(opts))
	cmd.AddCommand(NewBundleCommand(opts))
	cmd.AddCommand(NewDTagCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))

	return cmd
}

// resolve loads the configuration, applies flag overrides and builds the
// logger.
func (o *RootOptions) resolve(stderr io.Writer) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if o.Driver != "" {
		cfg.Store.Driver = o.Driver
	}
	if o.Database != "" {
		cfg.Store.Path = o.Database
		if o.Driver == "" {
			cfg.Store.Driver = config.DriverSQLite
		}
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log settings", err)
	}
	o.Logger = logger
	return nil
}

// openStore opens the configured backend.
func (o *RootOptions) openStore(ctx context.Context) (store.Backend, error) {
	b, err := o.Config.Store.Open(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return b, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    string(o.Format),
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
