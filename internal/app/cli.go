// Package harness wires the smartfix-harness command line.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"smartfix-harness/internal/config"
	ilogger "smartfix-harness/internal/logger"
)

var (
	version = "dev"
	exitFn  = os.Exit
)

const usageLine = "Usage: %s [flags] [--] <corpus_dir> <output_dir> <workers>\n"

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

type cliOptions struct {
	ConfigFile string
	Version    bool
}

// Run is the program entrypoint for cmd/smartfix-harness/main.go.
func Run() {
	exitFn(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	name := ilogger.HarnessName
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [flags] [--] <corpus_dir> <output_dir> <workers>", name),
		Short: "Run the SmartFix repair tool over a SmartBugs corpus in parallel",
		Long: `Run the SmartFix repair tool over a SmartBugs corpus in parallel.

A first positional named plan, cleanup, version or help selects that
subcommand. Put -- before the positionals to use such a name as the corpus
directory, or to pass a value that starts with a dash.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", name, version)
				return nil
			}
			if len(args) != 3 {
				fmt.Fprintf(cmd.ErrOrStderr(), usageLine, name)
				return exitError{code: 1}
			}

			cfg, clamped, err := loadConfig(cmd.Flags(), opts.ConfigFile, args)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "ERROR: %v\n", err)
				return exitError{code: 1}
			}

			exitCode := runWithLoggerAndCleanup(cmd.ErrOrStderr(), cfg, func() int {
				if clamped {
					logWarn(fmt.Sprintf("worker count %s exceeds the limit, using %d", args[2], config.MaxWorkersLimit))
				}
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return runBatch(ctx, cfg, cmd.OutOrStdout())
			})
			if exitCode == 0 {
				return nil
			}
			return exitError{code: exitCode}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	addRootFlags(cmd.Flags(), opts)
	cmd.AddCommand(newPlanCommand(), newVersionCommand(name), newCleanupCommand())

	return cmd
}

func addRootFlags(fs *pflag.FlagSet, opts *cliOptions) {
	fs.StringVar(&opts.ConfigFile, "config", "", "Config file path (default: $HOME/.smartfix/config.*)")
	fs.BoolVarP(&opts.Version, "version", "v", false, "Print version and exit")
	config.AddRunFlags(fs)
}

// loadConfig layers flags, SMARTFIX_* env and the config file, then fills
// in the positional arguments. Directories are made absolute because the
// tool may run from a different working directory.
func loadConfig(fs *pflag.FlagSet, configFile string, args []string) (*config.Config, bool, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, false, fmt.Errorf("load config: %w", err)
	}
	if err := config.BindFlags(v, fs); err != nil {
		return nil, false, fmt.Errorf("bind flags: %w", err)
	}
	cfg := config.FromViper(v)

	if cfg.CorpusDir, err = filepath.Abs(args[0]); err != nil {
		return nil, false, fmt.Errorf("corpus directory: %w", err)
	}
	if cfg.OutputDir, err = filepath.Abs(args[1]); err != nil {
		return nil, false, fmt.Errorf("output directory: %w", err)
	}

	clamped := false
	if len(args) > 2 {
		cfg.Workers, clamped, err = config.ParseWorkers(args[2])
		if err != nil {
			return nil, false, err
		}
	} else {
		cfg.Workers = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, clamped, nil
}

func newVersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version and exit",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", name, version)
			return nil
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Remove log files left behind by dead harness processes",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := runCleanupMode(cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code == 0 {
				return nil
			}
			return exitError{code: code}
		},
	}
}

// runWithLoggerAndCleanup installs the process logger for fn. On failure
// the most recent warnings and errors are echoed and the log is kept; on
// success it is removed unless KeepLog is set.
func runWithLoggerAndCleanup(stderr io.Writer, cfg *config.Config, fn func() int) (exitCode int) {
	consoleLevel := zerolog.InfoLevel
	if cfg.Verbose {
		consoleLevel = zerolog.DebugLevel
	}
	logger, err := ilogger.NewLogger(
		ilogger.WithConsole(stderr, consoleLevel),
		ilogger.WithField("run_id", uuid.NewString()),
	)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: failed to initialize logger: %v\n", err)
		return 1
	}
	setLogger(logger)

	defer func() {
		logger := activeLogger()
		if logger != nil {
			logger.Flush()
		}
		if err := closeLogger(); err != nil {
			fmt.Fprintf(stderr, "ERROR: failed to close logger: %v\n", err)
		}
		if logger == nil {
			return
		}

		if exitCode != 0 {
			if entries := logger.ExtractRecentErrors(10); len(entries) > 0 {
				fmt.Fprintln(stderr, "\n=== Recent Errors ===")
				for _, entry := range entries {
					fmt.Fprintln(stderr, entry)
				}
			}
		}
		if exitCode == 0 && !cfg.KeepLog {
			_ = logger.RemoveLogFile()
			return
		}
		fmt.Fprintf(stderr, "Log file: %s\n", logger.Path())
	}()

	runStartupCleanup()

	return fn()
}
