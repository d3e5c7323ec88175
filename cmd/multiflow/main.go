package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/multiflow/internal/cliconfig"
	"github.com/bft-labs/multiflow/pkg/log"
	"github.com/bft-labs/multiflow/pkg/multiflow"
	"github.com/bft-labs/multiflow/plugins/enablewatcher"
)

const longHelp = `
Run a table of prioritized byte-stream devices.

Every minor carries a high and a low priority flow. High priority writes are
readable at once; low priority writes are committed after --commit-delay and
announced to the writer. Blocking calls wait in FIFO order.

Configure via file ($HOME/.multiflow/config.toml), MULTIFLOW_* environment
variables or flags, in increasing precedence.
`

var exampleUsage = strings.TrimSpace(`
  multiflow --devices 8 --stats-interval 30s
  multiflow shell --minor 3 --commit-delay 2s
  printf 'low\nwrite hello\nread 16\n' | multiflow shell
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the resolved configuration and logger to subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  zerolog.Logger
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:               "multiflow",
		Short:             "Run a table of prioritized byte-stream devices",
		Long:              strings.TrimSpace(longHelp),
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.multiflow/config.toml)")
	flags.IntVar(&a.cfg.Devices, "devices", a.cfg.Devices, "number of minors")
	flags.IntVar(&a.cfg.Capacity, "capacity", a.cfg.Capacity, "byte capacity of every flow")
	flags.DurationVar(&a.cfg.CommitDelay, "commit-delay", a.cfg.CommitDelay, "delay before a low priority write is committed")
	flags.IntVar(&a.cfg.NotifyBuffer, "notify-buffer", a.cfg.NotifyBuffer, "unread completions held per session")
	flags.DurationVar(&a.cfg.ShutdownTimeout, "shutdown-timeout", a.cfg.ShutdownTimeout, "maximum time to drain deferred commits on exit")
	flags.IntSliceVar(&a.cfg.Disabled, "disabled", a.cfg.Disabled, "minors that refuse new sessions at start")
	flags.StringVar(&a.cfg.EnableFile, "enable-file", a.cfg.EnableFile, "TOML file listing disabled minors, watched for changes")
	flags.DurationVar(&a.cfg.StatsInterval, "stats-interval", a.cfg.StatsInterval, "log device counters at this interval (0 disables)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")

	shell := &cobra.Command{
		Use:   "shell",
		Short: "Attach to a device and issue reads and writes interactively",
		Long: strings.TrimSpace(`
Attach a session to --minor and read commands from the terminal, or line by
line from stdin when it is not a terminal. Type "help" for the command list.
Completions of low priority writes are printed as they arrive.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell()
		},
	}
	shell.Flags().IntVar(&a.cfg.Minor, "minor", a.cfg.Minor, "device to attach to")
	root.AddCommand(shell)

	if err := root.Execute(); err != nil {
		a.logger.Error().Err(err).Msg("multiflow")
		os.Exit(1)
	}
}

// load resolves configuration: defaults < file < env < flags.
func (a *app) load(cmd *cobra.Command, args []string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	logger, err := cliconfig.Logger(os.Stderr, a.cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = logger

	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}

func (a *app) newTable() (*multiflow.Multiflow, error) {
	opts := []multiflow.Option{
		multiflow.WithLogger(log.NewZerologAdapterWithLogger(a.logger)),
	}
	if a.cfg.EnableFile != "" {
		opts = append(opts, enablewatcher.WithDefaultEnableWatcher(a.cfg.EnableFile))
	}
	return multiflow.New(a.cfg.Library(), opts...)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// serve runs the table until a signal arrives.
func (a *app) serve() error {
	mf, err := a.newTable()
	if err != nil {
		return fmt.Errorf("create device table: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := mf.Start(ctx); err != nil {
		return fmt.Errorf("start device table: %w", err)
	}

	if a.cfg.StatsInterval > 0 {
		go a.logStatsEvery(ctx, mf, a.cfg.StatsInterval)
	}

	<-ctx.Done()
	a.logger.Info().Msg("received signal, stopping...")

	if err := mf.Stop(); err != nil {
		return fmt.Errorf("stop device table: %w", err)
	}
	return nil
}

func (a *app) logStatsEvery(ctx context.Context, mf *multiflow.Multiflow, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStats(a.logger, mf.Stats())
		}
	}
}

// shell runs the interactive client against an in-process table.
func (a *app) shell() error {
	mf, err := a.newTable()
	if err != nil {
		return fmt.Errorf("create device table: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := mf.Start(ctx); err != nil {
		return fmt.Errorf("start device table: %w", err)
	}

	sh := newShell(ctx, mf, os.Stdout)
	runErr := sh.attach(a.cfg.Minor)
	if runErr == nil {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			sh.runPrompt()
		} else {
			runErr = sh.runScript(os.Stdin)
		}
	}

	// Stop before detaching so completions of drained writes are printed.
	if err := mf.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("stop device table")
	}
	sh.close()
	return runErr
}
