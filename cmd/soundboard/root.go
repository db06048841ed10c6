package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/daemon"
	"github.com/jmylchreest/soundboard/internal/tui"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	globalOpts struct {
		verbose    bool
		configPath string
		socketPath string
	}
	rootOpts struct {
		headless bool
		editOnly bool
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "soundboard",
	Short: "Background soundboard with global hotkeys",
	Long: `soundboard plays audio files, synthesized tones and dialog sequences
through an external PCM sink, triggered from a terminal UI, global keyboard
shortcuts or the control socket.

Running soundboard without a subcommand starts an instance with the TUI.
If another instance already owns the control socket, the new one runs in
edit-only mode: it can browse and change the configuration but plays nothing.

The other subcommands send one command to the running instance.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger(os.Stderr, slog.LevelWarn)
	},
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runInstance,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// A command refused by the instance exits with its status code.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var se *statusError
	if errors.As(err, &se) {
		os.Exit(int(se.status))
	}
	os.Exit(1)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/soundboard/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.socketPath, "socket", "",
		"Path to control socket (default: $XDG_RUNTIME_DIR/soundboard.sock)")

	rootCmd.Flags().BoolVar(&rootOpts.headless, "headless", false,
		"Run without the TUI until stopped or sent exit")
	rootCmd.Flags().BoolVar(&rootOpts.editOnly, "edit-only", false,
		"Run read-only without audio or the control socket")
}

// setupLogger configures the global slog logger. --verbose overrides level.
func setupLogger(w io.Writer, level slog.Level) {
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

func configPath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}

func socketPath() string {
	if globalOpts.socketPath != "" {
		return globalOpts.socketPath
	}
	return config.SocketPath()
}

// openLogFile opens the log file the instance writes to while the TUI owns
// the terminal.
func openLogFile() (*os.File, error) {
	path := config.LogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func runInstance(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if rootOpts.headless {
		setupLogger(os.Stderr, slog.LevelInfo)
	} else {
		f, err := openLogFile()
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		setupLogger(f, slog.LevelInfo)
	}

	inst, err := daemon.New(nil, daemon.Options{
		ConfigPath: configPath(),
		SocketPath: socketPath(),
		EditOnly:   rootOpts.editOnly,
	}, logger)
	if err != nil {
		return err
	}

	if rootOpts.headless {
		return inst.Run(ctx)
	}

	inst.Start(ctx)
	defer inst.Stop()

	// A client's exit command closes the TUI too.
	uiCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if exited := inst.Exited(); exited != nil {
		go func() {
			select {
			case <-exited:
				cancel()
			case <-uiCtx.Done():
			}
		}()
	}

	var recorder tui.Recorder
	if inst.HotkeysActive() {
		recorder = inst.Router()
	}

	return tui.Run(uiCtx, tui.Options{
		Store:   inst.Store(),
		Engine:  inst.Manager(),
		Tabs:    inst,
		Hotkeys: recorder,
	})
}
