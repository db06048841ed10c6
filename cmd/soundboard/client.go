package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/soundboard/internal/control"
)

// statusError reports a command the instance refused.
type statusError struct {
	op     control.Opcode
	status control.Status
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, e.status.Describe(e.op))
}

var tabOpts struct {
	index int
	path  string
	name  string
}

var volumeOpts struct {
	file string
}

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Stop the running instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient().Exit()
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the configuration file",
	Long: `Ask the running instance to re-read its configuration file.

An invalid file is rejected and the previous configuration stays active.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, control.Request{Op: control.OpReloadConfig})
	},
}

// tabCmd represents the tab command group.
var tabCmd = &cobra.Command{
	Use:   "tab",
	Short: "Manage tabs (directories of sounds)",
}

var tabAddCmd = &cobra.Command{
	Use:   "add <dir>",
	Short: "Add a directory as a new tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, control.Request{Op: control.OpAddTab, Path: absPath(args[0])})
	},
}

var tabDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a tab",
	Long: `Remove a tab. Without a selector flag the selected tab is removed.

A tab that is being rescanned cannot be removed (exit status 2).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := tabSelector(cmd)
		if err != nil {
			return err
		}
		return send(cmd, control.Request{Op: control.OpDeleteTab, Selector: sel})
	},
}

var tabReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rescan a tab",
	Long:  `Rescan a tab's directory. Without a selector flag the selected tab is rescanned.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := tabSelector(cmd)
		if err != nil {
			return err
		}
		return send(cmd, control.Request{Op: control.OpReloadTab, Selector: sel})
	},
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, control.Request{Op: control.OpPlay, Path: absPath(args[0])})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every file, waveform and dialog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, control.Request{Op: control.OpStop})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <value>",
	Short: "Set or adjust a volume",
	Long: `Set the sink volume (0-200) or, with --file, a file's volume (0-100).

A value starting with + or - adjusts the current volume. The resulting
volume is printed.

Examples:
  soundboard volume 80
  soundboard volume -- -10
  soundboard volume --file ~/sounds/horn.wav +5`,
	Args: cobra.ExactArgs(1),
	RunE: runVolume,
}

var playIDCmd = &cobra.Command{
	Use:   "play-id <id>",
	Short: "Play the file or dialog with a numeric id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return send(cmd, control.Request{Op: control.OpPlayID, ID: id})
	},
}

// waveCmd represents the wave command group.
var waveCmd = &cobra.Command{
	Use:   "wave",
	Short: "Start or stop waveforms by id",
}

var wavePlayCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Start a waveform until stopped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return send(cmd, control.Request{Op: control.OpPlayWaveID, ID: id})
	},
}

var waveStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop a waveform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return send(cmd, control.Request{Op: control.OpStopWaveID, ID: id})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{tabDeleteCmd, tabReloadCmd} {
		cmd.Flags().IntVar(&tabOpts.index, "index", -1, "Select the tab at this index (0-based)")
		cmd.Flags().StringVar(&tabOpts.path, "path", "", "Select the tab for this directory")
		cmd.Flags().StringVar(&tabOpts.name, "name", "", "Select the first tab whose directory has this name")
		cmd.MarkFlagsMutuallyExclusive("index", "path", "name")
	}
	tabCmd.AddCommand(tabAddCmd, tabDeleteCmd, tabReloadCmd)

	volumeCmd.Flags().StringVar(&volumeOpts.file, "file", "", "Change this file's volume instead of the sink's")

	waveCmd.AddCommand(wavePlayCmd, waveStopCmd)

	rootCmd.AddCommand(exitCmd, reloadCmd, tabCmd, playCmd, stopCmd, volumeCmd, playIDCmd, waveCmd)
}

func newClient() *control.Client {
	return control.NewClient(socketPath())
}

// send delivers req and prints the payload of a successful reply.
func send(cmd *cobra.Command, req control.Request) error {
	resp, err := newClient().Do(req)
	if err != nil {
		return err
	}
	if !resp.Status.OK() {
		return &statusError{op: req.Op, status: resp.Status}
	}

	out := cmd.OutOrStdout()
	if text := resp.Text(); text != "" {
		fmt.Fprintln(out, text)
	}
	if resp.Status == control.StatusOKEditOnly {
		fmt.Fprintln(cmd.ErrOrStderr(), "note: the instance is edit-only, nothing was played or saved")
	}
	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	req, err := parseVolume(args[0], volumeOpts.file)
	if err != nil {
		return err
	}

	resp, err := newClient().SetVolume(req)
	if err != nil {
		return err
	}
	if !resp.Status.OK() {
		return &statusError{op: control.OpSetVolume, status: resp.Status}
	}
	v, err := resp.Volume()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d%%\n", v)
	return nil
}

// tabSelector builds a selector from the --index, --path and --name flags.
func tabSelector(cmd *cobra.Command) (control.Selector, error) {
	switch {
	case cmd.Flags().Changed("index"):
		if tabOpts.index < 0 || tabOpts.index > math.MaxUint8 {
			return control.Selector{}, fmt.Errorf("tab index %d out of range 0-%d", tabOpts.index, math.MaxUint8)
		}
		return control.Selector{Kind: control.SelectIndex, Index: uint8(tabOpts.index)}, nil
	case cmd.Flags().Changed("path"):
		return control.Selector{Kind: control.SelectPath, Value: absPath(tabOpts.path)}, nil
	case cmd.Flags().Changed("name"):
		return control.Selector{Kind: control.SelectName, Value: tabOpts.name}, nil
	default:
		return control.Selector{Kind: control.SelectCurrent}, nil
	}
}

// parseVolume parses "80", "+5" or "-5".
func parseVolume(s, file string) (control.VolumeRequest, error) {
	s = strings.TrimSpace(s)
	req := control.VolumeRequest{
		Increment: strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-"),
		Target:    control.TargetSink,
	}
	n, err := strconv.ParseInt(strings.TrimSuffix(s, "%"), 10, 16)
	if err != nil {
		return req, fmt.Errorf("invalid volume %q", s)
	}
	req.Value = int16(n)

	if file != "" {
		req.Target = control.TargetFile
		req.Path = absPath(file)
	}
	return req, nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint32(id), nil
}

// absPath resolves a relative path against the client's working directory.
// Home-relative paths are left for the instance to expand.
func absPath(p string) string {
	if p == "" || strings.HasPrefix(p, "~") || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
