package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/control"
)

type stubHandler struct {
	lastPath   string
	lastVolume control.VolumeRequest
	editOnly   bool
}

func (s *stubHandler) ok() control.Status {
	if s.editOnly {
		return control.StatusOKEditOnly
	}
	return control.StatusOK
}

func (s *stubHandler) ReloadConfig() control.Status { return control.ReloadFailed }

func (s *stubHandler) AddTab(p string) (control.Status, string) {
	s.lastPath = p
	return s.ok(), p
}

func (s *stubHandler) DeleteTab(control.Selector) (control.Status, string) {
	return control.TabConflict, ""
}

func (s *stubHandler) ReloadTab(control.Selector) (control.Status, string) {
	return s.ok(), "/sounds"
}

func (s *stubHandler) Play(p string) (control.Status, string) {
	s.lastPath = p
	return s.ok(), p
}

func (s *stubHandler) StopAll() control.Status { return s.ok() }

func (s *stubHandler) SetVolume(req control.VolumeRequest) (control.Status, uint32) {
	s.lastVolume = req
	return s.ok(), 85
}

func (s *stubHandler) PlayID(uint32) (control.Status, string) {
	return control.IDNotFound, ""
}

func (s *stubHandler) PlayWaveID(uint32) (control.Status, string) {
	return s.ok(), "tone"
}

func (s *stubHandler) StopWaveID(uint32) (control.Status, string) {
	return s.ok(), "tone"
}

func startStub(t *testing.T, h control.Handler) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sb.sock")
	srv, err := control.Listen(path, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	volumeOpts.file = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestClientCommands(t *testing.T) {
	h := &stubHandler{}
	sock := startStub(t, h)

	out, _, err := execute(t, "--socket", sock, "play", "/sounds/a.wav")
	require.NoError(t, err)
	assert.Equal(t, "/sounds/a.wav\n", out)

	out, _, err = execute(t, "--socket", sock, "volume", "+5")
	require.NoError(t, err)
	assert.Equal(t, "85%\n", out)
	assert.Equal(t, control.VolumeRequest{Value: 5, Increment: true, Target: control.TargetSink}, h.lastVolume)

	out, _, err = execute(t, "--socket", sock, "wave", "play", "3")
	require.NoError(t, err)
	assert.Equal(t, "tone\n", out)
}

func TestClientCommands_Refused(t *testing.T) {
	sock := startStub(t, &stubHandler{})

	tests := []struct {
		args   []string
		status control.Status
		msg    string
	}{
		{[]string{"play-id", "9"}, control.IDNotFound, "play-id: id not found"},
		{[]string{"reload"}, control.ReloadFailed, "reload-config: configuration invalid, previous configuration kept"},
		{[]string{"tab", "delete"}, control.TabConflict, "delete-tab: tab is being scanned"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			_, _, err := execute(t, append([]string{"--socket", sock}, tt.args...)...)
			var se *statusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.status)
			assert.Equal(t, tt.msg, se.Error())
		})
	}
}

func TestClientCommands_EditOnly(t *testing.T) {
	sock := startStub(t, &stubHandler{editOnly: true})

	out, errOut, err := execute(t, "--socket", sock, "tab", "add", "/sounds")
	require.NoError(t, err)
	assert.Equal(t, "/sounds\n", out)
	assert.Contains(t, errOut, "edit-only")
}

func TestClientCommands_NoInstance(t *testing.T) {
	_, _, err := execute(t, "--socket", filepath.Join(t.TempDir(), "missing.sock"), "stop")
	require.Error(t, err)
	var se *statusError
	assert.False(t, errors.As(err, &se), "connection failures carry no status")
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    control.VolumeRequest
		wantErr bool
	}{
		{"absolute", "80", control.VolumeRequest{Value: 80}, false},
		{"percent sign", "50%", control.VolumeRequest{Value: 50}, false},
		{"increment", "+5", control.VolumeRequest{Value: 5, Increment: true}, false},
		{"decrement", "-10", control.VolumeRequest{Value: -10, Increment: true}, false},
		{"garbage", "loud", control.VolumeRequest{}, true},
		{"overflow", "40000", control.VolumeRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVolume(tt.in, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := parseVolume("20", "/sounds/a.wav")
	require.NoError(t, err)
	assert.Equal(t, control.TargetFile, got.Target)
	assert.Equal(t, "/sounds/a.wav", got.Path)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)

	_, err = parseID("-1")
	assert.Error(t, err)
	_, err = parseID("4294967296")
	assert.Error(t, err)
}

func TestAbsPath(t *testing.T) {
	assert.Equal(t, "/a/b", absPath("/a/b"))
	assert.Equal(t, "~/x", absPath("~/x"))
	assert.Equal(t, "", absPath(""))

	got := absPath("rel.wav")
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "rel.wav", filepath.Base(got))
}

func TestTabSelector(t *testing.T) {
	tests := []struct {
		args []string
		want control.Selector
	}{
		{nil, control.Selector{Kind: control.SelectCurrent}},
		{[]string{"--index", "3"}, control.Selector{Kind: control.SelectIndex, Index: 3}},
		{[]string{"--path", "/sounds"}, control.Selector{Kind: control.SelectPath, Value: "/sounds"}},
		{[]string{"--name", "sounds"}, control.Selector{Kind: control.SelectName, Value: "sounds"}},
	}

	for _, tt := range tests {
		cmd := &cobra.Command{}
		cmd.Flags().IntVar(&tabOpts.index, "index", -1, "")
		cmd.Flags().StringVar(&tabOpts.path, "path", "", "")
		cmd.Flags().StringVar(&tabOpts.name, "name", "", "")
		require.NoError(t, cmd.ParseFlags(tt.args))

		got, err := tabSelector(cmd)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&tabOpts.index, "index", -1, "")
	require.NoError(t, cmd.ParseFlags([]string{"--index", "300"}))
	_, err := tabSelector(cmd)
	assert.Error(t, err)
}

func TestFormatConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	data, err := formatConfig(cfg, "toml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "volume = 100")

	data, err = formatConfig(cfg, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "hold_poll: 100ms")
	assert.Contains(t, string(data), "trigger: level")

	_, err = formatConfig(cfg, "ini")
	assert.Error(t, err)
}

func TestConfigPathCommand(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	out, _, err := execute(t, "--config", "/etc/sb.toml", "--socket", "", "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "config: /etc/sb.toml")
	assert.Contains(t, out, "socket: /run/user/1000/soundboard.sock")
}
