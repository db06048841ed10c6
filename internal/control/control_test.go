package control

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Encoding(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want []byte
	}{
		{"stop", Request{Op: OpStop}, []byte{7}},
		{"play", Request{Op: OpPlay, Path: "/a.wav"}, append([]byte{6}, "/a.wav"...)},
		{"delete selected", Request{Op: OpDeleteTab, Selector: Selector{Kind: SelectCurrent}}, []byte{4, 0}},
		{"reload index", Request{Op: OpReloadTab, Selector: Selector{Kind: SelectIndex, Index: 3}}, []byte{5, 1, 3}},
		{"delete by name", Request{Op: OpDeleteTab, Selector: Selector{Kind: SelectName, Value: "sfx"}}, []byte{4, 3, 's', 'f', 'x'}},
		{"sink volume decrement", Request{Op: OpSetVolume, Volume: VolumeRequest{Value: -5, Increment: true}}, []byte{8, 0xfb, 0xff, 1, 0}},
		{"file volume", Request{Op: OpSetVolume, Volume: VolumeRequest{Value: 40, Target: TargetFile, Path: "x"}}, []byte{8, 40, 0, 0, 1, 'x'}},
		{"play id", Request{Op: OpPlayID, ID: 0x01020304}, []byte{9, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeRequest(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := DecodeRequest(got)
			require.NoError(t, err)
			assert.Equal(t, tt.req, back)
		})
	}
}

func TestDecodeRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrMalformed},
		{"unknown opcode", []byte{99}, ErrUnknownOpcode},
		{"zero opcode", []byte{0}, ErrUnknownOpcode},
		{"selector missing", []byte{4}, ErrMalformed},
		{"index missing", []byte{4, 1}, ErrMalformed},
		{"bad selector", []byte{5, 9}, ErrMalformed},
		{"short volume", []byte{8, 1, 0}, ErrMalformed},
		{"bad volume target", []byte{8, 1, 0, 0, 7}, ErrMalformed},
		{"short id", []byte{9, 1, 2}, ErrMalformed},
		{"too large", make([]byte, MaxRequestSize+1), ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(tt.data)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestResponse_Frame(t *testing.T) {
	frame := EncodeResponse(TextResponse(AddTabDuplicate, "/music"))
	require.Len(t, frame, ResponseSize)
	assert.Equal(t, byte(3), frame[0])
	assert.Equal(t, []byte{6, 0}, frame[1:3])

	resp, err := DecodeResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, AddTabDuplicate, resp.Status)
	assert.Equal(t, "/music", resp.Text())

	resp, err = DecodeResponse(EncodeResponse(VolumeResponse(StatusOK, 150)))
	require.NoError(t, err)
	v, err := resp.Volume()
	require.NoError(t, err)
	assert.Equal(t, uint32(150), v)

	long := make([]byte, ResponseSize*2)
	resp, err = DecodeResponse(EncodeResponse(Response{Payload: long}))
	require.NoError(t, err)
	assert.Len(t, resp.Payload, MaxPayload)
}

func TestStatus_OK(t *testing.T) {
	assert.True(t, StatusOK.OK())
	assert.True(t, StatusOKEditOnly.OK())
	assert.False(t, IDNotFound.OK())
}

func TestStatus_Describe(t *testing.T) {
	tests := []struct {
		op     Opcode
		status Status
		want   string
	}{
		{OpPlay, StatusOK, "ok"},
		{OpAddTab, StatusOKEditOnly, "ok (edit-only instance)"},
		{OpAddTab, AddTabDuplicate, "tab already exists"},
		{OpDeleteTab, TabConflict, "tab is being scanned"},
		{OpReloadTab, TabIndexRange, "tab index out of range"},
		{OpSetVolume, VolumeInvalid, "invalid volume"},
		{OpStopWaveID, IDNotFound, "id not found"},
		{OpReloadConfig, ReloadFailed, "configuration invalid, previous configuration kept"},
		{OpStop, 7, "status 7"},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Describe(tt.op))
		})
	}
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []string
	ids   map[uint32]string
	vol   int
}

func (f *fakeHandler) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeHandler) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHandler) ReloadConfig() Status {
	f.record("reload")
	return StatusOK
}

func (f *fakeHandler) AddTab(p string) (Status, string) {
	f.record("add " + p)
	if p == "" {
		return AddTabEmpty, ""
	}
	return StatusOK, p
}

func (f *fakeHandler) DeleteTab(sel Selector) (Status, string) {
	f.record("delete")
	if sel.Kind == SelectIndex {
		return TabIndexRange, ""
	}
	return StatusOK, "/tab"
}

func (f *fakeHandler) ReloadTab(Selector) (Status, string) {
	f.record("reload-tab")
	return TabConflict, "/tab"
}

func (f *fakeHandler) Play(p string) (Status, string) {
	f.record("play " + p)
	return StatusOK, p
}

func (f *fakeHandler) StopAll() Status {
	f.record("stop")
	return StatusOKEditOnly
}

func (f *fakeHandler) SetVolume(v VolumeRequest) (Status, uint32) {
	f.record("volume")
	f.vol += int(v.Value)
	return StatusOK, uint32(f.vol)
}

func (f *fakeHandler) PlayID(id uint32) (Status, string) {
	f.record("play-id")
	if label, ok := f.ids[id]; ok {
		return StatusOK, label
	}
	return IDNotFound, ""
}

func (f *fakeHandler) PlayWaveID(uint32) (Status, string) {
	f.record("play-wave")
	return IDNotFound, ""
}

func (f *fakeHandler) StopWaveID(uint32) (Status, string) {
	f.record("stop-wave")
	return StatusOK, "tone"
}

func startServer(t *testing.T, h Handler) (*Server, *Client) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sb.sock")
	srv, err := Listen(path, h, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})
	return srv, NewClient(path)
}

func TestServer_Commands(t *testing.T) {
	h := &fakeHandler{ids: map[uint32]string{7: "kick.wav"}}
	_, c := startServer(t, h)

	resp, err := c.PlayID(7)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "kick.wav", resp.Text())

	resp, err = c.PlayID(8)
	require.NoError(t, err)
	assert.Equal(t, IDNotFound, resp.Status)
	assert.Empty(t, resp.Payload)

	resp, err = c.AddTab("")
	require.NoError(t, err)
	assert.Equal(t, AddTabEmpty, resp.Status)

	resp, err = c.DeleteTab(Selector{Kind: SelectIndex, Index: 9})
	require.NoError(t, err)
	assert.Equal(t, TabIndexRange, resp.Status)

	resp, err = c.ReloadTab(Selector{})
	require.NoError(t, err)
	assert.Equal(t, TabConflict, resp.Status)
	assert.Equal(t, "/tab", resp.Text())

	resp, err = c.Stop()
	require.NoError(t, err)
	assert.Equal(t, StatusOKEditOnly, resp.Status)

	resp, err = c.SetVolume(VolumeRequest{Value: 30, Increment: true})
	require.NoError(t, err)
	v, err := resp.Volume()
	require.NoError(t, err)
	assert.Equal(t, uint32(30), v)

	resp, err = c.StopWaveID(1)
	require.NoError(t, err)
	assert.Equal(t, "tone", resp.Text())

	assert.Equal(t, []string{"play-id", "play-id", "add ", "delete", "reload-tab", "stop", "volume", "stop-wave"}, h.Calls())
}

func TestServer_UnknownOpcodeGetsNoResponse(t *testing.T) {
	h := &fakeHandler{}
	srv, c := startServer(t, h)

	conn, err := net.Dial("unix", srv.Path())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte{42, 1, 2})
	require.NoError(t, err)
	require.NoError(t, conn.(*net.UnixConn).CloseWrite())
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, h.Calls())

	// The server keeps accepting afterwards.
	resp, err := c.Play("/x.wav")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
}

func TestServer_Exit(t *testing.T) {
	h := &fakeHandler{}
	srv, c := startServer(t, h)

	require.NoError(t, c.Exit())

	select {
	case <-srv.Exited():
	case <-time.After(2 * time.Second):
		t.Fatal("exit not signalled")
	}
	select {
	case <-srv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("accept loop still running")
	}

	_, err := os.Stat(srv.Path())
	assert.True(t, os.IsNotExist(err), "socket should be removed")
	assert.Empty(t, h.Calls())
}

func TestListen_ExistingEndpoint(t *testing.T) {
	srv, _ := startServer(t, &fakeHandler{})

	_, err := Listen(srv.Path(), &fakeHandler{}, nil)
	assert.ErrorIs(t, err, ErrEndpointExists)
}

func TestServer_StopOnContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sb.sock")
	srv, err := Listen(path, &fakeHandler{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv.Start(ctx)
	cancel()

	select {
	case <-srv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
