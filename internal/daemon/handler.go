package daemon

import (
	"errors"
	"path/filepath"

	"github.com/jmylchreest/soundboard/internal/audio"
	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/control"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/store"
)

var errNotDirectory = errors.New("not a directory")

var _ control.Handler = (*Instance)(nil)

// ok is the success code for this instance.
func (i *Instance) ok() control.Status {
	if i.store.EditOnly() {
		return control.StatusOKEditOnly
	}
	return control.StatusOK
}

// ReloadConfig handles reload-config.
func (i *Instance) ReloadConfig() control.Status {
	if err := i.Reload(); err != nil {
		i.logger.Warn("reload requested but config is invalid", "error", err)
		i.notifier.NotifyConfigError(err)
		return control.ReloadFailed
	}
	return i.ok()
}

// AddTab handles add-tab. The directory is scanned before the tab is
// published.
func (i *Instance) AddTab(path string) (control.Status, string) {
	if path == "" {
		return control.AddTabEmpty, ""
	}
	dir, err := resolveDir(path)
	if err != nil {
		i.logger.Debug("add-tab: bad path", "path", path, "error", err)
		return control.AddTabBadPath, ""
	}
	if i.store.TabIndex(dir) >= 0 {
		return control.AddTabDuplicate, dir
	}

	files, err := media.ScanDir(dir)
	if err != nil {
		i.logger.Debug("add-tab: scan failed", "path", dir, "error", err)
		return control.AddTabBadPath, ""
	}
	if _, err := i.store.AddTab(dir, files); err != nil {
		return control.AddTabDuplicate, dir
	}
	i.watchTabs()
	return control.StatusOK, dir
}

// selectTab resolves a selector to a tab index and path.
func (i *Instance) selectTab(sel control.Selector) (int, string, control.Status) {
	switch sel.Kind {
	case control.SelectCurrent:
		tab, idx, ok := i.store.SelectedTab()
		if !ok {
			return 0, "", control.TabNotFound
		}
		return idx, tab.Path, control.StatusOK

	case control.SelectIndex:
		tab, err := i.store.TabAt(int(sel.Index))
		if err != nil {
			return 0, "", control.TabIndexRange
		}
		return int(sel.Index), tab.Path, control.StatusOK

	case control.SelectPath:
		if sel.Value == "" {
			return 0, "", control.TabBadPath
		}
		idx := i.store.TabIndex(sel.Value)
		if idx < 0 {
			p, err := cleanPath(sel.Value)
			if err != nil {
				return 0, "", control.TabBadPath
			}
			if resolved, err := filepath.EvalSymlinks(p); err == nil {
				p = resolved
			}
			idx = i.store.TabIndex(p)
		}
		if idx < 0 {
			return 0, "", control.TabNotFound
		}
		tab, err := i.store.TabAt(idx)
		if err != nil {
			return 0, "", control.TabNotFound
		}
		return idx, tab.Path, control.StatusOK

	case control.SelectName:
		if sel.Value == "" {
			return 0, "", control.TabBadPath
		}
		idx := i.store.TabIndexByName(sel.Value)
		if idx < 0 {
			return 0, "", control.TabNotFound
		}
		tab, err := i.store.TabAt(idx)
		if err != nil {
			return 0, "", control.TabNotFound
		}
		return idx, tab.Path, control.StatusOK
	}
	return 0, "", control.TabBadPath
}

// DeleteTab handles delete-tab.
func (i *Instance) DeleteTab(sel control.Selector) (control.Status, string) {
	idx, path, status := i.selectTab(sel)
	if status != control.StatusOK {
		return status, path
	}

	removed, err := i.store.RemoveTab(idx)
	switch {
	case errors.Is(err, store.ErrScanInProgress):
		return control.TabConflict, path
	case errors.Is(err, store.ErrIndexOutOfRange):
		return control.TabIndexRange, path
	case err != nil:
		return control.TabNotFound, path
	}
	i.watchTabs()
	return i.ok(), removed
}

// ReloadTab handles reload-tab. The scan runs synchronously; plays from the
// tab are refused until it finishes.
func (i *Instance) ReloadTab(sel control.Selector) (control.Status, string) {
	idx, path, status := i.selectTab(sel)
	if status != control.StatusOK {
		return status, path
	}

	scanned, err := i.rescanTab(idx, path)
	if !scanned {
		return control.TabConflict, path
	}
	if err != nil {
		i.logger.Debug("reload-tab: scan failed", "path", path, "error", err)
		return control.TabBadPath, path
	}
	return i.ok(), path
}

// Play handles play.
func (i *Instance) Play(path string) (control.Status, string) {
	if path == "" {
		return control.PlayEmpty, ""
	}
	p := config.ExpandPath(path)
	if !i.manager.PlayFile(p) {
		i.logger.Debug("play refused while scanning", "path", p)
	}
	return control.StatusOK, p
}

// StopAll handles stop.
func (i *Instance) StopAll() control.Status {
	i.manager.StopAll()
	return i.ok()
}

// SetVolume handles set-volume. A negative absolute value is rejected before
// any state changes.
func (i *Instance) SetVolume(req control.VolumeRequest) (control.Status, uint32) {
	if !req.Increment && req.Value < 0 {
		return control.VolumeInvalid, 0
	}

	switch req.Target {
	case control.TargetSink:
		v := int(req.Value)
		if req.Increment {
			v += i.store.SinkVolume()
		}
		return control.StatusOK, uint32(i.store.SetSinkVolume(v))

	case control.TargetFile:
		if req.Path == "" {
			return control.VolumeFileNotFound, 0
		}
		path := config.ExpandPath(req.Path)
		v := int(req.Value)
		if req.Increment {
			v += i.store.FileVolume(path)
		}
		got, err := i.store.SetFileVolume(path, v)
		if err != nil {
			return control.VolumeFileNotFound, 0
		}
		return control.StatusOK, uint32(got)
	}
	return control.VolumeInvalid, 0
}

// PlayID handles play-id. File ids are looked up first, then dialog ids;
// dialogs play in auto-stop mode.
func (i *Instance) PlayID(id uint32) (control.Status, string) {
	if path, ok := i.store.FileByID(id); ok {
		i.manager.PlayFile(path)
		return i.ok(), filepath.Base(path)
	}
	if d, ok := i.store.DialogByID(id); ok {
		i.manager.PlayDialog(d, audio.AutoStop, true, nil)
		return i.ok(), d.Label
	}
	return control.IDNotFound, ""
}

// PlayWaveID handles play-wave-id. A waveform that is already playing keeps
// its single mixer entry.
func (i *Instance) PlayWaveID(id uint32) (control.Status, string) {
	w, ok := i.store.WaveformByID(id)
	if !ok {
		return control.IDNotFound, ""
	}
	i.manager.StartWaveform(w)
	return i.ok(), w.Label
}

// StopWaveID handles stop-wave-id.
func (i *Instance) StopWaveID(id uint32) (control.Status, string) {
	w, ok := i.store.WaveformByID(id)
	if !ok {
		return control.IDNotFound, ""
	}
	i.manager.StopWaveform(w)
	return i.ok(), w.Label
}
