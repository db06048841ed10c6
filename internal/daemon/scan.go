package daemon

import (
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/jmylchreest/soundboard/internal/config"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/store"
)

// scanRetry is how often RescanAll retries while another scan holds the gate.
const scanRetry = 50 * time.Millisecond

// RescanAll rescans every tab. Plays are refused until it finishes.
func (i *Instance) RescanAll() {
	for !i.store.BeginScan(store.Scanning{Kind: store.ScanAll}) {
		if i.isStopped() {
			return
		}
		time.Sleep(scanRetry)
	}
	defer i.store.EndScan()

	tabs := i.store.Tabs()
	for _, tab := range tabs {
		files, err := media.ScanDir(config.ExpandPath(tab.Path))
		if err != nil {
			i.logger.Warn("failed to scan tab", "path", tab.Path, "error", err)
			files = nil
		}
		i.store.SetTabFiles(tab.Path, files)
	}
	i.watchTabs()
	i.logger.Debug("tabs scanned", "count", len(tabs))
}

// rescanTab rescans the tab at idx. It returns false if another scan holds
// the gate.
func (i *Instance) rescanTab(idx int, path string) (bool, error) {
	if !i.store.BeginScan(store.Scanning{Kind: store.ScanOne, Tab: idx}) {
		return false, nil
	}
	defer i.store.EndScan()

	files, err := media.ScanDir(config.ExpandPath(path))
	if err != nil {
		return true, err
	}
	for _, f := range files {
		i.manager.Cache().Invalidate(f.Path)
	}
	i.store.SetTabFiles(path, files)
	return true, nil
}

// rescanLater schedules a rescan of the tab watching dir.
func (i *Instance) rescanLater(dir string) {
	i.rescanMu.Lock()
	defer i.rescanMu.Unlock()
	if i.stopped {
		return
	}
	if t, ok := i.rescans[dir]; ok {
		t.Stop()
	}
	i.rescans[dir] = time.AfterFunc(rescanDebounce, func() {
		i.rescanMu.Lock()
		if i.stopped {
			i.rescanMu.Unlock()
			return
		}
		delete(i.rescans, dir)
		i.scans.Add(1)
		i.rescanMu.Unlock()
		defer i.scans.Done()

		idx, path, ok := i.tabForDir(dir)
		if !ok {
			return
		}
		scanned, err := i.rescanTab(idx, path)
		switch {
		case err != nil:
			i.logger.Warn("failed to rescan tab", "path", path, "error", err)
		case !scanned:
			i.rescanLater(dir)
		default:
			i.logger.Debug("tab rescanned after change", "path", path)
		}
	})
}

func (i *Instance) tabForDir(dir string) (int, string, bool) {
	tab, idx, ok := lo.FindIndexOf(i.store.Tabs(), func(t store.Tab) bool {
		return config.ExpandPath(t.Path) == dir
	})
	return idx, tab.Path, ok
}

// watchTabs points the directory watcher at the current tabs.
func (i *Instance) watchTabs() {
	if i.dirs == nil {
		return
	}
	dirs := lo.Map(i.store.Tabs(), func(t store.Tab, _ int) string {
		return config.ExpandPath(t.Path)
	})
	i.dirs.SetDirs(dirs)
}

func (i *Instance) isStopped() bool {
	i.rescanMu.Lock()
	defer i.rescanMu.Unlock()
	return i.stopped
}

// resolveDir turns a user-supplied path into an absolute, symlink-free
// directory path.
func resolveDir(path string) (string, error) {
	abs, err := filepath.Abs(config.ExpandPath(path))
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errNotDirectory
	}
	return resolved, nil
}

// cleanPath makes path absolute without touching the filesystem.
func cleanPath(path string) (string, error) {
	return filepath.Abs(config.ExpandPath(path))
}
