// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jmylchreest/soundboard/internal/audio"
	"github.com/jmylchreest/soundboard/internal/control"
	"github.com/jmylchreest/soundboard/internal/hotkey"
	"github.com/jmylchreest/soundboard/internal/media"
	"github.com/jmylchreest/soundboard/internal/model"
	"github.com/jmylchreest/soundboard/internal/store"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeAddTab
	ModeRecord
	ModeHelp
)

// Section is the list shown in browse mode.
type Section int

const (
	SectionFiles Section = iota
	SectionWaveforms
	SectionDialogs
	sectionCount
)

func (s Section) String() string {
	switch s {
	case SectionFiles:
		return "Files"
	case SectionWaveforms:
		return "Waveforms"
	case SectionDialogs:
		return "Dialogs"
	default:
		return "unknown"
	}
}

// Minimum usable terminal size.
const (
	minWidth  = 40
	minHeight = 12
)

const (
	volumeStep   = 5
	tickInterval = 250 * time.Millisecond
	statusTTL    = 3 * time.Second
)

// Engine is the playback surface the TUI drives.
type Engine interface {
	PlayFile(path string) bool
	StartWaveform(w *model.Waveform) bool
	StopWaveform(w *model.Waveform)
	PlayDialog(d *model.Dialog, mode audio.DialogMode, forced bool, keysHeld func() bool) bool
	StopDialog(d *model.Dialog)
	StopAll()
}

// TabEditor adds, removes and rescans tabs.
type TabEditor interface {
	AddTab(path string) (control.Status, string)
	DeleteTab(sel control.Selector) (control.Status, string)
	ReloadTab(sel control.Selector) (control.Status, string)
}

// Recorder captures global key combinations for new bindings.
type Recorder interface {
	StartRecording()
	StopRecording() []hotkey.Key
	Recording() bool
	Candidate() []hotkey.Key
	Rebuild()
}

// Model is the main TUI model.
type Model struct {
	store   *store.Store
	engine  Engine
	tabs    TabEditor
	hotkeys Recorder

	mode    Mode
	section Section

	list  list.Model
	input textinput.Model
	help  help.Model

	width  int
	height int
	ready  bool

	keys KeyMap

	statusMsg string
	statusErr bool

	// File whose hotkey is being recorded.
	recordPath string
}

// playable is implemented by list items that can show a playing marker.
type playable interface {
	list.DefaultItem
	playing() bool
}

type fileItem struct {
	file   media.File
	volume int
	hotkey []string
}

func (i fileItem) Title() string { return i.file.Name }

func (i fileItem) Description() string {
	parts := []string{formatDuration(i.file.Duration), fmt.Sprintf("vol %d%%", i.volume)}
	if len(i.hotkey) > 0 {
		parts = append(parts, "["+strings.Join(i.hotkey, "+")+"]")
	}
	return strings.Join(parts, " · ")
}

func (i fileItem) FilterValue() string { return i.file.Name }
func (i fileItem) playing() bool       { return false }

type waveformItem struct {
	waveform *model.Waveform
}

func (i waveformItem) Title() string { return i.waveform.Label }

func (i waveformItem) Description() string {
	oscs := make([]string, len(i.waveform.Oscillators))
	for n, o := range i.waveform.Oscillators {
		oscs[n] = fmt.Sprintf("%s %gHz", o.Shape, o.Frequency)
	}
	return describe(strings.Join(oscs, ", "), i.waveform.ID, i.waveform.Hotkey)
}

func (i waveformItem) FilterValue() string { return i.waveform.Label }

func (i waveformItem) playing() bool {
	s := i.waveform.State()
	return s != nil && s.Active()
}

type dialogItem struct {
	dialog *model.Dialog
}

func (i dialogItem) Title() string { return i.dialog.Label }

func (i dialogItem) Description() string {
	d := i.dialog
	order := "in order"
	if d.Random {
		order = "random"
	}
	return describe(fmt.Sprintf("%d files, %s, %gs apart", len(d.Files), order, d.Delay), d.ID, d.Hotkey)
}

func (i dialogItem) FilterValue() string { return i.dialog.Label }

func (i dialogItem) playing() bool {
	s := i.dialog.State()
	return s != nil && s.Active()
}

func describe(base string, id *uint32, keys []string) string {
	parts := []string{base}
	if id != nil {
		parts = append(parts, fmt.Sprintf("id %d", *id))
	}
	if len(keys) > 0 {
		parts = append(parts, "["+strings.Join(keys, "+")+"]")
	}
	return strings.Join(parts, " · ")
}

// itemDelegate highlights playing waveforms and dialogs.
type itemDelegate struct {
	list.DefaultDelegate
}

func newItemDelegate() itemDelegate {
	return itemDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item, marking playing entries.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	pi, ok := item.(playable)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	itemWidth := m.Width() - d.DefaultDelegate.Styles.NormalTitle.GetHorizontalPadding()

	titleStyle := d.DefaultDelegate.Styles.NormalTitle
	descStyle := d.DefaultDelegate.Styles.NormalDesc
	if isSelected {
		titleStyle = d.DefaultDelegate.Styles.SelectedTitle
		descStyle = d.DefaultDelegate.Styles.SelectedDesc
	}

	title := pi.Title()
	if pi.playing() {
		title = "▶ " + title
		titleStyle = titleStyle.Foreground(lipgloss.Color("10"))
	}
	title = truncate(title, itemWidth)
	desc := truncate(pi.Description(), itemWidth)

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

// Options configures the TUI.
type Options struct {
	Store   *store.Store
	Engine  Engine
	Tabs    TabEditor
	Hotkeys Recorder // nil when global hotkeys are unavailable
}

// New creates a new TUI model.
func New(opts Options) Model {
	l := list.New(nil, newItemDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	input := textinput.New()
	input.Placeholder = "~/sounds"
	input.CharLimit = 1024
	input.Prompt = "Directory: "

	m := Model{
		store:   opts.Store,
		engine:  opts.Engine,
		tabs:    opts.Tabs,
		hotkeys: opts.Hotkeys,
		mode:    ModeBrowse,
		list:    l,
		input:   input,
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
	m.refresh()
	return m
}

// Init starts the redraw subscription and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitForRedraw,
		tick(),
	)
}

type redrawMsg struct{}

type tickMsg time.Time

// waitForRedraw blocks until the shared state changes.
func (m Model) waitForRedraw() tea.Msg {
	<-m.store.Redraw().C()
	return redrawMsg{}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	if next.ready {
		// Banners come and go with the mode and the edit-only flag.
		next.list.SetSize(next.width, next.listHeight())
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case redrawMsg:
		m.refresh()
		return m, m.waitForRedraw

	case tickMsg:
		// Keeps now-playing ages and the recording candidate current.
		return m, tick()

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(statusTTL, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeBrowse:
		m.list, cmd = m.list.Update(msg)
	case ModeAddTab:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeRecord:
		return m.handleRecordKey(msg)
	case ModeAddTab:
		return m.handleAddTabKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.mode = ModeBrowse
		}
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, m.keys.Section):
		m.section = (m.section + 1) % sectionCount
		m.list.ResetFilter()
		m.list.Select(0)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		if m.section == SectionFiles && m.store.Select(m.store.Selected()-1) {
			m.list.Select(0)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		if m.section == SectionFiles && m.store.Select(m.store.Selected()+1) {
			m.list.Select(0)
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.Play):
		return m, m.activate()

	case key.Matches(msg, m.keys.StopAll):
		m.engine.StopAll()
		return m, status("Stopped", false)

	case key.Matches(msg, m.keys.VolumeUp):
		v := m.store.SetSinkVolume(m.store.SinkVolume() + volumeStep)
		return m, status(fmt.Sprintf("Volume %d%%", v), false)

	case key.Matches(msg, m.keys.VolumeDown):
		v := m.store.SetSinkVolume(m.store.SinkVolume() - volumeStep)
		return m, status(fmt.Sprintf("Volume %d%%", v), false)

	case key.Matches(msg, m.keys.FileUp, m.keys.FileDown):
		item, ok := m.list.SelectedItem().(fileItem)
		if !ok {
			return m, nil
		}
		step := volumeStep
		if key.Matches(msg, m.keys.FileDown) {
			step = -volumeStep
		}
		v, err := m.store.SetFileVolume(item.file.Path, item.volume+step)
		if err != nil {
			return m, status(err.Error(), true)
		}
		m.refresh()
		return m, status(fmt.Sprintf("%s volume %d%%", item.file.Name, v), false)

	case key.Matches(msg, m.keys.AddTab):
		m.mode = ModeAddTab
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.DeleteTab):
		if m.section != SectionFiles {
			return m, nil
		}
		tabs := m.tabs
		return m, func() tea.Msg {
			code, path := tabs.DeleteTab(control.Selector{Kind: control.SelectCurrent})
			return tabResult("Removed", code, path)
		}

	case key.Matches(msg, m.keys.ReloadTab):
		if m.section != SectionFiles {
			return m, nil
		}
		tabs := m.tabs
		return m, func() tea.Msg {
			code, path := tabs.ReloadTab(control.Selector{Kind: control.SelectCurrent})
			return tabResult("Rescanned", code, path)
		}

	case key.Matches(msg, m.keys.Record):
		item, ok := m.list.SelectedItem().(fileItem)
		if !ok {
			return m, nil
		}
		if m.hotkeys == nil {
			return m, status("Global hotkeys are unavailable", true)
		}
		m.hotkeys.StartRecording()
		m.recordPath = item.file.Path
		m.mode = ModeRecord
		return m, nil

	case key.Matches(msg, m.keys.ClearKeys):
		item, ok := m.list.SelectedItem().(fileItem)
		if !ok {
			return m, nil
		}
		if err := m.store.SetFileHotkey(item.file.Path, nil); err != nil {
			return m, status(err.Error(), true)
		}
		if m.hotkeys != nil {
			m.hotkeys.Rebuild()
		}
		m.refresh()
		return m, status("Hotkey cleared", false)

	case key.Matches(msg, m.keys.CopyPath):
		item, ok := m.list.SelectedItem().(fileItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return copyResultMsg{err: copyText(item.file.Path)}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// activate plays or toggles the selected entry.
func (m *Model) activate() tea.Cmd {
	switch item := m.list.SelectedItem().(type) {
	case fileItem:
		if !m.engine.PlayFile(item.file.Path) {
			return status("Tab is being scanned", true)
		}
	case waveformItem:
		if item.playing() {
			m.engine.StopWaveform(item.waveform)
		} else {
			m.engine.StartWaveform(item.waveform)
		}
	case dialogItem:
		if item.playing() {
			m.engine.StopDialog(item.dialog)
		} else {
			m.engine.PlayDialog(item.dialog, audio.Held, true, nil)
		}
	}
	return nil
}

func tabResult(verb string, code control.Status, path string) tea.Msg {
	switch code {
	case control.StatusOK, control.StatusOKEditOnly:
		return statusMsg{text: verb + " " + path}
	case control.TabConflict:
		return statusMsg{text: "Tab is being scanned", isErr: true}
	case control.TabNotFound:
		return statusMsg{text: "No tab selected", isErr: true}
	default:
		return statusMsg{text: fmt.Sprintf("%s failed (code %d)", strings.ToLower(verb), code), isErr: true}
	}
}

// handleAddTabKey handles keys while typing a directory.
func (m Model) handleAddTabKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeBrowse
		m.input.Blur()
		return m, nil

	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		m.mode = ModeBrowse
		m.input.Blur()
		tabs := m.tabs
		return m, func() tea.Msg {
			code, resolved := tabs.AddTab(path)
			switch code {
			case control.StatusOK:
				return statusMsg{text: "Added " + resolved}
			case control.AddTabEmpty:
				return statusMsg{text: "No directory given", isErr: true}
			case control.AddTabDuplicate:
				return statusMsg{text: resolved + " is already a tab", isErr: true}
			default:
				return statusMsg{text: "Not a directory: " + path, isErr: true}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleRecordKey finishes or cancels hotkey recording. Keys typed into the
// terminal are not part of the recording; the global listener captures them.
func (m Model) handleRecordKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.hotkeys.StopRecording()
		m.mode = ModeBrowse
		m.recordPath = ""
		return m, status("Recording cancelled", false)

	case tea.KeyEnter:
		keys := m.hotkeys.StopRecording()
		m.mode = ModeBrowse
		path := m.recordPath
		m.recordPath = ""

		// Enter itself is captured while the combination is confirmed.
		keys = removeKeys(keys, hotkey.KeyEnter, hotkey.KeyKPEnter)
		if len(keys) == 0 {
			return m, status("No keys recorded", true)
		}
		names := hotkey.KeyNames(keys)
		if err := m.store.SetFileHotkey(path, names); err != nil {
			return m, status(err.Error(), true)
		}
		m.hotkeys.Rebuild()
		m.refresh()
		return m, status("Bound "+strings.Join(names, "+"), false)
	}
	return m, nil
}

func removeKeys(keys []hotkey.Key, drop ...hotkey.Key) []hotkey.Key {
	return lo.Without(keys, drop...)
}

// refresh rebuilds the list items from the shared state.
func (m *Model) refresh() {
	var items []list.Item
	switch m.section {
	case SectionFiles:
		if tab, _, ok := m.store.SelectedTab(); ok {
			items = make([]list.Item, len(tab.Files))
			for i, f := range tab.Files {
				items[i] = fileItem{
					file:   f,
					volume: m.store.FileVolume(f.Path),
					hotkey: m.store.FileHotkey(f.Path),
				}
			}
		}
	case SectionWaveforms:
		for _, w := range m.store.Waveforms() {
			items = append(items, waveformItem{waveform: w})
		}
	case SectionDialogs:
		for _, d := range m.store.Dialogs() {
			items = append(items, dialogItem{dialog: d})
		}
	}

	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = max(len(items)-1, 0)
	}
	m.list.Select(idx)
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
