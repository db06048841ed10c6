package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PrevTab  key.Binding
	NextTab  key.Binding
	Section  key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Playback
	Play       key.Binding
	StopAll    key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	FileUp     key.Binding
	FileDown   key.Binding

	// Tabs and bindings
	AddTab    key.Binding
	DeleteTab key.Binding
	ReloadTab key.Binding
	Record    key.Binding
	ClearKeys key.Binding
	CopyPath  key.Binding

	// Global
	Back key.Binding
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevTab, k.NextTab, k.Section},
		{k.Play, k.StopAll, k.VolumeUp, k.VolumeDown, k.FileUp, k.FileDown},
		{k.AddTab, k.DeleteTab, k.ReloadTab, k.Record, k.ClearKeys, k.CopyPath},
		{k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next tab"),
		),
		Section: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "files/waveforms/dialogs"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Play: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "play/toggle"),
		),
		StopAll: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop all"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "volume down"),
		),
		FileUp: key.NewBinding(
			key.WithKeys("}"),
			key.WithHelp("}", "file volume up"),
		),
		FileDown: key.NewBinding(
			key.WithKeys("{"),
			key.WithHelp("{", "file volume down"),
		),
		AddTab: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add tab"),
		),
		DeleteTab: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete tab"),
		),
		ReloadTab: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan tab"),
		),
		Record: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "record hotkey"),
		),
		ClearKeys: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "clear hotkey"),
		),
		CopyPath: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy path"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
