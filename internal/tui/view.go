package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/soundboard/internal/store"
)

// Rows reserved for the now-playing panel, including its heading.
const nowPlayingRows = 5

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.tooSmall() {
		return bannerStyle.Render(fmt.Sprintf("Terminal too small (need %dx%d)", minWidth, minHeight))
	}

	if m.mode == ModeHelp {
		return m.viewHelp()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	for _, banner := range m.banners() {
		b.WriteString(bannerStyle.Render(truncate(banner, m.width-2)))
		b.WriteString("\n")
	}
	b.WriteString(m.list.View())
	b.WriteString("\n")
	b.WriteString(m.viewNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m Model) tooSmall() bool {
	return m.width < minWidth || m.height < minHeight
}

// listHeight is what remains after the header, banners, now-playing panel
// and footer.
func (m Model) listHeight() int {
	return max(m.height-2-len(m.banners())-nowPlayingRows, 1)
}

func (m Model) banners() []string {
	var out []string
	if m.store.EditOnly() {
		out = append(out, "Edit-only: another instance owns the control socket. Audio and hotkeys are disabled.")
	}
	if m.mode == ModeRecord && m.hotkeys != nil {
		held := "(press keys)"
		if c := m.hotkeys.Candidate(); len(c) > 0 {
			names := make([]string, len(c))
			for i, k := range c {
				names[i] = k.String()
			}
			held = strings.Join(names, "+")
		}
		out = append(out, "Recording: "+held+"  enter save  esc cancel")
	}
	return out
}

// viewHeader renders the section name, the tab bar and the sink volume.
func (m Model) viewHeader() string {
	right := fmt.Sprintf("vol %d%%", m.store.SinkVolume())
	left := activeStyle.Render(m.section.String())

	if m.section == SectionFiles {
		tabs := m.store.Tabs()
		sel := m.store.Selected()
		scan := m.store.Scanning()
		parts := make([]string, len(tabs))
		for i, t := range tabs {
			name := filepath.Base(t.Path)
			if scan.Kind == store.ScanAll || (scan.Kind == store.ScanOne && scan.Tab == i) {
				name += "…"
			}
			if i == sel {
				parts[i] = activeStyle.Render("[" + name + "]")
			} else {
				parts[i] = dimStyle.Render(name)
			}
		}
		if len(parts) == 0 {
			parts = append(parts, dimStyle.Render("no tabs, press a to add one"))
		}
		left += "  " + strings.Join(parts, " ")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + dimStyle.Render(right)
}

// viewNowPlaying renders a fixed-height panel of running sounds.
func (m Model) viewNowPlaying() string {
	lines := []string{headingStyle.Render("Now playing")}

	now := time.Now()
	for _, np := range m.store.NowPlaying() {
		elapsed := min(now.Sub(np.StartedAt), np.Duration)
		line := fmt.Sprintf("▶ %s  %s / %s  started %s",
			np.Label, formatDuration(elapsed), formatDuration(np.Duration), humanize.Time(np.StartedAt))
		lines = append(lines, truncate(line, m.width))
	}
	for _, w := range m.store.Waveforms() {
		if s := w.State(); s != nil && s.Active() {
			lines = append(lines, truncate("~ "+w.Label, m.width))
		}
	}
	for _, d := range m.store.Dialogs() {
		if s := d.State(); s != nil && s.Active() {
			lines = append(lines, truncate("» "+d.Label, m.width))
		}
	}

	if len(lines) == 1 {
		lines = append(lines, dimStyle.Render("nothing"))
	}
	if len(lines) > nowPlayingRows {
		more := len(lines) - nowPlayingRows + 1
		lines = append(lines[:nowPlayingRows-1], dimStyle.Render(fmt.Sprintf("+%d more", more)))
	}
	for len(lines) < nowPlayingRows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewFooter() string {
	if m.mode == ModeAddTab {
		return m.input.View()
	}
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = errorStyle
		}
		return style.Render(truncate(m.statusMsg, m.width))
	}
	mode := "browse"
	if m.mode == ModeRecord {
		mode = "record"
	}
	return m.buildKeybindBar(m.width, mode)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	h := m.help
	h.ShowAll = true
	h.Width = m.width

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += h.View(m.keys) + "\n\n"
	s += dimStyle.Render("Bindings recorded with b are global and work while another window has focus.") + "\n"
	s += dimStyle.Render("Press ? or esc to return")
	return s
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "browse" or "record".
func (m Model) buildKeybindBar(width int, mode string) string {
	var binds []keybind

	switch mode {
	case "browse":
		binds = []keybind{
			{"q", "quit", 1},
			{"enter", "play", 2},
			{"s", "stop", 3},
			{"?", "help", 4},
			{"tab", "section", 5},
			{"←/→", "tabs", 6},
			{"+/-", "volume", 7},
			{"a", "add tab", 8},
			{"b", "bind", 9},
			{"/", "filter", 10},
		}
	case "record":
		binds = []keybind{
			{"enter", "save", 1},
			{"esc", "cancel", 2},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		plainItem := b.key + " " + b.desc
		testLen := len(plainItem)
		if result != "" {
			testLen = len([]rune(stripANSI(result))) + len(separator) + len([]rune(plainItem))
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return dimStyle.Render(result)
}

// stripANSI removes ANSI escape codes for length calculation.
func stripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result = append(result, s[i])
	}
	return string(result)
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// formatDuration renders d as m:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
