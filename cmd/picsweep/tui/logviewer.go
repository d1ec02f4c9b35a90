package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/picsweep/pkg/picsweep/logging"
)

// filterEntriesByLevel returns entries at or above minLevel.
func filterEntriesByLevel(entries []logging.Entry, minLevel logging.Level) []logging.Entry {
	result := make([]logging.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Level >= minLevel {
			result = append(result, e)
		}
	}
	return result
}

// clampLogScroll keeps offset inside [0, total-visible].
func clampLogScroll(offset, total, visible int) int {
	if total <= visible || offset < 0 {
		return 0
	}
	if maxOffset := total - visible; offset > maxOffset {
		return maxOffset
	}
	return offset
}

func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogEntry renders "HH:MM:SS [L] component: message" within width.
func renderLogEntry(entry logging.Entry, width int) string {
	comp := entry.Component
	if len(comp) > 10 {
		comp = comp[:10]
	}

	msgWidth := width - (8 + 1 + 3 + 1 + len(comp) + 2)
	if msgWidth < 10 {
		msgWidth = 10
	}
	msg := entry.Message
	if len(msg) > msgWidth {
		msg = msg[:msgWidth-3] + "..."
	}

	return fmt.Sprintf("%s %s %s: %s",
		logTimeStyle.Render(entry.Time.Format("15:04:05")),
		logLevelStyle(entry.Level).Render("["+logLevelChar(entry.Level)+"]"),
		logComponentStyle.Render(comp),
		msg)
}

// LogViewerState is the log panel toggled with L.
type LogViewerState struct {
	Open         bool
	FilterLevel  logging.Level
	ScrollOffset int

	// Follow keeps the newest entry in view until the user scrolls up.
	Follow bool

	buffer *logging.Buffer

	// feed is set when the buffer is private and must be filled from the
	// subscription.
	feed bool
}

// NewLogViewerState reads from the logging ring buffer in TUI mode and
// keeps its own otherwise.
func NewLogViewerState() *LogViewerState {
	s := &LogViewerState{FilterLevel: logging.LevelInfo, Follow: true}
	if buf := logging.LogBuffer(); buf != nil {
		s.buffer = buf
	} else {
		s.buffer = logging.NewBuffer(logging.DefaultBufferSize)
		s.feed = true
	}
	return s
}

// Toggle opens or closes the panel.
func (s *LogViewerState) Toggle() {
	s.Open = !s.Open
}

// SetFilterLevel changes the minimum level shown and resets scrolling.
func (s *LogViewerState) SetFilterLevel(level logging.Level) {
	s.FilterLevel = level
	s.ScrollOffset = 0
	s.Follow = true
}

// Add records a subscribed entry when the buffer is private.
func (s *LogViewerState) Add(e logging.Entry) {
	if s.feed {
		s.buffer.Add(e)
	}
}

// Entries returns the entries that pass the filter, oldest first.
func (s *LogViewerState) Entries() []logging.Entry {
	return filterEntriesByLevel(s.buffer.Entries(), s.FilterLevel)
}

// ScrollUp moves one line towards older entries.
func (s *LogViewerState) ScrollUp(visible int) {
	total := len(s.Entries())
	if s.Follow {
		s.ScrollOffset = clampLogScroll(total-visible, total, visible)
		s.Follow = false
	}
	if s.ScrollOffset > 0 {
		s.ScrollOffset--
	}
}

// ScrollDown moves one line towards newer entries.
func (s *LogViewerState) ScrollDown(visible int) {
	total := len(s.Entries())
	s.ScrollOffset = clampLogScroll(s.ScrollOffset+1, total, visible)
	if s.ScrollOffset >= total-visible {
		s.Follow = true
	}
}

// View renders the panel in width x height cells.
func (s *LogViewerState) View(width, height int) string {
	if height < 3 {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" Logs [%s] ", s.FilterLevel)))
	b.WriteString(mutedTextStyle.Render("[1-4] filter  [↑/↓] scroll  [L] close"))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	visible := height - 2
	entries := s.Entries()

	offset := s.ScrollOffset
	if s.Follow {
		offset = len(entries) - visible
	}
	offset = clampLogScroll(offset, len(entries), visible)

	end := offset + visible
	if end > len(entries) {
		end = len(entries)
	}

	lines := make([]string, 0, visible)
	for _, e := range entries[offset:end] {
		lines = append(lines, renderLogEntry(e, width))
	}
	for len(lines) < visible {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}
