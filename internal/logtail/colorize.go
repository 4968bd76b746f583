package logtail

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the styles used to render log lines.
type Palette struct {
	Time  lipgloss.Style
	Debug lipgloss.Style
	Info  lipgloss.Style
	Warn  lipgloss.Style
	Error lipgloss.Style
	Key   lipgloss.Style
	Value lipgloss.Style
	Plain lipgloss.Style
}

// PlainPalette renders without any styling.
func PlainPalette() Palette {
	s := lipgloss.NewStyle()
	return Palette{Time: s, Debug: s, Info: s, Warn: s, Error: s, Key: s, Value: s, Plain: s}
}

func (p Palette) level(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return p.Debug
	case "WARN", "WARNING":
		return p.Warn
	case "ERROR":
		return p.Error
	default:
		return p.Info
	}
}

// ColorizeLine renders one log line. The clock part of the timestamp is kept
// and the date is dropped to save width.
func ColorizeLine(line string, p Palette) string {
	e := Parse(line)
	if !e.Structured() {
		return p.Plain.Render(e.Raw)
	}

	var b strings.Builder
	if ts := shortTime(e.Time); ts != "" {
		b.WriteString(p.Time.Render(ts))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		b.WriteString(p.level(e.Level).Render(padLevel(e.Level)))
		b.WriteByte(' ')
	}
	b.WriteString(p.Plain.Render(e.Message))
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(p.Key.Render(a.Key + "="))
		b.WriteString(p.Value.Render(a.Value))
	}
	return b.String()
}

// ColorizeLines renders each line with ColorizeLine.
func ColorizeLines(lines []string, p Palette) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = ColorizeLine(line, p)
	}
	return out
}

func shortTime(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		return ts[i+1 : i+9]
	}
	return ts
}

func padLevel(level string) string {
	level = strings.ToUpper(level)
	if len(level) < 5 {
		level += strings.Repeat(" ", 5-len(level))
	}
	return level
}
