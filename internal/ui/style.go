package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	success  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warn     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	key      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	val      = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	title    = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	meter    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Out is where status lines go. Results meant for piping go to stdout.
var Out io.Writer = os.Stderr

func Dim(s string) string { return dim.Render(s) }
func Key(s string) string { return key.Render(s) }
func Val(s string) string { return val.Render(s) }

func Success(format string, a ...any) {
	fmt.Fprintln(Out, success.Render("✓ "+fmt.Sprintf(format, a...)))
}

func Warn(format string, a ...any) {
	fmt.Fprintln(Out, warn.Render("! "+fmt.Sprintf(format, a...)))
}

func Error(format string, a ...any) {
	fmt.Fprintln(Out, errStyle.Render("✗ "+fmt.Sprintf(format, a...)))
}

func Info(format string, a ...any) {
	fmt.Fprintf(Out, format+"\n", a...)
}

func KV(k, v string) {
	fmt.Fprintf(Out, "  %s  %s\n", key.Render(k), val.Render(v))
}

// Match prints a recognized song and where to find it.
func Match(name, url string) {
	fmt.Fprintf(Out, "%s %s\n", success.Render("♪"), title.Render(name))
	if url != "" {
		fmt.Fprintf(Out, "  %s\n", dim.Render(url))
	}
}

// Song prints one library entry.
func Song(id int, name string, fingerprints int) {
	fmt.Fprintf(Out, "  %s  %s %s\n",
		key.Render(fmt.Sprintf("%3d", id)),
		val.Render(name),
		dim.Render(fmt.Sprintf("(%d fingerprints)", fingerprints)))
}

const meterWidth = 20

// Meter renders a 0..1 level as a fixed-width bar.
func Meter(level float64) string {
	n := int(max(0, min(1, level)) * meterWidth)
	return meter.Render(strings.Repeat("█", n)) + dim.Render(strings.Repeat("·", meterWidth-n))
}
