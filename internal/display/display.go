// Package display renders playback feedback to the terminal. Spec.md §5
// names Display as a narrow, swappable output collaborator; this package
// supplies the ANSI implementation the CLI wires by default, built on the
// same lipgloss styling the rest of this player's terminal output uses.
package display

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	percussionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8800"))

	melodicPalette = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00AAFF")),
	}
)

// ANSI is the bundled Display implementation: one line per sounding voice,
// color-coded by instrument family, written to an io.Writer (normally
// os.Stdout).
type ANSI struct {
	w io.Writer
}

// NewANSI wraps w as a Display.
func NewANSI(w io.Writer) *ANSI {
	return &ANSI{w: w}
}

// Title prints a banner line, used once at startup.
func (a *ANSI) Title(text string) {
	fmt.Fprintln(a.w, titleStyle.Render(text))
}

// IllustrateNote prints one voice's current state: which physical voice
// struck, at what pitch, with which instrument, how loud, and how far
// pitch-bent.
func (a *ANSI) IllustrateNote(voice, tone, instrument int, pressure uint8, bend float64) {
	style := a.styleFor(instrument)
	noteName := midiNoteName(tone)
	line := fmt.Sprintf("voice %2d  %-4s  ins %3d  vel %3d  bend %+.2f",
		voice, noteName, instrument, pressure, bend)
	fmt.Fprintln(a.w, style.Render(line))
}

// PrintLn writes a diagnostic line in the muted info style.
func (a *ANSI) PrintLn(format string, args ...interface{}) {
	fmt.Fprintln(a.w, infoStyle.Render(fmt.Sprintf(format, args...)))
}

func (a *ANSI) styleFor(instrument int) lipgloss.Style {
	if instrument >= 128 {
		return percussionStyle
	}
	return melodicPalette[instrument%len(melodicPalette)]
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// midiNoteName renders a MIDI key number as e.g. "A4".
func midiNoteName(key int) string {
	if key < 0 {
		key = 0
	}
	octave := key/12 - 1
	name := noteNames[key%12]
	return fmt.Sprintf("%s%d", name, octave)
}
