// Package style renders console output with lipgloss, dropping colour when the
// destination is not a terminal.
package style

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type Palette struct {
	Pass  lipgloss.Style
	Fail  lipgloss.Style
	Warn  lipgloss.Style
	Muted lipgloss.Style
}

// NewRenderer binds a renderer to writer. Pipes, files and buffers get the
// ASCII profile so CI logs and captured output stay free of escape codes.
func NewRenderer(writer io.Writer) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(writer)
	if !IsTerminalWriter(writer) {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return renderer
}

func NewPalette(renderer *lipgloss.Renderer) Palette {
	return Palette{
		Pass: renderer.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightGreen)).
			Bold(true),
		Fail: renderer.NewStyle().
			Foreground(lipgloss.Color("#ff0000")).
			Bold(true),
		Warn: renderer.NewStyle().
			Foreground(lipgloss.ANSIColor(termenv.ANSIBrightYellow)),
		Muted: renderer.NewStyle().
			Foreground(lipgloss.Color("#767676")),
	}
}

// RenderLines styles each line on its own. Rendering a multi-line block in one
// call would pad every line to the widest one.
func RenderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}
