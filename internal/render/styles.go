package render

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	timestampColor = lipgloss.Color("11") // bright yellow
	ownerColor     = lipgloss.Color("12") // bright blue
	responderColor = lipgloss.Color("13") // bright magenta
	mutedColor     = lipgloss.Color("241")
)

type styles struct {
	Timestamp lipgloss.Style
	Owner     lipgloss.Style
	Responder lipgloss.Style
	Qualifier lipgloss.Style
	Header    lipgloss.Style
	Muted     lipgloss.Style
}

// newStyles binds the palette to out, so color is dropped when out is not a
// terminal.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		Timestamp: r.NewStyle().Foreground(timestampColor),
		Owner:     r.NewStyle().Foreground(ownerColor).Bold(true),
		Responder: r.NewStyle().Foreground(responderColor).Bold(true),
		Qualifier: r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("15")),
		Header:    r.NewStyle().Bold(true),
		Muted:     r.NewStyle().Foreground(mutedColor),
	}
}

// TerminalWidth returns the column count of out, or 0 when out is not a
// terminal.
func TerminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
