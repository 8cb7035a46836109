// Package output renders visitor log entries for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

// Renderer writes LogEntry values to an output stream.
type Renderer interface {
	Render(entry types.LogEntry) error
}

// New picks a renderer by format name; anything but "json" is text.
func New(format string, w io.Writer) Renderer {
	if format == "json" {
		return NewJSONRenderer(w)
	}
	return NewTextRenderer(w)
}

var (
	styleGranted = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)  // green
	styleDenied  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red
	styleOut     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))            // gray
	styleName    = lipgloss.NewStyle().Bold(true)
	styleMeta    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
)

// TextRenderer prints one styled line per entry.
type TextRenderer struct {
	w io.Writer
}

func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Render(e types.LogEntry) error {
	ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("%s %s %s %s",
		ts,
		styleEntryType(e.EntryType),
		styleName.Render(fmt.Sprintf("%-20s", e.Name)),
		styleMeta.Render(fmt.Sprintf("%3.0f%%  #%s", e.Confidence*100, e.ShortID())),
	)
	if a := e.Attributes; a != nil {
		glasses := "no glasses"
		if a.Glasses {
			glasses = "glasses"
		}
		line += styleMeta.Render(fmt.Sprintf("  %s, %s, %s, %s", a.AgeRange, a.Gender, a.Emotion, glasses))
	}
	_, err := fmt.Fprintln(r.w, line)
	return err
}

func styleEntryType(t types.EntryType) string {
	padded := fmt.Sprintf("%-9s", t)
	switch t {
	case types.CheckIn:
		return styleGranted.Render(padded)
	case types.Denied:
		return styleDenied.Render(padded)
	default:
		return styleOut.Render(padded)
	}
}

// JSONRenderer prints each entry as one JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Render(e types.LogEntry) error {
	return r.enc.Encode(e)
}
