package ux

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Border  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Value   lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1),
		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Key: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // Cyan
			Width(14),
		Value: lipgloss.NewStyle(),
	}
}

// PlainStyles renders without color or emphasis.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Header:  plain.Padding(0, 1),
		Border:  plain,
		Success: plain,
		Error:   plain,
		Warning: plain,
		Muted:   plain,
		Key:     plain.Width(14),
		Value:   plain,
	}
}

// Field is one labelled line of a detail view.
type Field struct {
	Key   string
	Value string
}

// Detail is a titled list of fields, e.g. `auth status`.
type Detail struct {
	Title  string
	Fields []Field
}

// RenderText writes the title and aligned key/value lines.
func (d Detail) RenderText(w io.Writer, styles Styles) error {
	if d.Title != "" {
		if _, err := fmt.Fprintln(w, styles.Title.Render(d.Title)); err != nil {
			return err
		}
	}
	for _, f := range d.Fields {
		value := f.Value
		if value == "" {
			value = styles.Muted.Render("-")
		}
		if _, err := fmt.Fprintln(w, styles.Key.Render(f.Key+":")+" "+styles.Value.Render(value)); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON emits the fields as an object.
func (d Detail) MarshalJSON() ([]byte, error) {
	return marshalFieldsJSON(d.Fields)
}

// MarshalYAML emits the fields as a mapping.
func (d Detail) MarshalYAML() (any, error) {
	out := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Key] = f.Value
	}
	return out, nil
}

// marshalFieldsJSON keeps field order, which a map would lose.
func marshalFieldsJSON(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
