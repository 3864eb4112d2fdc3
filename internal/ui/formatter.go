package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/notexe/mcp-reminders/internal/mcp"
)

var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	ToolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("215")). // Orange
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	AccentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147")) // Light purple

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")). // Soft blue border
			Padding(0, 1)
)

// Formatter renders reminders-ctl output, styled or plain.
type Formatter struct {
	colored bool
}

func NewFormatter(colored bool) *Formatter {
	return &Formatter{colored: colored}
}

func (f *Formatter) render(style lipgloss.Style, s string) string {
	if f.colored {
		return style.Render(s)
	}
	return s
}

func (f *Formatter) FormatError(err error) string {
	return f.render(ErrorStyle, "Error: ") + err.Error()
}

// FormatConnected is the banner printed after the handshake.
func (f *Formatter) FormatConnected(server string) string {
	return f.render(DimStyle, "connected to ") + f.render(HeaderStyle, server)
}

// FormatTools lists tools with their parameters, required ones marked *.
func (f *Formatter) FormatTools(tools []mcp.Tool) string {
	var b strings.Builder
	b.WriteString(f.render(HeaderStyle, fmt.Sprintf("%d tool(s)", len(tools))))
	b.WriteString("\n")

	for _, t := range tools {
		b.WriteString("\n")
		b.WriteString(f.render(ToolStyle, t.Name))
		b.WriteString("\n")
		if t.Description != "" {
			first, _, _ := strings.Cut(t.Description, "\n")
			b.WriteString("  " + f.render(DimStyle, first) + "\n")
		}

		required := make(map[string]bool, len(t.InputSchema.Required))
		for _, r := range t.InputSchema.Required {
			required[r] = true
		}
		params := make([]string, 0, len(t.InputSchema.Properties))
		for name := range t.InputSchema.Properties {
			params = append(params, name)
		}
		sort.Strings(params)
		for _, p := range params {
			mark := ""
			if required[p] {
				mark = "*"
			}
			b.WriteString("  - " + f.render(AccentStyle, p+mark) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatResult shows a tool or resource result, boxed when colored.
func (f *Formatter) FormatResult(title, content string) string {
	content = strings.TrimRight(content, "\n")
	if f.colored {
		return HeaderStyle.Render(title) + "\n" + boxStyle.Render(content)
	}
	return title + "\n" + content
}
