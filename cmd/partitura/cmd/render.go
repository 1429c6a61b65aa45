package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// partOutput mirrors core.InstrumentPart for machine-readable output.
type partOutput struct {
	Name      string `json:"name" yaml:"name"`
	Voice     string `json:"voice,omitempty" yaml:"voice,omitempty"`
	StartPage int    `json:"start_page" yaml:"start_page"`
	EndPage   int    `json:"end_page" yaml:"end_page"`
}

type partsOutput struct {
	Instruments []partOutput `json:"instruments" yaml:"instruments"`
}

type identityOutput struct {
	Name      string `json:"name" yaml:"name"`
	Voice     string `json:"voice,omitempty" yaml:"voice,omitempty"`
	StartPage int    `json:"start_page,omitempty" yaml:"start_page,omitempty"`
	EndPage   int    `json:"end_page,omitempty" yaml:"end_page,omitempty"`
}

func renderParts(w io.Writer, format string, parts []core.InstrumentPart) error {
	out := partsOutput{Instruments: make([]partOutput, 0, len(parts))}
	for _, p := range parts {
		out.Instruments = append(out.Instruments, partOutput{
			Name: p.Name, Voice: p.Voice, StartPage: p.StartPage, EndPage: p.EndPage,
		})
	}

	switch format {
	case "json":
		return encodeJSON(w, out)
	case "yaml":
		return encodeYAML(w, out)
	default:
		return renderPartsTable(w, parts)
	}
}

func renderPartsTable(w io.Writer, parts []core.InstrumentPart) error {
	if len(parts) == 0 {
		_, err := fmt.Fprintln(w, "no instrument parts detected")
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers("#", "INSTRUMENT", "VOICE", "PAGES")

	for i, p := range parts {
		t.Row(strconv.Itoa(i+1), p.Name, p.Voice, pageRange(p))
	}

	_, err := fmt.Fprintln(w, t)
	return err
}

func renderIdentity(w io.Writer, format string, identity core.PartIdentity) error {
	out := identityOutput{
		Name: identity.Name, Voice: identity.Voice,
		StartPage: identity.StartPage, EndPage: identity.EndPage,
	}

	switch format {
	case "json":
		return encodeJSON(w, out)
	case "yaml":
		return encodeYAML(w, out)
	default:
		label := identity.Name
		if identity.Voice != "" {
			label += " " + identity.Voice
		}
		if identity.EndPage > 0 {
			label += fmt.Sprintf(" (%d pages)", identity.EndPage-identity.StartPage+1)
		}
		_, err := fmt.Fprintln(w, label)
		return err
	}
}

func pageRange(p core.InstrumentPart) string {
	if p.EndPage == 0 || p.EndPage == p.StartPage {
		return strconv.Itoa(p.StartPage)
	}
	return fmt.Sprintf("%d-%d", p.StartPage, p.EndPage)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
