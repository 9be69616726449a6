// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Table is the tabular view of a result. Data is what the structured
// formats serialize instead.
type Table struct {
	Headers []string
	Rows    [][]string
	// Right aligns the listed column indexes
	Right []int
}

type Formatter interface {
	Format(w io.Writer, table Table, data any) error
}

func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// ParseFormat validates a --format value. An empty value picks a table on a
// terminal and JSON for pipes.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return format, nil
	case "":
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return FormatTable, nil
		}
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be one of: table, json, yaml", s)
	}
}

type JSONFormatter struct {
	Indent string
}

func (f *JSONFormatter) Format(w io.Writer, _ Table, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent != "" {
		encoder.SetIndent("", f.Indent)
	}
	return encoder.Encode(data)
}

type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(w io.Writer, _ Table, data any) error {
	// Round trip through JSON so the json tags name the fields
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}

type TableFormatter struct{}

func (f *TableFormatter) Format(w io.Writer, table Table, _ any) error {
	config := tablewriter.Config{}
	if len(table.Right) > 0 {
		align := make([]tw.Align, len(table.Headers))
		for i := range align {
			align[i] = tw.AlignLeft
		}
		for _, column := range table.Right {
			if column >= 0 && column < len(align) {
				align[column] = tw.AlignRight
			}
		}
		config.Header.Alignment = tw.CellAlignment{PerColumn: align}
		config.Row.Alignment = tw.CellAlignment{PerColumn: align}
	}

	writer := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	if len(table.Headers) > 0 {
		headers := make([]any, len(table.Headers))
		for i, header := range table.Headers {
			headers[i] = header
		}
		writer.Header(headers...)
	}

	for _, row := range table.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		if err := writer.Append(cells...); err != nil {
			return err
		}
	}

	return writer.Render()
}
