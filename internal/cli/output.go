package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"
)

// OutputFormat represents the supported output formats for listing commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a plain table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// Listing is data that can be printed in every output format: Data is used
// for json and yaml, Headers and Rows for tables.
type Listing struct {
	Headers []string
	Rows    [][]string
	Data    interface{}
}

// Print writes a listing in the given format.
func Print(w io.Writer, format OutputFormat, listing Listing, noHeaders bool) error {
	switch format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(listing.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputFormatYAML:
		data, err := yaml.Marshal(listing.Data)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case OutputFormatTable, "":
		tw := NewPlainTableWriter(w)
		tw.SetHeaders(listing.Headers)
		tw.SetNoHeaders(noHeaders)
		for _, row := range listing.Rows {
			tw.AppendRow(row)
		}
		tw.Render()
		return nil
	default:
		return ValidateOutputFormat(string(format))
	}
}

// PlainTableWriter writes tables without box-drawing characters, suited to
// piping into grep, awk or cut.
type PlainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	minPadding   int
	showHeaders  bool
	output       io.Writer
}

// NewPlainTableWriter creates a table writer. Headers are shown unless
// SetNoHeaders(true) is called.
func NewPlainTableWriter(output io.Writer) *PlainTableWriter {
	return &PlainTableWriter{
		minPadding:  3,
		showHeaders: true,
		output:      output,
	}
}

// SetHeaders sets the column headers. They are displayed in uppercase.
func (w *PlainTableWriter) SetHeaders(headers []string) {
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = len(upper)
	}
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row, padded or cut to the number of headers.
func (w *PlainTableWriter) AppendRow(row []string) {
	normalized := make([]string, len(w.headers))
	for i := range w.headers {
		if i < len(row) {
			normalized[i] = row[i]
			if len(row[i]) > w.columnWidths[i] {
				w.columnWidths[i] = len(row[i])
			}
		}
	}
	w.rows = append(w.rows, normalized)
}

// Render writes the table.
func (w *PlainTableWriter) Render() {
	if len(w.headers) == 0 {
		return
	}
	if len(w.rows) == 0 && !w.showHeaders {
		return
	}
	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		sb.WriteString(fmt.Sprintf("%-*s", w.columnWidths[i]+w.minPadding, cell))
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}
