package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/engine"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/internal/variables"
	pkgstrings "github.com/cliff-rosen/orchestrator-sub003/pkg/strings"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = text.FgHiCyan.Sprint(n)
	}
	return row
}

// FormatValue renders a variable value for a table cell.
func FormatValue(value interface{}, hasValue bool) string {
	if !hasValue {
		return text.FgHiBlack.Sprint("<unset>")
	}
	if fv, ok := schema.AsFileValue(value); ok {
		name := fv.Name
		if name == "" {
			name = fv.FileID
		}
		if fv.HasContent() {
			return fmt.Sprintf("file %s (%d bytes)", name, len(*fv.Content))
		}
		return "file " + name
	}

	var s string
	switch v := value.(type) {
	case string:
		s = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(data)
		}
	}
	return pkgstrings.Cell(s, pkgstrings.DefaultCellWidth)
}

// RenderVariables writes the variables of a store as a table.
func RenderVariables(w io.Writer, vars []variables.Variable) {
	t := newTable(w)
	t.AppendHeader(header("NAME", "ROLE", "SCHEMA", "VALUE"))
	for _, v := range vars {
		name := v.Name
		if v.Role == api.RoleInput && v.Required && !v.HasValue {
			name = text.FgYellow.Sprint(name + " *")
		}
		t.AppendRow(table.Row{name, string(v.Role), v.Schema.String(), FormatValue(v.Value, v.HasValue)})
	}
	t.Render()
}

// RenderSteps writes the steps of a run as a table, marking the active step.
func RenderSteps(w io.Writer, steps []api.Step, active int) {
	t := newTable(w)
	t.AppendHeader(header("", "#", "ID", "TYPE", "TOOL", "LABEL"))
	for idx, step := range steps {
		marker := ""
		if idx == active {
			marker = text.FgGreen.Sprint("▶")
		}
		tool := step.Tool
		if step.PromptTemplateID != "" {
			tool = fmt.Sprintf("%s (%s)", step.Tool, step.PromptTemplateID)
		}
		t.AppendRow(table.Row{marker, idx, step.ID, string(step.Type), tool, step.Label})
	}
	t.Render()
}

// RenderOutputs writes the outputs of an execution as a key/value table.
func RenderOutputs(w io.Writer, outputs map[string]interface{}) {
	if len(outputs) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(header("OUTPUT", "VALUE"))
	t.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})
	for key, value := range outputs {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(key), FormatValue(value, true)})
	}
	t.Render()
}

// RenderFindings writes validation findings, blocking ones in red.
func RenderFindings(w io.Writer, findings engine.ValidationErrors) {
	for _, f := range findings {
		if f.Advisory {
			fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("warning:"), f.Error())
		} else {
			fmt.Fprintf(w, "%s %s\n", text.FgRed.Sprint("error:"), f.Error())
		}
	}
}
