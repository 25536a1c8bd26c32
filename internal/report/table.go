package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/thalesfsp/hotrack/model"
)

// bestRow colors the best example of a table.
var bestRow = color.New(color.FgGreen, color.Bold)

// paramNames returns the sorted names of the parameters in data, including
// the ones only found in example values.
func paramNames(data *model.Data) []string {
	names := maps.Clone(data.Params)
	if names == nil {
		names = map[string]model.ParamSpec{}
	}
	for _, e := range data.Examples {
		for name := range e.Values {
			if _, found := names[name]; !found {
				names[name] = model.ParamSpec{}
			}
		}
	}
	return slices.Sorted(maps.Keys(names))
}

// ranked returns the scored examples of data, best first.
func ranked(data *model.Data) []model.Example {
	var out []model.Example
	for _, e := range data.Examples {
		if _, ok := e.Objective(); ok {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Objective()
		b, _ := out[j].Objective()
		return a < b
	})
	return out
}

// formatValue renders a parameter value for tables and CSV files.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.6g", v)
	default:
		return fmt.Sprint(v)
	}
}

// WriteTable writes the scored examples best-first, one column per
// parameter, highlighting the best one. A positive limit truncates the
// table.
func WriteTable(w io.Writer, data *model.Data, limit int) error {
	examples := ranked(data)
	if len(examples) == 0 {
		return model.ErrNoExamples
	}
	if limit > 0 && len(examples) > limit {
		examples = examples[:limit]
	}

	reward := "loss"
	maximizing := data.Maximizing()
	if maximizing {
		reward = "gain"
	}
	names := paramNames(data)

	table := newTable(w)
	table.SetHeader(append([]string{"#", "run", reward, "alg"}, names...))
	for idx, e := range examples {
		obj, _ := e.Objective()
		row := []string{
			fmt.Sprint(idx + 1),
			shortID(e.RunID),
			fmt.Sprintf("%.6g", orient(obj, maximizing)),
			e.Alg,
		}
		for _, name := range names {
			row = append(row, formatValue(e.Values[name]))
		}
		if idx == 0 {
			for col := range row {
				row[col] = bestRow.Sprint(row[col])
			}
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

// newTable creates a borderless, left aligned table writing to w.
func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// shortID abbreviates a run id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
