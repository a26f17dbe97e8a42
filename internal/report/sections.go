package report

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

type section struct {
	title string
	table table.Writer
}

func newTable(header ...interface{}) table.Writer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	t := table.NewWriter()
	t.SetStyle(style)
	t.AppendHeader(table.Row(header))
	return t
}

// sections builds the report tables for one profile in display order
func sections(p profiling.DatasetProfile) []section {
	out := []section{
		{title: "Schema", table: schemaTable(p)},
		{title: "Missing values", table: missingTable(p)},
	}
	if len(p.Dates) > 0 {
		out = append(out, section{title: "Date coverage", table: datesTable(p)})
	}
	if len(p.Numeric) > 0 {
		out = append(out, section{title: "Numeric summary", table: numericTable(p)})
	}
	if f := p.Frequency; f != nil {
		out = append(out, section{
			title: fmt.Sprintf("Top %d %s", f.Limit, f.Column),
			table: frequencyTable(*f),
		})
	}
	if pts := p.Points; pts != nil {
		out = append(out, section{title: pointsTitle(*pts), table: pointsTable(*pts)})
	}
	return out
}

func schemaTable(p profiling.DatasetProfile) table.Writer {
	t := newTable("Column", "Type", "Non-missing", "Distinct")
	for _, c := range p.Schema {
		t.AppendRow(table.Row{c.Name, string(c.InferredType), c.NonMissing, c.Distinct})
	}
	return t
}

func missingTable(p profiling.DatasetProfile) table.Writer {
	t := newTable("Column", "Missing %")
	for _, m := range p.Missing {
		t.AppendRow(table.Row{m.Column, m.Percent.String()})
	}
	return t
}

func datesTable(p profiling.DatasetProfile) table.Writer {
	t := newTable("Column", "Min", "Max", "Dates")
	for _, d := range p.Dates {
		lo, hi := "n/a", "n/a"
		if d.HasValues() {
			lo, hi = dataset.FormatDate(*d.Min), dataset.FormatDate(*d.Max)
		}
		t.AppendRow(table.Row{d.Column, lo, hi, d.Count})
	}
	return t
}

func numericTable(p profiling.DatasetProfile) table.Writer {
	t := newTable("Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max", "Skew")
	for _, n := range p.Numeric {
		t.AppendRow(table.Row{
			n.Column, n.Count,
			num(n.Mean), num(n.StdDev), num(n.Min), num(n.Q25),
			num(n.Median), num(n.Q75), num(n.Max), num(n.Skewness),
		})
	}
	return t
}

func frequencyTable(f profiling.FrequencyTable) table.Writer {
	t := newTable("#", f.Column, "Count")
	for i, e := range f.Entries {
		t.AppendRow(table.Row{i + 1, e.Label, e.Count})
	}
	t.AppendFooter(table.Row{"", "Counted rows", f.Counted})
	return t
}

func pointsTitle(s profiling.PointSet) string {
	if s.Year == 0 {
		return "Latest-year points (no dates)"
	}
	return fmt.Sprintf("Latest-year points (%d)", s.Year)
}

func pointsTable(s profiling.PointSet) table.Writer {
	t := newTable("Category", "Points")
	if len(s.Groups) == 0 {
		t.AppendRow(table.Row{"(all)", len(s.Points)})
	}
	for _, g := range s.Groups {
		label := g.Category
		if label == "" {
			label = "(none)"
		}
		t.AppendRow(table.Row{label, len(g.Points)})
	}
	t.AppendFooter(table.Row{"Dropped without coordinates", s.Dropped})
	return t
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
