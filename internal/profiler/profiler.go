package profiler

import (
	"math"
	"sort"

	"civicprofile/domain/core"
	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

// MissingRatio returns missing/rows for one column. It fails with a schema
// error for an unknown column and with core.ErrEmptyInput for zero rows.
func MissingRatio(ds *dataset.Dataset, column string) (float64, error) {
	col, err := ds.Column(column)
	if err != nil {
		return 0, err
	}
	if ds.RowCount() == 0 {
		return 0, core.ErrEmptyInput
	}
	return float64(col.MissingCount()) / float64(ds.RowCount()), nil
}

// MissingTable returns the missing percentage of every column in dataset
// order, rounded to two decimals. A dataset without rows yields the undefined
// sentinel for every column.
func MissingTable(ds *dataset.Dataset) []profiling.MissingEntry {
	entries := make([]profiling.MissingEntry, 0, ds.ColumnCount())
	for _, name := range ds.ColumnNames() {
		entry := profiling.MissingEntry{Column: name, Percent: profiling.Undefined()}
		if ratio, err := MissingRatio(ds, name); err == nil {
			entry.Percent = profiling.Defined(roundTo(ratio*100, 2))
		}
		entries = append(entries, entry)
	}
	return entries
}

// Schema infers a type label for every column. Columns whose non-missing
// values share one kind get that kind, integer/float mixes widen to float,
// anything else (including all-missing columns) is text.
func Schema(ds *dataset.Dataset) []profiling.ColumnProfile {
	profiles := make([]profiling.ColumnProfile, 0, ds.ColumnCount())
	for _, col := range ds.Columns() {
		p := profiling.ColumnProfile{
			Name:         col.Name(),
			InferredType: inferType(col),
			NonMissing:   col.Len() - col.MissingCount(),
			Distinct:     distinctCount(col),
			MissingRatio: profiling.Undefined(),
		}
		if ds.RowCount() > 0 {
			p.MissingRatio = profiling.Defined(float64(col.MissingCount()) / float64(ds.RowCount()))
		}
		profiles = append(profiles, p)
	}
	return profiles
}

func inferType(col dataset.Column) profiling.InferredType {
	seen := make(map[dataset.Kind]bool)
	for i := 0; i < col.Len(); i++ {
		if v := col.Value(i); !v.IsMissing() {
			seen[v.Kind()] = true
		}
	}

	switch {
	case len(seen) == 1:
		for k := range seen {
			return kindToType(k)
		}
	case len(seen) == 2 && seen[dataset.KindInteger] && seen[dataset.KindFloat]:
		return profiling.TypeFloat
	}
	return profiling.TypeText
}

func kindToType(k dataset.Kind) profiling.InferredType {
	switch k {
	case dataset.KindInteger:
		return profiling.TypeInteger
	case dataset.KindFloat:
		return profiling.TypeFloat
	case dataset.KindDate:
		return profiling.TypeDate
	case dataset.KindBoolean:
		return profiling.TypeBoolean
	}
	return profiling.TypeText
}

// distinctCount groups by label, the same key TopNFrequency counts by
func distinctCount(col dataset.Column) int {
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v.IsMissing() {
			continue
		}
		seen[v.Label()] = struct{}{}
	}
	return len(seen)
}

// DateCoverage finds the earliest and latest date in each named column.
// Columns without any date value report absent bounds; unknown columns fail
// with a schema error. Values are compared as loaded, nothing is parsed here.
func DateCoverage(ds *dataset.Dataset, dateColumns []string) ([]profiling.DateRange, error) {
	ranges := make([]profiling.DateRange, 0, len(dateColumns))
	for _, name := range dateColumns {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}

		r := profiling.DateRange{Column: name}
		for i := 0; i < col.Len(); i++ {
			t, ok := col.Value(i).AsDate()
			if !ok {
				continue
			}
			r.Count++
			if r.Min == nil || t.Before(*r.Min) {
				lo := t
				r.Min = &lo
			}
			if r.Max == nil || t.After(*r.Max) {
				hi := t
				r.Max = &hi
			}
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// TopNFrequency counts category labels in column and returns the n most
// frequent, count descending. Rows with a missing category or matching
// exclude are skipped. Equal counts keep first-encountered order.
func TopNFrequency(ds *dataset.Dataset, column string, n int, exclude profiling.RowPredicate) (profiling.FrequencyTable, error) {
	if n <= 0 {
		return profiling.FrequencyTable{}, core.NewInvalidInputError("n", "must be positive")
	}
	col, err := ds.Column(column)
	if err != nil {
		return profiling.FrequencyTable{}, err
	}

	table := profiling.FrequencyTable{Column: column, Limit: n}
	positions := make(map[string]int)
	counts := make([]profiling.ValueCount, 0)

	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v.IsMissing() {
			continue
		}
		if exclude != nil && exclude(ds.Row(i)) {
			continue
		}

		label := v.Label()
		pos, ok := positions[label]
		if !ok {
			pos = len(counts)
			positions[label] = pos
			counts = append(counts, profiling.ValueCount{Label: label})
		}
		counts[pos].Count++
		table.Counted++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	table.Entries = counts
	return table, nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
