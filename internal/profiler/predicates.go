package profiler

import (
	"strings"

	"civicprofile/domain/dataset"
	"civicprofile/domain/profiling"
)

// ExcludeLabels excludes rows whose label in column equals one of labels
func ExcludeLabels(column string, labels ...string) profiling.RowPredicate {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return func(row dataset.Row) bool {
		v := row.Get(column)
		if v.IsMissing() {
			return false
		}
		_, hit := set[v.Label()]
		return hit
	}
}

// LabelContains matches rows whose label in column contains keyword. Wrap it
// in Not to keep only matching rows.
func LabelContains(column, keyword string, caseSensitive bool) profiling.RowPredicate {
	if !caseSensitive {
		keyword = strings.ToLower(keyword)
	}
	return func(row dataset.Row) bool {
		v := row.Get(column)
		if v.IsMissing() {
			return false
		}
		label := v.Label()
		if !caseSensitive {
			label = strings.ToLower(label)
		}
		return strings.Contains(label, keyword)
	}
}

// Not inverts a predicate
func Not(p profiling.RowPredicate) profiling.RowPredicate {
	return func(row dataset.Row) bool {
		return !p(row)
	}
}

// AnyOf matches when any non-nil predicate matches. With no predicates it
// returns nil, meaning no exclusion.
func AnyOf(preds ...profiling.RowPredicate) profiling.RowPredicate {
	var active []profiling.RowPredicate
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(row dataset.Row) bool {
		for _, p := range active {
			if p(row) {
				return true
			}
		}
		return false
	}
}
