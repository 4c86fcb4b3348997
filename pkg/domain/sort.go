package domain

import (
	"sort"
	"strings"
)

// SortKey selects the study attribute a comparator orders by. Any other
// value is treated as a covariate name.
type SortKey string

// Built-in sort keys; covariate names act as keys directly.
const (
	SortByName SortKey = "name"
	SortByYear SortKey = "year"
)

// CompareStudies returns a comparator producing the final study ordering for
// the key: ascending when reverse is false, descending otherwise. Studies
// with an empty value for the key sort last regardless of direction; when
// both compared values are empty the tie breaks on study name, ascending or
// descending per the reverse flag. The comparator is suitable for
// slices.SortFunc.
func (d *Dataset) CompareStudies(key SortKey, reverse bool) func(a, b *Study) int {
	return func(a, b *Study) int {
		aEmpty, bEmpty, cmp := compareKey(a, b, key)
		if aEmpty && bEmpty {
			c := strings.Compare(a.Name, b.Name)
			if reverse {
				c = -c
			}
			return c
		}
		if aEmpty {
			return 1
		}
		if bEmpty {
			return -1
		}
		if reverse {
			cmp = -cmp
		}
		return cmp
	}
}

// SortStudies orders the dataset's study list in place using CompareStudies.
func (d *Dataset) SortStudies(key SortKey, reverse bool) {
	cmp := d.CompareStudies(key, reverse)
	sort.SliceStable(d.Studies, func(i, j int) bool {
		return cmp(d.Studies[i], d.Studies[j]) < 0
	})
}

// SortedStudies returns a sorted copy of the study list, leaving the
// dataset's own ordering untouched.
func (d *Dataset) SortedStudies(key SortKey, reverse bool) []*Study {
	out := append([]*Study(nil), d.Studies...)
	cmp := d.CompareStudies(key, reverse)
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j]) < 0
	})
	return out
}

// compareKey extracts the keyed values of two studies and reports their
// emptiness along with the raw ascending comparison.
func compareKey(a, b *Study, key SortKey) (aEmpty, bEmpty bool, cmp int) {
	switch key {
	case SortByName:
		return a.Name == "", b.Name == "", strings.Compare(a.Name, b.Name)
	case SortByYear:
		aEmpty = a.Year == nil
		bEmpty = b.Year == nil
		if aEmpty || bEmpty {
			return aEmpty, bEmpty, 0
		}
		switch {
		case *a.Year < *b.Year:
			cmp = -1
		case *a.Year > *b.Year:
			cmp = 1
		}
		return false, false, cmp
	default:
		va := a.CovariateValueOf(string(key))
		vb := b.CovariateValueOf(string(key))
		return va.IsEmpty(), vb.IsEmpty(), va.Compare(vb)
	}
}
