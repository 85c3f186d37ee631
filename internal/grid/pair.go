// Package grid reconciles independently derived grids of ballot targets.
package grid

import (
	"fmt"
	"sort"

	"ballot-converter/internal/election"
)

// Entry is anything located on the timing-mark grid.
type Entry interface {
	GridSide() election.Side
	GridColumn() int
	GridRow() int
}

// IssueKind names a structural mismatch between two grids.
type IssueKind string

const (
	KindColumnCountMismatch      IssueKind = "ColumnCountMismatch"
	KindColumnEntryCountMismatch IssueKind = "ColumnEntryCountMismatch"
)

// Issue is either a ColumnCountMismatch or a ColumnEntryCountMismatch.
type Issue interface {
	Kind() IssueKind
	Message() string
	isPairIssue()
}

// ColumnCountMismatch reports grids with different numbers of columns.
type ColumnCountMismatch struct {
	ColumnCounts [2]int `json:"columnCounts"`
}

func (ColumnCountMismatch) Kind() IssueKind { return KindColumnCountMismatch }
func (ColumnCountMismatch) isPairIssue() {}

func (i ColumnCountMismatch) Message() string {
	return fmt.Sprintf("Grids have different number of columns: %d vs %d", i.ColumnCounts[0], i.ColumnCounts[1])
}

// ColumnEntryCountMismatch reports a column pair whose entry counts differ.
type ColumnEntryCountMismatch struct {
	ColumnIndex       int    `json:"columnIndex"`
	ColumnEntryCounts [2]int `json:"columnEntryCounts"`
}

func (ColumnEntryCountMismatch) Kind() IssueKind { return KindColumnEntryCountMismatch }
func (ColumnEntryCountMismatch) isPairIssue() {}

func (i ColumnEntryCountMismatch) Message() string {
	return fmt.Sprintf("Columns at index %d disagree on entry count: grid #1 has %d entries, but grid #2 has %d entries",
		i.ColumnIndex, i.ColumnEntryCounts[0], i.ColumnEntryCounts[1])
}

// Pair is one entry from each grid judged to be the same target.
type Pair[T, U Entry] struct {
	First  T
	Second U
}

// Result holds the pairs found and every mismatch encountered. When Issues
// is non-empty the pairs are partial but still usable for diagnostics.
type Result[T, U Entry] struct {
	Pairs  []Pair[T, U]
	Issues []Issue
}

// Success reports whether the grids paired without any mismatch.
func (r Result[T, U]) Success() bool {
	return len(r.Issues) == 0
}

// PairColumnEntries pairs entries by relative column and row, ignoring the
// absolute coordinates. Columns are matched in ascending order and entries
// within a column by side (front first) then row. Mismatched counts are
// reported and only the overlapping prefix is paired.
func PairColumnEntries[T, U Entry](grid1 []T, grid2 []U) Result[T, U] {
	columns1 := groupColumns(grid1)
	columns2 := groupColumns(grid2)

	var result Result[T, U]
	if len(columns1) != len(columns2) {
		result.Issues = append(result.Issues, ColumnCountMismatch{
			ColumnCounts: [2]int{len(columns1), len(columns2)},
		})
	}

	for ci := 0; ci < min(len(columns1), len(columns2)); ci++ {
		column1, column2 := columns1[ci], columns2[ci]
		if len(column1) != len(column2) {
			result.Issues = append(result.Issues, ColumnEntryCountMismatch{
				ColumnIndex:       ci,
				ColumnEntryCounts: [2]int{len(column1), len(column2)},
			})
		}
		for ri := 0; ri < min(len(column1), len(column2)); ri++ {
			result.Pairs = append(result.Pairs, Pair[T, U]{First: column1[ri], Second: column2[ri]})
		}
	}
	return result
}

// groupColumns groups entries by column, ordering columns ascending and
// each column's entries by side then row.
func groupColumns[T Entry](entries []T) [][]T {
	byColumn := make(map[int][]T)
	for _, e := range entries {
		byColumn[e.GridColumn()] = append(byColumn[e.GridColumn()], e)
	}

	keys := make([]int, 0, len(byColumn))
	for k := range byColumn {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	columns := make([][]T, len(keys))
	for i, k := range keys {
		column := byColumn[k]
		sort.SliceStable(column, func(a, b int) bool {
			return compareEntries(column[a], column[b]) < 0
		})
		columns[i] = column
	}
	return columns
}

func compareEntries(a, b Entry) int {
	if a.GridSide() != b.GridSide() {
		if a.GridSide().Before(b.GridSide()) {
			return -1
		}
		return 1
	}
	return a.GridRow() - b.GridRow()
}
