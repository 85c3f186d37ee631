package grid

import (
	"testing"

	"ballot-converter/internal/election"
)

type cell = election.GridLocation

func loc(side election.Side, column, row int) cell {
	return cell{Side: side, Column: column, Row: row}
}

func TestPairColumnEntriesEqualShape(t *testing.T) {
	grid1 := []cell{loc(election.SideFront, 3, 5), loc(election.SideFront, 3, 2)}
	grid2 := []cell{loc(election.SideFront, 10, 40), loc(election.SideFront, 10, 20)}

	result := PairColumnEntries(grid1, grid2)
	if !result.Success() || len(result.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if len(result.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(result.Pairs))
	}
	if result.Pairs[0].First.Row != 2 || result.Pairs[0].Second.Row != 20 {
		t.Errorf("first pair = %+v, want rows 2 and 20", result.Pairs[0])
	}
}

func TestPairColumnEntriesColumnCountMismatch(t *testing.T) {
	grid1 := []cell{loc(election.SideFront, 1, 1), loc(election.SideFront, 2, 1)}
	grid2 := []cell{loc(election.SideFront, 7, 1)}

	result := PairColumnEntries(grid1, grid2)
	if result.Success() {
		t.Fatal("expected failure")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %v", len(result.Issues), result.Issues)
	}
	issue, ok := result.Issues[0].(ColumnCountMismatch)
	if !ok || issue.ColumnCounts != [2]int{2, 1} {
		t.Fatalf("issue = %#v", result.Issues[0])
	}
	if len(result.Pairs) != 1 || result.Pairs[0].First.Column != 1 {
		t.Errorf("pairs = %+v, want the overlapping first column", result.Pairs)
	}
}

func TestPairColumnEntriesEntryCountMismatch(t *testing.T) {
	grid1 := []cell{loc(election.SideFront, 0, 1), loc(election.SideFront, 0, 2), loc(election.SideFront, 0, 3)}
	grid2 := []cell{loc(election.SideFront, 4, 8), loc(election.SideFront, 4, 9)}

	result := PairColumnEntries(grid1, grid2)
	if len(result.Issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(result.Issues))
	}
	issue, ok := result.Issues[0].(ColumnEntryCountMismatch)
	if !ok || issue.ColumnIndex != 0 || issue.ColumnEntryCounts != [2]int{3, 2} {
		t.Fatalf("issue = %#v", result.Issues[0])
	}
	if len(result.Pairs) != 2 {
		t.Errorf("got %d pairs, want 2", len(result.Pairs))
	}
}

func TestPairColumnEntriesOrdersFrontBeforeBack(t *testing.T) {
	grid1 := []cell{loc(election.SideBack, 2, 1), loc(election.SideFront, 2, 30)}
	grid2 := []Oval{
		{Side: election.SideBack, Column: 2, Row: 5},
		{Side: election.SideFront, Column: 2, Row: 31},
	}

	result := PairColumnEntries(grid1, grid2)
	if !result.Success() {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if result.Pairs[0].First.Side != election.SideFront || result.Pairs[0].Second.Side != election.SideFront {
		t.Errorf("first pair = %+v, want front entries", result.Pairs[0])
	}
	if result.Pairs[1].Second.Row != 5 {
		t.Errorf("second pair = %+v", result.Pairs[1])
	}
}

func TestPairColumnEntriesEmpty(t *testing.T) {
	result := PairColumnEntries([]cell(nil), []Oval(nil))
	if !result.Success() || len(result.Pairs) != 0 {
		t.Errorf("empty grids = %+v", result)
	}
}
