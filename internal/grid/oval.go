package grid

import (
	"ballot-converter/internal/election"
	"ballot-converter/pkg/geometry"
)

// Oval is a printed target found in a template image, located both in
// pixels and on the timing-mark grid.
type Oval struct {
	Side   election.Side `json:"side"`
	Column int           `json:"column"`
	Row    int           `json:"row"`
	Bounds geometry.Rect `json:"bounds"`
	Score  float64       `json:"score"`
}

func (o Oval) GridSide() election.Side { return o.Side }
func (o Oval) GridColumn() int { return o.Column }
func (o Oval) GridRow() int { return o.Row }

// Location returns the oval's grid cell.
func (o Oval) Location() election.GridLocation {
	return election.GridLocation{Side: o.Side, Column: o.Column, Row: o.Row}
}
