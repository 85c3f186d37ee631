package election

import (
	"encoding/json"
	"fmt"
)

// GridLocation is a (side, column, row) cell on the timing-mark lattice.
type GridLocation struct {
	Side   Side `json:"side"`
	Column int  `json:"column"`
	Row    int  `json:"row"`
}

// GridSide, GridColumn and GridRow let locations be paired by package grid.
func (l GridLocation) GridSide() Side { return l.Side }
func (l GridLocation) GridColumn() int { return l.Column }
func (l GridLocation) GridRow() int { return l.Row }

// GridPosition is either an OptionPosition or a WriteInPosition.
type GridPosition interface {
	Location() GridLocation
	Contest() ContestID
	GridSide() Side
	GridColumn() int
	GridRow() int
	isGridPosition()
}

// OptionPosition binds a named contest option to a grid cell.
type OptionPosition struct {
	GridLocation
	ContestID ContestID   `json:"contestId"`
	OptionID  CandidateID `json:"optionId"`
}

func (p OptionPosition) Location() GridLocation { return p.GridLocation }
func (p OptionPosition) Contest() ContestID { return p.ContestID }
func (OptionPosition) isGridPosition() {}

// MarshalJSON adds the "option" type discriminator.
func (p OptionPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string      `json:"type"`
		Side      Side        `json:"side"`
		Column    int         `json:"column"`
		Row       int         `json:"row"`
		ContestID ContestID   `json:"contestId"`
		OptionID  CandidateID `json:"optionId"`
	}{"option", p.Side, p.Column, p.Row, p.ContestID, p.OptionID})
}

// WriteInPosition binds a contest's write-in slot to a grid cell.
type WriteInPosition struct {
	GridLocation
	ContestID    ContestID `json:"contestId"`
	WriteInIndex int       `json:"writeInIndex"`
}

func (p WriteInPosition) Location() GridLocation { return p.GridLocation }
func (p WriteInPosition) Contest() ContestID { return p.ContestID }
func (WriteInPosition) isGridPosition() {}

// MarshalJSON adds the "write-in" type discriminator.
func (p WriteInPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string    `json:"type"`
		Side         Side      `json:"side"`
		Column       int       `json:"column"`
		Row          int       `json:"row"`
		ContestID    ContestID `json:"contestId"`
		WriteInIndex int       `json:"writeInIndex"`
	}{"write-in", p.Side, p.Column, p.Row, p.ContestID, p.WriteInIndex})
}

// Relocate returns a copy of p bound to loc, keeping its contest identity.
func Relocate(p GridPosition, loc GridLocation) GridPosition {
	switch p := p.(type) {
	case OptionPosition:
		p.GridLocation = loc
		return p
	case WriteInPosition:
		p.GridLocation = loc
		return p
	default:
		panic(fmt.Sprintf("election: unhandled grid position %T", p))
	}
}
