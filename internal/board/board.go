// Package board implements the 10×10 battleship grid: fleet placement,
// shot resolution, sunk detection and the masked view an opponent is
// allowed to see.
//
// A Board is not safe for concurrent use.  It is owned by exactly one
// game session, and the session serialises every access.
package board

import (
	"fmt"

	sberr "seabattle/internal/errors"
)

// Size is the width and height of a board.
const Size = 10

// Coord addresses a cell.  X is the column and Y the row, both 0-based.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Valid reports whether c lies on the board.
func (c Coord) Valid() bool {
	return c.X >= 0 && c.X < Size && c.Y >= 0 && c.Y < Size
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// ── Cells ────────────────────────────────────────────────────────────

// Cell is the state of one grid square.
type Cell uint8

const (
	CellEmpty   Cell = iota
	CellShip         // unfired ship segment
	CellHit          // fired, held a ship
	CellMiss         // fired, held nothing
	CellUnknown      // only appears in masked views
)

var cellNames = [...]string{"empty", "ship", "hit", "miss", "unknown"}

func (c Cell) String() string {
	if int(c) < len(cellNames) {
		return cellNames[c]
	}
	return fmt.Sprintf("cell(%d)", int(c))
}

// Resolved reports whether the cell has been fired at.
func (c Cell) Resolved() bool { return c == CellHit || c == CellMiss }

// MarshalText encodes the cell by name.
func (c Cell) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText decodes a cell name.
func (c *Cell) UnmarshalText(b []byte) error {
	for i, name := range cellNames {
		if name == string(b) {
			*c = Cell(i)
			return nil
		}
	}
	return fmt.Errorf("unknown cell %q", b)
}

// Grid is a row-major copy of a board: Grid[y][x].
type Grid [Size][Size]Cell

// ── Outcomes ─────────────────────────────────────────────────────────

// Outcome is the result of a single shot.
type Outcome int

const (
	AlreadyFired Outcome = iota
	Hit
	Miss
)

var outcomeNames = [...]string{"already_fired", "hit", "miss"}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for i, name := range outcomeNames {
		if name == string(b) {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

// ── Board ────────────────────────────────────────────────────────────

// Board is one player's grid.
type Board struct {
	cells     Grid
	ships     [][]Coord
	shipAt    [Size][Size]int // ship index + 1; 0 means no ship
	remaining int             // ship cells not yet hit
	placed    bool
}

// New returns an empty board.
func New() *Board { return &Board{} }

// Placed reports whether a layout has been accepted.
func (b *Board) Placed() bool { return b.placed }

// Place validates layout against fleet and marks every covered cell as
// a ship.  Nothing is written unless the whole layout is valid.
func (b *Board) Place(layout Layout, fleet Fleet) error {
	if b.placed {
		return sberr.Newf(sberr.InvalidLayout, "place", "a layout has already been placed")
	}
	if err := layout.Validate(fleet); err != nil {
		return err
	}

	for i, p := range layout.Ships {
		cells := p.Cells()
		for _, c := range cells {
			b.cells[c.Y][c.X] = CellShip
			b.shipAt[c.Y][c.X] = i + 1
		}
		b.ships = append(b.ships, cells)
		b.remaining += len(cells)
	}
	b.placed = true
	return nil
}

// Fire resolves a shot at c.  A cell resolves at most once; every later
// shot at it returns AlreadyFired and changes nothing.
func (b *Board) Fire(c Coord) (Outcome, error) {
	if !c.Valid() {
		return AlreadyFired, sberr.Newf(sberr.OutOfRange, "fire", "%s is outside 0-%d", c, Size-1)
	}

	switch b.cells[c.Y][c.X] {
	case CellHit, CellMiss:
		return AlreadyFired, nil
	case CellShip:
		b.cells[c.Y][c.X] = CellHit
		b.remaining--
		return Hit, nil
	default:
		b.cells[c.Y][c.X] = CellMiss
		return Miss, nil
	}
}

// SunkShip returns the cells of the ship at c when every one of them
// has been hit.
func (b *Board) SunkShip(c Coord) ([]Coord, bool) {
	if !c.Valid() {
		return nil, false
	}
	idx := b.shipAt[c.Y][c.X]
	if idx == 0 {
		return nil, false
	}
	ship := b.ships[idx-1]
	for _, sc := range ship {
		if b.cells[sc.Y][sc.X] != CellHit {
			return nil, false
		}
	}
	out := make([]Coord, len(ship))
	copy(out, ship)
	return out, true
}

// AllSunk reports whether every ship cell has been hit.
func (b *Board) AllSunk() bool { return b.remaining == 0 }

// Hits returns the number of ship cells hit so far.
func (b *Board) Hits() int {
	n := 0
	for _, ship := range b.ships {
		n += len(ship)
	}
	return n - b.remaining
}

// At returns the true state of c.
func (b *Board) At(c Coord) Cell {
	if !c.Valid() {
		return CellUnknown
	}
	return b.cells[c.Y][c.X]
}

// View returns a full copy of the board, as its owner sees it.
func (b *Board) View() Grid { return b.cells }

// MaskedView returns a copy in which only fired cells reveal their
// content.  This is the only board state an opponent may observe.
func (b *Board) MaskedView() Grid {
	var g Grid
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if cell := b.cells[y][x]; cell.Resolved() {
				g[y][x] = cell
			} else {
				g[y][x] = CellUnknown
			}
		}
	}
	return g
}
