package board

import (
	"fmt"
	"sort"
	"strings"

	sberr "seabattle/internal/errors"
)

// MaxShipLength is the longest ship a fleet may contain.
const MaxShipLength = 4

// Orientation is the direction a ship extends from its anchor.
type Orientation int

const (
	Horizontal Orientation = iota // extends along +X
	Vertical                      // extends along +Y
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseOrientation accepts "horizontal"/"vertical" and their first
// letters, case-insensitively.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return Horizontal, fmt.Errorf("unknown orientation %q", s)
}

// MarshalText encodes the orientation by name.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an orientation name.
func (o *Orientation) UnmarshalText(b []byte) error {
	v, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Placement positions one ship.
type Placement struct {
	Length      int         `json:"length" yaml:"length"`
	X           int         `json:"x" yaml:"x"`
	Y           int         `json:"y" yaml:"y"`
	Orientation Orientation `json:"orientation" yaml:"orientation"`
}

// Cells returns every coordinate the ship covers, anchor first.
func (p Placement) Cells() []Coord {
	cells := make([]Coord, 0, p.Length)
	for i := 0; i < p.Length; i++ {
		c := Coord{X: p.X, Y: p.Y}
		if p.Orientation == Vertical {
			c.Y += i
		} else {
			c.X += i
		}
		cells = append(cells, c)
	}
	return cells
}

// Layout is a whole fleet's placement on a board.
type Layout struct {
	Ships []Placement `json:"ships" yaml:"ships"`
}

// Validate checks that every ship fits on the board, that no two ships
// overlap or touch (diagonals included), and that the ship lengths
// match fleet exactly.
func (l Layout) Validate(fleet Fleet) error {
	if len(l.Ships) == 0 {
		return invalid("layout has no ships")
	}

	var owner [Size][Size]int
	for i, p := range l.Ships {
		if p.Length < 1 || p.Length > MaxShipLength {
			return invalid("ship %d: length %d outside 1-%d", i, p.Length, MaxShipLength)
		}
		for _, c := range p.Cells() {
			if !c.Valid() {
				return invalid("ship %d: cell %s is off the board", i, c)
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					n := Coord{X: c.X + dx, Y: c.Y + dy}
					if !n.Valid() {
						continue
					}
					if o := owner[n.Y][n.X]; o != 0 && o != i+1 {
						if dx == 0 && dy == 0 {
							return invalid("ship %d overlaps ship %d at %s", i, o-1, c)
						}
						return invalid("ship %d touches ship %d at %s", i, o-1, c)
					}
				}
			}
		}
		for _, c := range p.Cells() {
			owner[c.Y][c.X] = i + 1
		}
	}

	got := Fleet{}
	for _, p := range l.Ships {
		got[p.Length]++
	}
	if !got.Equal(fleet) {
		return invalid("fleet %s does not match required %s", got, fleet)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return sberr.Newf(sberr.InvalidLayout, "place", format, args...)
}

// ── Fleet ────────────────────────────────────────────────────────────

// Fleet is a required composition: ship length → number of ships.
type Fleet map[int]int

// DefaultFleet is the classic composition: one 4, two 3s, three 2s and
// four 1s.
func DefaultFleet() Fleet {
	return Fleet{4: 1, 3: 2, 2: 3, 1: 4}
}

// Equal reports whether both fleets require the same ships.
func (f Fleet) Equal(other Fleet) bool {
	count := 0
	for length, n := range f {
		if n == 0 {
			continue
		}
		if other[length] != n {
			return false
		}
		count++
	}
	for _, n := range other {
		if n != 0 {
			count--
		}
	}
	return count == 0
}

// Ships returns the number of ships in the fleet.
func (f Fleet) Ships() int {
	n := 0
	for _, c := range f {
		n += c
	}
	return n
}

// Cells returns the number of board cells the fleet occupies.
func (f Fleet) Cells() int {
	n := 0
	for length, c := range f {
		n += length * c
	}
	return n
}

// Lengths returns one entry per ship, longest first.
func (f Fleet) Lengths() []int {
	var out []int
	for length, c := range f {
		for i := 0; i < c; i++ {
			out = append(out, length)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Validate checks that the fleet is non-empty and uses legal lengths.
func (f Fleet) Validate() error {
	if f.Ships() == 0 {
		return fmt.Errorf("fleet has no ships")
	}
	for length, c := range f {
		if length < 1 || length > MaxShipLength {
			return fmt.Errorf("ship length %d outside 1-%d", length, MaxShipLength)
		}
		if c < 0 {
			return fmt.Errorf("negative count %d for length %d", c, length)
		}
	}
	// Ships may not touch, so a fleet denser than half the board can
	// never be laid out.
	if f.Cells() > Size*Size/2 {
		return fmt.Errorf("fleet covers %d cells, more than half the board", f.Cells())
	}
	return nil
}

// String lists the fleet longest-first, e.g. "4x1 3x2 2x3 1x4".
func (f Fleet) String() string {
	lengths := make([]int, 0, len(f))
	for length, c := range f {
		if c > 0 {
			lengths = append(lengths, length)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lengths)))
	parts := make([]string, 0, len(lengths))
	for _, length := range lengths {
		parts = append(parts, fmt.Sprintf("%dx%d", length, f[length]))
	}
	if len(parts) == 0 {
		return "empty"
	}
	return strings.Join(parts, " ")
}
