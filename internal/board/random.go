package board

import (
	"fmt"
	"math/rand"
)

const randomLayoutAttempts = 200

// RandomLayout returns a valid layout for fleet, placing ships longest
// first at random positions.  It restarts from an empty board when a
// ship cannot be placed, and gives up after a bounded number of tries.
func RandomLayout(rng *rand.Rand, fleet Fleet) (Layout, error) {
	if err := fleet.Validate(); err != nil {
		return Layout{}, err
	}
	lengths := fleet.Lengths()

	for attempt := 0; attempt < randomLayoutAttempts; attempt++ {
		if l, ok := tryRandomLayout(rng, lengths); ok {
			return l, nil
		}
	}
	return Layout{}, fmt.Errorf("could not place fleet %s after %d attempts", fleet, randomLayoutAttempts)
}

func tryRandomLayout(rng *rand.Rand, lengths []int) (Layout, bool) {
	var blocked [Size][Size]bool
	l := Layout{Ships: make([]Placement, 0, len(lengths))}

	for _, length := range lengths {
		placed := false
		for try := 0; try < 100 && !placed; try++ {
			p := Placement{Length: length, Orientation: Orientation(rng.Intn(2))}
			if p.Orientation == Vertical {
				p.X, p.Y = rng.Intn(Size), rng.Intn(Size-length+1)
			} else {
				p.X, p.Y = rng.Intn(Size-length+1), rng.Intn(Size)
			}
			cells := p.Cells()
			free := true
			for _, c := range cells {
				if blocked[c.Y][c.X] {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			for _, c := range cells {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if n := (Coord{X: c.X + dx, Y: c.Y + dy}); n.Valid() {
							blocked[n.Y][n.X] = true
						}
					}
				}
			}
			l.Ships = append(l.Ships, p)
			placed = true
		}
		if !placed {
			return Layout{}, false
		}
	}
	return l, true
}
