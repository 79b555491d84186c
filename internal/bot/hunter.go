package bot

import "seabattle/internal/board"

// hunter chooses where to shoot.  It sweeps the board in a checkerboard
// pattern, and after a hit it works through the hit cell's neighbours
// until the ship sinks.  Cells next to a sunk ship are never shot,
// since ships may not touch.
type hunter struct {
	fired   [board.Size][board.Size]bool
	blocked [board.Size][board.Size]bool
	targets []board.Coord
	order   []board.Coord
	next    int
}

func newHunter() *hunter {
	h := &hunter{order: make([]board.Coord, 0, board.Size*board.Size)}
	for pass := 0; pass < 2; pass++ {
		for y := 0; y < board.Size; y++ {
			for x := 0; x < board.Size; x++ {
				if (x+y)%2 == pass {
					h.order = append(h.order, board.Coord{X: x, Y: y})
				}
			}
		}
	}
	return h
}

func (h *hunter) open(c board.Coord) bool {
	return c.Valid() && !h.fired[c.Y][c.X] && !h.blocked[c.Y][c.X]
}

// Next returns the next cell to shoot.  ok is false when no useful cell
// is left.
func (h *hunter) Next() (c board.Coord, ok bool) {
	for len(h.targets) > 0 {
		c = h.targets[len(h.targets)-1]
		h.targets = h.targets[:len(h.targets)-1]
		if h.open(c) {
			return c, true
		}
	}
	for h.next < len(h.order) {
		c = h.order[h.next]
		h.next++
		if h.open(c) {
			return c, true
		}
	}
	return board.Coord{}, false
}

// Record notes the outcome of a shot at c.
func (h *hunter) Record(c board.Coord, o board.Outcome) {
	if !c.Valid() {
		return
	}
	h.fired[c.Y][c.X] = true
	if o != board.Hit {
		return
	}
	for _, d := range []board.Coord{{X: 0, Y: -1}, {X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}} {
		if n := (board.Coord{X: c.X + d.X, Y: c.Y + d.Y}); h.open(n) {
			h.targets = append(h.targets, n)
		}
	}
}

// Sunk blocks every cell around a sunk ship.
func (h *hunter) Sunk(cells []board.Coord) {
	for _, c := range cells {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if n := (board.Coord{X: c.X + dx, Y: c.Y + dy}); n.Valid() {
					h.blocked[n.Y][n.X] = true
				}
			}
		}
	}
}
