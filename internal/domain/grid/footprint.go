package grid

// Footprint lists the tiles of a width x height rectangle anchored at (row, col),
// row-major.
func Footprint(row, col, width, height int) []Point {
	if width < 1 || height < 1 {
		return nil
	}
	out := make([]Point, 0, width*height)
	for r := row; r < row+height; r++ {
		for c := col; c < col+width; c++ {
			out = append(out, Point{Row: r, Col: c})
		}
	}
	return out
}

// Brush lists the n x n cells a sized tap covers. Odd sizes are centred on the
// tapped tile; even sizes put it just below-right of the centre.
func Brush(row, col, n int) []Point {
	if n < 1 {
		n = 1
	}
	start := (n - 1) / 2
	return Footprint(row-start, col-start, n, n)
}

// Box lists every in-bounds tile within radius of the footprint (Chebyshev distance).
func (b Bounds) Box(row, col, width, height, radius int) []Point {
	out := make([]Point, 0)
	for r := row - radius; r <= row+height-1+radius; r++ {
		for c := col - radius; c <= col+width-1+radius; c++ {
			if b.Contains(r, c) {
				out = append(out, Point{Row: r, Col: c})
			}
		}
	}
	return out
}

func WithinBox(p Point, row, col, width, height, radius int) bool {
	return p.Row >= row-radius && p.Row <= row+height-1+radius &&
		p.Col >= col-radius && p.Col <= col+width-1+radius
}
