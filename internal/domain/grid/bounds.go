package grid

const (
	DefaultRows = 50
	DefaultCols = 50
)

// Bounds is the fixed rectangle [0,Rows) x [0,Cols).
type Bounds struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

func DefaultBounds() Bounds {
	return Bounds{Rows: DefaultRows, Cols: DefaultCols}
}

func (b Bounds) Contains(row, col int) bool {
	return row >= 0 && col >= 0 && row < b.Rows && col < b.Cols
}

func (b Bounds) ContainsKey(k Key) bool {
	r, c, ok := ParseKey(k)
	return ok && b.Contains(r, c)
}

func (b Bounds) FootprintFits(row, col, width, height int) bool {
	if width < 1 || height < 1 {
		return false
	}
	return b.Contains(row, col) && b.Contains(row+height-1, col+width-1)
}

func (b Bounds) Center() Point {
	return Point{Row: b.Rows / 2, Col: b.Cols / 2}
}
