package grid

import (
	"strconv"
	"strings"
)

// Key is the canonical "row,col" identifier of a tile.
type Key string

type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func KeyOf(row, col int) Key {
	return Key(strconv.Itoa(row) + "," + strconv.Itoa(col))
}

func (p Point) Key() Key {
	return KeyOf(p.Row, p.Col)
}

func (k Key) String() string {
	return string(k)
}

// ParseKey accepts only the canonical form produced by KeyOf.
func ParseKey(k Key) (row, col int, ok bool) {
	rowRaw, colRaw, found := strings.Cut(string(k), ",")
	if !found || strings.Contains(colRaw, ",") {
		return 0, 0, false
	}
	r, err := strconv.Atoi(rowRaw)
	if err != nil {
		return 0, 0, false
	}
	c, err := strconv.Atoi(colRaw)
	if err != nil {
		return 0, 0, false
	}
	if KeyOf(r, c) != k {
		return 0, 0, false
	}
	return r, c, true
}

func (k Key) Point() (Point, bool) {
	r, c, ok := ParseKey(k)
	return Point{Row: r, Col: c}, ok
}
