package farm

import (
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

// State is everything one player session owns.
type State struct {
	World    *World
	Player   *Player
	Progress *Progress
}

// NewState builds a fresh session with a 2x2 farmland block at the grid centre.
func NewState(cat *catalog.Catalog, bounds grid.Bounds, money float64) *State {
	s := &State{
		World:    NewWorld(bounds),
		Player:   NewPlayer(cat, money),
		Progress: NewProgress(cat),
	}
	c := bounds.Center()
	for _, p := range grid.Footprint(c.Row-1, c.Col-1, 2, 2) {
		if s.World.AddFarmland(p.Row, p.Col) == nil {
			s.Player.FarmlandPlaced++
		}
	}
	return s
}

func (s *State) Clone() *State {
	return &State{
		World:    s.World.Clone(),
		Player:   s.Player.Clone(),
		Progress: s.Progress.Clone(),
	}
}

// ReconcileFarmland makes FarmlandPlaced agree with the filled set.
func (s *State) ReconcileFarmland() bool {
	n := s.World.FarmlandCount()
	if s.Player.FarmlandPlaced == n {
		return false
	}
	s.Player.FarmlandPlaced = n
	return true
}
