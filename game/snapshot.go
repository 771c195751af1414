package game

import "github.com/wfunc/boardserver/state"

// Snapshot is a copy of a room's state, safe to hand to other goroutines.
type Snapshot struct {
	Members   []Player       `json:"members"`
	Positions map[string]int `json:"positions"`
	Balances  map[string]int `json:"balances"`
	Ownership map[int]string `json:"ownership"`
	Turn      string         `json:"turn,omitempty"`
	Phase     state.Phase    `json:"phase"`
}

// EmptySnapshot is the view of a room that does not exist.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Members:   []Player{},
		Positions: map[string]int{},
		Balances:  map[string]int{},
		Ownership: map[int]string{},
		Phase:     state.PhaseIdle,
	}
}

func (g *Game) Snapshot() Snapshot {
	turn, _ := g.turn.Holder()
	return Snapshot{
		Members:   g.Members(),
		Positions: g.Positions(),
		Balances:  g.Balances(),
		Ownership: g.Ownership(),
		Turn:      turn,
		Phase:     g.turn.Phase(),
	}
}

func (g *Game) Members() []Player {
	out := make([]Player, len(g.members))
	copy(out, g.members)
	return out
}

func (g *Game) Positions() map[string]int {
	out := make(map[string]int, len(g.positions))
	for k, v := range g.positions {
		out[k] = v
	}
	return out
}

func (g *Game) Balances() map[string]int {
	out := make(map[string]int, len(g.balances))
	for k, v := range g.balances {
		out[k] = v
	}
	return out
}

func (g *Game) Ownership() map[int]string {
	out := make(map[int]string, len(g.ownership))
	for k, v := range g.ownership {
		out[k] = v
	}
	return out
}

// Turn returns the current turn-holder.
func (g *Game) Turn() (string, bool) {
	return g.turn.Holder()
}

func (g *Game) Phase() state.Phase {
	return g.turn.Phase()
}
