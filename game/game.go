// Package game holds the rules of one room: membership, positions, balances,
// tile ownership and the turn. A Game is not safe for concurrent use; the
// room goroutine that owns it serializes every call.
package game

import (
	"github.com/wfunc/boardserver/board"
	"github.com/wfunc/boardserver/dice"
	"github.com/wfunc/boardserver/state"
)

// Player is a room member. ID is the connection id.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rules configures the economy and how much the server trusts clients.
type Rules struct {
	StartingBalance int
	PassGoBonus     int
	// StrictTurns makes the server derive turn order itself and only accept
	// rolls and hand-overs from the player they concern.
	StrictTurns bool
	// RotateOnLeave passes a departing holder's turn to the member after
	// them instead of the first member.
	RotateOnLeave bool
	// StrictPurchases only sells a tile to the sender, and only while the
	// sender stands on it.
	StrictPurchases bool
	// ReleaseOrphanedTiles returns a leaving player's tiles to the market.
	ReleaseOrphanedTiles bool
}

func DefaultRules() Rules {
	return Rules{
		StartingBalance: 1500,
		PassGoBonus:     200,
		StrictTurns:     true,
	}
}

type Game struct {
	board     *board.Board
	rules     Rules
	members   []Player
	positions map[string]int
	balances  map[string]int
	ownership map[int]string
	turn      *state.TurnManager
}

func New(b *board.Board, rules Rules) *Game {
	return &Game{
		board:     b,
		rules:     rules,
		positions: make(map[string]int),
		balances:  make(map[string]int),
		ownership: make(map[int]string),
		turn:      state.NewTurnManager(),
	}
}

// Move describes the outcome of one roll.
type Move struct {
	PlayerID string `json:"playerId"`
	Dice     []int  `json:"dice,omitempty"`
	Rolled   int    `json:"rolled"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	PassedGo bool   `json:"passedGo"`
	Bonus    int    `json:"bonus,omitempty"`
	Rent     int    `json:"rent,omitempty"`
	RentTo   string `json:"rentTo,omitempty"`
}

type Purchase struct {
	Tile    int
	BuyerID string
	Price   int
}

// Departure describes what Remove changed.
type Departure struct {
	WasMember bool
	HeldTurn  bool
	// NextTurn is the new holder when HeldTurn and members remain.
	NextTurn string
	// Released lists tiles returned to the market.
	Released []int
}

func (g *Game) Rules() Rules {
	return g.rules
}

func (g *Game) IsMember(id string) bool {
	return g.indexOf(id) >= 0
}

func (g *Game) indexOf(id string) int {
	for i, p := range g.members {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) Empty() bool {
	return len(g.members) == 0
}

func (g *Game) Len() int {
	return len(g.members)
}

func (g *Game) order() []string {
	ids := make([]string, len(g.members))
	for i, p := range g.members {
		ids[i] = p.ID
	}
	return ids
}

// Join appends p unless a member with the same id exists, and initialises
// position and balance if absent. It reports whether p was appended.
func (g *Game) Join(p Player) bool {
	added := false
	if !g.IsMember(p.ID) {
		g.members = append(g.members, p)
		added = true
	}
	if _, ok := g.positions[p.ID]; !ok {
		g.positions[p.ID] = 0
	}
	if _, ok := g.balances[p.ID]; !ok {
		g.balances[p.ID] = g.rules.StartingBalance
	}
	return added
}

// EnsureTurn gives the turn to the first member when nobody holds it.
func (g *Game) EnsureTurn() (string, bool) {
	if holder, ok := g.turn.Holder(); ok {
		return holder, false
	}
	if len(g.members) == 0 {
		return "", false
	}
	g.turn.Assign(g.members[0].ID)
	return g.members[0].ID, true
}

// Remove drops id from members, positions and balances. Ownership is kept
// unless the rules release orphaned tiles. When the departing player held
// the turn it passes to the first remaining member, or to the rotation
// successor with RotateOnLeave.
func (g *Game) Remove(id string) Departure {
	idx := g.indexOf(id)
	if idx < 0 {
		return Departure{}
	}

	holder, _ := g.turn.Holder()
	d := Departure{WasMember: true, HeldTurn: holder == id}
	order := g.order()

	g.members = append(g.members[:idx:idx], g.members[idx+1:]...)
	delete(g.positions, id)
	delete(g.balances, id)

	if g.rules.ReleaseOrphanedTiles {
		for tile := 0; tile < board.Size; tile++ {
			if owner, ok := g.ownership[tile]; ok && owner == id {
				delete(g.ownership, tile)
				d.Released = append(d.Released, tile)
			}
		}
	}

	if len(g.members) == 0 {
		g.turn.Clear()
		return d
	}
	if d.HeldTurn {
		if g.rules.RotateOnLeave {
			d.NextTurn = g.turn.HandOff(order, id)
		} else {
			d.NextTurn = g.members[0].ID
		}
		g.turn.Assign(d.NextTurn)
	}
	return d
}

// ApplyRoll moves playerID by rolled tiles, pays the pass-go bonus and
// transfers rent to the owner of the landing tile when that owner is still
// in the room. Balances may go negative.
func (g *Game) ApplyRoll(sender, playerID string, rolled int) (Move, error) {
	if !dice.ValidTotal(rolled) {
		return Move{}, ErrInvalidRoll
	}
	if !g.IsMember(playerID) {
		return Move{}, ErrNotMember
	}

	holder, _ := g.turn.Holder()
	if g.rules.StrictTurns {
		if sender != playerID {
			return Move{}, ErrSenderMismatch
		}
		if holder != playerID {
			return Move{}, ErrNotYourTurn
		}
		if err := g.turn.MarkRolled(); err != nil {
			return Move{}, ErrAlreadyRolled
		}
	} else if holder == playerID {
		_ = g.turn.MarkRolled()
	}

	from := g.positions[playerID]
	to, passed := g.board.Advance(from, rolled)
	m := Move{PlayerID: playerID, Rolled: rolled, From: from, To: to, PassedGo: passed}

	if passed {
		m.Bonus = g.rules.PassGoBonus
		g.balances[playerID] += m.Bonus
	}

	if tile, _ := g.board.Tile(to); tile.Purchasable() {
		// an orphaned tile has nobody to collect rent
		if owner, ok := g.ownership[to]; ok && owner != playerID && g.IsMember(owner) {
			g.balances[playerID] -= tile.Rent
			g.balances[owner] += tile.Rent
			m.Rent = tile.Rent
			m.RentTo = owner
		}
	}

	g.positions[playerID] = to
	return m, nil
}

// Buy transfers tile to buyerID for the tile price.
func (g *Game) Buy(sender string, tileIndex int, buyerID string) (Purchase, error) {
	tile, ok := g.board.Tile(tileIndex)
	if !ok || !tile.Purchasable() {
		return Purchase{}, ErrNotPurchasable
	}
	if !g.IsMember(buyerID) {
		return Purchase{}, ErrNotMember
	}
	if g.rules.StrictPurchases {
		if sender != buyerID {
			return Purchase{}, ErrSenderMismatch
		}
		if g.positions[buyerID] != tileIndex {
			return Purchase{}, ErrNotOnTile
		}
	}
	if _, owned := g.ownership[tileIndex]; owned {
		return Purchase{}, ErrAlreadyOwned
	}
	if g.balances[buyerID] < tile.Price {
		return Purchase{}, ErrInsufficientFunds
	}

	g.ownership[tileIndex] = buyerID
	g.balances[buyerID] -= tile.Price
	return Purchase{Tile: tileIndex, BuyerID: buyerID, Price: tile.Price}, nil
}

// AdvanceTurn hands the turn on. Under strict turns only the holder may ask,
// and the server picks the rotation successor; nextID, when set, must match
// it. Otherwise nextID is trusted as long as it names a member.
func (g *Game) AdvanceTurn(sender, nextID string) (string, error) {
	if !g.rules.StrictTurns {
		if !g.IsMember(nextID) {
			return "", ErrNotMember
		}
		g.turn.Assign(nextID)
		return nextID, nil
	}

	if !g.IsMember(sender) {
		return "", ErrNotMember
	}
	if holder, ok := g.turn.Holder(); ok && holder != sender {
		return "", ErrNotYourTurn
	}
	next, ok := g.turn.Successor(g.order())
	if !ok {
		return "", ErrNotMember
	}
	if nextID != "" && nextID != next {
		return "", ErrInvalidSuccessor
	}
	g.turn.Assign(next)
	return next, nil
}
