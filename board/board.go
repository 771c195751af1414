// Package board describes the fixed 40-tile circular board. A single tile
// table answers every "is this purchasable, what does it cost, what is the
// rent" question, for movement, purchases and client prompts alike.
package board

// Size is the number of tiles on the board.
const Size = 40

type Kind int

const (
	KindCorner Kind = iota
	KindProperty
	KindSpecial
)

func (k Kind) String() string {
	switch k {
	case KindCorner:
		return "corner"
	case KindProperty:
		return "property"
	default:
		return "special"
	}
}

// Tile is one square of the board.
type Tile struct {
	Index int  `json:"index"`
	Kind  Kind `json:"kind"`
	Price int  `json:"price,omitempty"`
	Rent  int  `json:"rent,omitempty"`
}

// Purchasable reports whether the tile can be owned.
func (t Tile) Purchasable() bool {
	return t.Kind == KindProperty
}

var corners = []int{0, 10, 20, 30}

// purchasable is the canonical set of ownable tiles.
var purchasable = []int{
	1, 3, 4, 5, 6, 7, 8, 9,
	11, 12, 13, 14, 15, 16, 17, 18, 19,
	21, 23, 24, 25, 26, 27, 28, 29,
	31, 32, 33, 34, 35, 36, 37, 38, 39,
}

// Board is an immutable tile table and is safe for concurrent reads.
type Board struct {
	tiles [Size]Tile
}

// New builds the standard board with a flat price and rent on every property.
func New(price, rent int) *Board {
	b := &Board{}
	for i := range b.tiles {
		b.tiles[i] = Tile{Index: i, Kind: KindSpecial}
	}
	for _, i := range corners {
		b.tiles[i].Kind = KindCorner
	}
	for _, i := range purchasable {
		b.tiles[i] = Tile{Index: i, Kind: KindProperty, Price: price, Rent: rent}
	}
	return b
}

// Tile returns the tile at index, or false when index is off the board.
func (b *Board) Tile(index int) (Tile, bool) {
	if index < 0 || index >= Size {
		return Tile{}, false
	}
	return b.tiles[index], true
}

func (b *Board) Purchasable(index int) bool {
	t, ok := b.Tile(index)
	return ok && t.Purchasable()
}

// PurchasableTiles lists ownable tile indexes in ascending order.
func (b *Board) PurchasableTiles() []int {
	out := make([]int, 0, len(purchasable))
	for _, t := range b.tiles {
		if t.Purchasable() {
			out = append(out, t.Index)
		}
	}
	return out
}

// Advance moves from pos by steps. passedGo is decided on the raw sum, so
// landing exactly on tile 0 counts.
func (b *Board) Advance(pos, steps int) (newPos int, passedGo bool) {
	sum := pos + steps
	return sum % Size, sum >= Size
}
