// models/models.go
package models

import (
	"time"
)

// LedgerKind names a currency movement in a room.
type LedgerKind string

const (
	LedgerPurchase LedgerKind = "purchase"
	LedgerRent     LedgerKind = "rent"
	LedgerPassGo   LedgerKind = "pass_go"
)

// LedgerEntry is one currency movement. From is empty for money entering the
// game (pass-go) and To is empty for money leaving it (purchases).
type LedgerEntry struct {
	RoomID    string     `json:"room_id"`
	Kind      LedgerKind `json:"kind"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Tile      int        `json:"tile"`
	Amount    int        `json:"amount"`
	CreatedAt time.Time  `json:"created_at"`
}

// GameRecord summarises a room from creation until it emptied.
type GameRecord struct {
	RoomID      string    `json:"room_id"`
	Rolls       int       `json:"rolls"`
	Purchases   int       `json:"purchases"`
	PeakPlayers int       `json:"peak_players"`
	Players     []string  `json:"players"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

// Duration is how long the room lived.
func (r GameRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
