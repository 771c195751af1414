// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormLedgerEntry 账本记录
type GormLedgerEntry struct {
	gorm.Model
	RoomID string `gorm:"index;not null"`
	Kind   string `gorm:"not null"`
	From   string
	To     string
	Tile   int
	Amount int `gorm:"not null"`
}

func (GormLedgerEntry) TableName() string { return "ledger_entries" }

// GormGameRecord 房间结束记录
type GormGameRecord struct {
	gorm.Model
	RoomID      string   `gorm:"index;not null"`
	Rolls       int      `gorm:"default:0"`
	Purchases   int      `gorm:"default:0"`
	PeakPlayers int      `gorm:"default:0"`
	Players     []string `gorm:"serializer:json"`
	StartedAt   time.Time
	EndedAt     time.Time `gorm:"index"`
}

func (GormGameRecord) TableName() string { return "game_records" }

func NewGormLedgerEntry(e LedgerEntry) GormLedgerEntry {
	g := GormLedgerEntry{
		RoomID: e.RoomID,
		Kind:   string(e.Kind),
		From:   e.From,
		To:     e.To,
		Tile:   e.Tile,
		Amount: e.Amount,
	}
	g.CreatedAt = e.CreatedAt
	return g
}

func (g GormLedgerEntry) Entry() LedgerEntry {
	return LedgerEntry{
		RoomID:    g.RoomID,
		Kind:      LedgerKind(g.Kind),
		From:      g.From,
		To:        g.To,
		Tile:      g.Tile,
		Amount:    g.Amount,
		CreatedAt: g.CreatedAt,
	}
}

func NewGormGameRecord(r GameRecord) GormGameRecord {
	return GormGameRecord{
		RoomID:      r.RoomID,
		Rolls:       r.Rolls,
		Purchases:   r.Purchases,
		PeakPlayers: r.PeakPlayers,
		Players:     r.Players,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
	}
}

func (g GormGameRecord) Record() GameRecord {
	return GameRecord{
		RoomID:      g.RoomID,
		Rolls:       g.Rolls,
		Purchases:   g.Purchases,
		PeakPlayers: g.PeakPlayers,
		Players:     g.Players,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
	}
}
