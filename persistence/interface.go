// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/models"
)

// Database stores the game journal: finished rooms and their ledgers. It is
// write-mostly and never used to rebuild live rooms.
type Database interface {
	SaveLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	ListGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error)
	ListLedgerEntries(ctx context.Context, roomID string) ([]models.LedgerEntry, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrUnknownDriver  = fmt.Errorf("unknown database driver")
)

// Open connects the journal backend named by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	switch cfg.Driver {
	case "", "none", "memory":
		return NewMemory(), nil
	case "gorm":
		return NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "pq", "postgres":
		return NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
