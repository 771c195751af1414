// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/boardserver/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_entries (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            kind VARCHAR(32) NOT NULL,
            "from" VARCHAR(64),
            "to" VARCHAR(64),
            tile INTEGER NOT NULL DEFAULT 0,
            amount INTEGER NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            rolls INTEGER NOT NULL DEFAULT 0,
            purchases INTEGER NOT NULL DEFAULT 0,
            peak_players INTEGER NOT NULL DEFAULT 0,
            players JSONB NOT NULL,
            started_at TIMESTAMP NOT NULL,
            ended_at TIMESTAMP NOT NULL
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_ledger_entries_room_id ON ledger_entries(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_ended_at ON game_records(ended_at);
    `)
	return err
}

// SaveLedgerEntries 在一个事务中写入账本
func (p *PostgreSQL) SaveLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO ledger_entries (room_id, kind, "from", "to", tile, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.RoomID, string(e.Kind), e.From, e.To, e.Tile, e.Amount, e.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveGameRecord 保存房间记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO game_records (room_id, rolls, purchases, peak_players, players, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, record.RoomID, record.Rolls, record.Purchases, record.PeakPlayers, players, record.StartedAt, record.EndedAt)
	return err
}

func (p *PostgreSQL) ListGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	query := `
        SELECT room_id, rolls, purchases, peak_players, players, started_at, ended_at
        FROM game_records ORDER BY ended_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		var r models.GameRecord
		var players []byte
		if err := rows.Scan(&r.RoomID, &r.Rolls, &r.Purchases, &r.PeakPlayers, &players, &r.StartedAt, &r.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgreSQL) ListLedgerEntries(ctx context.Context, roomID string) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
        SELECT room_id, kind, COALESCE("from", ''), COALESCE("to", ''), tile, amount, created_at
        FROM ledger_entries WHERE room_id = $1 ORDER BY id ASC
    `, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var kind string
		if err := rows.Scan(&e.RoomID, &kind, &e.From, &e.To, &e.Tile, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = models.LedgerKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	return out, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
