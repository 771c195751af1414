// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/boardserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormLedgerEntry{},
		&models.GormGameRecord{},
	)
}

// SaveLedgerEntries 批量写入账本
func (p *GormPostgreSQL) SaveLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.GormLedgerEntry, len(entries))
	for i, e := range entries {
		rows[i] = models.NewGormLedgerEntry(e)
	}
	return p.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// SaveGameRecord 保存房间记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	row := models.NewGormGameRecord(record)
	return p.db.WithContext(ctx).Create(&row).Error
}

func (p *GormPostgreSQL) ListGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	q := p.db.WithContext(ctx).Order("ended_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.GameRecord, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out, nil
}

func (p *GormPostgreSQL) ListLedgerEntries(ctx context.Context, roomID string) ([]models.LedgerEntry, error) {
	var rows []models.GormLedgerEntry
	err := p.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}

	out := make([]models.LedgerEntry, len(rows))
	for i, r := range rows {
		out[i] = r.Entry()
	}
	return out, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
