package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/boardserver/models"
)

// Memory keeps the journal in process memory. It backs the "none" driver
// and tests.
type Memory struct {
	mutex   sync.RWMutex
	ledger  []models.LedgerEntry
	records []models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.ledger = append(m.ledger, entries...)
	return nil
}

func (m *Memory) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

// ListGameRecords returns the newest records first.
func (m *Memory) ListGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]models.GameRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *Memory) ListLedgerEntries(ctx context.Context, roomID string) ([]models.LedgerEntry, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []models.LedgerEntry
	for _, e := range m.ledger {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, ErrRecordNotFound
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
