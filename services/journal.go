package services

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/persistence"
)

const (
	journalBatchSize  = 50
	journalFlushEvery = time.Second
	journalWriteLimit = 5 * time.Second
)

// Journal writes ledger entries and game records to the database off the
// room goroutines. Recording never blocks; when the buffer is full the entry
// is dropped and logged.
type Journal struct {
	db       persistence.Database
	entries  chan models.LedgerEntry
	records  chan models.GameRecord
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewJournal(db persistence.Database, buffer int) *Journal {
	if buffer <= 0 {
		buffer = 1
	}
	return &Journal{
		db:      db,
		entries: make(chan models.LedgerEntry, buffer),
		records: make(chan models.GameRecord, buffer),
		stop:    make(chan struct{}),
	}
}

// Start launches the writer goroutine.
func (j *Journal) Start() {
	j.wg.Add(1)
	go j.run()
}

func (j *Journal) RecordLedger(entry models.LedgerEntry) {
	select {
	case j.entries <- entry:
	default:
		logger.Log.Warnf("Journal buffer full, dropping %s entry for room %s", entry.Kind, entry.RoomID)
	}
}

func (j *Journal) RecordGame(record models.GameRecord) {
	select {
	case j.records <- record:
	default:
		logger.Log.Warnf("Journal buffer full, dropping game record for room %s", record.RoomID)
	}
}

// Close drains what is buffered and stops the writer.
func (j *Journal) Close() {
	j.stopOnce.Do(func() { close(j.stop) })
	j.wg.Wait()
}

// History lists finished games, newest first.
func (j *Journal) History(ctx context.Context, limit int) ([]models.GameRecord, error) {
	return j.db.ListGameRecords(ctx, limit)
}

// Ledger lists the currency movements recorded for a room.
func (j *Journal) Ledger(ctx context.Context, roomID string) ([]models.LedgerEntry, error) {
	return j.db.ListLedgerEntries(ctx, roomID)
}

func (j *Journal) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(journalFlushEvery)
	defer ticker.Stop()

	batch := make([]models.LedgerEntry, 0, journalBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteLimit)
		defer cancel()
		if err := j.db.SaveLedgerEntries(ctx, batch); err != nil {
			logger.Log.Errorf("Failed to save %d ledger entries: %v", len(batch), err)
		}
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case e := <-j.entries:
				batch = append(batch, e)
			default:
				return
			}
		}
	}
	save := func(r models.GameRecord) {
		// entries queued before the record are written first
		drain()
		flush()
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteLimit)
		defer cancel()
		if err := j.db.SaveGameRecord(ctx, r); err != nil {
			logger.Log.Errorf("Failed to save game record for room %s: %v", r.RoomID, err)
		}
	}

	for {
		select {
		case e := <-j.entries:
			batch = append(batch, e)
			if len(batch) >= journalBatchSize {
				flush()
			}
		case r := <-j.records:
			save(r)
		case <-ticker.C:
			flush()
		case <-j.stop:
			for {
				select {
				case r := <-j.records:
					save(r)
				default:
					drain()
					flush()
					return
				}
			}
		}
	}
}
