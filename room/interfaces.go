package room

import "github.com/wfunc/boardserver/models"

// Broadcaster delivers packets to sessions by id.
// Defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToSessions(ids []string, msgID uint16, data []byte) error
	SendToSession(id string, msgID uint16, data []byte) error
}

// Recorder receives the currency movements and the summary of each game.
// Implementations must not block.
type Recorder interface {
	RecordLedger(entry models.LedgerEntry)
	RecordGame(record models.GameRecord)
}

// MultiRecorder fans records out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordLedger(entry models.LedgerEntry) {
	for _, r := range m {
		r.RecordLedger(entry)
	}
}

func (m MultiRecorder) RecordGame(record models.GameRecord) {
	for _, r := range m {
		r.RecordGame(record)
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordLedger(models.LedgerEntry) {}
func (nopRecorder) RecordGame(models.GameRecord)    {}
