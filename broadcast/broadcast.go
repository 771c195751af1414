// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/session"
)

// SessionBroadcaster delivers room events to connected sessions. It
// satisfies room.Broadcaster.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToSessions sends to every id. A failed send does not stop the
// others; the failures are returned joined.
func (b *SessionBroadcaster) BroadcastToSessions(ids []string, msgID uint16, data []byte) error {
	var errs []error
	for _, id := range ids {
		if err := b.SendToSession(id, msgID, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *SessionBroadcaster) SendToSession(id string, msgID uint16, data []byte) error {
	if err := b.sessionManager.Send(id, msgID, data); err != nil {
		// 玩家可能已断开, 等断线处理把他移出房间
		logger.Log.Debugf("Drop message %d for session %s: %v", msgID, id, err)
		return fmt.Errorf("session %s: %w", id, err)
	}
	return nil
}
