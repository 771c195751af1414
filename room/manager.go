package room

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
)

// Manager 管理所有房间. The mutex guards the maps only; it is never held
// while waiting on a room.
type Manager struct {
	rooms       map[string]*Room
	memberships map[string]map[*Room]bool // playerID -> rooms
	mutex       sync.RWMutex

	opts        Options
	broadcaster Broadcaster
	recorder    Recorder
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(opts Options, broadcaster Broadcaster, recorder Recorder) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		memberships: make(map[string]map[*Room]bool),
		opts:        opts,
		broadcaster: broadcaster,
		recorder:    recorder,
	}
}

func (m *Manager) getOrCreate(code string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[code]; exists {
		return r
	}
	r := newRoom(code, m.opts, m.broadcaster, m.recorder, m.forget)
	m.rooms[code] = r
	logger.Log.Infof("Room %s created", code)
	return r
}

// forget drops r from the registry unless the code already points to a
// newer room. Memberships are keyed by room, so a newer room under the same
// code keeps its members.
func (m *Manager) forget(r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if cur, exists := m.rooms[r.ID]; exists && cur == r {
		delete(m.rooms, r.ID)
	}
	for id, rooms := range m.memberships {
		delete(rooms, r)
		if len(rooms) == 0 {
			delete(m.memberships, id)
		}
	}
}

func (m *Manager) track(playerID string, r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rooms, ok := m.memberships[playerID]
	if !ok {
		rooms = make(map[*Room]bool)
		m.memberships[playerID] = rooms
	}
	rooms[r] = true
}

func (m *Manager) untrack(playerID string, r *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if rooms, ok := m.memberships[playerID]; ok {
		delete(rooms, r)
		if len(rooms) == 0 {
			delete(m.memberships, playerID)
		}
	}
}

// CreateRoom creates the room on first use, or joins p to the existing one.
// A room that closes while p is joining is replaced by a fresh one.
func (m *Manager) CreateRoom(ctx context.Context, code string, p game.Player) (*Room, error) {
	for {
		r := m.getOrCreate(code)
		err := r.Join(ctx, p)
		if errors.Is(err, ErrRoomClosed) {
			m.forget(r)
			continue
		}
		if err != nil {
			return nil, err
		}
		m.track(p.ID, r)
		return r, nil
	}
}

// JoinRoom joins p to an existing room. Unknown codes yield ErrRoomNotFound.
func (m *Manager) JoinRoom(ctx context.Context, code string, p game.Player) (*Room, error) {
	r, exists := m.GetRoom(code)
	if !exists {
		return nil, ErrRoomNotFound
	}
	if err := r.Join(ctx, p); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	m.track(p.ID, r)
	return r, nil
}

// LeaveRoom removes playerID from one room.
func (m *Manager) LeaveRoom(ctx context.Context, code, playerID string) error {
	r, exists := m.GetRoom(code)
	if !exists {
		return ErrRoomNotFound
	}
	_, err := r.Leave(ctx, playerID)
	if errors.Is(err, ErrRoomClosed) {
		err = nil
	}
	if err == nil {
		m.untrack(playerID, r)
	}
	return err
}

// Disconnect removes playerID from every room it belongs to.
func (m *Manager) Disconnect(ctx context.Context, playerID string) {
	m.mutex.Lock()
	rooms := make([]*Room, 0, len(m.memberships[playerID]))
	for r := range m.memberships[playerID] {
		rooms = append(rooms, r)
	}
	delete(m.memberships, playerID)
	m.mutex.Unlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	for _, r := range rooms {
		if _, err := r.Leave(ctx, playerID); err != nil && !errors.Is(err, ErrRoomClosed) {
			logger.Log.Warnf("Failed to remove %s from room %s: %v", playerID, r.ID, err)
		}
	}
}

// Roll applies a roll in the named room.
func (m *Manager) Roll(ctx context.Context, code, sender, playerID string, rolled int) (game.Move, error) {
	r, err := m.lookup(code)
	if err != nil {
		return game.Move{}, err
	}
	return r.Roll(ctx, sender, playerID, rolled)
}

// Buy applies a purchase in the named room.
func (m *Manager) Buy(ctx context.Context, code, sender string, tile int, buyerID string) (game.Purchase, error) {
	r, err := m.lookup(code)
	if err != nil {
		return game.Purchase{}, err
	}
	return r.Buy(ctx, sender, tile, buyerID)
}

// AdvanceTurn hands the turn on in the named room.
func (m *Manager) AdvanceTurn(ctx context.Context, code, sender, nextID string) (string, error) {
	r, err := m.lookup(code)
	if err != nil {
		return "", err
	}
	return r.AdvanceTurn(ctx, sender, nextID)
}

func (m *Manager) lookup(code string) (*Room, error) {
	r, exists := m.GetRoom(code)
	if !exists {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Snapshot never fails: unknown or closing rooms read as empty.
func (m *Manager) Snapshot(ctx context.Context, code string) game.Snapshot {
	r, exists := m.GetRoom(code)
	if !exists {
		return game.EmptySnapshot()
	}
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return game.EmptySnapshot()
	}
	return snap
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[code]
	return r, exists
}

// Codes lists the open rooms in sorted order.
func (m *Manager) Codes() []string {
	m.mutex.RLock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	m.mutex.RUnlock()

	sort.Strings(codes)
	return codes
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Close shuts every room down; each one records its game.
func (m *Manager) Close(ctx context.Context) {
	m.mutex.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.Unlock()

	for _, r := range rooms {
		if err := r.Close(ctx); err != nil {
			logger.Log.Warnf("Failed to close room %s: %v", r.ID, err)
		}
	}
}
