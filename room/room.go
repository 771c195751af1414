// room/room.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wfunc/boardserver/board"
	"github.com/wfunc/boardserver/dice"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/network"
)

var (
	ErrRoomClosed   = errors.New("room closed")
	ErrRoomNotFound = errors.New("room not found")
)

// Options configures every room a Manager creates.
type Options struct {
	Board  *board.Board
	Rules  game.Rules
	Roller dice.Roller
	// ServerDice makes the room roll for the player and ignore client totals.
	ServerDice bool
}

// Info summarises a room for the admin interface.
type Info struct {
	Code      string        `json:"code"`
	Players   []game.Player `json:"players"`
	Turn      string        `json:"turn,omitempty"`
	Rolls     int           `json:"rolls"`
	Purchases int           `json:"purchases"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Room 是一个游戏房间. 所有状态都只在房间自己的 goroutine 里读写,
// 外部通过 inbox 投递命令, 一次执行一个.
type Room struct {
	ID        string
	CreatedAt time.Time

	game        *game.Game
	roller      dice.Roller
	serverDice  bool
	broadcaster Broadcaster
	recorder    Recorder
	onClose     func(*Room)

	inbox  chan func()
	done   chan struct{}
	closed bool

	// 统计, 房间结束时写入 GameRecord
	rolls     int
	purchases int
	peak      int
	names     []string
}

func newRoom(code string, opts Options, broadcaster Broadcaster, recorder Recorder, onClose func(*Room)) *Room {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	r := &Room{
		ID:          code,
		CreatedAt:   time.Now(),
		game:        game.New(opts.Board, opts.Rules),
		roller:      opts.Roller,
		serverDice:  opts.ServerDice && opts.Roller != nil,
		broadcaster: broadcaster,
		recorder:    recorder,
		onClose:     onClose,
		inbox:       make(chan func()),
		done:        make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Room) loop() {
	for !r.closed {
		cmd := <-r.inbox
		cmd()
	}
}

// do runs fn on the room goroutine and waits for it to finish.
func (r *Room) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn()
	}
	select {
	case r.inbox <- cmd:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// finish shuts the room down and records the game. Runs on the room goroutine.
func (r *Room) finish() {
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)

	r.recorder.RecordGame(models.GameRecord{
		RoomID:      r.ID,
		Rolls:       r.rolls,
		Purchases:   r.purchases,
		PeakPlayers: r.peak,
		Players:     append([]string(nil), r.names...),
		StartedAt:   r.CreatedAt,
		EndedAt:     time.Now(),
	})
	logger.Log.Infof("Room %s closed after %d rolls", r.ID, r.rolls)

	if r.onClose != nil {
		r.onClose(r)
	}
}

// Close shuts the room down without waiting for it to empty.
func (r *Room) Close(ctx context.Context) error {
	err := r.do(ctx, r.finish)
	if errors.Is(err, ErrRoomClosed) {
		return nil
	}
	return err
}

// Join adds p and re-syncs the whole room. A player that is already a member
// keeps its position and balance.
func (r *Room) Join(ctx context.Context, p game.Player) error {
	return r.do(ctx, func() {
		if r.game.Join(p) {
			r.names = append(r.names, p.Name)
			if n := r.game.Len(); n > r.peak {
				r.peak = n
			}
		}
		r.broadcastMembers()
		r.broadcastPositions()
		r.broadcastBalances()
		r.broadcastOwnership()

		if holder, assigned := r.game.EnsureTurn(); assigned {
			r.broadcastTurn(holder)
		} else if holder != "" {
			r.sendTo(p.ID, network.MsgTypeTurnChanged, holder)
		}
	})
}

// Leave removes id from the room. The room shuts down when it empties.
func (r *Room) Leave(ctx context.Context, id string) (bool, error) {
	var left bool
	err := r.do(ctx, func() {
		d := r.game.Remove(id)
		left = d.WasMember
		if !left {
			return
		}
		if r.game.Empty() {
			r.finish()
			return
		}
		r.broadcastMembers()
		r.broadcastPositions()
		r.broadcastBalances()
		if len(d.Released) > 0 {
			r.broadcastOwnership()
		}
		if d.HeldTurn {
			r.broadcastTurn(d.NextTurn)
		}
	})
	return left, err
}

// Roll moves playerID. With server dice the client total is ignored and the
// room rolls; an empty playerID means the sender.
func (r *Room) Roll(ctx context.Context, sender, playerID string, rolled int) (game.Move, error) {
	if playerID == "" {
		playerID = sender
	}
	var (
		move    game.Move
		ruleErr error
	)
	err := r.do(ctx, func() {
		var faces []int
		if r.serverDice {
			res := r.roller.Roll()
			faces, rolled = res.Dice, res.Total
		}
		move, ruleErr = r.game.ApplyRoll(sender, playerID, rolled)
		if ruleErr != nil {
			return
		}
		move.Dice = faces
		r.rolls++

		now := time.Now()
		if move.PassedGo {
			r.recorder.RecordLedger(models.LedgerEntry{
				RoomID: r.ID, Kind: models.LedgerPassGo, To: move.PlayerID,
				Amount: move.Bonus, CreatedAt: now,
			})
		}
		if move.Rent > 0 {
			r.recorder.RecordLedger(models.LedgerEntry{
				RoomID: r.ID, Kind: models.LedgerRent, From: move.PlayerID, To: move.RentTo,
				Tile: move.To, Amount: move.Rent, CreatedAt: now,
			})
		}

		r.broadcast(network.MsgTypeDiceRolled, move)
		r.broadcastPositions()
		r.broadcastBalances()
	})
	if err != nil {
		return game.Move{}, err
	}
	return move, ruleErr
}

// Buy sells tile to buyerID; an empty buyerID means the sender.
func (r *Room) Buy(ctx context.Context, sender string, tile int, buyerID string) (game.Purchase, error) {
	if buyerID == "" {
		buyerID = sender
	}
	var (
		purchase game.Purchase
		ruleErr  error
	)
	err := r.do(ctx, func() {
		purchase, ruleErr = r.game.Buy(sender, tile, buyerID)
		if ruleErr != nil {
			return
		}
		r.purchases++
		r.recorder.RecordLedger(models.LedgerEntry{
			RoomID: r.ID, Kind: models.LedgerPurchase, From: purchase.BuyerID,
			Tile: purchase.Tile, Amount: purchase.Price, CreatedAt: time.Now(),
		})
		r.broadcastOwnership()
		r.broadcastBalances()
	})
	if err != nil {
		return game.Purchase{}, err
	}
	return purchase, ruleErr
}

// AdvanceTurn hands the turn on and broadcasts the new holder.
func (r *Room) AdvanceTurn(ctx context.Context, sender, nextID string) (string, error) {
	var (
		next    string
		ruleErr error
	)
	err := r.do(ctx, func() {
		next, ruleErr = r.game.AdvanceTurn(sender, nextID)
		if ruleErr == nil {
			r.broadcastTurn(next)
		}
	})
	if err != nil {
		return "", err
	}
	return next, ruleErr
}

func (r *Room) Snapshot(ctx context.Context) (game.Snapshot, error) {
	var snap game.Snapshot
	err := r.do(ctx, func() {
		snap = r.game.Snapshot()
	})
	return snap, err
}

func (r *Room) Info(ctx context.Context) (Info, error) {
	var info Info
	err := r.do(ctx, func() {
		turn, _ := r.game.Turn()
		info = Info{
			Code:      r.ID,
			Players:   r.game.Members(),
			Turn:      turn,
			Rolls:     r.rolls,
			Purchases: r.purchases,
			CreatedAt: r.CreatedAt,
		}
	})
	return info, err
}

// --- broadcasting, room goroutine only ---

func (r *Room) memberIDs() []string {
	members := r.game.Members()
	ids := make([]string, len(members))
	for i, p := range members {
		ids[i] = p.ID
	}
	return ids
}

func (r *Room) broadcast(msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Room %s: failed to encode %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := r.broadcaster.BroadcastToSessions(r.memberIDs(), msgID, data); err != nil {
		logger.Log.Warnf("Room %s: broadcast %s: %v", r.ID, network.MsgName(msgID), err)
	}
}

func (r *Room) sendTo(id string, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Room %s: failed to encode %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := r.broadcaster.SendToSession(id, msgID, data); err != nil {
		logger.Log.Warnf("Room %s: send %s to %s: %v", r.ID, network.MsgName(msgID), id, err)
	}
}

func (r *Room) broadcastMembers() {
	r.broadcast(network.MsgTypeRoomUpdate, r.game.Members())
}

func (r *Room) broadcastPositions() {
	r.broadcast(network.MsgTypePositionUpdate, r.game.Positions())
}

func (r *Room) broadcastBalances() {
	r.broadcast(network.MsgTypeBalanceUpdate, r.game.Balances())
}

func (r *Room) broadcastOwnership() {
	r.broadcast(network.MsgTypeOwnershipUpdate, r.game.Ownership())
}

func (r *Room) broadcastTurn(holder string) {
	r.broadcast(network.MsgTypeTurnChanged, holder)
}
