package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/network"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/session"
)

const requestTimeout = 5 * time.Second

// Metrics is the part of the monitor the server reports to.
type Metrics interface {
	IncOnlinePlayers()
	DecOnlinePlayers()
	IncMessagesReceived(event string)
	ObserveMessageLatency(duration time.Duration)
	IncRejected(action, reason string)
}

type nopMetrics struct{}

func (nopMetrics) IncOnlinePlayers()                   {}
func (nopMetrics) DecOnlinePlayers()                   {}
func (nopMetrics) IncMessagesReceived(string)          {}
func (nopMetrics) ObserveMessageLatency(time.Duration) {}
func (nopMetrics) IncRejected(string, string)          {}

type GameServer struct {
	cfg            config.ServerConfig
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	metrics        Metrics
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
	wg             sync.WaitGroup
}

func NewGameServer(cfg config.ServerConfig, rooms *room.Manager, sessions *session.Manager, metrics Metrics) *GameServer {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	s := &GameServer{
		cfg:            cfg,
		roomManager:    rooms,
		sessionManager: sessions,
		metrics:        metrics,
		shutdownChan:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// checkOrigin 没有配置时允许所有跨域请求
func (s *GameServer) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves until Shutdown.
func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their disconnect handling to finish.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	err := s.httpServer.Shutdown(ctx)

	// hijacked websocket connections are not tracked by http.Server
	s.sessionManager.CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.shutdownChan:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, network.Options{
		SendBuffer: s.cfg.SendBuffer,
		ReadLimit:  s.cfg.ReadLimit,
		Heartbeat:  s.cfg.Heartbeat,
	})
	limiter := session.NewLimiter(s.cfg.RateLimit.EventsPerSecond, s.cfg.RateLimit.Burst)
	sess := session.NewSession(uuid.New().String(), wsConn, limiter)
	s.sessionManager.Add(sess)
	s.metrics.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
	s.reply(sess, network.MsgTypeWelcome, network.Welcome{ID: sess.GetID()})

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.metrics.DecOnlinePlayers()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s.roomManager.Disconnect(ctx, sess.GetID())
		wsConn.Close()
	}()

	for {
		packet, err := wsConn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			logger.Log.Debugf("Session %s sent a malformed frame", sess.GetID())
			continue
		}
		if err != nil {
			return
		}

		select {
		case <-s.shutdownChan:
			return
		default:
		}

		event := network.MsgName(packet.MsgID)
		s.metrics.IncMessagesReceived(event)
		if !sess.Allow() {
			s.reject(sess, event, "", "rate_limited")
			continue
		}

		start := time.Now()
		s.handlePacket(sess, packet)
		s.metrics.ObserveMessageLatency(time.Since(start))
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Allow already refreshed LastActive
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(ctx, sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(ctx, sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(ctx, sess, packet)
	case network.MsgTypeGetRoomPlayers, network.MsgTypeGetPositions, network.MsgTypeGetBalances,
		network.MsgTypeGetOwnership, network.MsgTypeGetTurn:
		s.handleQuery(ctx, sess, packet)
	case network.MsgTypeRollDice:
		s.handleRollDice(ctx, sess, packet)
	case network.MsgTypeBuyTile:
		s.handleBuyTile(ctx, sess, packet)
	case network.MsgTypeTurnUpdate:
		s.handleTurnUpdate(ctx, sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// decode unmarshals a request payload, rejecting it when malformed.
func (s *GameServer) decode(sess *session.Session, packet *network.Packet, v interface{}) bool {
	if err := json.Unmarshal(packet.Data, v); err != nil {
		s.reject(sess, network.MsgName(packet.MsgID), "", "invalid_request")
		return false
	}
	return true
}

func (s *GameServer) player(sess *session.Session, nickname string) game.Player {
	if nickname != "" {
		sess.SetNickname(nickname)
	}
	return game.Player{ID: sess.GetID(), Name: sess.GetNickname()}
}

func (s *GameServer) handleCreateRoom(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.RoomRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	if req.RoomID == "" {
		s.reject(sess, "create_room", "", "invalid_request")
		return
	}

	if _, err := s.roomManager.CreateRoom(ctx, req.RoomID, s.player(sess, req.Nickname)); err != nil {
		logger.Log.Errorf("Session %s failed to create room %s: %v", sess.GetID(), req.RoomID, err)
		return
	}
	logger.Log.Infof("Session %s created or joined room %s", sess.GetID(), req.RoomID)
}

func (s *GameServer) handleJoinRoom(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.RoomRequest
	if !s.decode(sess, packet, &req) {
		return
	}

	_, err := s.roomManager.JoinRoom(ctx, req.RoomID, s.player(sess, req.Nickname))
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		// 房间不存在, 忽略
		logger.Log.Debugf("Session %s tried to join unknown room %s", sess.GetID(), req.RoomID)
	case err != nil:
		logger.Log.Errorf("Session %s failed to join room %s: %v", sess.GetID(), req.RoomID, err)
	default:
		logger.Log.Infof("Session %s joined room %s", sess.GetID(), req.RoomID)
	}
}

func (s *GameServer) handleLeaveRoom(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.LeaveRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	if err := s.roomManager.LeaveRoom(ctx, req.RoomID, sess.GetID()); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		logger.Log.Errorf("Session %s failed to leave room %s: %v", sess.GetID(), req.RoomID, err)
	}
}

// handleQuery answers a get_* request with the matching update, sent to the
// requester only.
func (s *GameServer) handleQuery(ctx context.Context, sess *session.Session, packet *network.Packet) {
	snap := s.roomManager.Snapshot(ctx, network.DecodeRoomID(packet.Data))

	switch packet.MsgID {
	case network.MsgTypeGetRoomPlayers:
		s.reply(sess, network.MsgTypeRoomUpdate, snap.Members)
	case network.MsgTypeGetPositions:
		s.reply(sess, network.MsgTypePositionUpdate, snap.Positions)
	case network.MsgTypeGetBalances:
		s.reply(sess, network.MsgTypeBalanceUpdate, snap.Balances)
	case network.MsgTypeGetOwnership:
		s.reply(sess, network.MsgTypeOwnershipUpdate, snap.Ownership)
	case network.MsgTypeGetTurn:
		if snap.Turn == "" {
			s.reply(sess, network.MsgTypeTurnChanged, nil)
		} else {
			s.reply(sess, network.MsgTypeTurnChanged, snap.Turn)
		}
	}
}

func (s *GameServer) handleRollDice(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.RollRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	move, err := s.roomManager.Roll(ctx, req.RoomID, sess.GetID(), req.PlayerID, req.Rolled)
	if err != nil {
		s.rejectErr(sess, "roll_dice", req.RoomID, err)
		return
	}
	logger.Log.Debugf("Room %s: %s rolled %d, %d -> %d", req.RoomID, move.PlayerID, move.Rolled, move.From, move.To)
}

func (s *GameServer) handleBuyTile(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.BuyRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	purchase, err := s.roomManager.Buy(ctx, req.RoomID, sess.GetID(), req.TileIndex, req.BuyerID)
	if err != nil {
		s.rejectErr(sess, "buy_tile", req.RoomID, err)
		return
	}
	logger.Log.Infof("Room %s: %s bought tile %d", req.RoomID, purchase.BuyerID, purchase.Tile)
}

func (s *GameServer) handleTurnUpdate(ctx context.Context, sess *session.Session, packet *network.Packet) {
	var req network.TurnRequest
	if !s.decode(sess, packet, &req) {
		return
	}
	next, err := s.roomManager.AdvanceTurn(ctx, req.RoomID, sess.GetID(), req.NextID)
	if err != nil {
		s.rejectErr(sess, "turn_update", req.RoomID, err)
		return
	}
	logger.Log.Debugf("Room %s: turn passed to %s", req.RoomID, next)
}

func (s *GameServer) reply(sess *session.Session, msgID uint16, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("Failed to encode %s: %v", network.MsgName(msgID), err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Warnf("Failed to send %s to session %s: %v", network.MsgName(msgID), sess.GetID(), err)
	}
}

func (s *GameServer) rejectErr(sess *session.Session, action, roomID string, err error) {
	var reason string
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		reason = "room_not_found"
	case errors.Is(err, room.ErrRoomClosed):
		reason = "room_closed"
	case errors.Is(err, context.DeadlineExceeded):
		logger.Log.Warnf("Session %s: %s in room %s timed out", sess.GetID(), action, roomID)
		reason = "timeout"
	default:
		reason = game.Reason(err)
	}
	s.reject(sess, action, roomID, reason)
}

func (s *GameServer) reject(sess *session.Session, action, roomID, reason string) {
	s.metrics.IncRejected(action, reason)
	s.reply(sess, network.MsgTypeActionRejected, network.ActionRejected{
		Action: action,
		RoomID: roomID,
		Reason: reason,
	})
}
