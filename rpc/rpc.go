package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
	"github.com/wfunc/boardserver/room"
	"github.com/wfunc/boardserver/services"
)

const callTimeout = 5 * time.Second

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      rpc.NewServer(),
	}, nil
}

func (s *Server) Register(service interface{}) error {
	return s.rpc.Register(service)
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes read-only room and journal queries over net/rpc.
type AdminService struct {
	rooms   *room.Manager
	journal *services.Journal
}

func NewAdminService(rooms *room.Manager, journal *services.Journal) *AdminService {
	return &AdminService{rooms: rooms, journal: journal}
}

// ListRoomsArgs limits the listing; Limit 0 lists every room.
type ListRoomsArgs struct {
	Limit int
}

type ListRoomsReply struct {
	Rooms []room.Info
}

// ListRooms returns a summary of every open room, sorted by code.
func (a *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	codes := a.rooms.Codes()
	if args.Limit > 0 && len(codes) > args.Limit {
		codes = codes[:args.Limit]
	}
	for _, code := range codes {
		r, ok := a.rooms.GetRoom(code)
		if !ok {
			continue
		}
		info, err := r.Info(ctx)
		if errors.Is(err, room.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return err
		}
		reply.Rooms = append(reply.Rooms, info)
	}
	return nil
}

type RoomArgs struct {
	Code string
}

type GetRoomReply struct {
	Snapshot game.Snapshot
}

func (a *AdminService) GetRoom(args *RoomArgs, reply *GetRoomReply) error {
	if _, ok := a.rooms.GetRoom(args.Code); !ok {
		return room.ErrRoomNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	reply.Snapshot = a.rooms.Snapshot(ctx, args.Code)
	return nil
}

type HistoryArgs struct {
	Limit int
}

type HistoryReply struct {
	Records []models.GameRecord
}

func (a *AdminService) GameHistory(args *HistoryArgs, reply *HistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := a.journal.History(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type LedgerReply struct {
	Entries []models.LedgerEntry
}

func (a *AdminService) RoomLedger(args *RoomArgs, reply *LedgerReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	entries, err := a.journal.Ledger(ctx, args.Code)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}
