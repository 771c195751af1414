package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/boardserver/board"
	"github.com/wfunc/boardserver/broadcast"
	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/dice"
	"github.com/wfunc/boardserver/game"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/monitor"
	"github.com/wfunc/boardserver/persistence"
	"github.com/wfunc/boardserver/room"
	boardrpc "github.com/wfunc/boardserver/rpc"
	"github.com/wfunc/boardserver/server"
	"github.com/wfunc/boardserver/services"
	"github.com/wfunc/boardserver/session"
	"github.com/wfunc/boardserver/timer"
)

func main() {
	logger.Init("info", false)

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Development)
	defer logger.Sync()

	// Initialize journal database
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to open journal database: %v", err)
	}
	logger.Log.Infof("Journal backend: %s", cfg.Database.Driver)

	journal := services.NewJournal(db, cfg.Database.JournalBuffer)
	journal.Start()

	mon := monitor.NewMonitor("boardserver", nil)
	metricsServer := mon.StartServer(cfg.Server.MetricsAddress)

	seed, err := dice.NewSeed()
	if err != nil {
		logger.Log.Fatalf("Failed to seed dice: %v", err)
	}

	sessions := session.NewManager()
	rooms := room.NewRoomManager(room.Options{
		Board: board.New(cfg.Game.TilePrice, cfg.Game.TileRent),
		Rules: game.Rules{
			StartingBalance:      cfg.Game.StartingBalance,
			PassGoBonus:          cfg.Game.PassGoBonus,
			StrictTurns:          cfg.Game.StrictTurns,
			RotateOnLeave:        cfg.Game.RotateOnLeave,
			StrictPurchases:      cfg.Game.StrictPurchases,
			ReleaseOrphanedTiles: cfg.Game.ReleaseOrphanedTiles,
		},
		Roller:     dice.NewRoller(seed),
		ServerDice: cfg.Game.ServerDice,
	}, broadcast.NewSessionBroadcaster(sessions), room.MultiRecorder{journal, mon})

	gameServer := server.NewGameServer(cfg.Server, rooms, sessions, mon)

	// Admin RPC
	rpcServer, err := boardrpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(boardrpc.NewAdminService(rooms, journal)); err != nil {
		logger.Log.Fatalf("Failed to register admin service: %v", err)
	}
	go rpcServer.Start()

	health, err := boardrpc.NewHealthServer(cfg.Server.HealthAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create health server: %v", err)
	}
	go health.Start()

	scheduler := timer.NewScheduler(time.Second)
	scheduler.AddTimer(0, 5*time.Second, func() {
		mon.SetActiveRooms(rooms.Count())
	})
	scheduler.AddTimer(time.Minute, time.Minute, func() {
		logger.Log.Infof("Stats: %d sessions, %d rooms", sessions.Count(), rooms.Count())
	})
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := gameServer.Start(); err != nil {
			logger.Log.Errorf("Game server failed: %v", err)
			stop()
		}
	}()
	health.SetServing(true)
	logger.Log.Infof("Board server started (server dice: %v, strict turns: %v)", cfg.Game.ServerDice, cfg.Game.StrictTurns)

	<-ctx.Done()
	logger.Log.Info("Shutting down...")
	health.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Game server shutdown: %v", err)
	}
	rooms.Close(shutdownCtx)
	scheduler.Stop()
	rpcServer.Stop()
	health.Stop()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Metrics server shutdown: %v", err)
	}
	journal.Close()
	if err := db.Close(); err != nil {
		logger.Log.Warnf("Failed to close database: %v", err)
	}
	logger.Log.Info("Server stopped.")
}
