package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig without a file should not fail, got: %v", err)
	}

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Expected default http address :8080, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Game.StartingBalance != 1500 {
		t.Errorf("Expected starting balance 1500, got %d", cfg.Game.StartingBalance)
	}
	if cfg.Game.TilePrice != 200 || cfg.Game.TileRent != 200 || cfg.Game.PassGoBonus != 200 {
		t.Errorf("Unexpected economy defaults: %+v", cfg.Game)
	}
	if !cfg.Game.ServerDice || !cfg.Game.StrictTurns {
		t.Error("Expected server dice and strict turns to be on by default")
	}
	if cfg.Game.ReleaseOrphanedTiles {
		t.Error("Expected orphaned tiles to be kept by default")
	}
	if cfg.Game.RotateOnLeave || cfg.Game.StrictPurchases {
		t.Error("Expected rotate_on_leave and strict_purchases to be off by default")
	}
	if cfg.Server.Heartbeat != 30*time.Second {
		t.Errorf("Expected heartbeat 30s, got %v", cfg.Server.Heartbeat)
	}
	if cfg.Database.Driver != "none" {
		t.Errorf("Expected database driver none, got %s", cfg.Database.Driver)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  http_address: ":9999"
  rate_limit:
    events_per_second: 5
game:
  strict_turns: false
  starting_balance: 2000
database:
  driver: gorm
  postgres:
    host: db.internal
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9999" {
		t.Errorf("Expected http address :9999, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Server.RateLimit.EventsPerSecond != 5 {
		t.Errorf("Expected 5 events per second, got %v", cfg.Server.RateLimit.EventsPerSecond)
	}
	if cfg.Server.RateLimit.Burst != 40 {
		t.Errorf("Expected default burst 40 to survive a partial override, got %d", cfg.Server.RateLimit.Burst)
	}
	if cfg.Game.StrictTurns {
		t.Error("Expected strict turns to be disabled by the file")
	}
	if cfg.Game.StartingBalance != 2000 {
		t.Errorf("Expected starting balance 2000, got %d", cfg.Game.StartingBalance)
	}
	if cfg.Database.Driver != "gorm" || cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("Unexpected database config: %+v", cfg.Database)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Postgres.Port)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("BOARD_GAME_TILE_RENT", "50")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Game.TileRent != 50 {
		t.Errorf("Expected env to set tile rent to 50, got %d", cfg.Game.TileRent)
	}
}
