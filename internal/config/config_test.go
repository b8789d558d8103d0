package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	if err := Load(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	if got := GetString("logLevel"); got != "info" {
		t.Errorf("expected default logLevel info, got %q", got)
	}
	if got := GetString("gameLog"); got != "./server.log" {
		t.Errorf("expected default gameLog ./server.log, got %q", got)
	}
	if GetBool("influx.enabled") {
		t.Error("influx must be disabled by default")
	}
	if got := viper.GetDuration("rotation.checkInterval"); got != 10*time.Minute {
		t.Errorf("expected default rotation interval 10m, got %v", got)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	cfg := `{"logLevel": "debug", "gameLog": "/srv/game/server.log", "db": {"host": "db.internal"}}`
	if err := os.WriteFile(filepath.Join(dir, "raidtrack.cfg.json"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Load(dir); err != nil {
		t.Fatal(err)
	}

	if got := GetString("logLevel"); got != "debug" {
		t.Errorf("expected logLevel debug, got %q", got)
	}
	if got := GetString("gameLog"); got != "/srv/game/server.log" {
		t.Errorf("unexpected gameLog %q", got)
	}
	if got := GetString("db.host"); got != "db.internal" {
		t.Errorf("expected db.host db.internal, got %q", got)
	}
	// Untouched keys keep their defaults.
	if got := GetString("db.port"); got != "5432" {
		t.Errorf("expected default db.port 5432, got %q", got)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "raidtrack.cfg.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Load(dir); err == nil {
		t.Error("expected error for malformed config file")
	}
}
