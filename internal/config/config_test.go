package config

import (
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config directory at a fresh home
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.EndpointURL() != "http://localhost:8080/playlistlog" {
		t.Errorf("EndpointURL = %q", cfg.EndpointURL())
	}
	if cfg.DataDir != filepath.Join(home, ".local", "share", "playlistlog") {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Sessions.Backend != "sqlite" {
		t.Errorf("Sessions.Backend = %q", cfg.Sessions.Backend)
	}
	if cfg.Sessions.Validity != 120000*time.Second {
		t.Errorf("Sessions.Validity = %v", cfg.Sessions.Validity)
	}
	if cfg.History.Format == "" {
		t.Error("History.Format should have a default")
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PLAYLISTLOG_BASE_URL", "https://music.example.com/")
	t.Setenv("PLAYLISTLOG_DATA_DIR", "/srv/playlistlog")
	t.Setenv("PLAYLISTLOG_SESSIONS_BACKEND", "bolt")
	t.Setenv("PLAYLISTLOG_SESSIONS_VALIDITY", "60")
	t.Setenv("PLAYLISTLOG_IMPORT_TEMP_DIR", "/var/tmp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.EndpointURL(); got != "https://music.example.com/playlistlog" {
		t.Errorf("EndpointURL = %q", got)
	}
	if cfg.Sessions.Backend != "bolt" {
		t.Errorf("Sessions.Backend = %q", cfg.Sessions.Backend)
	}
	if cfg.Sessions.Validity != time.Minute {
		t.Errorf("Sessions.Validity = %v", cfg.Sessions.Validity)
	}
	if cfg.Import.TempDir != "/var/tmp" {
		t.Errorf("Import.TempDir = %q", cfg.Import.TempDir)
	}
	if cfg.DBPath() != "/srv/playlistlog/playlistlog.db" {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if cfg.SessionsDBPath() != "/srv/playlistlog/sessions.bolt" {
		t.Errorf("SessionsDBPath = %q", cfg.SessionsDBPath())
	}
	if cfg.SpoolDBPath() != "/srv/playlistlog/spool.db" {
		t.Errorf("SpoolDBPath = %q", cfg.SpoolDBPath())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg.ListenAddr = "127.0.0.1:9000"
	cfg.Sessions.ClearOnShutdown = true
	cfg.History.Width = 72
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("Load after Save failed: %v", err)
	}

	if reloaded.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", reloaded.ListenAddr)
	}
	if !reloaded.Sessions.ClearOnShutdown {
		t.Error("ClearOnShutdown not persisted")
	}
	if reloaded.History.Width != 72 {
		t.Errorf("History.Width = %d", reloaded.History.Width)
	}
}
