package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/config"
)

func TestSetupLoggingWritesToFile(t *testing.T) {
	orig, origLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	path := filepath.Join(t.TempDir(), "sim.log")
	f, err := setupLogging(config.LogConfig{Level: "debug", UseJSON: true, File: path})
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	log.Debug().Str("screen", "humidity").Msg("edit session started")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"screen":"humidity"`) {
		t.Errorf("log file: got %q", data)
	}
}

func TestSetupLoggingBadLevelFallsBackToInfo(t *testing.T) {
	orig, origLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	f, err := setupLogging(config.LogConfig{Level: "chatty", File: filepath.Join(t.TempDir(), "sim.log")})
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer f.Close()
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level: got %s, want info", zerolog.GlobalLevel())
	}
}
