package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Olexandr88/indexreg/internal/journal"
	"github.com/Olexandr88/indexreg/internal/server"
)

// indexctl config.toml key mapping to registry runtime settings.
type fileConfig struct {
	ListenAddr        string `toml:"listen_addr"`
	CoordinatorToken  string `toml:"coordinator_token"`
	CORSEnabled       bool   `toml:"cors_enabled"`
	ShutdownTimeoutMS int64  `toml:"shutdown_timeout_ms"`
	DataDir           string `toml:"data_dir"`
	JournalInMemory   bool   `toml:"journal_in_memory"`
	JournalSyncWrites bool   `toml:"journal_sync_writes"`
}

// indexctl loader for TOML config with default overlay.
func loadRuntimeConfig(path string) (server.ServiceConfig, journal.Config, error) {
	cfg := server.DefaultServiceConfig()
	jcfg := journal.DefaultConfig(defaultDataDir)

	if path == "" {
		return cfg, jcfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, journal.Config{}, fmt.Errorf("load indexctl config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("coordinator_token") {
		cfg.CoordinatorToken = strings.TrimSpace(raw.CoordinatorToken)
	}
	if meta.IsDefined("cors_enabled") {
		cfg.CORSEnabled = raw.CORSEnabled
	}
	if meta.IsDefined("shutdown_timeout_ms") {
		if raw.ShutdownTimeoutMS <= 0 {
			return server.ServiceConfig{}, journal.Config{}, fmt.Errorf(
				"load indexctl config: shutdown_timeout_ms must be positive, got %d",
				raw.ShutdownTimeoutMS,
			)
		}
		cfg.ShutdownTimeout = time.Duration(raw.ShutdownTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("data_dir") {
		dir := strings.TrimSpace(raw.DataDir)
		if dir == "" {
			return server.ServiceConfig{}, journal.Config{}, fmt.Errorf(
				"load indexctl config: data_dir must not be empty",
			)
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(path), dir)
		}
		jcfg.Path = dir
	}
	if meta.IsDefined("journal_in_memory") {
		jcfg.InMemory = raw.JournalInMemory
		if jcfg.InMemory {
			jcfg.Path = ""
		}
	}
	if meta.IsDefined("journal_sync_writes") {
		jcfg.SyncWrites = raw.JournalSyncWrites
	}

	if cfg.ListenAddr == "" {
		return server.ServiceConfig{}, journal.Config{}, fmt.Errorf(
			"load indexctl config: listen_addr must not be empty",
		)
	}

	return cfg, jcfg, nil
}
