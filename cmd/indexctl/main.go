package main

import (
	"fmt"
	"os"

	"github.com/Olexandr88/indexreg/internal/journal"
	"github.com/Olexandr88/indexreg/internal/logging"
	"github.com/Olexandr88/indexreg/internal/observability"
	"github.com/Olexandr88/indexreg/internal/registry"
	"github.com/Olexandr88/indexreg/internal/server"
)

const defaultDataDir = "data/indexreg"

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "indexctl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logging.ConfigureRuntime()
	logger := observability.InitLogger("indexctl")
	observability.RegisterMetrics()

	cfg, jcfg, err := loadRuntimeConfig(configPath)
	if err != nil {
		return err
	}
	jcfg.Logger = &logger

	jnl, err := journal.Open(jcfg)
	if err != nil {
		return err
	}
	defer jnl.Close()

	reg := registry.New()
	applied, err := journal.Rebuild(jnl, reg)
	if err != nil {
		return fmt.Errorf("rebuild registry from journal: %w", err)
	}
	logger.Info().
		Uint64("records_applied", applied).
		Uint64("last_block", uint64(reg.LastBlock())).
		Uint32("operators", reg.TotalOperators()).
		Msg("registry_rebuilt")

	svc := server.NewService(cfg, reg, jnl, logger)
	return svc.Run()
}
