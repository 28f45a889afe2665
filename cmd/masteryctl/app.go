package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/soroban-labs/mastery"
	"github.com/soroban-labs/mastery/engine"
	"github.com/soroban-labs/mastery/store"
)

// app bundles the engine with the resources it borrows.
type app struct {
	engine *engine.Engine
	db     *badger.DB
	log    *zap.Logger
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.db.Close()
}

// openApp builds an engine from the shared flags: configuration file,
// skill catalog and database directory.
func openApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")
	skillsPath, _ := cmd.Flags().GetString("skills")

	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(skillsPath)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenBadger(store.BadgerConfig{
		Path:       dbPath,
		SyncWrites: true,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Options{
		Catalog:          catalog,
		States:           store.NewBadgerStates(db),
		Deferrals:        store.NewBadgerDeferrals(db),
		Params:           cfg.MasteryParams(),
		Thresholds:       cfg.MasteryThresholds(),
		Planner:          cfg.MasteryPlanner(),
		Anomaly:          cfg.MasteryAnomaly(),
		DeferralDuration: cfg.Deferral.Duration,
		Logger:           log,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{engine: eng, db: db, log: log}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// loadCatalog reads a JSON array of skills.
func loadCatalog(path string) (*mastery.Catalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalog: %w", err)
	}

	var skills []mastery.Skill
	if err := json.Unmarshal(buf, &skills); err != nil {
		return nil, fmt.Errorf("parse skill catalog %s: %w", path, err)
	}
	return mastery.NewCatalog(skills...)
}
