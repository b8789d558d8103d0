// raidtrack tails a live game-server log, turns lines into typed gameplay
// events, and applies each one to the shared progression database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/fikahub/raidtrack/internal/config"
	"github.com/fikahub/raidtrack/internal/database"
	"github.com/fikahub/raidtrack/internal/influx"
	"github.com/fikahub/raidtrack/internal/ingest"
	"github.com/fikahub/raidtrack/internal/logging"
	"github.com/fikahub/raidtrack/internal/monitor"
	"github.com/fikahub/raidtrack/internal/parser"
	"github.com/fikahub/raidtrack/internal/quest"
	"github.com/fikahub/raidtrack/internal/rules"
	"github.com/fikahub/raidtrack/internal/store"
	"github.com/fikahub/raidtrack/internal/tailer"
)

// Version can be set at build time via ldflags.
var Version = "0.0.1"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String("config", ".", "directory containing raidtrack.cfg.json")
	forceRotate := flag.Bool("force-rotate", false, "expire all active quests and replenish, then exit")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		return err
	}

	sessionStart := time.Now()
	logger, logFile, err := logging.Setup("raidtrack", sessionStart)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger.Info().Str("version", Version).Msg("Starting up")

	// Database
	dbManager := database.NewManager(logger)
	if err := dbManager.Connect(); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := dbManager.Setup(); err != nil {
		return fmt.Errorf("database setup failed: %w", err)
	}

	rotator := quest.NewRotator(dbManager.DB, logger)
	if *forceRotate {
		if err := rotator.ForceRotate(); err != nil {
			return fmt.Errorf("force rotation failed: %w", err)
		}
		logger.Info().Msg("Forced quest rotation complete")
		return nil
	}

	// Rule set
	ruleSet, err := rules.Load(viper.GetString("rulesFile"))
	if err != nil {
		return fmt.Errorf("rule set failed to load: %w", err)
	}
	logger.Info().Int("patterns", len(ruleSet.Rules)).Msg("Rule set loaded")

	progression := store.New(dbManager.DB, ruleSet.Rewards)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Quest rotation: once now, then on a recurring check so a window cannot
	// outlive its end time until the next restart.
	go rotator.Run(ctx, viper.GetDuration("rotation.checkInterval"))

	// Tailer resumes from the last committed offset when one is recorded.
	offset, err := ingest.ResumeOffset(progression)
	if err != nil {
		logger.Warn().Err(err).Msg("Ignoring unreadable offset checkpoint")
		offset = tailer.FromEnd
	}
	tail, err := tailer.New(viper.GetString("gameLog"), offset, logger)
	if err != nil {
		return fmt.Errorf("tailer init failed: %w", err)
	}

	loop, err := ingest.New(tail, parser.New(ruleSet), progression, logger)
	if err != nil {
		return fmt.Errorf("ingest loop init failed: %w", err)
	}

	// Optional metrics
	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(viper.GetString("logsDir"), "influx_backup.gz")
		influxManager = influx.NewManager(logger, backupPath)
		if err := influxManager.Connect(); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB unavailable, metrics disabled")
			influxManager = nil
		} else {
			defer influxManager.Close()
		}
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		Loop:     loop,
		DB:       dbManager.SqlDB,
		Influx:   influxManager,
		Logger:   logger,
		Interval: viper.GetDuration("monitor.interval"),
	})
	monitorService.Start()
	defer monitorService.Stop()

	tailErr := make(chan error, 1)
	go func() {
		tailErr <- tail.Run(ctx)
	}()

	err = loop.Run(ctx)
	switch {
	case err == nil || ctx.Err() != nil:
		logger.Info().Msg("Shutting down")
	default:
		logger.Error().Err(err).Msg("Ingestion stopped")
	}
	cancel()

	if terr := <-tailErr; terr != nil && !errors.Is(terr, context.Canceled) {
		logger.Error().Err(terr).Msg("Tailer stopped with error")
	}

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
