// Package monitor periodically snapshots ingestion throughput and reports it
// to the log and, when configured, to InfluxDB.
package monitor

import (
	"database/sql"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog"

	"github.com/fikahub/raidtrack/internal/influx"
	"github.com/fikahub/raidtrack/internal/ingest"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Loop     *ingest.Loop
	DB       *sql.DB         // nil skips connection pool stats
	Influx   *influx.Manager // nil disables metric shipping
	Logger   zerolog.Logger
	Interval time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start launches the reporting loop. Calling Start on a running service is a
// no-op.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.run()
}

// Stop terminates the reporting loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}

func (s *Service) run() {
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.report()
		}
	}
}

func (s *Service) report() {
	snap := s.deps.Loop.Snapshot()

	entry := s.deps.Logger.Info().
		Uint64("linesRead", snap.LinesRead).
		Uint64("eventsParsed", snap.EventsParsed).
		Uint64("eventsApplied", snap.EventsApplied).
		Uint64("applyErrors", snap.ApplyErrors).
		Float64("lastApplyMs", snap.LastApplyMs).
		Int("backlog", snap.Backlog)

	fields := map[string]interface{}{
		"lines_read":     snap.LinesRead,
		"events_parsed":  snap.EventsParsed,
		"events_applied": snap.EventsApplied,
		"apply_errors":   snap.ApplyErrors,
		"last_apply_ms":  snap.LastApplyMs,
		"backlog":        snap.Backlog,
	}

	if s.deps.DB != nil {
		dbStats := s.deps.DB.Stats()
		entry = entry.
			Int("dbOpenConns", dbStats.OpenConnections).
			Int("dbInUse", dbStats.InUse).
			Int64("dbWaitCount", dbStats.WaitCount)
		fields["db_open_conns"] = dbStats.OpenConnections
		fields["db_in_use"] = dbStats.InUse
		fields["db_wait_count"] = dbStats.WaitCount
	}

	entry.Msg("Ingest status")

	if s.deps.Influx == nil {
		return
	}

	point := influxdb2.NewPoint("ingest_status", map[string]string{}, fields, time.Now())
	if err := s.deps.Influx.WritePoint(point); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Failed to write ingest status point")
	}
}
