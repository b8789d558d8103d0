package monitor

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fikahub/raidtrack/internal/database"
	"github.com/fikahub/raidtrack/internal/ingest"
	"github.com/fikahub/raidtrack/internal/model"
	"github.com/fikahub/raidtrack/internal/parser"
	"github.com/fikahub/raidtrack/internal/rules"
	"github.com/fikahub/raidtrack/internal/store"
	"github.com/fikahub/raidtrack/internal/tailer"
)

func newTestService(t *testing.T, out *bytes.Buffer) *Service {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	sqlDB, err := db.DB()
	require.NoError(t, err)

	tl, err := tailer.New(filepath.Join(t.TempDir(), "server.log"), tailer.FromEnd, zerolog.Nop())
	require.NoError(t, err)
	loop, err := ingest.New(tl, parser.New(&rules.RuleSet{}), store.New(db, nil), zerolog.Nop())
	require.NoError(t, err)

	return NewService(Dependencies{
		Loop:     loop,
		DB:       sqlDB,
		Logger:   zerolog.New(out),
		Interval: time.Minute,
	})
}

func TestReportIncludesDBPoolStats(t *testing.T) {
	var out bytes.Buffer
	svc := newTestService(t, &out)

	svc.report()

	line := out.String()
	require.True(t, strings.Contains(line, "Ingest status"), "missing status line: %s", line)
	require.True(t, strings.Contains(line, "dbOpenConns"), "missing pool stats: %s", line)
	require.True(t, strings.Contains(line, "dbInUse"), "missing pool stats: %s", line)
}

func TestReportWithoutDB(t *testing.T) {
	var out bytes.Buffer
	svc := newTestService(t, &out)
	svc.deps.DB = nil

	svc.report()

	line := out.String()
	require.True(t, strings.Contains(line, "Ingest status"))
	require.False(t, strings.Contains(line, "dbOpenConns"))
}

func TestStartStop(t *testing.T) {
	var out bytes.Buffer
	svc := newTestService(t, &out)

	svc.Start()
	require.True(t, svc.IsRunning())
	svc.Start() // second Start is a no-op
	require.True(t, svc.IsRunning())

	svc.Stop()
	require.False(t, svc.IsRunning())
}
