// Package tailer follows a growing log file and streams appended lines.
// The game server owns the file; the tailer never writes to it and creates
// the parent directory so startup order does not matter.
package tailer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fikahub/raidtrack/internal/channel"
)

// DefaultPollInterval is how long the tailer sleeps when no new data is
// available.
const DefaultPollInterval = 250 * time.Millisecond

// FromEnd tells New to start at the current end of file.
const FromEnd int64 = -1

// Line is one log line plus the byte offset immediately after it, so the
// consumer can checkpoint exactly how far it has committed.
type Line struct {
	Text   string
	Offset int64
}

// Tailer produces an infinite sequence of lines appended to one file.
type Tailer struct {
	path     string
	interval time.Duration
	logger   zerolog.Logger
	lines    channel.Channel[Line]

	file   *os.File
	offset int64
}

// New creates a tailer for the given path and positions it. start is the
// byte offset to resume from; pass FromEnd to skip pre-existing content. An
// offset beyond the current file size means the file was rotated or
// truncated while the process was down, in which case the tailer starts over
// from offset zero. The parent directory and the file itself are created if
// absent so the consumer never fails merely because the game server has not
// written yet.
func New(path string, start int64, logger zerolog.Logger) (*Tailer, error) {
	t := &Tailer{
		path:     path,
		interval: DefaultPollInterval,
		logger:   logger,
		lines:    channel.New[Line](256),
	}
	if err := t.open(start); err != nil {
		return nil, err
	}
	return t, nil
}

// Lines returns the stream of appended lines. The channel is closed when Run
// returns.
func (t *Tailer) Lines() channel.Receiver[Line] {
	return t.lines
}

// Backlog returns the number of lines read but not yet consumed.
func (t *Tailer) Backlog() int {
	return t.lines.Len()
}

// Run tails the file until the context is canceled. It returns only on
// cancellation or an unrecoverable read error.
func (t *Tailer) Run(ctx context.Context) error {
	defer t.lines.Close()
	defer t.file.Close()

	reader := bufio.NewReader(t.file)
	var partial strings.Builder

	for {
		chunk, err := reader.ReadString('\n')
		switch {
		case err == nil:
			t.offset += int64(len(chunk))
			text := partial.String() + strings.TrimRight(chunk, "\r\n")
			partial.Reset()

			// Cancellation must win even when the buffer is full and the
			// consumer is gone, or shutdown wedges here.
			if err := t.lines.SendContext(ctx, Line{Text: text, Offset: t.offset}); err != nil {
				return err
			}

		case err == io.EOF:
			// Keep any partial line and wait for the writer.
			partial.WriteString(chunk)
			t.offset += int64(len(chunk))

			if truncated, terr := t.truncated(); terr == nil && truncated {
				t.logger.Warn().Str("path", t.path).Msg("Log file truncated, restarting from the top")
				t.file.Close()
				if err := t.open(0); err != nil {
					return err
				}
				reader = bufio.NewReader(t.file)
				partial.Reset()
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.interval):
			}

		default:
			return fmt.Errorf("error reading %s: %w", t.path, err)
		}
	}
}

// open creates the parent directory if needed, opens (or creates) the file,
// and seeks to the starting position.
func (t *Tailer) open(start int64) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("error creating log directory: %w", err)
	}

	file, err := os.OpenFile(t.path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("error inspecting log file: %w", err)
	}

	offset := start
	switch {
	case offset == FromEnd:
		offset = info.Size()
	case offset > info.Size():
		t.logger.Warn().
			Int64("offset", offset).Int64("size", info.Size()).
			Msg("Recorded offset beyond file size, starting from the top")
		offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return fmt.Errorf("error seeking log file: %w", err)
	}

	t.file = file
	t.offset = offset
	t.logger.Info().Str("path", t.path).Int64("offset", offset).Msg("Tailing log file")
	return nil
}

// truncated reports whether the file on disk is now smaller than our read
// position, which means it was rotated or truncated underneath us.
func (t *Tailer) truncated() (bool, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		return false, err
	}
	return info.Size() < t.offset, nil
}
