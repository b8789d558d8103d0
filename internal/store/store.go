// Package store owns the persisted progression state. Every logical
// operation is one transaction; the SQLite file is shared with the API
// process, so nothing here holds state outside the database.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fikahub/raidtrack/internal/leveling"
	"github.com/fikahub/raidtrack/internal/model"
	"github.com/fikahub/raidtrack/internal/parser"
)

// counterColumns maps event types onto their stats counter. Events of any
// other type increment nothing.
var counterColumns = map[string]string{
	parser.EventKill:    "kills",
	parser.EventDeath:   "deaths",
	parser.EventExtract: "extracts",
	parser.EventSurvive: "survivals",
	parser.EventDogtag:  "dogtags",
}

// Store applies events against the progression schema and exposes the read
// and acceptance operations the API and bot collaborators consume.
type Store struct {
	db      *gorm.DB
	rewards map[string]int64

	// now supplies transaction timestamps; overridable in tests.
	now func() time.Time
}

// New creates a store over an open, migrated database. rewards carries the
// rule set's per-type XP overrides and may be nil.
func New(db *gorm.DB, rewards map[string]int64) *Store {
	return &Store{
		db:      db,
		rewards: rewards,
		now:     time.Now,
	}
}

// ApplyEvent records one event and all of its derived effects in a single
// transaction. On error nothing is visible; the caller treats the event's
// processing cycle as failed.
func (s *Store) ApplyEvent(ev parser.Event) error {
	now := s.now().UTC()

	return s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Upsert player by game name.
		var player model.Player
		err := tx.Where(model.Player{GameName: ev.GameName}).
			Attrs(model.Player{FirstSeen: now, LastSeen: now}).
			FirstOrCreate(&player).Error
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", ev.GameName, err)
		}
		if err := tx.Model(&player).Update("last_seen", now).Error; err != nil {
			return fmt.Errorf("refresh last_seen: %w", err)
		}

		// 2. Ensure a stats row exists.
		var stats model.Stats
		err = tx.Where(model.Stats{PlayerID: player.ID}).
			Attrs(model.Stats{Level: 1}).
			FirstOrCreate(&stats).Error
		if err != nil {
			return fmt.Errorf("ensure stats: %w", err)
		}

		// 3. Append the raw event, always.
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		record := model.Event{
			Time:     ev.Time,
			Type:     ev.Type,
			GameName: ev.GameName,
			Payload:  datatypes.JSON(payload),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("append event: %w", err)
		}

		// 4. Increment the matching counter, if any.
		if col, ok := counterColumns[ev.Type]; ok {
			err = tx.Model(&model.Stats{}).
				Where("player_id = ?", player.ID).
				UpdateColumn(col, gorm.Expr(col+" + 1")).Error
			if err != nil {
				return fmt.Errorf("increment %s: %w", col, err)
			}
		}

		// 5. XP and leveling, gated on eligibility. The flag is read inside
		// this transaction, never cached across events.
		if player.Eligible {
			if xp := leveling.XPForEvent(ev.Type, ev.Payload, s.rewards); xp > 0 {
				if err := s.awardXP(tx, player.ID, xp); err != nil {
					return err
				}
			}
		}

		// 6 + 7. Quest progress and completion for accepted quests only.
		if err := s.advanceQuests(tx, player.ID, ev.Type, now); err != nil {
			return err
		}

		return nil
	})
}

// awardXP adds xp to the player's total and raises the level if the new
// total implies a higher one. The level is never lowered.
func (s *Store) awardXP(tx *gorm.DB, playerID uint, xp int64) error {
	err := tx.Model(&model.Stats{}).
		Where("player_id = ?", playerID).
		UpdateColumn("xp", gorm.Expr("xp + ?", xp)).Error
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}

	var stats model.Stats
	if err := tx.First(&stats, "player_id = ?", playerID).Error; err != nil {
		return fmt.Errorf("reload stats: %w", err)
	}

	if lvl := leveling.LevelFromXP(stats.XP); lvl > stats.Level {
		err = tx.Model(&model.Stats{}).
			Where("player_id = ?", playerID).
			UpdateColumn("level", lvl).Error
		if err != nil {
			return fmt.Errorf("raise level: %w", err)
		}
	}
	return nil
}

// advanceQuests increments progress by one for every active quest matching
// the event type where the player holds an acceptance row, then stamps
// completion once progress reaches the target. Players without an acceptance
// row are untouched; completion is never re-triggered.
func (s *Store) advanceQuests(tx *gorm.DB, playerID uint, eventType string, now time.Time) error {
	err := tx.Model(&model.QuestProgress{}).
		Where("player_id = ?", playerID).
		Where("quest_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
			Model(&model.Quest{}).Select("id").
			Where("active = ? AND event_type = ?", true, eventType)).
		Where("progress < (SELECT target FROM quests WHERE quests.id = quest_progress.quest_id)").
		UpdateColumn("progress", gorm.Expr("progress + 1")).Error
	if err != nil {
		return fmt.Errorf("advance quest progress: %w", err)
	}

	err = tx.Model(&model.QuestProgress{}).
		Where("player_id = ?", playerID).
		Where("completed_ts IS NULL").
		Where("quest_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
			Model(&model.Quest{}).Select("id").
			Where("active = ?", true)).
		Where("progress >= (SELECT target FROM quests WHERE quests.id = quest_progress.quest_id)").
		UpdateColumn("completed_ts", now).Error
	if err != nil {
		return fmt.Errorf("stamp quest completion: %w", err)
	}
	return nil
}
