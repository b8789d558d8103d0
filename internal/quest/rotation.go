// Package quest owns the quest window lifecycle: expiring quests whose end
// time has passed and replenishing the fixed baseline set when none remain.
package quest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/fikahub/raidtrack/internal/model"
)

// WindowDuration is how long one quest window stays active.
const WindowDuration = 7 * 24 * time.Hour

// baseline describes the quest set created by every replenishment. The
// stored key gets the window start date appended so quest identity stays
// unique across windows and old QuestProgress rows keep pointing at the
// window they were earned in.
var baseline = []model.Quest{
	{Key: "dogtags_week", Title: "Collect 5 dog tags", ObjectiveType: "count_event", EventType: "DOGTAG", Target: 5},
	{Key: "survive_week", Title: "Survive 5 raids", ObjectiveType: "count_event", EventType: "SURVIVE", Target: 5},
}

// Rotator manages the single current quest window.
type Rotator struct {
	db     *gorm.DB
	logger zerolog.Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewRotator creates a rotator over an open, migrated database.
func NewRotator(db *gorm.DB, logger zerolog.Logger) *Rotator {
	return &Rotator{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Rotate expires quests whose end time has passed and, if that leaves zero
// active quests, creates a new baseline window. Idempotent: re-running while
// a window is still live does nothing.
func (r *Rotator) Rotate() error {
	return r.rotate(false)
}

// ForceRotate expires every active quest regardless of its end time and
// immediately replenishes. Administrative override path.
func (r *Rotator) ForceRotate() error {
	return r.rotate(true)
}

func (r *Rotator) rotate(force bool) error {
	now := r.now().UTC()

	return r.db.Transaction(func(tx *gorm.DB) error {
		expire := tx.Model(&model.Quest{}).Where("active = ?", true)
		if !force {
			expire = expire.Where("end_ts <= ?", now)
		}
		res := expire.Update("active", false)
		if res.Error != nil {
			return fmt.Errorf("expire quests: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			r.logger.Info().Int64("expired", res.RowsAffected).Msg("Deactivated quests past their window")
		}

		var active int64
		if err := tx.Model(&model.Quest{}).Where("active = ?", true).Count(&active).Error; err != nil {
			return fmt.Errorf("count active quests: %w", err)
		}
		if active > 0 {
			return nil
		}

		end := now.Add(WindowDuration)
		for _, q := range baseline {
			quest := q
			quest.Key = fmt.Sprintf("%s_%s", q.Key, now.Format("20060102_150405"))
			quest.StartTime = now
			quest.EndTime = end
			quest.Active = true
			if err := tx.Create(&quest).Error; err != nil {
				return fmt.Errorf("create quest %s: %w", quest.Key, err)
			}
			r.logger.Info().Str("key", quest.Key).Time("end", end).Msg("Created quest")
		}
		return nil
	})
}

// Run rotates once immediately and then on every tick until the context is
// canceled, so a quest window cannot outlive its end time by more than one
// interval.
func (r *Rotator) Run(ctx context.Context, interval time.Duration) {
	if err := r.Rotate(); err != nil {
		r.logger.Error().Err(err).Msg("Quest rotation failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Rotate(); err != nil {
				r.logger.Error().Err(err).Msg("Quest rotation failed")
			}
		}
	}
}
