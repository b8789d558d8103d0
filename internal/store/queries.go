package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fikahub/raidtrack/internal/model"
)

// ErrPlayerNotFound is returned by operations that target a player who has
// never appeared in the log.
var ErrPlayerNotFound = errors.New("player not found")

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	GameName  string `json:"gameName"`
	Level     int    `json:"level"`
	XP        int64  `json:"xp"`
	Kills     int64  `json:"kills"`
	Deaths    int64  `json:"deaths"`
	Extracts  int64  `json:"extracts"`
	Survivals int64  `json:"survivals"`
	Dogtags   int64  `json:"dogtags"`
}

// QuestBoardEntry is one player's standing on one active quest.
type QuestBoardEntry struct {
	QuestTitle string `json:"questTitle"`
	GameName   string `json:"gameName"`
	Progress   int64  `json:"progress"`
	Target     int64  `json:"target"`
}

// PlayerByName returns the player record for a game name.
func (s *Store) PlayerByName(gameName string) (*model.Player, error) {
	var player model.Player
	err := s.db.First(&player, "game_name = ?", gameName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// SetEligible flips the player's eligibility on. The transition is one-way;
// there is no operation that clears it.
func (s *Store) SetEligible(gameName string) error {
	res := s.db.Model(&model.Player{}).
		Where("game_name = ?", gameName).
		Update("eligible", true)
	if res.Error != nil {
		return fmt.Errorf("set eligible: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// LinkAccount attaches an external account identifier to a player record.
func (s *Store) LinkAccount(gameName, externalID string) error {
	res := s.db.Model(&model.Player{}).
		Where("game_name = ?", gameName).
		Update("external_account_id", externalID)
	if res.Error != nil {
		return fmt.Errorf("link account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// AcceptQuest creates the participation row for a (quest, player) pair.
// Accepting the same quest twice is a no-op; the ingestion engine never calls
// this, it only honors the rows it finds.
func (s *Store) AcceptQuest(questID, playerID uint) error {
	var quest model.Quest
	if err := s.db.First(&quest, "id = ? AND active = ?", questID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("quest %d is not active", questID)
		}
		return err
	}

	progress := model.QuestProgress{QuestID: questID, PlayerID: playerID}
	err := s.db.Where(model.QuestProgress{QuestID: questID, PlayerID: playerID}).
		FirstOrCreate(&progress).Error
	if err != nil {
		return fmt.Errorf("accept quest: %w", err)
	}
	return nil
}

// ActiveQuests returns the current quest window.
func (s *Store) ActiveQuests() ([]model.Quest, error) {
	var quests []model.Quest
	err := s.db.Where("active = ?", true).Order("id").Find(&quests).Error
	return quests, err
}

// QuestProgressFor returns the player's progress row for a quest, or nil if
// the player has not accepted it.
func (s *Store) QuestProgressFor(questID, playerID uint) (*model.QuestProgress, error) {
	var progress model.QuestProgress
	err := s.db.First(&progress, "quest_id = ? AND player_id = ?", questID, playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// QuestBoard returns every participant's standing on the active quests,
// ordered by quest then progress descending. The bot renders this directly.
func (s *Store) QuestBoard() ([]QuestBoardEntry, error) {
	var entries []QuestBoardEntry
	err := s.db.Model(&model.QuestProgress{}).
		Select("quests.title AS quest_title, players.game_name, quest_progress.progress, quests.target").
		Joins("JOIN quests ON quests.id = quest_progress.quest_id").
		Joins("JOIN players ON players.id = quest_progress.player_id").
		Where("quests.active = ?", true).
		Order("quests.id, quest_progress.progress DESC").
		Scan(&entries).Error
	return entries, err
}

// PlayerCard returns the full leaderboard row for one player.
func (s *Store) PlayerCard(gameName string) (*LeaderboardEntry, error) {
	var entry LeaderboardEntry
	res := s.db.Model(&model.Stats{}).
		Select("players.game_name, stats.level, stats.xp, stats.kills, stats.deaths, stats.extracts, stats.survivals, stats.dogtags").
		Joins("JOIN players ON players.id = stats.player_id").
		Where("players.game_name = ?", gameName).
		Limit(1).
		Scan(&entry)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPlayerNotFound
	}
	return &entry, nil
}

// TopPlayers returns the leaderboard ordered by XP.
func (s *Store) TopPlayers(limit int) ([]LeaderboardEntry, error) {
	var entries []LeaderboardEntry
	err := s.db.Model(&model.Stats{}).
		Select("players.game_name, stats.level, stats.xp, stats.kills, stats.deaths, stats.extracts, stats.survivals, stats.dogtags").
		Joins("JOIN players ON players.id = stats.player_id").
		Order("stats.xp DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// GetMeta reads a bookkeeping value. The second return is false when the key
// has never been set.
func (s *Store) GetMeta(key string) (string, bool, error) {
	var meta model.Meta
	err := s.db.First(&meta, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return meta.Value, true, nil
}

// SetMeta upserts a bookkeeping value.
func (s *Store) SetMeta(key, value string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(&model.Meta{Key: key, Value: value}).Error
}
