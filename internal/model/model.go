package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema.
var DatabaseModels = []interface{}{
	&Player{},
	&Stats{},
	&Event{},
	&Quest{},
	&QuestProgress{},
	&Meta{},
}

// Player is the identity anchor for everything tracked. A player is created
// the first time their name appears in the log and never deleted.
// ExternalAccountID and Eligible are written by the API collaborator, not by
// the ingestion engine; Eligible is a one-way ineligible -> eligible switch
// that gates XP accrual.
type Player struct {
	ID                uint      `json:"id" gorm:"primarykey"`
	GameName          string    `json:"gameName" gorm:"size:127;uniqueIndex;not null"`
	ExternalAccountID string    `json:"externalAccountId" gorm:"size:64;index"`
	Eligible          bool      `json:"eligible" gorm:"not null;default:false"`
	FirstSeen         time.Time `json:"firstSeen" gorm:"autoCreateTime"`
	LastSeen          time.Time `json:"lastSeen"`
}

func (*Player) TableName() string {
	return "players"
}

// Stats holds the cumulative counters and progression for one player.
// Level is derived from XP and only ever raised, never lowered.
type Stats struct {
	PlayerID        uint   `json:"playerId" gorm:"primarykey;autoIncrement:false"`
	Player          Player `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:PlayerID"`
	XP              int64  `json:"xp" gorm:"column:xp;not null;default:0"`
	Level           int    `json:"level" gorm:"not null;default:1"`
	Kills           int64  `json:"kills" gorm:"not null;default:0"`
	Deaths          int64  `json:"deaths" gorm:"not null;default:0"`
	Extracts        int64  `json:"extracts" gorm:"not null;default:0"`
	Survivals       int64  `json:"survivals" gorm:"not null;default:0"`
	Dogtags         int64  `json:"dogtags" gorm:"not null;default:0"`
	PlaytimeSeconds int64  `json:"playtimeSeconds" gorm:"not null;default:0"`
}

func (*Stats) TableName() string {
	return "stats"
}

// Event is the append-only audit trail of everything the parser matched.
// Rows are written once and never re-read by the engine.
type Event struct {
	ID       uint           `json:"id" gorm:"primarykey"`
	Time     time.Time      `json:"time" gorm:"column:ts;index:idx_events_ts"`
	Type     string         `json:"type" gorm:"size:32;index:idx_events_type"`
	GameName string         `json:"gameName" gorm:"size:127"`
	Payload  datatypes.JSON `json:"payload" gorm:"column:payload_json"`
}

func (*Event) TableName() string {
	return "events"
}

// Quest is a time-boxed objective. At most one set of quests is active at a
// time; expired quests are deactivated, never deleted.
type Quest struct {
	ID            uint      `json:"id" gorm:"primarykey"`
	Key           string    `json:"key" gorm:"size:64;uniqueIndex;not null"`
	Title         string    `json:"title" gorm:"size:255"`
	ObjectiveType string    `json:"objectiveType" gorm:"size:32"`
	EventType     string    `json:"eventType" gorm:"size:32;index"`
	Target        int64     `json:"target" gorm:"not null"`
	StartTime     time.Time `json:"startTime" gorm:"column:start_ts"`
	EndTime       time.Time `json:"endTime" gorm:"column:end_ts"`
	Active        bool      `json:"active" gorm:"not null;default:false;index"`
}

func (*Quest) TableName() string {
	return "quests"
}

// QuestProgress is one player's participation in one quest. The row exists
// only after explicit acceptance; no row means not participating.
// CompletedAt is set exactly once, when Progress first reaches the target.
type QuestProgress struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	QuestID     uint       `json:"questId" gorm:"uniqueIndex:idx_quest_player;not null"`
	Quest       Quest      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:QuestID"`
	PlayerID    uint       `json:"playerId" gorm:"uniqueIndex:idx_quest_player;not null"`
	Player      Player     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:PlayerID"`
	Progress    int64      `json:"progress" gorm:"not null;default:0"`
	CompletedAt *time.Time `json:"completedAt" gorm:"column:completed_ts"`
}

func (*QuestProgress) TableName() string {
	return "quest_progress"
}

// Meta is a generic key/value table for process bookkeeping. The engine uses
// it for the ingest offset checkpoint; the rendering collaborator owns its
// own keys (for example the last published leaderboard message reference).
type Meta struct {
	Key   string `json:"key" gorm:"primarykey;size:64"`
	Value string `json:"value" gorm:"size:1024"`
}

func (*Meta) TableName() string {
	return "meta"
}
