package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fikahub/raidtrack/internal/model"
	"github.com/fikahub/raidtrack/internal/parser"
)

func TestSetEligibleUnknownPlayer(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.SetEligible("Nobody"), ErrPlayerNotFound)
}

func TestLinkAccount(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventSurvive, "Alice")))

	require.NoError(t, s.LinkAccount("Alice", "discord:1234"))

	player, err := s.PlayerByName("Alice")
	require.NoError(t, err)
	assert.Equal(t, "discord:1234", player.ExternalAccountID)

	assert.ErrorIs(t, s.LinkAccount("Nobody", "discord:1"), ErrPlayerNotFound)
}

func TestAcceptQuestIdempotent(t *testing.T) {
	s := newTestStore(t)
	quest := activeQuest(t, s, "dogtags_week", "DOGTAG", 5)
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, "Alice")))
	player, err := s.PlayerByName("Alice")
	require.NoError(t, err)

	require.NoError(t, s.AcceptQuest(quest.ID, player.ID))
	require.NoError(t, s.AcceptQuest(quest.ID, player.ID))

	var count int64
	require.NoError(t, s.db.Model(&model.QuestProgress{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAcceptQuestRejectsInactive(t *testing.T) {
	s := newTestStore(t)
	quest := activeQuest(t, s, "old_week", "DOGTAG", 5)
	require.NoError(t, s.db.Model(&model.Quest{}).
		Where("id = ?", quest.ID).
		Update("active", false).Error)

	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, "Alice")))
	player, err := s.PlayerByName("Alice")
	require.NoError(t, err)

	assert.Error(t, s.AcceptQuest(quest.ID, player.ID))
}

func TestActiveQuests(t *testing.T) {
	s := newTestStore(t)
	activeQuest(t, s, "dogtags_week", "DOGTAG", 5)
	activeQuest(t, s, "survive_week", "SURVIVE", 5)

	quests, err := s.ActiveQuests()
	require.NoError(t, err)
	require.Len(t, quests, 2)
	assert.Equal(t, "dogtags_week", quests[0].Key)
	assert.Equal(t, "survive_week", quests[1].Key)
}

func TestQuestBoard(t *testing.T) {
	s := newTestStore(t)
	quest := activeQuest(t, s, "dogtags_week", "DOGTAG", 5)

	for _, name := range []string{"Alice", "Bob"} {
		require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, name)))
		player, err := s.PlayerByName(name)
		require.NoError(t, err)
		require.NoError(t, s.AcceptQuest(quest.ID, player.ID))
	}
	// Alice pulls ahead.
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, "Alice")))
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, "Alice")))
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventDogtag, "Bob")))

	board, err := s.QuestBoard()
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "Alice", board[0].GameName)
	assert.Equal(t, int64(2), board[0].Progress)
	assert.Equal(t, "Bob", board[1].GameName)
	assert.Equal(t, int64(1), board[1].Progress)
	assert.Equal(t, int64(5), board[0].Target)
}

func TestTopPlayersAndPlayerCard(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"Alice", "Bob"} {
		require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventSurvive, name)))
		require.NoError(t, s.SetEligible(name))
	}
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventSurvive, "Alice")))
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventSurvive, "Alice")))
	require.NoError(t, s.ApplyEvent(simpleEvent(parser.EventSurvive, "Bob")))

	top, err := s.TopPlayers(10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Alice", top[0].GameName)
	assert.Equal(t, int64(300), top[0].XP)
	assert.Equal(t, 2, top[0].Level)
	assert.Equal(t, "Bob", top[1].GameName)
	assert.Equal(t, int64(150), top[1].XP)

	card, err := s.PlayerCard("Bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), card.Survivals)

	_, err = s.PlayerCard("Nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestMetaRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetMeta("ingest.offset")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta("ingest.offset", "42"))
	value, ok, err := s.GetMeta("ingest.offset")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", value)

	require.NoError(t, s.SetMeta("ingest.offset", "99"))
	value, _, err = s.GetMeta("ingest.offset")
	require.NoError(t, err)
	assert.Equal(t, "99", value)
}
