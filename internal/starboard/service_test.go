package starboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"github.com/hazelline/communitybot-backend/pkg/discord"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/hazelline/communitybot-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStarboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	configs := `
CREATE TABLE IF NOT EXISTS starboard_configs (
  guild_id INTEGER PRIMARY KEY,
  channel_id INTEGER NOT NULL,
  star_threshold INTEGER NOT NULL DEFAULT 3,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	starred := `
CREATE TABLE IF NOT EXISTS starred_messages (
  source_message_id INTEGER PRIMARY KEY,
  guild_id INTEGER NOT NULL,
  source_channel_id INTEGER NOT NULL,
  mirror_message_id INTEGER,
  star_count INTEGER NOT NULL DEFAULT 0,
  posting INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

	for _, statement := range []string{configs, starred} {
		require.NoError(t, db.Exec(statement).Error)
	}
	return db
}

type fakeGateway struct {
	botID    int64
	messages map[int64]*discord.Message
	sendErr  error
	nextID   int64

	sent    []discord.SendMessage
	edits   []discord.EditMessage
	deleted []int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		botID:    999,
		messages: map[int64]*discord.Message{},
		nextID:   5000,
	}
}

func (g *fakeGateway) BotUserID() int64 { return g.botID }

func (g *fakeGateway) Message(_ context.Context, _, messageID int64) (*discord.Message, error) {
	msg, ok := g.messages[messageID]
	if !ok {
		return nil, &discord.APIError{Status: 404, Message: "Unknown Message"}
	}
	return msg, nil
}

func (g *fakeGateway) Send(_ context.Context, channelID int64, payload discord.SendMessage) (*discord.Message, error) {
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.nextID++
	g.sent = append(g.sent, payload)
	mirror := &discord.Message{
		ID:        discord.Snowflake(g.nextID),
		ChannelID: discord.Snowflake(channelID),
		Author:    discord.User{ID: discord.Snowflake(g.botID), Username: "communitybot", Bot: true},
		Content:   payload.Content,
	}
	g.messages[g.nextID] = mirror
	return mirror, nil
}

func (g *fakeGateway) Edit(_ context.Context, _, _ int64, payload discord.EditMessage) error {
	g.edits = append(g.edits, payload)
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, _, messageID int64) error {
	g.deleted = append(g.deleted, messageID)
	delete(g.messages, messageID)
	return nil
}

func (g *fakeGateway) setStars(messageID int64, count int) {
	msg := g.messages[messageID]
	msg.Reactions = []discord.Reaction{{Count: count, Emoji: discord.Emoji{Name: StarEmoji}}}
}

type fakeCache struct {
	values   map[string]string
	counters map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}, counters: map[string]int64{}}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	value, ok := c.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		c.values[key] = string(v)
	case string:
		c.values[key] = v
	}
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.counters[key]++
	return c.counters[key], nil
}

func (c *fakeCache) CacheKey(scope, id string) string { return "cb:cache:" + scope + ":" + id }

func (c *fakeCache) CounterKey(name string) string { return "cb:counter:" + name }

const (
	testGuild     int64 = 100
	testChannel   int64 = 200
	testStarboard int64 = 300
	testAuthor    int64 = 1
	testMessage   int64 = 4000
)

func setupStarboardService(t *testing.T) (Service, *Repository, *fakeGateway) {
	t.Helper()

	repo := NewRepository(setupStarboardTestDB(t))
	gw := newFakeGateway()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Gateway: gw,
		Logger:  logger.New(logger.Options{ServiceName: "starboard-test"}),
	})
	require.NoError(t, err)

	_, err = svc.Enable(context.Background(), testGuild, testStarboard, 3)
	require.NoError(t, err)

	gw.messages[testMessage] = &discord.Message{
		ID:        discord.Snowflake(testMessage),
		ChannelID: discord.Snowflake(testChannel),
		GuildID:   discord.Snowflake(testGuild),
		Author:    discord.User{ID: discord.Snowflake(testAuthor), Username: "alice"},
		Content:   "look at this",
		Timestamp: time.Now().UTC(),
	}
	return svc, repo, gw
}

func starEvent(messageID int64) ReactionEvent {
	return ReactionEvent{
		GuildID:   testGuild,
		ChannelID: testChannel,
		MessageID: messageID,
		UserID:    2,
		Emoji:     StarEmoji,
	}
}

func TestReactionAddIgnoresNonStarAndDisabledGuilds(t *testing.T) {
	svc, _, gw := setupStarboardService(t)
	ctx := context.Background()

	event := starEvent(testMessage)
	event.Emoji = "🔥"
	require.NoError(t, svc.OnReactionAdd(ctx, event))

	other := starEvent(testMessage)
	other.GuildID = 777 // no config
	require.NoError(t, svc.OnReactionAdd(ctx, other))

	assert.Empty(t, gw.sent)
}

func TestReactionAddIsIdempotent(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))

	assert.Len(t, gw.sent, 1)

	row, err := repo.GetStarred(ctx, testMessage)
	require.NoError(t, err)
	require.NotNil(t, row.MirrorMessageID)
	assert.False(t, row.Posting)
	assert.Equal(t, 3, row.StarCount)
}

func TestReactionAddBelowThresholdIsNoop(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 2)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))

	assert.Empty(t, gw.sent)
	_, err := repo.GetStarred(ctx, testMessage)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStarboardHysteresis(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.sent, 1)

	gw.setStars(testMessage, 2)
	require.NoError(t, svc.OnReactionRemove(ctx, starEvent(testMessage)))
	require.Len(t, gw.deleted, 1)
	_, err := repo.GetStarred(ctx, testMessage)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	assert.Len(t, gw.sent, 2)
}

func TestStarboardNoSelfLoop(t *testing.T) {
	svc, _, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.sent, 1)

	// star the mirror itself in the starboard channel
	mirrorID := gw.nextID
	gw.setStars(mirrorID, 5)
	event := starEvent(mirrorID)
	event.ChannelID = testStarboard
	require.NoError(t, svc.OnReactionAdd(ctx, event))

	assert.Len(t, gw.sent, 1)
}

func TestFailedMirrorSendRecovers(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 3)
	gw.sendErr = fmt.Errorf("boom")
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))

	row, err := repo.GetStarred(ctx, testMessage)
	require.NoError(t, err)
	assert.Nil(t, row.MirrorMessageID)
	assert.False(t, row.Posting)

	gw.sendErr = nil
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))

	row, err = repo.GetStarred(ctx, testMessage)
	require.NoError(t, err)
	require.NotNil(t, row.MirrorMessageID)
	assert.Len(t, gw.sent, 1)
}

func TestReactionAddWhilePostingIsNoop(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	row := models.StarredMessage{
		SourceMessageID: testMessage,
		GuildID:         testGuild,
		SourceChannelID: testChannel,
		StarCount:       3,
	}
	claimed, err := repo.InsertClaimed(ctx, &row)
	require.NoError(t, err)
	require.True(t, claimed)

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))

	assert.Empty(t, gw.sent)
}

func TestEndToEndStarboardScenario(t *testing.T) {
	svc, repo, gw := setupStarboardService(t)
	ctx := context.Background()

	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.sent, 1)
	require.Len(t, gw.sent[0].Embeds, 1)
	assert.Equal(t, "⭐ 3", gw.sent[0].Embeds[0].Footer.Text)
	assert.Contains(t, gw.sent[0].Content, "discord.com/channels/")

	gw.setStars(testMessage, 4)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.edits, 1)
	assert.Equal(t, "⭐ 4", gw.edits[0].Embeds[0].Footer.Text)

	gw.setStars(testMessage, 2)
	require.NoError(t, svc.OnReactionRemove(ctx, starEvent(testMessage)))
	assert.Len(t, gw.deleted, 1)
	_, err := repo.GetStarred(ctx, testMessage)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMirrorCounterTracksPostedMirrors(t *testing.T) {
	repo := NewRepository(setupStarboardTestDB(t))
	gw := newFakeGateway()
	cache := newFakeCache()
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Gateway: gw,
		Cache:   cache,
		Logger:  logger.New(logger.Options{ServiceName: "starboard-test"}),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Enable(ctx, testGuild, testStarboard, 3)
	require.NoError(t, err)

	gw.messages[testMessage] = &discord.Message{
		ID:        discord.Snowflake(testMessage),
		ChannelID: discord.Snowflake(testChannel),
		GuildID:   discord.Snowflake(testGuild),
		Author:    discord.User{ID: discord.Snowflake(testAuthor), Username: "alice"},
		Content:   "look at this",
		Timestamp: time.Now().UTC(),
	}
	gw.setStars(testMessage, 3)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.sent, 1)

	key := cache.CounterKey(fmt.Sprintf("starboard-mirrors:%d", testGuild))
	assert.EqualValues(t, 1, cache.counters[key])

	// later count updates edit the mirror without bumping the counter
	gw.setStars(testMessage, 4)
	require.NoError(t, svc.OnReactionAdd(ctx, starEvent(testMessage)))
	require.Len(t, gw.edits, 1)
	assert.EqualValues(t, 1, cache.counters[key])
}

func TestEnableClampsThreshold(t *testing.T) {
	svc, _, _ := setupStarboardService(t)
	ctx := context.Background()

	cases := map[int]int{
		0:    DefaultThreshold,
		-5:   1,
		1:    1,
		50:   50,
		1000: 100,
	}
	for input, want := range cases {
		cfg, err := svc.Enable(ctx, testGuild, testStarboard, input)
		require.NoError(t, err, "threshold %d", input)
		assert.Equal(t, want, cfg.StarThreshold, "threshold %d", input)
	}

	_, err := svc.Enable(ctx, 0, testStarboard, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDisableAndConfig(t *testing.T) {
	svc, _, _ := setupStarboardService(t)
	ctx := context.Background()

	cfg, err := svc.Config(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.StarThreshold)
	assert.Equal(t, testStarboard, cfg.ChannelID)

	require.NoError(t, svc.Disable(ctx, testGuild))

	err = svc.Disable(ctx, testGuild)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = svc.Config(ctx, testGuild)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
