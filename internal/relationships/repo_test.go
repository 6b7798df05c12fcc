package relationships

import (
	"context"
	"testing"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"github.com/hazelline/communitybot-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRelationshipsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	relationships := `
CREATE TABLE IF NOT EXISTS relationships (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  guild_id INTEGER NOT NULL,
  relationship_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  emoji TEXT,
  description TEXT,
  created_by INTEGER NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  ended_at DATETIME
);`
	members := `
CREATE TABLE IF NOT EXISTS relationship_members (
  relationship_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  left_at DATETIME,
  PRIMARY KEY (relationship_id, user_id)
);`
	invites := `
CREATE TABLE IF NOT EXISTS relationship_invites (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  relationship_id INTEGER NOT NULL,
  inviter_id INTEGER NOT NULL,
  invitee_id INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  responded_at DATETIME
);`

	for _, statement := range []string{relationships, members, invites} {
		require.NoError(t, db.Exec(statement).Error)
	}
	return db
}

func seedGroup(t *testing.T, repo *Repository, guildID int64, relType string, memberIDs ...int64) models.Relationship {
	t.Helper()

	ctx := context.Background()
	rel := models.Relationship{
		GuildID:   guildID,
		Type:      relType,
		Status:    enums.RelationshipStatusActive,
		CreatedBy: memberIDs[0],
	}
	require.NoError(t, repo.CreateGroup(ctx, &rel))
	for _, id := range memberIDs {
		require.NoError(t, repo.UpsertActiveMember(ctx, rel.ID, id, time.Now().UTC()))
	}
	return rel
}

func TestRepositoryMemberUpsertReactivates(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "marriage", 1, 2)

	left, err := repo.MarkMemberLeft(ctx, rel.ID, 2, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, left)

	active, err := repo.IsActiveMember(ctx, rel.ID, 2)
	require.NoError(t, err)
	assert.False(t, active)

	// re-join clears left_at on the existing row
	require.NoError(t, repo.UpsertActiveMember(ctx, rel.ID, 2, time.Now().UTC()))

	active, err = repo.IsActiveMember(ctx, rel.ID, 2)
	require.NoError(t, err)
	assert.True(t, active)

	count, err := repo.CountActiveMembers(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryMarkMemberLeftIsIdempotent(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "friend", 1, 2, 3)

	left, err := repo.MarkMemberLeft(ctx, rel.ID, 3, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, left)

	left, err = repo.MarkMemberLeft(ctx, rel.ID, 3, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, left)

	left, err = repo.MarkMemberLeft(ctx, rel.ID, 999, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, left)
}

func TestRepositoryEndGroupOnlyOnce(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "marriage", 1, 2)

	ended, err := repo.EndGroup(ctx, rel.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ended)

	ended, err = repo.EndGroup(ctx, rel.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ended)

	_, err = repo.FindActiveByID(ctx, 100, rel.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListOrderingIsDeterministic(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedGroup(t, repo, 100, "marriage", 1, 2)
	seedGroup(t, repo, 100, "friend", 1, 3)
	seedGroup(t, repo, 100, "friend", 1, 4)
	seedGroup(t, repo, 200, "friend", 1, 5) // other guild, excluded

	rels, err := repo.ListActiveForUser(ctx, 100, 1)
	require.NoError(t, err)
	require.Len(t, rels, 3)
	assert.Equal(t, "friend", rels[0].Type)
	assert.Equal(t, "friend", rels[1].Type)
	assert.Equal(t, "marriage", rels[2].Type)
	assert.Less(t, rels[0].ID, rels[1].ID)
}

func TestRepositoryPendingInviteScoping(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "marriage", 1)
	invite := models.RelationshipInvite{
		RelationshipID: rel.ID,
		InviterID:      1,
		InviteeID:      2,
		Status:         enums.InviteStatusPending,
	}
	require.NoError(t, repo.CreateInvite(ctx, &invite))

	found, err := repo.FindPendingInvite(ctx, 100, rel.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, invite.ID, found.ID)

	// wrong guild id does not resolve the invite
	_, err = repo.FindPendingInvite(ctx, 200, rel.ID, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	flipped, err := repo.SetInviteStatus(ctx, invite.ID, enums.InviteStatusAccepted, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = repo.SetInviteStatus(ctx, invite.ID, enums.InviteStatusDeclined, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestRepositoryPendingInviteRequiresActiveGroup(t *testing.T) {
	db := setupRelationshipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "marriage", 1)
	invite := models.RelationshipInvite{
		RelationshipID: rel.ID,
		InviterID:      1,
		InviteeID:      2,
		Status:         enums.InviteStatusPending,
	}
	require.NoError(t, repo.CreateInvite(ctx, &invite))

	ended, err := repo.EndGroup(ctx, rel.ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ended)

	// the accept-side lookup no longer resolves the orphaned invite
	_, err = repo.FindPendingInvite(ctx, 100, rel.ID, 2)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// the decline-side lookup still does
	found, err := repo.FindPendingInviteIncludingEnded(ctx, 100, rel.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, invite.ID, found.ID)
}
