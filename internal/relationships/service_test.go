package relationships

import (
	"context"
	"strings"
	"testing"

	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (Service, *Repository) {
	t.Helper()

	repo := NewRepository(setupRelationshipsTestDB(t))
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)
	return svc, repo
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestNormalizeType(t *testing.T) {
	for _, raw := range []string{"Best  Friend", "best-friend", " BEST friend "} {
		got, err := NormalizeType(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, "best-friend", got, "input %q", raw)
	}

	for _, raw := range []string{"a", "", strings.Repeat("x", 33), "bad_type", "émoji"} {
		_, err := NormalizeType(raw)
		requireCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestMakeCreatesGroupThenReusesIt(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "Marriage"})
	require.NoError(t, err)
	assert.True(t, first.CreatedNewGroup)
	assert.Equal(t, "marriage", first.Type)

	// second invite for a different user resolves to the same group
	second, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 3, RawType: "marriage"})
	require.NoError(t, err)
	assert.False(t, second.CreatedNewGroup)
	assert.Equal(t, first.RelationshipID, second.RelationshipID)
}

func TestMakeGuards(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 1, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, InviteeIsBot: true, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestMakeRefusesAmbiguousType(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	seedGroup(t, repo, 100, "friend", 1, 2)
	seedGroup(t, repo, 100, "friend", 1, 3)

	_, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 4, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeAmbiguous)

	_, err = svc.End(ctx, 100, "friend", 1, 2)
	// caller shares only one friend group with user 2, so end succeeds
	require.NoError(t, err)
}

func TestEndRefusesAmbiguousSharedType(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	seedGroup(t, repo, 100, "friend", 1, 2)
	seedGroup(t, repo, 100, "friend", 1, 2, 3)

	_, err := svc.End(ctx, 100, "friend", 1, 2)
	requireCode(t, err, pkgerrors.CodeAmbiguous)

	_, err = svc.End(ctx, 100, "friend", 1, 9)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestMakeWithExplicitID(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	first := seedGroup(t, repo, 100, "friend", 1, 2)
	seedGroup(t, repo, 100, "friend", 1, 3)

	result, err := svc.Make(ctx, MakeParams{
		GuildID: 100, CallerID: 1, InviteeID: 4, RawType: "friend", RelationshipID: &first.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, result.RelationshipID)
	assert.False(t, result.CreatedNewGroup)

	// explicit id of a group the caller does not belong to
	other := seedGroup(t, repo, 100, "friend", 7, 8)
	_, err = svc.Make(ctx, MakeParams{
		GuildID: 100, CallerID: 1, InviteeID: 4, RawType: "friend", RelationshipID: &other.ID,
	})
	requireCode(t, err, pkgerrors.CodeForbidden)

	// explicit id of the wrong type
	marriage := seedGroup(t, repo, 100, "marriage", 1, 2)
	_, err = svc.Make(ctx, MakeParams{
		GuildID: 100, CallerID: 1, InviteeID: 4, RawType: "friend", RelationshipID: &marriage.ID,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestInviteExclusivity(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "friend"})
	require.NoError(t, err)

	_, err = svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeConflict)

	// accepting makes a further invite a membership conflict instead
	_, err = svc.Accept(ctx, 100, first.RelationshipID, 2)
	require.NoError(t, err)

	_, err = svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "friend"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestAutoDissolution(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	pair := seedGroup(t, repo, 100, "marriage", 1, 2)
	result, err := svc.Leave(ctx, 100, pair.ID, 1)
	require.NoError(t, err)
	assert.True(t, result.Ended)

	trio := seedGroup(t, repo, 100, "friend", 1, 2, 3)
	result, err = svc.Leave(ctx, 100, trio.ID, 1)
	require.NoError(t, err)
	assert.False(t, result.Ended)

	groups, err := svc.Groups(ctx, 100)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, trio.ID, groups[0].ID)
	assert.ElementsMatch(t, []int64{2, 3}, groups[0].MemberIDs)
}

func TestLeaveRejectsNonMembers(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "friend", 1, 2)

	_, err := svc.Leave(ctx, 100, rel.ID, 9)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svc.Leave(ctx, 100, 12345, 1)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeclineFlipsPendingInvite(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	made, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "friend"})
	require.NoError(t, err)

	require.NoError(t, svc.Decline(ctx, 100, made.RelationshipID, 2))

	err = svc.Decline(ctx, 100, made.RelationshipID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)

	inbox, err := svc.PendingInvites(ctx, 100, 2)
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

func TestMakeAcceptListScenario(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	made, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 2, RawType: "marriage"})
	require.NoError(t, err)
	require.True(t, made.CreatedNewGroup)

	inbox, err := svc.PendingInvites(ctx, 100, 2)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, made.RelationshipID, inbox[0].RelationshipID)
	assert.Equal(t, "marriage", inbox[0].Type)

	group, err := svc.Accept(ctx, 100, made.RelationshipID, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, group.MemberIDs)

	for _, userID := range []int64{1, 2} {
		listed, err := svc.ListForUser(ctx, 100, userID)
		require.NoError(t, err)
		require.Len(t, listed, 1, "user %d", userID)
		assert.Equal(t, made.RelationshipID, listed[0].ID)
		assert.Equal(t, "marriage", listed[0].Type)
		assert.ElementsMatch(t, []int64{1, 2}, listed[0].MemberIDs)
	}

	err = svc.Decline(ctx, 100, made.RelationshipID, 2)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAcceptAfterAutoDissolutionIsRejected(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "marriage", 1, 2)
	_, err := svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 3, RawType: "marriage"})
	require.NoError(t, err)

	result, err := svc.Leave(ctx, 100, rel.ID, 1)
	require.NoError(t, err)
	require.True(t, result.Ended)

	_, err = svc.Accept(ctx, 100, rel.ID, 3)
	requireCode(t, err, pkgerrors.CodeNotFound)

	// no partial state: the invite stays pending and no membership was revived
	member, err := repo.IsActiveMember(ctx, rel.ID, 3)
	require.NoError(t, err)
	assert.False(t, member)
	pending, err := repo.HasPendingInvite(ctx, rel.ID, 3)
	require.NoError(t, err)
	assert.True(t, pending)

	// the orphaned invite can still be cleared by declining it
	require.NoError(t, svc.Decline(ctx, 100, rel.ID, 3))
}

func TestAcceptAfterLeavingReactivatesMembership(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	rel := seedGroup(t, repo, 100, "friend", 1, 2, 3)

	_, err := svc.Leave(ctx, 100, rel.ID, 3)
	require.NoError(t, err)

	_, err = svc.Make(ctx, MakeParams{GuildID: 100, CallerID: 1, InviteeID: 3, RawType: "friend"})
	require.NoError(t, err)

	group, err := svc.Accept(ctx, 100, rel.ID, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, group.MemberIDs)
}
