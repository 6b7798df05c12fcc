package relationships

import (
	"context"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"github.com/hazelline/communitybot-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository encapsulates relationship persistence. Every method issues a
// single statement; callers compose them into multi-step sequences that stay
// race-tolerant by re-checking state rather than holding a long transaction.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a relationship repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateGroup inserts a new relationship row.
func (r *Repository) CreateGroup(ctx context.Context, rel *models.Relationship) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

// FindActiveByID loads an active relationship scoped to a guild.
func (r *Repository) FindActiveByID(ctx context.Context, guildID, id int64) (models.Relationship, error) {
	var rel models.Relationship
	err := r.db.WithContext(ctx).
		Where("id = ? AND guild_id = ? AND status = ?", id, guildID, enums.RelationshipStatusActive).
		First(&rel).
		Error
	return rel, err
}

// ListActiveForUserByType returns the active relationships of one type the
// user currently belongs to, ordered by type then id.
func (r *Repository) ListActiveForUserByType(ctx context.Context, guildID int64, relType string, userID int64) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.WithContext(ctx).
		Table("relationships r").
		Select("r.*").
		Joins("JOIN relationship_members m ON m.relationship_id = r.id").
		Where("r.guild_id = ? AND r.relationship_type = ? AND r.status = ?", guildID, relType, enums.RelationshipStatusActive).
		Where("m.user_id = ? AND m.left_at IS NULL", userID).
		Order("r.relationship_type ASC").Order("r.id ASC").
		Scan(&rels).
		Error
	return rels, err
}

// ListActiveShared returns active relationships of one type containing both
// users as active members.
func (r *Repository) ListActiveShared(ctx context.Context, guildID int64, relType string, userA, userB int64) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.WithContext(ctx).
		Table("relationships r").
		Select("r.*").
		Joins("JOIN relationship_members ma ON ma.relationship_id = r.id AND ma.user_id = ? AND ma.left_at IS NULL", userA).
		Joins("JOIN relationship_members mb ON mb.relationship_id = r.id AND mb.user_id = ? AND mb.left_at IS NULL", userB).
		Where("r.guild_id = ? AND r.relationship_type = ? AND r.status = ?", guildID, relType, enums.RelationshipStatusActive).
		Order("r.relationship_type ASC").Order("r.id ASC").
		Scan(&rels).
		Error
	return rels, err
}

// ListActiveForUser returns every active relationship the user belongs to in
// the guild, ordered by type then id.
func (r *Repository) ListActiveForUser(ctx context.Context, guildID, userID int64) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.WithContext(ctx).
		Table("relationships r").
		Select("r.*").
		Joins("JOIN relationship_members m ON m.relationship_id = r.id").
		Where("r.guild_id = ? AND r.status = ?", guildID, enums.RelationshipStatusActive).
		Where("m.user_id = ? AND m.left_at IS NULL", userID).
		Order("r.relationship_type ASC").Order("r.id ASC").
		Scan(&rels).
		Error
	return rels, err
}

// ListActiveGroups returns every active relationship in the guild.
func (r *Repository) ListActiveGroups(ctx context.Context, guildID int64) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND status = ?", guildID, enums.RelationshipStatusActive).
		Order("relationship_type ASC").Order("id ASC").
		Find(&rels).
		Error
	return rels, err
}

// IsActiveMember reports whether the user is currently an active member.
func (r *Repository) IsActiveMember(ctx context.Context, relationshipID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RelationshipMember{}).
		Where("relationship_id = ? AND user_id = ? AND left_at IS NULL", relationshipID, userID).
		Count(&count).
		Error
	return count > 0, err
}

// UpsertActiveMember inserts a member row, or re-activates a previously-left
// one by clearing left_at and refreshing joined_at.
func (r *Repository) UpsertActiveMember(ctx context.Context, relationshipID, userID int64, now time.Time) error {
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO relationship_members (relationship_id, user_id, joined_at, left_at)
VALUES (?, ?, ?, NULL)
ON CONFLICT (relationship_id, user_id) DO UPDATE SET joined_at = excluded.joined_at, left_at = NULL`,
			relationshipID, userID, now).
		Error
}

// MarkMemberLeft stamps left_at on an active member row. Returns false when
// the user was not an active member.
func (r *Repository) MarkMemberLeft(ctx context.Context, relationshipID, userID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE relationship_members SET left_at = ? WHERE relationship_id = ? AND user_id = ? AND left_at IS NULL`,
			now, relationshipID, userID)
	return result.RowsAffected > 0, result.Error
}

// CountActiveMembers returns the number of members with no left timestamp.
func (r *Repository) CountActiveMembers(ctx context.Context, relationshipID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RelationshipMember{}).
		Where("relationship_id = ? AND left_at IS NULL", relationshipID).
		Count(&count).
		Error
	return count, err
}

// ActiveMemberIDs returns the active member ids ordered by join time.
func (r *Repository) ActiveMemberIDs(ctx context.Context, relationshipID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.RelationshipMember{}).
		Where("relationship_id = ? AND left_at IS NULL", relationshipID).
		Order("joined_at ASC").Order("user_id ASC").
		Pluck("user_id", &ids).
		Error
	return ids, err
}

// EndGroup flips an active relationship to ended. Returns false when the
// relationship was already ended (another handler won the race).
func (r *Repository) EndGroup(ctx context.Context, relationshipID int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE relationships SET status = ?, ended_at = ? WHERE id = ? AND status = ?`,
			enums.RelationshipStatusEnded, now, relationshipID, enums.RelationshipStatusActive)
	return result.RowsAffected > 0, result.Error
}

// HasPendingInvite reports whether a pending invite already exists for the
// (relationship, invitee) pair.
func (r *Repository) HasPendingInvite(ctx context.Context, relationshipID, inviteeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RelationshipInvite{}).
		Where("relationship_id = ? AND invitee_id = ? AND status = ?", relationshipID, inviteeID, enums.InviteStatusPending).
		Count(&count).
		Error
	return count > 0, err
}

// CreateInvite inserts a pending invite row.
func (r *Repository) CreateInvite(ctx context.Context, invite *models.RelationshipInvite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

// FindPendingInvite loads the most recent pending invite for the invitee on
// an active relationship, scoped to the guild. Invites orphaned by a
// dissolution are not visible here, so they can never be accepted.
func (r *Repository) FindPendingInvite(ctx context.Context, guildID, relationshipID, inviteeID int64) (models.RelationshipInvite, error) {
	var invite models.RelationshipInvite
	err := r.db.WithContext(ctx).
		Table("relationship_invites i").
		Select("i.*").
		Joins("JOIN relationships r ON r.id = i.relationship_id").
		Where("r.guild_id = ? AND r.status = ? AND i.relationship_id = ? AND i.invitee_id = ? AND i.status = ?",
			guildID, enums.RelationshipStatusActive, relationshipID, inviteeID, enums.InviteStatusPending).
		Order("i.created_at DESC").Order("i.id DESC").
		Limit(1).
		Take(&invite).
		Error
	return invite, err
}

// FindPendingInviteIncludingEnded is the decline-side lookup. It ignores the
// relationship status so invites orphaned by a dissolution can still be
// cleared.
func (r *Repository) FindPendingInviteIncludingEnded(ctx context.Context, guildID, relationshipID, inviteeID int64) (models.RelationshipInvite, error) {
	var invite models.RelationshipInvite
	err := r.db.WithContext(ctx).
		Table("relationship_invites i").
		Select("i.*").
		Joins("JOIN relationships r ON r.id = i.relationship_id").
		Where("r.guild_id = ? AND i.relationship_id = ? AND i.invitee_id = ? AND i.status = ?",
			guildID, relationshipID, inviteeID, enums.InviteStatusPending).
		Order("i.created_at DESC").Order("i.id DESC").
		Limit(1).
		Take(&invite).
		Error
	return invite, err
}

// SetInviteStatus flips a pending invite to a terminal status. Returns false
// when the invite was no longer pending.
func (r *Repository) SetInviteStatus(ctx context.Context, inviteID int64, status enums.InviteStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE relationship_invites SET status = ?, responded_at = ? WHERE id = ? AND status = ?`,
			status, now, inviteID, enums.InviteStatusPending)
	return result.RowsAffected > 0, result.Error
}

// ListPendingInvitesForUser returns the user's pending invites joined with the
// relationship type, ordered by type then invite id.
func (r *Repository) ListPendingInvitesForUser(ctx context.Context, guildID, userID int64) ([]InviteDTO, error) {
	var invites []InviteDTO
	err := r.db.WithContext(ctx).
		Table("relationship_invites i").
		Select("i.id, i.relationship_id, r.relationship_type AS type, i.inviter_id, i.invitee_id, i.status, i.created_at").
		Joins("JOIN relationships r ON r.id = i.relationship_id").
		Where("r.guild_id = ? AND r.status = ? AND i.invitee_id = ? AND i.status = ?",
			guildID, enums.RelationshipStatusActive, userID, enums.InviteStatusPending).
		Order("r.relationship_type ASC").Order("i.id ASC").
		Scan(&invites).
		Error
	return invites, err
}
