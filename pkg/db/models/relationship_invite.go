package models

import (
	"time"

	"github.com/hazelline/communitybot-backend/pkg/enums"
)

// RelationshipInvite records an invitation into a relationship group. At most
// one pending invite exists per (relationship, invitee) pair; the repository
// enforces this before inserting.
type RelationshipInvite struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	RelationshipID int64              `gorm:"column:relationship_id;not null;index:idx_invites_relationship_status,priority:1"`
	InviterID      int64              `gorm:"column:inviter_id;not null"`
	InviteeID      int64              `gorm:"column:invitee_id;not null;index:idx_invites_invitee_status,priority:1"`
	Status         enums.InviteStatus `gorm:"column:status;not null;index:idx_invites_invitee_status,priority:2;index:idx_invites_relationship_status,priority:2"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	RespondedAt    *time.Time         `gorm:"column:responded_at"`
}

// TableName implements gorm's Tabler.
func (RelationshipInvite) TableName() string {
	return "relationship_invites"
}
