package models

import "time"

// RelationshipMember links a user with a relationship group. A nil LeftAt
// means the membership is currently active. Re-joining after leaving clears
// LeftAt on the existing row instead of inserting a duplicate.
type RelationshipMember struct {
	RelationshipID int64      `gorm:"column:relationship_id;primaryKey;autoIncrement:false"`
	UserID         int64      `gorm:"column:user_id;primaryKey;autoIncrement:false;index:idx_members_user_active"`
	JoinedAt       time.Time  `gorm:"column:joined_at;not null"`
	LeftAt         *time.Time `gorm:"column:left_at;index:idx_members_user_active"`
}

// TableName implements gorm's Tabler.
func (RelationshipMember) TableName() string {
	return "relationship_members"
}
