package relationships

import (
	"time"

	"github.com/hazelline/communitybot-backend/pkg/enums"
)

// MakeParams carries one invocation of the make command.
type MakeParams struct {
	GuildID        int64
	CallerID       int64
	InviteeID      int64
	InviteeIsBot   bool
	RawType        string
	RelationshipID *int64 // explicit disambiguation, optional
	Emoji          *string
	Description    *string
}

// MakeResultDTO reports how a make call resolved.
type MakeResultDTO struct {
	RelationshipID  int64  `json:"relationship_id"`
	Type            string `json:"type"`
	CreatedNewGroup bool   `json:"created_new_group"`
}

// LeaveResultDTO reports whether leaving dissolved the group.
type LeaveResultDTO struct {
	RelationshipID int64 `json:"relationship_id"`
	Ended          bool  `json:"ended"`
}

// GroupDTO is a relationship group with its active member ids.
type GroupDTO struct {
	ID          int64                    `json:"id"`
	GuildID     int64                    `json:"guild_id"`
	Type        string                   `json:"type"`
	Status      enums.RelationshipStatus `json:"status"`
	Emoji       *string                  `json:"emoji,omitempty"`
	Description *string                  `json:"description,omitempty"`
	CreatedBy   int64                    `json:"created_by"`
	CreatedAt   time.Time                `json:"created_at"`
	MemberIDs   []int64                  `json:"member_ids"`
}

// InviteDTO is a pending invite as shown in a user's inbox.
type InviteDTO struct {
	ID             int64              `json:"id"`
	RelationshipID int64              `json:"relationship_id"`
	Type           string             `json:"type"`
	InviterID      int64              `json:"inviter_id"`
	InviteeID      int64              `json:"invitee_id"`
	Status         enums.InviteStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
}
