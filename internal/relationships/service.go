package relationships

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/hazelline/communitybot-backend/pkg/db/models"
	"github.com/hazelline/communitybot-backend/pkg/enums"
	pkgerrors "github.com/hazelline/communitybot-backend/pkg/errors"
	"gorm.io/gorm"
)

const (
	typeMinLen = 2
	typeMaxLen = 32
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	typeRe       = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// NormalizeType lowercases and trims a raw relationship type, collapsing
// internal whitespace runs to single dashes, so "Best  Friend" and
// "best-friend" collide to the same label.
func NormalizeType(raw string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = whitespaceRe.ReplaceAllString(normalized, "-")

	if len(normalized) < typeMinLen || len(normalized) > typeMaxLen {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "relationship type must be %d-%d characters", typeMinLen, typeMaxLen)
	}
	if !typeRe.MatchString(normalized) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "relationship type may only contain lowercase letters, digits and dashes")
	}
	return normalized, nil
}

// ServiceParams groups dependencies for the relationship service.
type ServiceParams struct {
	Repo *Repository
}

// Service exposes the invite/accept/decline/leave/end protocol plus the
// listing queries the command layer renders.
type Service interface {
	Make(ctx context.Context, params MakeParams) (MakeResultDTO, error)
	Accept(ctx context.Context, guildID, relationshipID, userID int64) (GroupDTO, error)
	Decline(ctx context.Context, guildID, relationshipID, userID int64) error
	Leave(ctx context.Context, guildID, relationshipID, userID int64) (LeaveResultDTO, error)
	End(ctx context.Context, guildID int64, rawType string, callerID, targetID int64) (LeaveResultDTO, error)
	ListForUser(ctx context.Context, guildID, userID int64) ([]GroupDTO, error)
	PendingInvites(ctx context.Context, guildID, userID int64) ([]InviteDTO, error)
	Groups(ctx context.Context, guildID int64) ([]GroupDTO, error)
	ActiveMemberIDs(ctx context.Context, guildID, relationshipID int64) ([]int64, error)
}

type service struct {
	repo *Repository
}

// NewService builds a relationship service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "relationship repo is required")
	}
	return &service{repo: params.Repo}, nil
}

// Make resolves the target group (reusing, creating, or refusing to guess)
// and attaches a pending invite for the invitee.
func (s *service) Make(ctx context.Context, params MakeParams) (MakeResultDTO, error) {
	relType, err := NormalizeType(params.RawType)
	if err != nil {
		return MakeResultDTO{}, err
	}
	if params.InviteeID == 0 {
		return MakeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invitee is required")
	}
	if params.InviteeID == params.CallerID {
		return MakeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "you cannot invite yourself")
	}
	if params.InviteeIsBot {
		return MakeResultDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "bots cannot join relationships")
	}

	rel, createdNew, err := s.resolveForMake(ctx, relType, params)
	if err != nil {
		return MakeResultDTO{}, err
	}

	if err := s.tryCreateInvite(ctx, rel.ID, params.CallerID, params.InviteeID); err != nil {
		return MakeResultDTO{}, err
	}

	return MakeResultDTO{
		RelationshipID:  rel.ID,
		Type:            rel.Type,
		CreatedNewGroup: createdNew,
	}, nil
}

func (s *service) resolveForMake(ctx context.Context, relType string, params MakeParams) (models.Relationship, bool, error) {
	if params.RelationshipID != nil {
		rel, err := s.repo.FindActiveByID(ctx, params.GuildID, *params.RelationshipID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Relationship{}, false, pkgerrors.New(pkgerrors.CodeNotFound, "no active relationship with that id")
			}
			return models.Relationship{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
		}
		if rel.Type != relType {
			return models.Relationship{}, false, pkgerrors.Newf(pkgerrors.CodeNotFound, "relationship %d is not of type %q", rel.ID, relType)
		}
		member, err := s.repo.IsActiveMember(ctx, rel.ID, params.CallerID)
		if err != nil {
			return models.Relationship{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
		}
		if !member {
			return models.Relationship{}, false, pkgerrors.New(pkgerrors.CodeForbidden, "you are not a member of that relationship")
		}
		return rel, false, nil
	}

	matches, err := s.repo.ListActiveForUserByType(ctx, params.GuildID, relType, params.CallerID)
	if err != nil {
		return models.Relationship{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list relationships")
	}

	switch len(matches) {
	case 0:
		rel := models.Relationship{
			GuildID:     params.GuildID,
			Type:        relType,
			Status:      enums.RelationshipStatusActive,
			Emoji:       params.Emoji,
			Description: params.Description,
			CreatedBy:   params.CallerID,
		}
		if err := s.repo.CreateGroup(ctx, &rel); err != nil {
			return models.Relationship{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create relationship")
		}
		if err := s.repo.UpsertActiveMember(ctx, rel.ID, params.CallerID, time.Now().UTC()); err != nil {
			return models.Relationship{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add founding member")
		}
		return rel, true, nil

	case 1:
		return matches[0], false, nil

	default:
		return models.Relationship{}, false, pkgerrors.Newf(pkgerrors.CodeAmbiguous,
			"you belong to %d active %q relationships, specify which one by id", len(matches), relType)
	}
}

func (s *service) tryCreateInvite(ctx context.Context, relationshipID, inviterID, inviteeID int64) error {
	member, err := s.repo.IsActiveMember(ctx, relationshipID, inviteeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check invitee membership")
	}
	if member {
		return pkgerrors.New(pkgerrors.CodeConflict, "they are already a member of this relationship")
	}

	pending, err := s.repo.HasPendingInvite(ctx, relationshipID, inviteeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending invites")
	}
	if pending {
		return pkgerrors.New(pkgerrors.CodeConflict, "they already have a pending invite to this relationship")
	}

	invite := models.RelationshipInvite{
		RelationshipID: relationshipID,
		InviterID:      inviterID,
		InviteeID:      inviteeID,
		Status:         enums.InviteStatusPending,
	}
	if err := s.repo.CreateInvite(ctx, &invite); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invite")
	}
	return nil
}

// Accept claims the pending invite and activates the invitee's membership.
// The invite flip happens first so concurrent accepts converge on one winner.
func (s *service) Accept(ctx context.Context, guildID, relationshipID, userID int64) (GroupDTO, error) {
	invite, err := s.repo.FindPendingInvite(ctx, guildID, relationshipID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GroupDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "no pending invite for that relationship")
		}
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invite")
	}

	now := time.Now().UTC()
	flipped, err := s.repo.SetInviteStatus(ctx, invite.ID, enums.InviteStatusAccepted, now)
	if err != nil {
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invite")
	}
	if !flipped {
		return GroupDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "no pending invite for that relationship")
	}

	if err := s.repo.UpsertActiveMember(ctx, relationshipID, userID, now); err != nil {
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add member")
	}

	rel, err := s.repo.FindActiveByID(ctx, guildID, relationshipID)
	if err != nil {
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
	}
	return s.toGroupDTO(ctx, rel)
}

// Decline flips the most recent pending invite to declined. Unlike Accept it
// does not require the relationship to still be active, so invites orphaned
// by a dissolution can be cleared.
func (s *service) Decline(ctx context.Context, guildID, relationshipID, userID int64) error {
	invite, err := s.repo.FindPendingInviteIncludingEnded(ctx, guildID, relationshipID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no pending invite for that relationship")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invite")
	}

	flipped, err := s.repo.SetInviteStatus(ctx, invite.ID, enums.InviteStatusDeclined, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline invite")
	}
	if !flipped {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no pending invite for that relationship")
	}
	return nil
}

// Leave removes the caller from the group and dissolves it once fewer than
// two active members remain.
func (s *service) Leave(ctx context.Context, guildID, relationshipID, userID int64) (LeaveResultDTO, error) {
	rel, err := s.repo.FindActiveByID(ctx, guildID, relationshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResultDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active relationship with that id")
		}
		return LeaveResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
	}

	now := time.Now().UTC()
	left, err := s.repo.MarkMemberLeft(ctx, rel.ID, userID, now)
	if err != nil {
		return LeaveResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "leave relationship")
	}
	if !left {
		return LeaveResultDTO{}, pkgerrors.New(pkgerrors.CodeStateConflict, "you are not an active member of that relationship")
	}

	remaining, err := s.repo.CountActiveMembers(ctx, rel.ID)
	if err != nil {
		return LeaveResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count members")
	}

	ended := false
	if remaining < 2 {
		if _, err := s.repo.EndGroup(ctx, rel.ID, now); err != nil {
			return LeaveResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end relationship")
		}
		ended = true
	}

	return LeaveResultDTO{RelationshipID: rel.ID, Ended: ended}, nil
}

// End finds the single active relationship of the normalized type shared by
// caller and target and delegates to Leave. Multiple matches are refused, the
// caller has to disambiguate with leave by id.
func (s *service) End(ctx context.Context, guildID int64, rawType string, callerID, targetID int64) (LeaveResultDTO, error) {
	relType, err := NormalizeType(rawType)
	if err != nil {
		return LeaveResultDTO{}, err
	}

	matches, err := s.repo.ListActiveShared(ctx, guildID, relType, callerID, targetID)
	if err != nil {
		return LeaveResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shared relationships")
	}

	switch len(matches) {
	case 0:
		return LeaveResultDTO{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "no active %q relationship shared with that user", relType)
	case 1:
		return s.Leave(ctx, guildID, matches[0].ID, callerID)
	default:
		return LeaveResultDTO{}, pkgerrors.Newf(pkgerrors.CodeAmbiguous,
			"you share %d active %q relationships with that user, use leave with an explicit id", len(matches), relType)
	}
}

// ListForUser returns the caller's active groups with member ids.
func (s *service) ListForUser(ctx context.Context, guildID, userID int64) ([]GroupDTO, error) {
	rels, err := s.repo.ListActiveForUser(ctx, guildID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list relationships")
	}
	return s.toGroupDTOs(ctx, rels)
}

// PendingInvites returns the user's invite inbox.
func (s *service) PendingInvites(ctx context.Context, guildID, userID int64) ([]InviteDTO, error) {
	invites, err := s.repo.ListPendingInvitesForUser(ctx, guildID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invites")
	}
	return invites, nil
}

// Groups returns every active group in the guild with member ids.
func (s *service) Groups(ctx context.Context, guildID int64) ([]GroupDTO, error) {
	rels, err := s.repo.ListActiveGroups(ctx, guildID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list groups")
	}
	return s.toGroupDTOs(ctx, rels)
}

// ActiveMemberIDs returns the active member ids of one group.
func (s *service) ActiveMemberIDs(ctx context.Context, guildID, relationshipID int64) ([]int64, error) {
	if _, err := s.repo.FindActiveByID(ctx, guildID, relationshipID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active relationship with that id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
	}
	ids, err := s.repo.ActiveMemberIDs(ctx, relationshipID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return ids, nil
}

func (s *service) toGroupDTOs(ctx context.Context, rels []models.Relationship) ([]GroupDTO, error) {
	groups := make([]GroupDTO, 0, len(rels))
	for _, rel := range rels {
		group, err := s.toGroupDTO(ctx, rel)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *service) toGroupDTO(ctx context.Context, rel models.Relationship) (GroupDTO, error) {
	ids, err := s.repo.ActiveMemberIDs(ctx, rel.ID)
	if err != nil {
		return GroupDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return GroupDTO{
		ID:          rel.ID,
		GuildID:     rel.GuildID,
		Type:        rel.Type,
		Status:      rel.Status,
		Emoji:       rel.Emoji,
		Description: rel.Description,
		CreatedBy:   rel.CreatedBy,
		CreatedAt:   rel.CreatedAt,
		MemberIDs:   ids,
	}, nil
}
