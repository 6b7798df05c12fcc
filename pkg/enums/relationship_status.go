package enums

import "fmt"

// RelationshipStatus captures the lifecycle of a relationship group. The
// transition is one way: active groups end, ended groups are never reopened.
type RelationshipStatus string

const (
	RelationshipStatusActive RelationshipStatus = "active"
	RelationshipStatusEnded  RelationshipStatus = "ended"
)

var validRelationshipStatuses = []RelationshipStatus{
	RelationshipStatusActive,
	RelationshipStatusEnded,
}

// String implements fmt.Stringer.
func (r RelationshipStatus) String() string {
	return string(r)
}

// IsValid reports whether the value matches a known RelationshipStatus.
func (r RelationshipStatus) IsValid() bool {
	for _, candidate := range validRelationshipStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRelationshipStatus converts raw input into a RelationshipStatus.
func ParseRelationshipStatus(value string) (RelationshipStatus, error) {
	for _, candidate := range validRelationshipStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid relationship status %q", value)
}
