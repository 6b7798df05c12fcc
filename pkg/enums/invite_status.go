package enums

import "fmt"

// InviteStatus captures the lifecycle of a relationship invite.
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "pending"
	InviteStatusAccepted  InviteStatus = "accepted"
	InviteStatusDeclined  InviteStatus = "declined"
	InviteStatusCancelled InviteStatus = "cancelled"
)

var validInviteStatuses = []InviteStatus{
	InviteStatusPending,
	InviteStatusAccepted,
	InviteStatusDeclined,
	InviteStatusCancelled,
}

// String implements fmt.Stringer.
func (i InviteStatus) String() string {
	return string(i)
}

// IsValid reports whether the value matches a known InviteStatus.
func (i InviteStatus) IsValid() bool {
	for _, candidate := range validInviteStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseInviteStatus converts raw input into an InviteStatus.
func ParseInviteStatus(value string) (InviteStatus, error) {
	for _, candidate := range validInviteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invite status %q", value)
}
