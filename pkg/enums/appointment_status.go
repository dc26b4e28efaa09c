package enums

import "fmt"

// AppointmentStatus tracks the lifecycle of a parent appointment request.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusRefused   AppointmentStatus = "refused"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

var validAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusApproved,
	AppointmentStatusRefused,
	AppointmentStatusCancelled,
}

// String implements fmt.Stringer.
func (s AppointmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AppointmentStatus.
func (s AppointmentStatus) IsValid() bool {
	for _, candidate := range validAppointmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further workflow transition is allowed from
// the status. Deletion stays possible from terminal states.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusApproved, AppointmentStatusRefused, AppointmentStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseAppointmentStatus converts raw input into an AppointmentStatus.
func ParseAppointmentStatus(value string) (AppointmentStatus, error) {
	for _, candidate := range validAppointmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appointment status %q", value)
}
