package enums

import "fmt"

// AppointmentDecision is the action an administrator takes on a pending
// appointment request.
type AppointmentDecision string

const (
	AppointmentDecisionApprove AppointmentDecision = "approve"
	AppointmentDecisionRefuse  AppointmentDecision = "refuse"
)

var validAppointmentDecisions = []AppointmentDecision{
	AppointmentDecisionApprove,
	AppointmentDecisionRefuse,
}

// IsValid reports whether the value is a known AppointmentDecision.
func (d AppointmentDecision) IsValid() bool {
	for _, candidate := range validAppointmentDecisions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseAppointmentDecision converts raw input into an AppointmentDecision.
func ParseAppointmentDecision(value string) (AppointmentDecision, error) {
	for _, candidate := range validAppointmentDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appointment decision %q", value)
}
