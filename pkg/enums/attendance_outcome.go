package enums

import "fmt"

// AttendanceOutcome records whether a tutoring session was settled at the
// time it was attended.
type AttendanceOutcome string

const (
	AttendanceOutcomePaidSession   AttendanceOutcome = "paid_session"
	AttendanceOutcomeUnpaidSession AttendanceOutcome = "unpaid_session"
)

var validAttendanceOutcomes = []AttendanceOutcome{
	AttendanceOutcomePaidSession,
	AttendanceOutcomeUnpaidSession,
}

// IsValid reports whether the value is a known AttendanceOutcome.
func (o AttendanceOutcome) IsValid() bool {
	for _, candidate := range validAttendanceOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseAttendanceOutcome converts raw input into an AttendanceOutcome.
func ParseAttendanceOutcome(value string) (AttendanceOutcome, error) {
	for _, candidate := range validAttendanceOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attendance outcome %q", value)
}
