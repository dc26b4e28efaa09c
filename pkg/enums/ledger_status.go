package enums

import "fmt"

// LedgerStatus is the derived payment state of a student ledger. It is never
// accepted as caller input; services recompute it from the monetary columns.
type LedgerStatus string

const (
	LedgerStatusPaid    LedgerStatus = "paid"
	LedgerStatusPartial LedgerStatus = "partial"
	LedgerStatusPending LedgerStatus = "pending"
)

var validLedgerStatuses = []LedgerStatus{
	LedgerStatusPaid,
	LedgerStatusPartial,
	LedgerStatusPending,
}

// String implements fmt.Stringer.
func (s LedgerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerStatus.
func (s LedgerStatus) IsValid() bool {
	for _, candidate := range validLedgerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerStatus converts raw input into a LedgerStatus.
func ParseLedgerStatus(value string) (LedgerStatus, error) {
	for _, candidate := range validLedgerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger status %q", value)
}
