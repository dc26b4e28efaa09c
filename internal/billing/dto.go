package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
)

// RecordAttendanceInput captures one attended session and how it was settled.
type RecordAttendanceInput struct {
	StudentID        uuid.UUID
	Outcome          enums.AttendanceOutcome
	AmountPerSession decimal.Decimal
}

// AdjustPaymentInput moves money between the paid and remaining columns,
// for payments not tied to a single attendance event.
type AdjustPaymentInput struct {
	StudentID      uuid.UUID
	PaidDelta      decimal.Decimal
	RemainingDelta decimal.Decimal
}

// LedgerList wraps a paginated page of ledgers plus the next page cursor.
type LedgerList struct {
	Ledgers    []models.StudentLedger `json:"ledgers"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}
