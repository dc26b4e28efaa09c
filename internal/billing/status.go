package billing

import (
	"github.com/shopspring/decimal"

	"github.com/studia-app/studia-backend/pkg/enums"
)

// DeriveStatus computes the payment status of a ledger from its monetary
// components. A ledger with nothing left to pay is paid, even when nothing
// was ever charged: a brand-new ledger is vacuously settled.
func DeriveStatus(paidAmount, remainingAmount decimal.Decimal) enums.LedgerStatus {
	switch {
	case remainingAmount.IsZero():
		return enums.LedgerStatusPaid
	case paidAmount.IsPositive():
		return enums.LedgerStatusPartial
	default:
		return enums.LedgerStatusPending
	}
}
