package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studia-app/studia-backend/pkg/enums"
)

// StudentLedger is the per-student billing record. PaidSessions,
// UnpaidSessions, PaidAmount and RemainingAmount are authoritative;
// TotalSessions, TotalAmount and Status are derived and recomputed on
// every write path.
type StudentLedger struct {
	StudentID        uuid.UUID          `gorm:"column:student_id;type:uuid;primaryKey"`
	TotalSessions    int                `gorm:"column:total_sessions;not null;default:0"`
	PaidSessions     int                `gorm:"column:paid_sessions;not null;default:0"`
	UnpaidSessions   int                `gorm:"column:unpaid_sessions;not null;default:0"`
	TotalAmount      decimal.Decimal    `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	PaidAmount       decimal.Decimal    `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	RemainingAmount  decimal.Decimal    `gorm:"column:remaining_amount;type:numeric(12,2);not null;default:0"`
	Status           enums.LedgerStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	LastPaymentAt    *time.Time         `gorm:"column:last_payment_at"`
	LastAttendanceAt *time.Time         `gorm:"column:last_attendance_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
