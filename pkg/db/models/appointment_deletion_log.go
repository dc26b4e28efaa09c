package models

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentDeletionLog is the append-only audit trail for removed
// appointments. A row is written before the appointment row is deleted.
type AppointmentDeletionLog struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AppointmentID uuid.UUID `gorm:"column:appointment_id;type:uuid;not null;index"`
	ParentName    string    `gorm:"column:parent_name;not null"`
	ChildName     string    `gorm:"column:child_name;not null"`
	Reason        string    `gorm:"column:reason;not null"`
	DeletedBy     string    `gorm:"column:deleted_by;not null"`
	DeletedAt     time.Time `gorm:"column:deleted_at;autoCreateTime"`
}
