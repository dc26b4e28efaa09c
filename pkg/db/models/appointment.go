package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studia-app/studia-backend/pkg/enums"
)

// Appointment is a parent-initiated rendez-vous request. The parent and
// child descriptive columns are snapshots taken at request time and are
// deliberately not re-synced with the registry afterwards.
type Appointment struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID     uuid.UUID               `gorm:"column:parent_id;type:uuid;not null;index"`
	ChildID      uuid.UUID               `gorm:"column:child_id;type:uuid;not null;index"`
	ParentName   string                  `gorm:"column:parent_name;not null"`
	ParentEmail  string                  `gorm:"column:parent_email;not null"`
	ParentPhone  *string                 `gorm:"column:parent_phone"`
	ChildName    string                  `gorm:"column:child_name;not null"`
	ChildClass   string                  `gorm:"column:child_class;not null"`
	RequestedAt  time.Time               `gorm:"column:requested_at;not null"`
	ParentReason string                  `gorm:"column:parent_reason;not null"`
	Status       enums.AppointmentStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	AdminReason  *string                 `gorm:"column:admin_reason"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
