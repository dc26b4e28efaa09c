package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is a registry entry for an enrolled child. The billing and
// appointment services read it, they never write it.
type Student struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID  uuid.UUID `gorm:"column:parent_id;type:uuid;not null;index"`
	FirstName string    `gorm:"column:first_name;not null"`
	LastName  string    `gorm:"column:last_name;not null"`
	Class     string    `gorm:"column:class;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
