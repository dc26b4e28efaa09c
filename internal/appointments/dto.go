package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
)

// RequestInput captures a parent's rendez-vous request.
type RequestInput struct {
	ParentID     uuid.UUID
	ChildID      uuid.UUID
	RequestedAt  time.Time
	ParentReason string
}

// DecideInput carries an administrator decision on a pending request.
type DecideInput struct {
	AppointmentID uuid.UUID
	Decision      enums.AppointmentDecision
	AdminReason   *string
}

// CancelInput carries a parent's withdrawal of their own pending request.
type CancelInput struct {
	AppointmentID uuid.UUID
	ByParentID    uuid.UUID
}

// DeleteInput carries the administrative removal of an appointment row.
type DeleteInput struct {
	AppointmentID uuid.UUID
	Reason        string
	DeletedBy     string
}

// ListFilters describe the inputs supported by the appointment list.
type ListFilters struct {
	Status   *enums.AppointmentStatus
	ParentID *uuid.UUID
}

// AppointmentList wraps a paginated page of appointments plus the next cursor.
type AppointmentList struct {
	Appointments []models.Appointment `json:"appointments"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// DeletionLogList wraps a paginated page of audit entries plus the next cursor.
type DeletionLogList struct {
	Entries    []models.AppointmentDeletionLog `json:"entries"`
	NextCursor string                          `json:"next_cursor,omitempty"`
}
