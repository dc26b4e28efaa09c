package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/internal/registry"
	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

// maxTransitionRetries bounds how often a lost conditional update is
// retried before the refreshed state decides the outcome.
const maxTransitionRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the appointment workflow operations.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Appointment, error)
	Decide(ctx context.Context, input DecideInput) (*models.Appointment, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Appointment, error)
	Delete(ctx context.Context, input DeleteInput) error
	Get(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AppointmentList, error)
	ListDeletionLogs(ctx context.Context, params pagination.Params) (*DeletionLogList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	registry registry.Repository
	now      func() time.Time
}

// NewService wires an appointment workflow service.
func NewService(repo Repository, tx txRunner, reg registry.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("appointments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry required")
	}
	return &service{repo: repo, tx: tx, registry: reg, now: time.Now}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Appointment, error) {
	if input.ParentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent id required")
	}
	if input.ChildID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "child id required")
	}
	if strings.TrimSpace(input.ParentReason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if !input.RequestedAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested time must be in the future")
	}

	parent, err := s.registry.FindParent(ctx, input.ParentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent")
	}
	child, err := s.registry.FindStudent(ctx, input.ChildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "child not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load child")
	}

	// Descriptive columns are a deliberate snapshot of the registry at
	// request time; they are not kept in sync afterwards.
	appointment := &models.Appointment{
		ParentID:     parent.ID,
		ChildID:      child.ID,
		ParentName:   parent.FirstName + " " + parent.LastName,
		ParentEmail:  parent.Email,
		ParentPhone:  parent.Phone,
		ChildName:    child.FirstName + " " + child.LastName,
		ChildClass:   child.Class,
		RequestedAt:  input.RequestedAt.UTC(),
		ParentReason: strings.TrimSpace(input.ParentReason),
		Status:       enums.AppointmentStatusPending,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create appointment")
	}
	return appointment, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.Appointment, error) {
	if input.AppointmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}
	if !input.Decision.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or refuse")
	}

	target := enums.AppointmentStatusApproved
	if input.Decision == enums.AppointmentDecisionRefuse {
		target = enums.AppointmentStatusRefused
	}

	return s.transition(ctx, input.AppointmentID, target, input.AdminReason, nil)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Appointment, error) {
	if input.AppointmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}
	if input.ByParentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent id required")
	}

	guard := func(appointment *models.Appointment) error {
		if appointment.ParentID != input.ByParentID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "appointment belongs to another parent")
		}
		return nil
	}
	return s.transition(ctx, input.AppointmentID, enums.AppointmentStatusCancelled, nil, guard)
}

// transition applies a pending-only status change with a bounded retry on
// lost races. The conditional update either hits the still-pending row or
// the refreshed state determines the error surfaced to the caller.
func (s *service) transition(ctx context.Context, id uuid.UUID, target enums.AppointmentStatus, adminReason *string, guard func(*models.Appointment) error) (*models.Appointment, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		appointment, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
		}

		if guard != nil {
			if err := guard(appointment); err != nil {
				return nil, err
			}
		}

		if appointment.Status != enums.AppointmentStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "appointment is no longer pending").
				WithDetails(map[string]any{
					"current_status":   appointment.Status,
					"requested_status": target,
				})
		}

		ok, err := s.repo.TransitionFromPending(ctx, id, target, adminReason)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update appointment status")
		}
		if ok {
			appointment.Status = target
			if adminReason != nil {
				appointment.AdminReason = adminReason
			}
			return appointment, nil
		}
		// Lost the race; loop re-reads the refreshed row.
	}

	// Every attempt lost its race. One last read decides the outcome the
	// same way a fresh call would.
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "appointment is no longer pending").
		WithDetails(map[string]any{
			"current_status":   appointment.Status,
			"requested_status": target,
		})
}

func (s *service) Delete(ctx context.Context, input DeleteInput) error {
	if input.AppointmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "deletion reason required")
	}
	if strings.TrimSpace(input.DeletedBy) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "deleted_by required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		appointment, err := repo.FindByID(ctx, input.AppointmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
		}

		// Audit first: if the log write fails the transaction rolls back
		// and the appointment row survives.
		entry := &models.AppointmentDeletionLog{
			AppointmentID: appointment.ID,
			ParentName:    appointment.ParentName,
			ChildName:     appointment.ChildName,
			Reason:        strings.TrimSpace(input.Reason),
			DeletedBy:     strings.TrimSpace(input.DeletedBy),
		}
		if err := repo.CreateDeletionLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write deletion log")
		}

		deleted, err := repo.Delete(ctx, appointment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete appointment")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appointment id required")
	}
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "appointment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load appointment")
	}
	return appointment, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AppointmentList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list appointments")
	}
	return list, nil
}

func (s *service) ListDeletionLogs(ctx context.Context, params pagination.Params) (*DeletionLogList, error) {
	list, err := s.repo.ListDeletionLogs(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deletion logs")
	}
	return list, nil
}
