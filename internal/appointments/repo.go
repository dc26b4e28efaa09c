package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

// Repository manages persistence for appointments and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, appointment *models.Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	// TransitionFromPending updates the status only when the row is still
	// pending, reporting whether a row was hit. Losing the race is not an
	// error; callers re-read and decide.
	TransitionFromPending(ctx context.Context, id uuid.UUID, to enums.AppointmentStatus, adminReason *string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	CreateDeletionLog(ctx context.Context, entry *models.AppointmentDeletionLog) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AppointmentList, error)
	ListDeletionLogs(ctx context.Context, params pagination.Params) (*DeletionLogList, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an appointments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, appointment *models.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *repository) TransitionFromPending(ctx context.Context, id uuid.UUID, to enums.AppointmentStatus, adminReason *string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if adminReason != nil {
		updates["admin_reason"] = *adminReason
	}

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, enums.AppointmentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Appointment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateDeletionLog(ctx context.Context, entry *models.AppointmentDeletionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AppointmentList, error) {
	query := r.db.WithContext(ctx).Model(&models.Appointment{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ParentID != nil {
		query = query.Where("parent_id = ?", *filters.ParentID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) > (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var appointments []models.Appointment
	if err := query.
		Order("created_at ASC, id ASC").
		Limit(limit + 1).
		Find(&appointments).Error; err != nil {
		return nil, err
	}

	list := &AppointmentList{}
	if len(appointments) > limit {
		last := appointments[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		appointments = appointments[:limit]
	}
	list.Appointments = appointments
	return list, nil
}

func (r *repository) ListDeletionLogs(ctx context.Context, params pagination.Params) (*DeletionLogList, error) {
	query := r.db.WithContext(ctx).Model(&models.AppointmentDeletionLog{})

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(deleted_at, id) > (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var entries []models.AppointmentDeletionLog
	if err := query.
		Order("deleted_at ASC, id ASC").
		Limit(limit + 1).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	list := &DeletionLogList{}
	if len(entries) > limit {
		last := entries[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.DeletedAt,
			ID:        last.ID,
		})
		entries = entries[:limit]
	}
	list.Entries = entries
	return list, nil
}
