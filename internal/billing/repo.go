package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

// Repository manages persistence for student ledgers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ledger *models.StudentLedger) error
	Find(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error)
	FindForUpdate(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error)
	Save(ctx context.Context, ledger *models.StudentLedger) error
	List(ctx context.Context, params pagination.Params, status *enums.LedgerStatus) (*LedgerList, error)
	ListBatch(ctx context.Context, afterStudentID uuid.UUID, limit int) ([]models.StudentLedger, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ledger *models.StudentLedger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *repository) Find(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error) {
	var ledger models.StudentLedger
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// FindForUpdate loads the ledger row under a row-level lock. Callers must be
// inside a transaction; the lock serializes concurrent writers per student.
func (r *repository) FindForUpdate(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error) {
	var ledger models.StudentLedger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *repository) Save(ctx context.Context, ledger *models.StudentLedger) error {
	return r.db.WithContext(ctx).Save(ledger).Error
}

func (r *repository) List(ctx context.Context, params pagination.Params, status *enums.LedgerStatus) (*LedgerList, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentLedger{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, student_id) > (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var ledgers []models.StudentLedger
	if err := query.
		Order("created_at ASC, student_id ASC").
		Limit(limit + 1).
		Find(&ledgers).Error; err != nil {
		return nil, err
	}

	list := &LedgerList{}
	if len(ledgers) > limit {
		last := ledgers[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.StudentID,
		})
		ledgers = ledgers[:limit]
	}
	list.Ledgers = ledgers
	return list, nil
}

// ListBatch returns ledgers ordered by student id, strictly after the given
// key. The reconciliation loop uses it for keyset batching.
func (r *repository) ListBatch(ctx context.Context, afterStudentID uuid.UUID, limit int) ([]models.StudentLedger, error) {
	query := r.db.WithContext(ctx).Model(&models.StudentLedger{})
	if afterStudentID != uuid.Nil {
		query = query.Where("student_id > ?", afterStudentID)
	}
	var ledgers []models.StudentLedger
	if err := query.
		Order("student_id ASC").
		Limit(limit).
		Find(&ledgers).Error; err != nil {
		return nil, err
	}
	return ledgers, nil
}
