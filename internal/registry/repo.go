package registry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/pkg/db/models"
)

// StudentChecker is the read-only existence lookup billing depends on.
type StudentChecker interface {
	StudentExists(ctx context.Context, studentID uuid.UUID) (bool, error)
}

// Repository is the read-only view of the student/parent registry. Nothing
// in this module writes to it; account management lives elsewhere.
type Repository interface {
	StudentChecker
	FindStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error)
	FindParent(ctx context.Context, parentID uuid.UUID) (*models.Parent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a registry lookup bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) StudentExists(ctx context.Context, studentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("id = ?", studentID).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *repository) FindParent(ctx context.Context, parentID uuid.UUID) (*models.Parent, error) {
	var parent models.Parent
	err := r.db.WithContext(ctx).
		Where("id = ?", parentID).
		First(&parent).Error
	if err != nil {
		return nil, err
	}
	return &parent, nil
}
