package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/internal/registry"
	"github.com/studia-app/studia-backend/pkg/db"
	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the session accounting operations on student ledgers.
type Service interface {
	RecordAttendance(ctx context.Context, input RecordAttendanceInput) (*models.StudentLedger, error)
	AdjustPayment(ctx context.Context, input AdjustPaymentInput) (*models.StudentLedger, error)
	GetLedger(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error)
	ListLedgers(ctx context.Context, params pagination.Params, status *enums.LedgerStatus) (*LedgerList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	registry registry.StudentChecker
}

// NewService wires a billing service with the required dependencies.
func NewService(repo Repository, tx txRunner, reg registry.StudentChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if reg == nil {
		return nil, fmt.Errorf("student registry required")
	}
	return &service{repo: repo, tx: tx, registry: reg}, nil
}

func (s *service) RecordAttendance(ctx context.Context, input RecordAttendanceInput) (*models.StudentLedger, error) {
	if input.StudentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id required")
	}
	if !input.Outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attendance outcome must be paid_session or unpaid_session")
	}
	if !input.AmountPerSession.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount per session must be positive")
	}

	exists, err := s.registry.StudentExists(ctx, input.StudentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check student registry")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
	}

	var result *models.StudentLedger
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ledger, err := loadOrCreateLedger(ctx, repo, input.StudentID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		switch input.Outcome {
		case enums.AttendanceOutcomePaidSession:
			ledger.PaidSessions++
			ledger.PaidAmount = ledger.PaidAmount.Add(input.AmountPerSession)
			ledger.LastPaymentAt = &now
		case enums.AttendanceOutcomeUnpaidSession:
			ledger.UnpaidSessions++
			ledger.RemainingAmount = ledger.RemainingAmount.Add(input.AmountPerSession)
		}
		ledger.LastAttendanceAt = &now
		recompute(ledger)

		if err := repo.Save(ctx, ledger); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save ledger")
		}
		result = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AdjustPayment(ctx context.Context, input AdjustPaymentInput) (*models.StudentLedger, error) {
	if input.StudentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id required")
	}
	if input.PaidDelta.IsZero() && input.RemainingDelta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one delta must be non-zero")
	}

	exists, err := s.registry.StudentExists(ctx, input.StudentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check student registry")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "student not found")
	}

	var result *models.StudentLedger
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ledger, err := loadOrCreateLedger(ctx, repo, input.StudentID)
		if err != nil {
			return err
		}

		paid := ledger.PaidAmount.Add(input.PaidDelta)
		remaining := ledger.RemainingAmount.Add(input.RemainingDelta)
		if paid.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "paid amount cannot go negative")
		}
		if remaining.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "remaining amount cannot go negative")
		}

		ledger.PaidAmount = paid
		ledger.RemainingAmount = remaining
		if input.PaidDelta.IsPositive() {
			now := time.Now().UTC()
			ledger.LastPaymentAt = &now
		}
		recompute(ledger)

		if err := repo.Save(ctx, ledger); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save ledger")
		}
		result = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) GetLedger(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error) {
	if studentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id required")
	}
	ledger, err := s.repo.Find(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger")
	}
	return ledger, nil
}

func (s *service) ListLedgers(ctx context.Context, params pagination.Params, status *enums.LedgerStatus) (*LedgerList, error) {
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	list, err := s.repo.List(ctx, params, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledgers")
	}
	return list, nil
}

// loadOrCreateLedger locks the student's ledger row, creating a zeroed
// one on the first event for the student.
func loadOrCreateLedger(ctx context.Context, repo Repository, studentID uuid.UUID) (*models.StudentLedger, error) {
	ledger, err := repo.FindForUpdate(ctx, studentID)
	if err == nil {
		return ledger, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger")
	}

	ledger = newLedger(studentID)
	if err := repo.Create(ctx, ledger); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost the creation race; the winner's row is the one
			// to mutate.
			ledger, err = repo.FindForUpdate(ctx, studentID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ledger")
			}
			return ledger, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger")
	}
	return ledger, nil
}

func newLedger(studentID uuid.UUID) *models.StudentLedger {
	return &models.StudentLedger{
		StudentID:       studentID,
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		Status:          enums.LedgerStatusPaid,
	}
}

// recompute refreshes the derived columns from the authoritative ones.
// Callers never set TotalSessions, TotalAmount or Status directly.
func recompute(ledger *models.StudentLedger) {
	ledger.TotalSessions = ledger.PaidSessions + ledger.UnpaidSessions
	ledger.TotalAmount = ledger.PaidAmount.Add(ledger.RemainingAmount)
	ledger.Status = DeriveStatus(ledger.PaidAmount, ledger.RemainingAmount)
}
