package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/internal/billing"
	"github.com/studia-app/studia-backend/pkg/db/models"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/logger"
)

const defaultBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Summary reports what a reconciliation pass scanned and repaired, plus
// aggregate totals for operator verification.
type Summary struct {
	RowsScanned           int             `json:"rows_scanned"`
	RowsRepaired          int             `json:"rows_repaired"`
	SessionTotalsRepaired int             `json:"session_totals_repaired"`
	AmountTotalsRepaired  int             `json:"amount_totals_repaired"`
	StatusesRepaired      int             `json:"statuses_repaired"`
	TotalSessions         int             `json:"total_sessions"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
}

// Service repairs ledgers whose derived columns drifted from their
// authoritative components.
type Service interface {
	ReconcileAll(ctx context.Context) (*Summary, error)
}

type service struct {
	repo      billing.Repository
	tx        txRunner
	logg      *logger.Logger
	batchSize int
}

// NewService wires a reconciliation service over the ledger repository.
func NewService(repo billing.Repository, tx txRunner, logg *logger.Logger, batchSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &service{repo: repo, tx: tx, logg: logg, batchSize: batchSize}, nil
}

// ReconcileAll scans every ledger and repairs drifted derived columns.
// Each row is repaired in its own transaction under a row lock, so the pass
// is safe to run concurrently with live attendance and payment writes, and
// safe to re-run after a crash. Running it twice in a row changes nothing
// on the second pass.
func (s *service) ReconcileAll(ctx context.Context) (*Summary, error) {
	summary := &Summary{TotalAmount: decimal.Zero}
	var errs error

	after := uuid.Nil
	for {
		batch, err := s.repo.ListBatch(ctx, after, s.batchSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledgers")
		}
		if len(batch) == 0 {
			break
		}

		for i := range batch {
			after = batch[i].StudentID
			summary.RowsScanned++

			repaired, sessions, amount, err := s.reconcileRow(ctx, batch[i].StudentID, summary)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("student %s: %w", batch[i].StudentID, err))
				continue
			}
			if repaired {
				summary.RowsRepaired++
			}
			summary.TotalSessions += sessions
			summary.TotalAmount = summary.TotalAmount.Add(amount)
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	if s.logg != nil {
		fields := map[string]any{
			"rows_scanned":            summary.RowsScanned,
			"rows_repaired":           summary.RowsRepaired,
			"session_totals_repaired": summary.SessionTotalsRepaired,
			"amount_totals_repaired":  summary.AmountTotalsRepaired,
			"statuses_repaired":       summary.StatusesRepaired,
			"total_sessions":          summary.TotalSessions,
			"total_amount":            summary.TotalAmount.String(),
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "ledger reconciliation finished")
	}

	return summary, errs
}

// reconcileRow re-reads one ledger under a row lock and repairs it. Reading
// inside the transaction means a concurrent write is either fully visible or
// not at all, never a torn mix.
func (s *service) reconcileRow(ctx context.Context, studentID uuid.UUID, summary *Summary) (repaired bool, sessions int, amount decimal.Decimal, err error) {
	amount = decimal.Zero
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ledger, err := repo.FindForUpdate(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Deleted between listing and locking; nothing to repair.
				return nil
			}
			return err
		}

		changed := repairLedger(ledger, summary)
		if changed {
			if err := repo.Save(ctx, ledger); err != nil {
				return err
			}
		}

		repaired = changed
		sessions = ledger.TotalSessions
		amount = ledger.TotalAmount
		return nil
	})
	return repaired, sessions, amount, err
}

// repairLedger recomputes the derived columns and reports whether anything
// drifted, bumping the per-category counters.
func repairLedger(ledger *models.StudentLedger, summary *Summary) bool {
	changed := false

	if wantSessions := ledger.PaidSessions + ledger.UnpaidSessions; ledger.TotalSessions != wantSessions {
		ledger.TotalSessions = wantSessions
		summary.SessionTotalsRepaired++
		changed = true
	}

	if wantAmount := ledger.PaidAmount.Add(ledger.RemainingAmount); !ledger.TotalAmount.Equal(wantAmount) {
		ledger.TotalAmount = wantAmount
		summary.AmountTotalsRepaired++
		changed = true
	}

	if wantStatus := billing.DeriveStatus(ledger.PaidAmount, ledger.RemainingAmount); !ledger.Status.IsValid() || ledger.Status != wantStatus {
		ledger.Status = wantStatus
		summary.StatusesRepaired++
		changed = true
	}

	return changed
}
