package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ledgers := `
CREATE TABLE IF NOT EXISTS student_ledgers (
  student_id TEXT PRIMARY KEY,
  total_sessions INTEGER NOT NULL DEFAULT 0,
  paid_sessions INTEGER NOT NULL DEFAULT 0,
  unpaid_sessions INTEGER NOT NULL DEFAULT 0,
  total_amount TEXT NOT NULL DEFAULT '0',
  paid_amount TEXT NOT NULL DEFAULT '0',
  remaining_amount TEXT NOT NULL DEFAULT '0',
  status TEXT NOT NULL DEFAULT 'paid',
  last_payment_at DATETIME,
  last_attendance_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ledgers).Error)
	return db
}

func seedLedger(t *testing.T, db *gorm.DB, status enums.LedgerStatus, createdAt time.Time) *models.StudentLedger {
	t.Helper()
	remaining := decimal.Zero
	if status != enums.LedgerStatusPaid {
		remaining = decimal.RequireFromString("40")
	}
	paid := decimal.RequireFromString("80")
	if status == enums.LedgerStatusPending {
		paid = decimal.Zero
	}
	ledger := &models.StudentLedger{
		StudentID:       uuid.New(),
		PaidSessions:    2,
		TotalSessions:   2,
		PaidAmount:      paid,
		RemainingAmount: remaining,
		TotalAmount:     paid.Add(remaining),
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, db.Create(ledger).Error)
	return ledger
}

func TestLedgerRepositoryCreateAndFind(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedLedger(t, db, enums.LedgerStatusPaid, time.Now().UTC())

	found, err := repo.Find(ctx, created.StudentID)
	require.NoError(t, err)
	assert.Equal(t, created.StudentID, found.StudentID)
	assert.True(t, found.PaidAmount.Equal(decimal.RequireFromString("80")))
	assert.Equal(t, enums.LedgerStatusPaid, found.Status)
}

func TestLedgerRepositoryFindMissing(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Find(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLedgerRepositorySavePersistsDerivedColumns(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ledger := seedLedger(t, db, enums.LedgerStatusPaid, time.Now().UTC())

	ledger.UnpaidSessions = 1
	ledger.TotalSessions = 3
	ledger.RemainingAmount = decimal.RequireFromString("40")
	ledger.TotalAmount = decimal.RequireFromString("120")
	ledger.Status = enums.LedgerStatusPartial
	require.NoError(t, repo.Save(ctx, ledger))

	found, err := repo.Find(ctx, ledger.StudentID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.TotalSessions)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, enums.LedgerStatusPartial, found.Status)
}

func TestLedgerRepositoryListFiltersByStatus(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	seedLedger(t, db, enums.LedgerStatusPaid, base)
	partial := seedLedger(t, db, enums.LedgerStatusPartial, base.Add(time.Minute))
	seedLedger(t, db, enums.LedgerStatusPending, base.Add(2*time.Minute))

	status := enums.LedgerStatusPartial
	list, err := repo.List(ctx, pagination.Params{Limit: 10}, &status)
	require.NoError(t, err)
	require.Len(t, list.Ledgers, 1)
	assert.Equal(t, partial.StudentID, list.Ledgers[0].StudentID)
}

func TestLedgerRepositoryListPaginatesWithCursor(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		seedLedger(t, db, enums.LedgerStatusPaid, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.List(ctx, pagination.Params{Limit: 2}, nil)
	require.NoError(t, err)
	require.Len(t, first.Ledgers, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor}, nil)
	require.NoError(t, err)
	require.Len(t, second.Ledgers, 1)
	assert.Empty(t, second.NextCursor)
}

func TestLedgerRepositoryListBatchWalksKeyset(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedLedger(t, db, enums.LedgerStatusPaid, base)
	}

	seen := map[uuid.UUID]bool{}
	after := uuid.Nil
	for {
		batch, err := repo.ListBatch(ctx, after, 2)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		for _, ledger := range batch {
			assert.False(t, seen[ledger.StudentID], "keyset batches must not overlap")
			seen[ledger.StudentID] = true
			after = ledger.StudentID
		}
		if len(batch) < 2 {
			break
		}
	}
	assert.Len(t, seen, 5)
}
