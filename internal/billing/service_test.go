package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studia-app/studia-backend/pkg/db/models"
	"github.com/studia-app/studia-backend/pkg/enums"
	pkgerrors "github.com/studia-app/studia-backend/pkg/errors"
	"github.com/studia-app/studia-backend/pkg/pagination"
)

type fakeLedgerRepo struct {
	ledger    *models.StudentLedger
	findErr   error
	createErr error
	saveErr   error
	creates   int
	saves     int
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, ledger *models.StudentLedger) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.creates++
	f.ledger = ledger
	return nil
}

func (f *fakeLedgerRepo) Find(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error) {
	return f.findForStudent(studentID)
}

func (f *fakeLedgerRepo) FindForUpdate(ctx context.Context, studentID uuid.UUID) (*models.StudentLedger, error) {
	return f.findForStudent(studentID)
}

func (f *fakeLedgerRepo) findForStudent(studentID uuid.UUID) (*models.StudentLedger, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.ledger == nil || f.ledger.StudentID != studentID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.ledger
	return &copied, nil
}

func (f *fakeLedgerRepo) Save(ctx context.Context, ledger *models.StudentLedger) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.ledger = ledger
	return nil
}

func (f *fakeLedgerRepo) List(ctx context.Context, params pagination.Params, status *enums.LedgerStatus) (*LedgerList, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	list := &LedgerList{}
	if f.ledger != nil {
		list.Ledgers = []models.StudentLedger{*f.ledger}
	}
	return list, nil
}

func (f *fakeLedgerRepo) ListBatch(ctx context.Context, afterStudentID uuid.UUID, limit int) ([]models.StudentLedger, error) {
	if f.ledger == nil {
		return nil, nil
	}
	return []models.StudentLedger{*f.ledger}, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeStudentChecker struct {
	exists bool
	err    error
}

func (f fakeStudentChecker) StudentExists(ctx context.Context, studentID uuid.UUID) (bool, error) {
	return f.exists, f.err
}

func newTestService(t *testing.T, repo *fakeLedgerRepo, checker fakeStudentChecker) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, checker)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(value)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, fakeTxRunner{}, fakeStudentChecker{}); err == nil {
		t.Fatal("expected error creating service without repo")
	}
	if _, err := NewService(&fakeLedgerRepo{}, nil, fakeStudentChecker{}); err == nil {
		t.Fatal("expected error creating service without tx runner")
	}
	if _, err := NewService(&fakeLedgerRepo{}, fakeTxRunner{}, nil); err == nil {
		t.Fatal("expected error creating service without registry")
	}
}

func TestRecordAttendanceValidation(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: true})

	cases := []struct {
		name  string
		input RecordAttendanceInput
	}{
		{name: "missing student", input: RecordAttendanceInput{Outcome: enums.AttendanceOutcomePaidSession, AmountPerSession: money(t, "40")}},
		{name: "invalid outcome", input: RecordAttendanceInput{StudentID: uuid.New(), Outcome: "late", AmountPerSession: money(t, "40")}},
		{name: "zero amount", input: RecordAttendanceInput{StudentID: uuid.New(), Outcome: enums.AttendanceOutcomePaidSession}},
		{name: "negative amount", input: RecordAttendanceInput{StudentID: uuid.New(), Outcome: enums.AttendanceOutcomePaidSession, AmountPerSession: money(t, "-5")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordAttendance(context.Background(), tc.input)
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRecordAttendanceUnknownStudent(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: false})

	_, err := svc.RecordAttendance(context.Background(), RecordAttendanceInput{
		StudentID:        uuid.New(),
		Outcome:          enums.AttendanceOutcomePaidSession,
		AmountPerSession: money(t, "40"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordAttendanceCreatesLedgerOnFirstSession(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})
	studentID := uuid.New()

	ledger, err := svc.RecordAttendance(context.Background(), RecordAttendanceInput{
		StudentID:        studentID,
		Outcome:          enums.AttendanceOutcomePaidSession,
		AmountPerSession: money(t, "40"),
	})
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}

	if repo.creates != 1 {
		t.Fatalf("expected one ledger create, got %d", repo.creates)
	}
	if ledger.PaidSessions != 1 || ledger.UnpaidSessions != 0 || ledger.TotalSessions != 1 {
		t.Fatalf("unexpected session counters: %+v", ledger)
	}
	if !ledger.PaidAmount.Equal(money(t, "40")) || !ledger.RemainingAmount.IsZero() {
		t.Fatalf("unexpected amounts: paid=%s remaining=%s", ledger.PaidAmount, ledger.RemainingAmount)
	}
	if ledger.Status != enums.LedgerStatusPaid {
		t.Fatalf("expected paid status, got %s", ledger.Status)
	}
	if ledger.LastPaymentAt == nil || ledger.LastAttendanceAt == nil {
		t.Fatal("expected payment and attendance timestamps to be set")
	}
}

func TestRecordAttendanceUnpaidSessionAccruesDebt(t *testing.T) {
	studentID := uuid.New()
	repo := &fakeLedgerRepo{ledger: &models.StudentLedger{
		StudentID:       studentID,
		PaidSessions:    2,
		TotalSessions:   2,
		PaidAmount:      decimal.RequireFromString("80"),
		TotalAmount:     decimal.RequireFromString("80"),
		RemainingAmount: decimal.Zero,
		Status:          enums.LedgerStatusPaid,
	}}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})

	ledger, err := svc.RecordAttendance(context.Background(), RecordAttendanceInput{
		StudentID:        studentID,
		Outcome:          enums.AttendanceOutcomeUnpaidSession,
		AmountPerSession: money(t, "40"),
	})
	if err != nil {
		t.Fatalf("record attendance: %v", err)
	}

	if ledger.TotalSessions != 3 || ledger.UnpaidSessions != 1 {
		t.Fatalf("unexpected session counters: %+v", ledger)
	}
	if !ledger.RemainingAmount.Equal(money(t, "40")) {
		t.Fatalf("expected remaining 40, got %s", ledger.RemainingAmount)
	}
	if !ledger.TotalAmount.Equal(ledger.PaidAmount.Add(ledger.RemainingAmount)) {
		t.Fatalf("total must equal paid plus remaining: %+v", ledger)
	}
	if ledger.Status != enums.LedgerStatusPartial {
		t.Fatalf("expected partial status, got %s", ledger.Status)
	}
	if ledger.LastPaymentAt != nil {
		t.Fatal("unpaid session must not touch the payment timestamp")
	}
}

func TestRecordAttendanceDependencyFailure(t *testing.T) {
	repo := &fakeLedgerRepo{findErr: errors.New("boom")}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})

	_, err := svc.RecordAttendance(context.Background(), RecordAttendanceInput{
		StudentID:        uuid.New(),
		Outcome:          enums.AttendanceOutcomePaidSession,
		AmountPerSession: money(t, "40"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestAdjustPaymentValidation(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: true})

	_, err := svc.AdjustPayment(context.Background(), AdjustPaymentInput{
		StudentID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero deltas, got %v", err)
	}
}

func TestAdjustPaymentUnknownStudent(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: false})

	_, err := svc.AdjustPayment(context.Background(), AdjustPaymentInput{
		StudentID: uuid.New(),
		PaidDelta: money(t, "40"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdjustPaymentCreatesLedgerOnFirstEvent(t *testing.T) {
	repo := &fakeLedgerRepo{}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})

	ledger, err := svc.AdjustPayment(context.Background(), AdjustPaymentInput{
		StudentID: uuid.New(),
		PaidDelta: money(t, "40"),
	})
	if err != nil {
		t.Fatalf("adjust payment: %v", err)
	}

	if repo.creates != 1 {
		t.Fatalf("expected one ledger create, got %d", repo.creates)
	}
	if ledger.TotalSessions != 0 {
		t.Fatalf("payment must not add sessions: %+v", ledger)
	}
	if !ledger.PaidAmount.Equal(money(t, "40")) || !ledger.RemainingAmount.IsZero() {
		t.Fatalf("unexpected amounts: paid=%s remaining=%s", ledger.PaidAmount, ledger.RemainingAmount)
	}
	if ledger.Status != enums.LedgerStatusPaid {
		t.Fatalf("expected paid status, got %s", ledger.Status)
	}
	if ledger.LastPaymentAt == nil {
		t.Fatal("positive paid delta must stamp the payment timestamp")
	}
}

func TestAdjustPaymentSettlesDebt(t *testing.T) {
	studentID := uuid.New()
	repo := &fakeLedgerRepo{ledger: &models.StudentLedger{
		StudentID:       studentID,
		PaidSessions:    2,
		UnpaidSessions:  1,
		TotalSessions:   3,
		PaidAmount:      decimal.RequireFromString("80"),
		RemainingAmount: decimal.RequireFromString("40"),
		TotalAmount:     decimal.RequireFromString("120"),
		Status:          enums.LedgerStatusPartial,
	}}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})

	ledger, err := svc.AdjustPayment(context.Background(), AdjustPaymentInput{
		StudentID:      studentID,
		PaidDelta:      money(t, "40"),
		RemainingDelta: money(t, "-40"),
	})
	if err != nil {
		t.Fatalf("adjust payment: %v", err)
	}

	if !ledger.PaidAmount.Equal(money(t, "120")) || !ledger.RemainingAmount.IsZero() {
		t.Fatalf("unexpected amounts: paid=%s remaining=%s", ledger.PaidAmount, ledger.RemainingAmount)
	}
	if ledger.Status != enums.LedgerStatusPaid {
		t.Fatalf("expected paid status, got %s", ledger.Status)
	}
	if !ledger.TotalAmount.Equal(money(t, "120")) {
		t.Fatalf("expected total 120, got %s", ledger.TotalAmount)
	}
	if ledger.LastPaymentAt == nil {
		t.Fatal("positive paid delta must stamp the payment timestamp")
	}
}

func TestAdjustPaymentRejectsNegativeBalances(t *testing.T) {
	studentID := uuid.New()
	repo := &fakeLedgerRepo{ledger: &models.StudentLedger{
		StudentID:       studentID,
		PaidAmount:      decimal.RequireFromString("80"),
		RemainingAmount: decimal.RequireFromString("40"),
		TotalAmount:     decimal.RequireFromString("120"),
		Status:          enums.LedgerStatusPartial,
	}}
	svc := newTestService(t, repo, fakeStudentChecker{exists: true})

	_, err := svc.AdjustPayment(context.Background(), AdjustPaymentInput{
		StudentID:      studentID,
		RemainingDelta: money(t, "-60"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.saves != 0 {
		t.Fatal("rejected adjustment must not persist")
	}
}

func TestGetLedgerNotFound(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: true})

	_, err := svc.GetLedger(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListLedgersRejectsInvalidStatus(t *testing.T) {
	svc := newTestService(t, &fakeLedgerRepo{}, fakeStudentChecker{exists: true})

	bad := enums.LedgerStatus("overdue")
	_, err := svc.ListLedgers(context.Background(), pagination.Params{}, &bad)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
