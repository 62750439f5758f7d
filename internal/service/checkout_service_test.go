package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/hosting-checkout/internal/model"
	"github.com/fairyhunter13/hosting-checkout/pkg/database"
)

// mockSessionStore is a mock implementation of SessionStore.
type mockSessionStore struct {
	insertFn          func(ctx context.Context, s *model.CheckoutSession) error
	getByIDFn         func(ctx context.Context, id string) (*model.CheckoutSession, error)
	getForUpdateFn    func(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error)
	updateDraftFn     func(ctx context.Context, s *model.CheckoutSession) error
	resetEmailStateFn func(ctx context.Context, id string) error
	markFinalizedFn   func(ctx context.Context, tx database.TxQuerier, id string) error
}

func (m *mockSessionStore) Insert(ctx context.Context, s *model.CheckoutSession) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, s)
	}
	return nil
}

func (m *mockSessionStore) GetByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionStore) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error) {
	if m.getForUpdateFn != nil {
		return m.getForUpdateFn(ctx, tx, id)
	}
	return nil, nil
}

func (m *mockSessionStore) UpdateDraft(ctx context.Context, s *model.CheckoutSession) error {
	if m.updateDraftFn != nil {
		return m.updateDraftFn(ctx, s)
	}
	return nil
}

func (m *mockSessionStore) ResetEmailState(ctx context.Context, id string) error {
	if m.resetEmailStateFn != nil {
		return m.resetEmailStateFn(ctx, id)
	}
	return nil
}

func (m *mockSessionStore) MarkFinalized(ctx context.Context, tx database.TxQuerier, id string) error {
	if m.markFinalizedFn != nil {
		return m.markFinalizedFn(ctx, tx, id)
	}
	return nil
}

// mockOrderStore is a mock implementation of OrderStore.
type mockOrderStore struct {
	insertFn         func(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error
	getBySessionIDFn func(ctx context.Context, sessionID string) (*model.FinalizedOrder, error)
}

func (m *mockOrderStore) Insert(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, o)
	}
	return nil
}

func (m *mockOrderStore) GetBySessionID(ctx context.Context, sessionID string) (*model.FinalizedOrder, error) {
	if m.getBySessionIDFn != nil {
		return m.getBySessionIDFn(ctx, sessionID)
	}
	return nil, nil
}

// mockEmailRunner is a mock implementation of EmailVerifyRunner.
type mockEmailRunner struct {
	verifyFn func(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error)
	calls    int
}

func (m *mockEmailRunner) Verify(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error) {
	m.calls++
	if m.verifyFn != nil {
		return m.verifyFn(ctx, sessionID)
	}
	return &model.EmailValidationResponse{Status: model.EmailValid}, nil
}

// mockConsumer is a mock implementation of CodeConsumer.
type mockConsumer struct {
	consumed chan string
}

func newMockConsumer() *mockConsumer {
	return &mockConsumer{consumed: make(chan string, 1)}
}

func (m *mockConsumer) Consume(ctx context.Context, code string) error {
	m.consumed <- code
	return nil
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func completeSession() *model.CheckoutSession {
	return &model.CheckoutSession{
		ID:                "sess-1",
		ServerName:        "survival-craft",
		CustomerName:      "Priya",
		Email:             "priya@example.com",
		Password:          "hunter2hunter2",
		PlanID:            "stone-age",
		AdditionalBackups: 2,
		AdditionalPorts:   1,
		BillingCycle:      "monthly",
		EmailStatus:       model.EmailValid,
		RedeemStatus:      model.RedeemUnknown,
	}
}

func TestCheckoutService_CreateSession_Success(t *testing.T) {
	var captured *model.CheckoutSession
	sessions := &mockSessionStore{
		insertFn: func(ctx context.Context, s *model.CheckoutSession) error {
			captured = s
			return nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	sess, err := svc.CreateSession(context.Background(), &model.CreateSessionRequest{PlanID: "stone-age"})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "stone-age", sess.PlanID)
	assert.Equal(t, model.EmailUnknown, sess.EmailStatus)
	assert.Equal(t, model.RedeemUnknown, sess.RedeemStatus)
	assert.Equal(t, "monthly", sess.BillingCycle)
}

func TestCheckoutService_CreateSession_UnknownPlan(t *testing.T) {
	svc := NewCheckoutServiceWithTxBeginner(nil, &mockSessionStore{}, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())

	sess, err := svc.CreateSession(context.Background(), &model.CreateSessionRequest{PlanID: "bronze-age"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlanNotFound))
	assert.Nil(t, sess)
}

func TestCheckoutService_UpdateDraft_RedeemCodeEditClearsOutcome(t *testing.T) {
	stored := completeSession()
	stored.RedeemCode = "SAVE10"
	stored.RedeemStatus = model.RedeemValid
	stored.AppliedCode = "SAVE10"
	stored.DiscountAmount = 10
	stored.DiscountKind = "percent"

	var captured *model.CheckoutSession
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
		updateDraftFn: func(ctx context.Context, s *model.CheckoutSession) error {
			captured = s
			return nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.UpdateDraft(context.Background(), "sess-1", &model.UpdateSessionRequest{
		RedeemCode: strPtr("SAVE20"),
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "SAVE20", captured.RedeemCode)
	assert.Equal(t, model.RedeemUnknown, captured.RedeemStatus, "editing the code text must clear the outcome")
	assert.Empty(t, captured.AppliedCode)
	assert.Zero(t, captured.DiscountAmount)
	assert.Empty(t, captured.DiscountKind)
}

func TestCheckoutService_UpdateDraft_EmailChangeResetsValidation(t *testing.T) {
	resetCalled := false
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := completeSession()
			return s, nil
		},
		resetEmailStateFn: func(ctx context.Context, id string) error {
			resetCalled = true
			return nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	sess, err := svc.UpdateDraft(context.Background(), "sess-1", &model.UpdateSessionRequest{
		Email: strPtr("new@example.com"),
	})

	require.NoError(t, err)
	assert.True(t, resetCalled)
	assert.Equal(t, model.EmailUnknown, sess.EmailStatus)
}

func TestCheckoutService_UpdateDraft_SameEmailKeepsValidation(t *testing.T) {
	resetCalled := false
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			return completeSession(), nil
		},
		resetEmailStateFn: func(ctx context.Context, id string) error {
			resetCalled = true
			return nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.UpdateDraft(context.Background(), "sess-1", &model.UpdateSessionRequest{
		Email: strPtr("priya@example.com"),
	})

	require.NoError(t, err)
	assert.False(t, resetCalled, "re-sending the unchanged email must not reset validation")
}

func TestCheckoutService_UpdateDraft_Finalized(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := completeSession()
			s.Finalized = true
			return s, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.UpdateDraft(context.Background(), "sess-1", &model.UpdateSessionRequest{ServerName: strPtr("x")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionFinalized))
}

func TestCheckoutService_UpdateDraft_ClampsAddOns(t *testing.T) {
	var captured *model.CheckoutSession
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			return completeSession(), nil
		},
		updateDraftFn: func(ctx context.Context, s *model.CheckoutSession) error {
			captured = s
			return nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.UpdateDraft(context.Background(), "sess-1", &model.UpdateSessionRequest{
		AdditionalBackups: intPtr(9),
		AdditionalPorts:   intPtr(-2),
	})

	require.NoError(t, err)
	assert.Equal(t, 5, captured.AdditionalBackups)
	assert.Equal(t, 0, captured.AdditionalPorts)
}

func TestCheckoutService_Quote_NoDiscount(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			return completeSession(), nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	quote, err := svc.Quote(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, 576, quote.Total)
	assert.Equal(t, "6.94", quote.Secondary)
	assert.Nil(t, quote.Discount)
}

func TestCheckoutService_Quote_WithPercentDiscount(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := completeSession()
			s.RedeemStatus = model.RedeemValid
			s.AppliedCode = "SAVE10"
			s.DiscountAmount = 10
			s.DiscountKind = "percent"
			return s, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	quote, err := svc.Quote(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, 518, quote.Total)
	require.NotNil(t, quote.Discount)
	assert.Equal(t, 10, quote.Discount.Amount)
}

func TestCheckoutService_Quote_NoPlanSelected(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := completeSession()
			s.PlanID = ""
			return s, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(nil, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.Quote(context.Background(), "sess-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlanNotFound))
}

func TestCheckoutService_Submit_Success(t *testing.T) {
	stored := completeSession()
	stored.RedeemStatus = model.RedeemValid
	stored.AppliedCode = "FLAT100"
	stored.DiscountAmount = 100
	stored.DiscountKind = "fixed"

	var insertedOrder *model.FinalizedOrder
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
	}
	orders := &mockOrderStore{
		insertFn: func(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error {
			insertedOrder = o
			return nil
		},
	}
	email := &mockEmailRunner{}
	consumer := newMockConsumer()
	pool := &mockTxBeginner{}

	svc := NewCheckoutServiceWithTxBeginner(pool, sessions, orders, email, consumer)
	order, err := svc.Submit(context.Background(), "sess-1")

	require.NoError(t, err)
	require.NotNil(t, insertedOrder)
	assert.Equal(t, 1, email.calls, "submit always forces a re-verification")
	assert.Equal(t, 476, order.Total, "576 - 100 fixed discount")
	assert.Equal(t, "Stone Age", order.PlanName)
	require.NotNil(t, order.Discount)
	assert.Equal(t, model.DiscountFixed, order.Discount.Kind)
	assert.NotEmpty(t, order.IdempotencyKey)

	select {
	case code := <-consumer.consumed:
		assert.Equal(t, "FLAT100", code, "mark-used fires for the applied code")
	case <-time.After(2 * time.Second):
		t.Fatal("consume signal was never sent")
	}
}

func TestCheckoutService_Submit_MissingServerName(t *testing.T) {
	stored := completeSession()
	stored.ServerName = "   "

	orderInserted := false
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
	}
	orders := &mockOrderStore{
		insertFn: func(ctx context.Context, tx database.TxQuerier, o *model.FinalizedOrder) error {
			orderInserted = true
			return nil
		},
	}
	email := &mockEmailRunner{}

	svc := NewCheckoutServiceWithTxBeginner(&mockTxBeginner{}, sessions, orders, email, newMockConsumer())
	_, err := svc.Submit(context.Background(), "sess-1")

	require.Error(t, err)
	var mfe *MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "server_name", mfe.Field)
	assert.False(t, orderInserted)
	assert.Equal(t, 1, email.calls, "the forced re-verification still runs before field checks")
}

func TestCheckoutService_Submit_EmailNotVerified(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			return completeSession(), nil
		},
	}
	email := &mockEmailRunner{
		verifyFn: func(ctx context.Context, sessionID string) (*model.EmailValidationResponse, error) {
			return &model.EmailValidationResponse{Status: model.EmailInvalid, Message: "mailbox does not exist"}, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(&mockTxBeginner{}, sessions, &mockOrderStore{}, email, newMockConsumer())
	_, err := svc.Submit(context.Background(), "sess-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmailNotVerified))
	assert.Contains(t, err.Error(), "mailbox does not exist", "the pipeline diagnostic is surfaced")
}

func TestCheckoutService_Submit_AlreadySubmitted(t *testing.T) {
	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			return completeSession(), nil
		},
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error) {
			s := completeSession()
			s.Finalized = true // A racing submit won the lock first
			return s, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(&mockTxBeginner{}, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	_, err := svc.Submit(context.Background(), "sess-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))
}

func TestCheckoutService_Submit_FailedCodeDoesNotBlock(t *testing.T) {
	// An attempted-but-failed redeem code contributes no discount and must
	// not stop submission.
	stored := completeSession()
	stored.RedeemCode = "BADCODE"
	stored.RedeemStatus = model.RedeemInvalid

	sessions := &mockSessionStore{
		getByIDFn: func(ctx context.Context, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
		getForUpdateFn: func(ctx context.Context, tx database.TxQuerier, id string) (*model.CheckoutSession, error) {
			s := *stored
			return &s, nil
		},
	}

	svc := NewCheckoutServiceWithTxBeginner(&mockTxBeginner{}, sessions, &mockOrderStore{}, &mockEmailRunner{}, newMockConsumer())
	order, err := svc.Submit(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Nil(t, order.Discount)
	assert.Equal(t, 576, order.Total)
}

func TestIdempotencyKey_Deterministic(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	a := IdempotencyKey("Priya@Example.com ", "stone-age", "survival-craft", day)
	b := IdempotencyKey("priya@example.com", "stone-age", "survival-craft", day.Add(5*time.Hour))

	assert.Equal(t, a, b, "same email/plan/server/day must derive the same key")

	c := IdempotencyKey("priya@example.com", "stone-age", "survival-craft", day.AddDate(0, 0, 1))
	assert.NotEqual(t, a, c, "a different calendar day is a different logical order")

	d := IdempotencyKey("priya@example.com", "iron-age", "survival-craft", day)
	assert.NotEqual(t, a, d)
}
