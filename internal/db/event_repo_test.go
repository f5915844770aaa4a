package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agencydesk/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- Mock Rows ---

// mockRows implements pgx.Rows over a list of scan functions, one per row.
type mockRows struct {
	scanFns []func(dest ...any) error
	idx     int
	errVal  error
}

func (r *mockRows) Next() bool {
	r.idx++
	return r.idx <= len(r.scanFns)
}

func (r *mockRows) Scan(dest ...any) error {
	return r.scanFns[r.idx-1](dest...)
}

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

// --- EventRepo Tests ---

func TestEventRepo_Insert_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	createdAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "evt-db-1"
			*dest[1].(*time.Time) = createdAt
			return nil
		},
	})

	ev, err := repo.Insert(context.Background(), types.EventSpec{
		EventType:  types.EventInvoicePaid,
		EntityType: "invoice",
		EntityID:   "inv-1",
		Payload:    types.JSONMap{"stripe_invoice_id": "in_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-db-1", ev.ID)
	assert.Equal(t, types.EventStatusPending, ev.Status)
	assert.Equal(t, createdAt, ev.CreatedAt)
	db.AssertExpectations(t)
}

func TestEventRepo_Insert_ScanErrorMapsToDBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{
		scanErr: errors.New("connection reset"),
	})

	_, err := repo.Insert(context.Background(), types.EventSpec{EventType: types.EventInvoicePaid})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestEventRepo_MarkProcessed_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	db.On("Exec", mock.Anything, mock.Anything, []any{"evt-1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.MarkProcessed(context.Background(), "evt-1"))
	db.AssertExpectations(t)
}

func TestEventRepo_MarkProcessed_MissingEvent(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.MarkProcessed(context.Background(), "evt-missing")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundEvent, appErr.Code)
}

func TestEventRepo_MarkError_StoresMessage(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	var captured []any
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]any) }).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.MarkError(context.Background(), "evt-1", "handler failed"))
	require.Len(t, captured, 2)
	assert.Equal(t, "handler failed", captured[0])
	assert.Equal(t, "evt-1", captured[1])
}

func TestEventRepo_ListUnprocessed_AppliesDefaultLimit(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	var captured []any
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]any) }).
		Return(&mockRows{}, nil)

	evs, err := repo.ListUnprocessed(context.Background(), 30*time.Second, 0)
	require.NoError(t, err)
	assert.Empty(t, evs)
	require.Len(t, captured, 2)
	assert.Equal(t, "30s", captured[0])
	assert.Equal(t, 50, captured[1])
}

func TestEventRepo_ListUnprocessed_ScansRows(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	rows := &mockRows{scanFns: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "evt-1"
			*dest[1].(*string) = types.EventInvoicePaid
			*dest[2].(*string) = "invoice"
			*dest[3].(*string) = "inv-1"
			*dest[6].(*types.EventStatus) = types.EventStatusError
			*dest[7].(*string) = "handler failed"
			*dest[9].(*time.Time) = time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
			return nil
		},
	}}
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	evs, err := repo.ListUnprocessed(context.Background(), time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "evt-1", evs[0].ID)
	assert.Equal(t, types.EventStatusError, evs[0].Status)
	assert.Equal(t, "handler failed", evs[0].ErrorMessage)
}

func TestEventRepo_CountByStatus(t *testing.T) {
	db := new(mockDBTX)
	repo := NewEventRepo(db, nil)

	rows := &mockRows{scanFns: []func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*types.EventStatus) = types.EventStatusPending
			*dest[1].(*int64) = 3
			return nil
		},
		func(dest ...any) error {
			*dest[0].(*types.EventStatus) = types.EventStatusProcessed
			*dest[1].(*int64) = 12
			return nil
		},
	}}
	db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[types.EventStatusPending])
	assert.Equal(t, int64(12), counts[types.EventStatusProcessed])
}
