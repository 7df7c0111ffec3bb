package postgres_test

import (
	"context"
	"testing"
	"time"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferengine/internal/domain"
	"transferengine/internal/store"
	"transferengine/internal/store/postgres"
)

// newTestStore brings up a disposable PostgreSQL testcontainer, applies the
// schema, and returns a ready Store. Grounded on the teacher's
// test/integration/testenv.SetupPostgresContainer pattern.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("transferengine"),
		tcpostgres.WithUsername("transferengine"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres testcontainer")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &postgres.Config{
		Host: host, Port: port.Int(), Database: "transferengine",
		User: "transferengine", Password: "test-password", SSLMode: "disable",
		MaxOpenConns: 10, MaxIdleConns: 2,
		ConnMaxLifetime: "30m", ConnMaxIdleTime: "5m", HealthCheckPeriod: "30s",
	}

	s, err := postgres.NewStore(ctx, cfg)
	require.NoError(t, err, "failed to create store")

	_, err = s.Pool().Exec(ctx, postgres.Schema)
	require.NoError(t, err, "failed to apply schema")

	t.Cleanup(s.Close)
	return s
}

func seedAccount(t *testing.T, s *postgres.Store, id string) {
	t.Helper()
	_, err := s.Pool().Exec(context.Background(),
		`INSERT INTO accounts (id, name, balance, currency, status) VALUES ($1,$2,$3,$4,$5)`,
		id, id, decimal.RequireFromString("100.0000"), "USD", string(domain.AccountActive))
	require.NoError(t, err)
}

func TestStoreLockAccountAndUpdateBalance(t *testing.T) {
	s := newTestStore(t)
	accID := uuid.NewString()
	seedAccount(t, s, accID)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.LockAccount(ctx, accID)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("100.0000")))

		return tx.UpdateAccountBalance(ctx, accID, decimal.RequireFromString("50.0000"), acc.Version)
	})
	require.NoError(t, err)

	err = s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.LockAccount(ctx, accID)
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("50.0000")))
		assert.Equal(t, int64(1), acc.Version)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreUpdateAccountBalanceDetectsVersionConflict(t *testing.T) {
	s := newTestStore(t)
	accID := uuid.NewString()
	seedAccount(t, s, accID)

	err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateAccountBalance(ctx, accID, decimal.RequireFromString("10.0000"), 99)
	})
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestStoreInsertTransactionDetectsUniqueIdempotencyKeyViolation(t *testing.T) {
	s := newTestStore(t)
	accA := uuid.NewString()
	accB := uuid.NewString()
	seedAccount(t, s, accA)
	seedAccount(t, s, accB)

	insert := func(txnID, key string) error {
		return s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			return tx.InsertTransaction(ctx, &domain.Transaction{
				ID: txnID, IdempotencyKey: key, FromAccountID: accA, ToAccountID: accB,
				Amount: decimal.RequireFromString("5.0000"), Currency: "USD",
				Type: domain.TransactionTransfer, Status: domain.TransactionCompleted,
				CreatedAt: time.Now(),
			})
		})
	}

	require.NoError(t, insert(uuid.NewString(), "shared-key"))
	err := insert(uuid.NewString(), "shared-key")
	assert.ErrorIs(t, err, store.ErrUniqueViolation)
}

func TestStoreFetchPendingOutboxReturnsFIFOOrder(t *testing.T) {
	s := newTestStore(t)
	accA := uuid.NewString()
	accB := uuid.NewString()
	seedAccount(t, s, accA)
	seedAccount(t, s, accB)

	var ids []string
	for i := 0; i < 3; i++ {
		txnID := uuid.NewString()
		err := s.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			if err := tx.InsertTransaction(ctx, &domain.Transaction{
				ID: txnID, IdempotencyKey: uuid.NewString(), FromAccountID: accA, ToAccountID: accB,
				Amount: decimal.RequireFromString("1.0000"), Currency: "USD",
				Type: domain.TransactionTransfer, Status: domain.TransactionCompleted, CreatedAt: time.Now(),
			}); err != nil {
				return err
			}
			return tx.InsertOutboxEvent(ctx, &domain.OutboxEvent{
				ID: uuid.NewString(), EventType: domain.EventTypeTransactionCompleted,
				AggregateID: txnID, Payload: []byte(`{}`), Status: domain.OutboxPending, CreatedAt: time.Now(),
			})
		})
		require.NoError(t, err)
		ids = append(ids, txnID)
		time.Sleep(5 * time.Millisecond)
	}

	events, err := s.FetchPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, ids[i], ev.AggregateID)
	}
}
