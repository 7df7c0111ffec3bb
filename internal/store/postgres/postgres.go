// Package postgres implements transferengine/internal/store.Store on top of
// pgx, the way the teacher's internal/infrastructure/database/postgres does:
// a pooled connection, explicit Begin/Commit/Rollback, and SELECT ... FOR
// UPDATE for pessimistic row locks. Serializable isolation plus that row
// lock is what spec ss4.1 calls "serializable-or-stronger".
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"transferengine/internal/domain"
	"transferengine/internal/pkg/logging"
	"transferengine/internal/store"
)

const (
	pgCodeUniqueViolation     = "23505"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected    = "40P01"
)

// Store implements store.Store using a pgxpool connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed store with a pooled connection,
// mirroring the teacher's NewPostgresRepository pool-configuration steps.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)

	if maxLifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		poolConfig.MaxConnLifetime = maxLifetime
	}
	if maxIdleTime, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		poolConfig.MaxConnIdleTime = maxIdleTime
	}
	if healthCheck, err := time.ParseDuration(cfg.HealthCheckPeriod); err == nil {
		poolConfig.HealthCheckPeriod = healthCheck
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info("PostgreSQL connection pool created", map[string]interface{}{
		"max_conns": poolConfig.MaxConns,
		"min_conns": poolConfig.MinConns,
	})

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		logging.Info("PostgreSQL connection pool closed", nil)
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying connection pool for schema setup and seeding
// in integration tests; application code should go through the Store methods
// instead.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// PeekIdempotency is the read-only short-circuit of spec ss4.1 step 1. It
// never opens a write transaction.
func (s *Store) PeekIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	const q = `
		SELECT id, idempotency_key, transaction_id, response, created_at, expires_at
		FROM idempotency_records
		WHERE idempotency_key = $1
	`
	var rec domain.IdempotencyRecord
	err := s.pool.QueryRow(ctx, q, key).Scan(
		&rec.ID, &rec.IdempotencyKey, &rec.TransactionID, &rec.Response, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("peek idempotency record: %w", err)
	}
	return &rec, nil
}

// WithTx opens one serializable transaction and maps pgx/postgres failure
// classes onto the store sentinel errors the Processor retries on.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = pgxTx.Rollback(ctx)
	}()

	txWrapper := &tx{pgxTx: pgxTx}
	if err := fn(ctx, txWrapper); err != nil {
		return classifyTxError(err)
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return classifyTxError(err)
	}
	return nil
}

func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeUniqueViolation:
			return store.ErrUniqueViolation
		case pgCodeSerializationFailure, pgCodeDeadlockDetected:
			return store.ErrSerializationFailure
		}
	}
	return err
}

func (s *Store) FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	const q = `
		SELECT id, event_type, aggregate_id, payload, status, created_at, published_at, retry_count, COALESCE(error_message, '')
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		var statusStr string
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.AggregateID, &ev.Payload, &statusStr,
			&ev.CreatedAt, &ev.PublishedAt, &ev.RetryCount, &ev.LastError); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Status = domain.OutboxStatus(statusStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) MarkOutboxPublished(ctx context.Context, id string, publishedAt time.Time) error {
	const q = `UPDATE outbox_events SET status = 'PUBLISHED', published_at = $1 WHERE id = $2`
	_, err := s.pool.Exec(ctx, q, publishedAt, id)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func (s *Store) MarkOutboxFailed(ctx context.Context, id string, retryCount int, lastErr string, terminal bool) error {
	status := "PENDING"
	if terminal {
		status = "FAILED"
	}
	const q = `UPDATE outbox_events SET status = $1, retry_count = $2, error_message = $3 WHERE id = $4`
	_, err := s.pool.Exec(ctx, q, status, retryCount, lastErr, id)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// tx implements store.Tx over one pgx.Tx.
type tx struct {
	pgxTx pgx.Tx
}

// LockAccount acquires SELECT ... FOR UPDATE. Callers are responsible for
// invoking this in ascending account-ID order across the two accounts of a
// transfer (spec ss4.1, ss9).
func (t *tx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	const q = `
		SELECT id, name, balance, currency, status, created_at, updated_at, version
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`
	var acc domain.Account
	var statusStr string
	err := t.pgxTx.QueryRow(ctx, q, id).Scan(
		&acc.ID, &acc.Name, &acc.Balance, &acc.Currency, &statusStr,
		&acc.CreatedAt, &acc.UpdatedAt, &acc.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock account %s: %w", id, err)
	}
	acc.Status = domain.AccountStatus(statusStr)
	return &acc, nil
}

func (t *tx) UpdateAccountBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error {
	const q = `
		UPDATE accounts
		SET balance = $1, updated_at = now(), version = version + 1
		WHERE id = $2 AND version = $3
	`
	tag, err := t.pgxTx.Exec(ctx, q, newBalance, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("update account balance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (t *tx) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	const q = `
		SELECT id, idempotency_key, from_account_id, to_account_id, amount, currency, type, status,
		       COALESCE(failure_reason, ''), created_at, completed_at, version
		FROM transactions
		WHERE id = $1
	`
	var txn domain.Transaction
	var typeStr, statusStr string
	err := t.pgxTx.QueryRow(ctx, q, id).Scan(
		&txn.ID, &txn.IdempotencyKey, &txn.FromAccountID, &txn.ToAccountID, &txn.Amount, &txn.Currency,
		&typeStr, &statusStr, &txn.FailureReason, &txn.CreatedAt, &txn.CompletedAt, &txn.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", id, err)
	}
	txn.Type = domain.TransactionType(typeStr)
	txn.Status = domain.TransactionStatus(statusStr)
	return &txn, nil
}

func (t *tx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	const q = `
		INSERT INTO transactions
			(id, idempotency_key, from_account_id, to_account_id, amount, currency, type, status,
			 failure_reason, created_at, completed_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12)
	`
	_, err := t.pgxTx.Exec(ctx, q,
		txn.ID, txn.IdempotencyKey, txn.FromAccountID, txn.ToAccountID, txn.Amount, txn.Currency,
		string(txn.Type), string(txn.Status), txn.FailureReason, txn.CreatedAt, txn.CompletedAt, txn.Version,
	)
	if err != nil {
		return classifyTxError(fmt.Errorf("insert transaction: %w", err))
	}
	return nil
}

func (t *tx) InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error {
	const q = `
		INSERT INTO idempotency_records (id, idempotency_key, transaction_id, response, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := t.pgxTx.Exec(ctx, q, rec.ID, rec.IdempotencyKey, rec.TransactionID, rec.Response, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return classifyTxError(fmt.Errorf("insert idempotency record: %w", err))
	}
	return nil
}

func (t *tx) InsertOutboxEvent(ctx context.Context, ev *domain.OutboxEvent) error {
	const q = `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, created_at, retry_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	_, err := t.pgxTx.Exec(ctx, q, ev.ID, ev.EventType, ev.AggregateID, ev.Payload, string(ev.Status), ev.CreatedAt, ev.RetryCount)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
