// Package storetest provides an in-memory transferengine/internal/store.Store
// for unit tests that exercise the Idempotency Layer and the Transaction
// Processor without a real Postgres instance, the way the teacher's handler
// tests stub HandlerDependencies instead of hitting a database.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"transferengine/internal/domain"
	"transferengine/internal/store"
)

// Fake is a single-goroutine-at-a-time in-memory store.Store. It does not
// model row-level locking or serialization conflicts; tests that need those
// set InjectConflict instead.
type Fake struct {
	mu sync.Mutex

	Accounts      map[string]*domain.Account
	Transactions  map[string]*domain.Transaction
	Idempotency   map[string]*domain.IdempotencyRecord
	Outbox        map[string]*domain.OutboxEvent
	PingErr       error
	InjectConflict error // returned by the next WithTx call, then cleared
}

func NewFake() *Fake {
	return &Fake{
		Accounts:     map[string]*domain.Account{},
		Transactions: map[string]*domain.Transaction{},
		Idempotency:  map[string]*domain.IdempotencyRecord{},
		Outbox:       map[string]*domain.OutboxEvent{},
	}
}

func (f *Fake) PutAccount(acc *domain.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Accounts[acc.ID] = acc
}

func (f *Fake) PeekIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.Idempotency[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *Fake) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	f.mu.Lock()
	if f.InjectConflict != nil {
		err := f.InjectConflict
		f.InjectConflict = nil
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	txn := &fakeTx{f: f}
	return fn(ctx, txn)
}

func (f *Fake) FetchPendingOutbox(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var pending []domain.OutboxEvent
	for _, ev := range f.Outbox {
		if ev.Status == domain.OutboxPending {
			pending = append(pending, *ev)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *Fake) MarkOutboxPublished(ctx context.Context, id string, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.Outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	ev.Status = domain.OutboxPublished
	ev.PublishedAt = &publishedAt
	return nil
}

func (f *Fake) MarkOutboxFailed(ctx context.Context, id string, retryCount int, lastErr string, terminal bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.Outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	ev.RetryCount = retryCount
	ev.LastError = lastErr
	if terminal {
		ev.Status = domain.OutboxFailed
	}
	return nil
}

func (f *Fake) Ping(ctx context.Context) error { return f.PingErr }
func (f *Fake) Close()                         {}

type fakeTx struct {
	f *Fake
}

func (t *fakeTx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	acc, ok := t.f.Accounts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (t *fakeTx) UpdateAccountBalance(ctx context.Context, id string, newBalance decimal.Decimal, expectedVersion int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	acc, ok := t.f.Accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	if acc.Version != expectedVersion {
		return store.ErrVersionConflict
	}
	acc.Balance = newBalance
	acc.Version++
	return nil
}

func (t *fakeTx) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	txn, ok := t.f.Transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (t *fakeTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if _, exists := t.f.Transactions[txn.ID]; exists {
		return store.ErrUniqueViolation
	}
	for _, existing := range t.f.Transactions {
		if existing.IdempotencyKey == txn.IdempotencyKey {
			return store.ErrUniqueViolation
		}
	}
	cp := *txn
	t.f.Transactions[txn.ID] = &cp
	return nil
}

func (t *fakeTx) InsertIdempotencyRecord(ctx context.Context, rec *domain.IdempotencyRecord) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if _, exists := t.f.Idempotency[rec.IdempotencyKey]; exists {
		return store.ErrUniqueViolation
	}
	cp := *rec
	t.f.Idempotency[rec.IdempotencyKey] = &cp
	return nil
}

func (t *fakeTx) InsertOutboxEvent(ctx context.Context, ev *domain.OutboxEvent) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	cp := *ev
	t.f.Outbox[ev.ID] = &cp
	return nil
}

var _ store.Tx = (*fakeTx)(nil)
