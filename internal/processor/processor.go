// Package processor implements the Transaction Processor (spec ss4.1): the
// atomic critical section that validates, locks, debits, credits, records,
// and enqueues the downstream outbox event in a single store transaction.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"transferengine/internal/apierrors"
	"transferengine/internal/config"
	"transferengine/internal/domain"
	"transferengine/internal/idempotency"
	"transferengine/internal/pkg/logging"
	"transferengine/internal/pkg/telemetry"
	"transferengine/internal/store"
)

// Processor is the ss4.1 critical section, built on top of a store.Store and
// an idempotency.Layer.
type Processor struct {
	store      store.Store
	idem       *idempotency.Layer
	cfg        config.ProcessorConfig
	idemWindow time.Duration
	now        func() time.Time
}

func New(s store.Store, idem *idempotency.Layer, cfg config.ProcessorConfig, idemWindow time.Duration) *Processor {
	return &Processor{store: s, idem: idem, cfg: cfg, idemWindow: idemWindow, now: time.Now}
}

// Process is the single public operation of spec ss4.1: effectively
// idempotent on req.IdempotencyKey, retried internally on serialization/
// deadlock aborts, optimistic version conflicts, and unique-key collisions
// (a concurrent admission of the same key, which the retry then finds via
// Peek), and permanent-error on everything else.
func (p *Processor) Process(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error) {
	if err := validateShape(req); err != nil {
		return domain.Outcome{}, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.BackoffInitial()
	policy.Multiplier = 5
	policy.MaxInterval = p.cfg.BackoffMax()
	policy.RandomizationFactor = 0.5 // jitter
	policy.MaxElapsedTime = 0        // bounded by attempt count below, not wall clock

	attempts := p.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryPolicy := backoff.WithMaxRetries(policy, uint64(attempts-1))
	retryPolicy.Reset()

	var outcome domain.Outcome
	var permanent error
	err := backoff.Retry(func() error {
		out, txErr := p.runOnce(ctx, req)
		if txErr == nil {
			outcome = out
			return nil
		}
		if isRetryable(txErr) {
			logging.Warn("processor: retrying after transient conflict", map[string]interface{}{
				"idempotency_key": req.IdempotencyKey,
				"error":           txErr.Error(),
			})
			telemetry.ProcessorRetries.WithLabelValues(retryReason(txErr)).Inc()
			return txErr
		}
		permanent = txErr
		return backoff.Permanent(txErr)
	}, retryPolicy)

	if err == nil {
		return outcome, nil
	}

	if permanent != nil {
		return domain.Outcome{}, permanent
	}
	return domain.Outcome{}, fmt.Errorf("processor: exhausted %d attempts: %w", attempts, err)
}

// runOnce executes spec ss4.1 steps 1-5 exactly once. The returned error, if
// any, is classified by isRetryable to decide whether Process should retry.
func (p *Processor) runOnce(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error) {
	now := p.now()

	cached, err := p.idem.Peek(ctx, req.IdempotencyKey, now)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %v", apierrors.ErrStoreUnavailable, err)
	}
	if cached != nil {
		telemetry.ProcessorOutcomes.WithLabelValues("replayed").Inc()
		return domain.Outcome{Kind: domain.OutcomeReplayed, Transaction: *cached}, nil
	}

	var outcome domain.Outcome
	txErr := p.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return p.runInTx(ctx, tx, req, now, &outcome)
	})
	if txErr != nil {
		return domain.Outcome{}, txErr
	}
	return outcome, nil
}

func (p *Processor) runInTx(ctx context.Context, tx store.Tx, req domain.TransferRequest, now time.Time, outcome *domain.Outcome) error {
	existing, err := tx.FindTransactionByID(ctx, req.TransactionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil {
		if existing.IdempotencyKey != req.IdempotencyKey {
			return apierrors.ErrIdempotencyKeyConflict
		}
		telemetry.ProcessorOutcomes.WithLabelValues("replayed").Inc()
		*outcome = domain.Outcome{Kind: domain.OutcomeReplayed, Transaction: *existing}
		return nil
	}

	if req.FromAccountID == req.ToAccountID {
		return p.commitFailed(ctx, tx, req, now, outcome, apierrors.ErrSelfTransfer)
	}

	firstID, secondID := req.FromAccountID, req.ToAccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	firstAcc, err := tx.LockAccount(ctx, firstID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return p.commitFailed(ctx, tx, req, now, outcome, apierrors.ErrAccountNotFound)
		}
		return err
	}
	secondAcc, err := tx.LockAccount(ctx, secondID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return p.commitFailed(ctx, tx, req, now, outcome, apierrors.ErrAccountNotFound)
		}
		return err
	}

	var fromAcc, toAcc *domain.Account
	if firstAcc.ID == req.FromAccountID {
		fromAcc, toAcc = firstAcc, secondAcc
	} else {
		fromAcc, toAcc = secondAcc, firstAcc
	}

	if vErr := validateBusiness(fromAcc, toAcc, req); vErr != nil {
		return p.commitFailed(ctx, tx, req, now, outcome, vErr)
	}

	newFromBalance := domain.NormalizeAmount(fromAcc.Balance.Sub(req.Amount))
	newToBalance := domain.NormalizeAmount(toAcc.Balance.Add(req.Amount))

	if err := tx.UpdateAccountBalance(ctx, fromAcc.ID, newFromBalance, fromAcc.Version); err != nil {
		return err
	}
	if err := tx.UpdateAccountBalance(ctx, toAcc.ID, newToBalance, toAcc.Version); err != nil {
		return err
	}

	completedAt := now
	txn := domain.Transaction{
		ID:             req.TransactionID,
		IdempotencyKey: req.IdempotencyKey,
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         domain.NormalizeAmount(req.Amount),
		Currency:       req.Currency,
		Type:           req.Type,
		Status:         domain.TransactionCompleted,
		CreatedAt:      now,
		CompletedAt:    &completedAt,
	}
	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return err
	}

	payload, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	event := domain.OutboxEvent{
		ID:          uuid.NewString(),
		EventType:   domain.EventTypeTransactionCompleted,
		AggregateID: txn.ID,
		Payload:     payload,
		Status:      domain.OutboxPending,
		CreatedAt:   now,
	}
	if err := tx.InsertOutboxEvent(ctx, &event); err != nil {
		return err
	}

	rec, err := idempotency.NewRecord(req.IdempotencyKey, &txn, now, p.idemWindow)
	if err != nil {
		return err
	}
	if err := tx.InsertIdempotencyRecord(ctx, rec); err != nil {
		return err
	}

	telemetry.ProcessorOutcomes.WithLabelValues("committed_completed").Inc()
	*outcome = domain.Outcome{Kind: domain.OutcomeCommitted, Transaction: txn}
	return nil
}

// commitFailed persists a FAILED Transaction with no IdempotencyRecord and no
// OutboxEvent (spec ss4.1 step 4): business rejections are audited but never
// retried and never cached for idempotency, so a corrected retry can pass.
func (p *Processor) commitFailed(ctx context.Context, tx store.Tx, req domain.TransferRequest, now time.Time, outcome *domain.Outcome, reason error) error {
	completedAt := now
	txn := domain.Transaction{
		ID:             req.TransactionID,
		IdempotencyKey: req.IdempotencyKey,
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         domain.NormalizeAmount(req.Amount),
		Currency:       req.Currency,
		Type:           req.Type,
		Status:         domain.TransactionFailed,
		FailureReason:  reason.Error(),
		CreatedAt:      now,
		CompletedAt:    &completedAt,
	}
	if err := tx.InsertTransaction(ctx, &txn); err != nil {
		return err
	}
	telemetry.ProcessorOutcomes.WithLabelValues("committed_failed").Inc()
	*outcome = domain.Outcome{Kind: domain.OutcomeCommitted, Transaction: txn}
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, store.ErrSerializationFailure) ||
		errors.Is(err, store.ErrVersionConflict) ||
		errors.Is(err, store.ErrUniqueViolation)
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, store.ErrUniqueViolation):
		return "idempotency_race"
	default:
		return "serialization_conflict"
	}
}
