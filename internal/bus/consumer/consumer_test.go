package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferengine/internal/apierrors"
	"transferengine/internal/domain"
)

type fakeProcessor struct {
	outcome domain.Outcome
	err     error
}

func (p *fakeProcessor) Process(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error) {
	return p.outcome, p.err
}

type fakeDLQ struct {
	mu       sync.Mutex
	messages []string
}

func (d *fakeDLQ) Publish(ctx context.Context, topic, key string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, key)
	return nil
}

func (d *fakeDLQ) Close() error { return nil }

func newHandler(processor Processor, dlq *fakeDLQ) *groupHandler {
	return &groupHandler{consumer: &Consumer{
		processor: processor,
		dlq:       dlq,
		topic:     "transfers.requests",
		dlqTopic:  "transfers.dlq",
	}}
}

func validMessage(t *testing.T) *sarama.ConsumerMessage {
	t.Helper()
	req := domain.TransferRequest{TransactionID: "txn-1", IdempotencyKey: "key-1"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Key: []byte("txn-1"), Value: raw}
}

func TestHandleRoutesUnparseablePayloadToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{}, dlq)

	h.handle(context.Background(), &sarama.ConsumerMessage{Key: []byte("bad"), Value: []byte("not json")})

	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "bad", dlq.messages[0])
}

func TestHandleLeavesSuccessUnrouted(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{outcome: domain.Outcome{Kind: domain.OutcomeCommitted}}, dlq)

	h.handle(context.Background(), validMessage(t))

	assert.Empty(t, dlq.messages)
}

func TestHandleRoutesValidationErrorToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{err: apierrors.NewValidationError("missing field")}, dlq)

	h.handle(context.Background(), validMessage(t))

	require.Len(t, dlq.messages, 1)
}

func TestHandleRoutesIdempotencyKeyConflictToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{err: apierrors.ErrIdempotencyKeyConflict}, dlq)

	h.handle(context.Background(), validMessage(t))

	require.Len(t, dlq.messages, 1)
}

func TestHandleLeavesTransientErrorUnrouted(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{err: errors.Join(apierrors.ErrTransientConflict, errors.New("serialization failure"))}, dlq)

	ok := h.handle(context.Background(), validMessage(t))

	assert.Empty(t, dlq.messages)
	assert.False(t, ok, "transient failures must not be reported as durable")
}

func TestIsTerminalClassifiesErrors(t *testing.T) {
	assert.True(t, isTerminal(apierrors.NewValidationError("bad")))
	assert.True(t, isTerminal(apierrors.ErrIdempotencyKeyConflict))
	assert.False(t, isTerminal(apierrors.ErrTransientConflict))
	assert.False(t, isTerminal(apierrors.NewBusinessRejectedError("insufficient funds")))
}

// fakeSession is a minimal sarama.ConsumerGroupSession double that only
// records MarkMessage calls - everything ConsumeClaim's offset-ack
// contract (spec ss4.5) can be asserted against.
type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "fake-member" }
func (s *fakeSession) GenerationID() int32         { return 1 }
func (s *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) Commit()                                                                {}
func (s *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) markedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marked)
}

// fakeClaim is a minimal sarama.ConsumerGroupClaim double that replays a
// fixed batch of messages and then blocks, as a real claim's channel does
// once drained, until the test cancels the session context.
type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func newFakeClaim(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeClaim{messages: ch}
}

func (c *fakeClaim) Topic() string              { return "transfers.requests" }
func (c *fakeClaim) Partition() int32           { return 0 }
func (c *fakeClaim) InitialOffset() int64       { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestConsumeClaimSkipsMarkOnTransientError(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{err: errors.Join(apierrors.ErrTransientConflict, errors.New("serialization failure"))}, dlq)

	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := newFakeClaim(validMessage(t))

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()

	require.Eventually(t, func() bool { return len(claim.messages) == 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 0, session.markedCount(), "offset must not be marked on a transient failure")
}

func TestConsumeClaimMarksOnDurableOutcome(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{outcome: domain.Outcome{Kind: domain.OutcomeCommitted}}, dlq)

	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := newFakeClaim(validMessage(t))

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()

	require.Eventually(t, func() bool { return session.markedCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConsumeClaimMarksOnDLQRoutedOutcome(t *testing.T) {
	dlq := &fakeDLQ{}
	h := newHandler(&fakeProcessor{err: apierrors.ErrIdempotencyKeyConflict}, dlq)

	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := newFakeClaim(validMessage(t))

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(session, claim) }()

	require.Eventually(t, func() bool { return session.markedCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Len(t, dlq.messages, 1)
}
