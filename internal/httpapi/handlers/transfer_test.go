package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferengine/internal/apierrors"
	"transferengine/internal/domain"
	"transferengine/internal/httpapi/handlers"
)

type fakeProcessor struct {
	outcome domain.Outcome
	err     error
}

func (p *fakeProcessor) Process(ctx context.Context, req domain.TransferRequest) (domain.Outcome, error) {
	return p.outcome, p.err
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

type fakeDeps struct {
	processor *fakeProcessor
	pinger    *fakePinger
}

func (d *fakeDeps) GetProcessor() handlers.Processor { return d.processor }
func (d *fakeDeps) GetStore() handlers.Pinger        { return d.pinger }

func newRouter(deps *fakeDeps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/transactions", handlers.MakeTransferHandler(deps))
	r.GET("/api/v1/transactions/health", handlers.MakeHealthHandler(deps))
	return r
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"eventId":        "evt-1",
		"transactionId":  "txn-1",
		"fromAccountId":  "acc-a",
		"toAccountId":    "acc-b",
		"amount":         25.5,
		"currency":       "USD",
		"type":           "TRANSFER",
		"timestamp":      time.Now().Format(time.RFC3339),
		"idempotencyKey": "key-1",
	}
}

func doPost(t *testing.T, router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestTransferHandlerReturnsOKForCompletedTransaction(t *testing.T) {
	deps := &fakeDeps{
		processor: &fakeProcessor{outcome: domain.Outcome{
			Kind: domain.OutcomeCommitted,
			Transaction: domain.Transaction{
				ID:        "txn-1",
				Status:    domain.TransactionCompleted,
				Amount:    decimal.RequireFromString("25.5000"),
				CreatedAt: time.Now(),
			},
		}},
	}
	resp := doPost(t, newRouter(deps), validBody())

	require.Equal(t, http.StatusOK, resp.Code)
	var body dtoResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "COMPLETED", body.Status)
}

func TestTransferHandlerReturnsUnprocessableForFailedTransaction(t *testing.T) {
	deps := &fakeDeps{
		processor: &fakeProcessor{outcome: domain.Outcome{
			Kind: domain.OutcomeCommitted,
			Transaction: domain.Transaction{
				ID:            "txn-1",
				Status:        domain.TransactionFailed,
				FailureReason: "insufficient funds",
				CreatedAt:     time.Now(),
			},
		}},
	}
	resp := doPost(t, newRouter(deps), validBody())

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestTransferHandlerReturnsBadRequestForMalformedBody(t *testing.T) {
	deps := &fakeDeps{processor: &fakeProcessor{}}
	body := validBody()
	delete(body, "currency")
	resp := doPost(t, newRouter(deps), body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTransferHandlerReturnsConflictForIdempotencyKeyMismatch(t *testing.T) {
	deps := &fakeDeps{processor: &fakeProcessor{err: apierrors.ErrIdempotencyKeyConflict}}
	resp := doPost(t, newRouter(deps), validBody())

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestTransferHandlerReturnsInternalErrorForUnmappedFailure(t *testing.T) {
	deps := &fakeDeps{processor: &fakeProcessor{err: assertUnmappedErr{}}}
	resp := doPost(t, newRouter(deps), validBody())

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestHealthHandlerReportsStoreStatus(t *testing.T) {
	deps := &fakeDeps{processor: &fakeProcessor{}, pinger: &fakePinger{}}
	router := newRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHealthHandlerReturnsServiceUnavailableWhenStoreUnreachable(t *testing.T) {
	deps := &fakeDeps{processor: &fakeProcessor{}, pinger: &fakePinger{err: apierrors.ErrStoreUnavailable}}
	router := newRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

type dtoResponse struct {
	Status string `json:"status"`
}

type assertUnmappedErr struct{}

func (assertUnmappedErr) Error() string { return "boom" }
