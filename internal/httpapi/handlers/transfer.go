package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"transferengine/internal/apierrors"
	"transferengine/internal/domain"
	"transferengine/internal/httpapi/dto"
	"transferengine/internal/pkg/logging"
)

// MakeTransferHandler builds POST /api/v1/transactions (spec ss4.5, ss6):
// binds the request, invokes the Processor, and maps its outcome or error
// onto the status codes the spec enumerates.
func MakeTransferHandler(container HandlerDependencies) gin.HandlerFunc {
	processor := container.GetProcessor()

	return func(c *gin.Context) {
		var req dto.TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := apierrors.NewValidationError("invalid request body: " + err.Error())
			logging.Warn("transfer request failed binding", map[string]interface{}{
				"error": err.Error(),
				"ip":    c.ClientIP(),
			})
			c.JSON(apiErr.Status, apiErr)
			return
		}

		domainReq := domain.TransferRequest{
			EventID:        req.EventID,
			TransactionID:  req.TransactionID,
			FromAccountID:  req.FromAccountID,
			ToAccountID:    req.ToAccountID,
			Amount:         req.Amount,
			Currency:       req.Currency,
			Type:           domain.TransactionType(req.Type),
			Timestamp:      req.Timestamp,
			IdempotencyKey: req.IdempotencyKey,
		}

		outcome, err := processor.Process(c.Request.Context(), domainReq)
		if err != nil {
			writeError(c, err)
			return
		}

		status := http.StatusOK
		if outcome.Transaction.Status == domain.TransactionFailed {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, toResponse(outcome.Transaction))
	}
}

func writeError(c *gin.Context, err error) {
	var apiErr apierrors.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, apiErr)
		return
	}
	if errors.Is(err, apierrors.ErrIdempotencyKeyConflict) {
		conflict := apierrors.NewConflictError(err.Error())
		c.JSON(conflict.Status, conflict)
		return
	}

	logging.Error("transfer request failed", err, map[string]interface{}{"ip": c.ClientIP()})
	internal := apierrors.NewInternalError("transaction could not be processed")
	c.JSON(internal.Status, internal)
}

func toResponse(txn domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		TransactionID:  txn.ID,
		IdempotencyKey: txn.IdempotencyKey,
		FromAccountID:  txn.FromAccountID,
		ToAccountID:    txn.ToAccountID,
		Amount:         txn.Amount,
		Currency:       txn.Currency,
		Type:           string(txn.Type),
		Status:         string(txn.Status),
		CreatedAt:      txn.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	if txn.FailureReason != "" {
		resp.FailureReason = &txn.FailureReason
	}
	if txn.CompletedAt != nil {
		completed := txn.CompletedAt.Format("2006-01-02T15:04:05.999999999Z07:00")
		resp.CompletedAt = &completed
	}
	return resp
}
