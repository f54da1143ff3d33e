package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest       ErrorCode = "bad_request"
	errCodeNotFound         ErrorCode = "not_found"
	errCodeValidationFailed ErrorCode = "validation_failed"
	errCodeUnauthorized     ErrorCode = "unauthorized"

	// Domain rejections
	errCodeInvalidGauge          ErrorCode = "invalid_gauge"
	errCodeExceedMaxGauges       ErrorCode = "exceed_max_gauges"
	errCodeOverweight            ErrorCode = "overweight"
	errCodeFreezePeriod          ErrorCode = "freeze_period"
	errCodeSizeMismatch          ErrorCode = "size_mismatch"
	errCodePendingLoss           ErrorCode = "pending_loss"
	errCodeNoLossToApply         ErrorCode = "no_loss_to_apply"
	errCodeDebtCeilingUsed       ErrorCode = "debt_ceiling_used"
	errCodeNotExemptTarget       ErrorCode = "not_exempt_target"
	errCodeArithmeticFault       ErrorCode = "arithmetic_fault"
	errCodeInsufficientBalance   ErrorCode = "insufficient_balance"
	errCodeInsufficientAllowance ErrorCode = "insufficient_allowance"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...string) {
	response := errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	}

	if len(details) > 0 {
		response.Error.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// respondBadRequest sends a 400 Bad Request response
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, errCodeBadRequest, message, details...)
}

// respondNotFound sends a 404 Not Found response
func respondNotFound(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusNotFound, errCodeNotFound, message, details...)
}

// respondValidationError sends a 400 Bad Request with validation error
func respondValidationError(c *gin.Context, details string) {
	respondWithError(c, http.StatusBadRequest, errCodeValidationFailed, "Validation failed", details)
}

// respondInternalError sends a 500 Internal Server Error response and logs the error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.Error(err, fields...)
	respondWithError(c, http.StatusInternalServerError, errCodeInternalError, message)
}

// domainErrorCodes maps ledger rejections to error codes and HTTP statuses
var domainErrorCodes = []struct {
	sentinel error
	status   int
	code     ErrorCode
}{
	{domain.ErrInvalidGauge, http.StatusConflict, errCodeInvalidGauge},
	{domain.ErrExceedMaxGauges, http.StatusConflict, errCodeExceedMaxGauges},
	{domain.ErrOverweight, http.StatusConflict, errCodeOverweight},
	{domain.ErrFreezePeriod, http.StatusConflict, errCodeFreezePeriod},
	{domain.ErrSizeMismatch, http.StatusBadRequest, errCodeSizeMismatch},
	{domain.ErrPendingLoss, http.StatusConflict, errCodePendingLoss},
	{domain.ErrNoLossToApply, http.StatusConflict, errCodeNoLossToApply},
	{domain.ErrDebtCeilingUsed, http.StatusConflict, errCodeDebtCeilingUsed},
	{domain.ErrNotExemptTarget, http.StatusBadRequest, errCodeNotExemptTarget},
	{domain.ErrUnauthorized, http.StatusUnauthorized, errCodeUnauthorized},
	{domain.ErrArithmeticFault, http.StatusBadRequest, errCodeArithmeticFault},
	{domain.ErrInsufficientBalance, http.StatusConflict, errCodeInsufficientBalance},
	{domain.ErrInsufficientAllowance, http.StatusConflict, errCodeInsufficientAllowance},
}

// respondDomainError maps a ledger rejection to its error code. Unknown
// errors fall through to a logged 500.
func respondDomainError(c *gin.Context, err error, message string) {
	for _, m := range domainErrorCodes {
		if errors.Is(err, m.sentinel) {
			respondWithError(c, m.status, m.code, message, err.Error())
			return
		}
	}
	respondInternalError(c, err, message)
}
