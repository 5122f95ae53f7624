package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// User-facing messages. Backend errors never reach clients verbatim.
const (
	MsgMissingCredentials  = "Please enter both username and password."
	MsgStoreUnavailable    = "Unable to reach the database. Check your connection."
	MsgInvalidCredentials  = "Invalid credentials. Please try again."
	MsgPendingVerification = "Your account is pending admin verification."
	MsgDuplicateUsername   = "Username already exists. Please choose another."
	MsgPendingDuplicate    = "A subscription request for this username is already pending."
	MsgTooManyAttempts     = "Too many login attempts. Please try again later."
	MsgInternal            = "Something went wrong. Please try again."
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: ErrPendingDuplicate also matches ErrDuplicateUsername.
var errorMappings = []errorMapping{
	{auth.ErrMissingCredentials, http.StatusBadRequest, "missing_credentials", MsgMissingCredentials},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", MsgInvalidCredentials},
	{auth.ErrPendingVerification, http.StatusForbidden, "pending_verification", MsgPendingVerification},
	{auth.ErrTooManyAttempts, http.StatusTooManyRequests, "rate_limited", MsgTooManyAttempts},
	{auth.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable", MsgStoreUnavailable},
	{accounts.ErrPendingDuplicate, http.StatusConflict, "pending_duplicate", MsgPendingDuplicate},
	{accounts.ErrDuplicateUsername, http.StatusConflict, "duplicate_username", MsgDuplicateUsername},
}

// mapError returns the status code and response body for err.
func mapError(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{Error: m.message, Code: m.code}
		}
	}
	if auth.IsValidationError(err) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "validation"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: MsgInternal}
}

// respondServiceError maps err to a response and logs unexpected failures.
func respondServiceError(c *gin.Context, err error) {
	status, body := mapError(err)
	var lockout *auth.LockoutError
	if errors.As(err, &lockout) {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(lockout.RetryAfter)))
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Err(err).Int("status", status).Msg("request failed")
	}
	c.JSON(status, body)
}

// retryAfterSeconds rounds up so clients never retry before the lockout ends.
func retryAfterSeconds(d time.Duration) int {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}
