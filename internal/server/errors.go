package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	"github.com/smallbiznis/tilegrid/internal/authorization"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
	griddomain "github.com/smallbiznis/tilegrid/internal/grid/domain"
	gridfiledomain "github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	userdomain "github.com/smallbiznis/tilegrid/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds error.type and error.code to the request logger.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if isAuthError(err) {
		code = err.Error()
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	// Token failures share the invalid_ prefix but are not request validation.
	if errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, permissiondomain.ErrUnauthenticated) ||
		isAuthError(err) {
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, permissiondomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, userdomain.ErrAdminBusy):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isGridValidationError(err),
		isTileValidationError(err),
		isChannelValidationError(err),
		isUserValidationError(err),
		isMessageValidationError(err),
		isFileValidationError(err),
		isAuditValidationError(err),
		isAuthorizationValidationError(err):
		return true
	default:
		return false
	}
}

func isGridValidationError(err error) bool {
	return errors.Is(err, griddomain.ErrInvalidName) ||
		errors.Is(err, griddomain.ErrInvalidGrid) ||
		errors.Is(err, griddomain.ErrInvalidEmail) ||
		errors.Is(err, griddomain.ErrInvalidPermission) ||
		errors.Is(err, griddomain.ErrInvalidShareTarget) ||
		errors.Is(err, griddomain.ErrInvalidUser)
}

func isTileValidationError(err error) bool {
	return errors.Is(err, tiledomain.ErrInvalidType) ||
		errors.Is(err, tiledomain.ErrInvalidRect) ||
		errors.Is(err, tiledomain.ErrInvalidUpdate) ||
		errors.Is(err, tiledomain.ErrInvalidBatch) ||
		errors.Is(err, tiledomain.ErrBatchTooLarge) ||
		errors.Is(err, tiledomain.ErrDuplicateTile) ||
		errors.Is(err, tiledomain.ErrInvalidTile) ||
		errors.Is(err, tiledomain.ErrInvalidGrid) ||
		errors.Is(err, tiledomain.ErrInvalidChannel)
}

func isChannelValidationError(err error) bool {
	return errors.Is(err, channeldomain.ErrInvalidName) ||
		errors.Is(err, channeldomain.ErrInvalidEmoji) ||
		errors.Is(err, channeldomain.ErrInvalidEmail) ||
		errors.Is(err, channeldomain.ErrInvalidEmails) ||
		errors.Is(err, channeldomain.ErrInvalidGroup)
}

func isUserValidationError(err error) bool {
	return errors.Is(err, userdomain.ErrInvalidUser) ||
		errors.Is(err, userdomain.ErrInvalidEmail)
}

func isMessageValidationError(err error) bool {
	return errors.Is(err, messagedomain.ErrInvalidCiphertext) ||
		errors.Is(err, messagedomain.ErrInvalidPageToken) ||
		errors.Is(err, messagedomain.ErrInvalidTile)
}

func isFileValidationError(err error) bool {
	return errors.Is(err, gridfiledomain.ErrInvalidName) ||
		errors.Is(err, gridfiledomain.ErrInvalidContentType) ||
		errors.Is(err, gridfiledomain.ErrInvalidSize) ||
		errors.Is(err, gridfiledomain.ErrInvalidGrid) ||
		errors.Is(err, gridfiledomain.ErrInvalidFile)
}

func isAuditValidationError(err error) bool {
	return errors.Is(err, auditdomain.ErrInvalidPageToken) ||
		errors.Is(err, auditdomain.ErrInvalidAction)
}

func isAuthorizationValidationError(err error) bool {
	return errors.Is(err, authorization.ErrInvalidActor) ||
		errors.Is(err, authorization.ErrInvalidChannel) ||
		errors.Is(err, authorization.ErrInvalidObject) ||
		errors.Is(err, authorization.ErrInvalidAction)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, permissiondomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_batch_size":
		return "too many tiles in one request"
	case "invalid_duplicate_tile":
		return "tile listed more than once"
	default:
		return "invalid value"
	}
}
