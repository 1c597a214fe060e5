package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the unified API response format.
type Response struct {
	Code    int          `json:"code"`
	Kind    string       `json:"kind,omitempty"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Data    interface{}  `json:"data,omitempty"`
}

// FieldError points a validation failure at a specific input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Machine-readable error kinds. Only KindTransient is safe to retry;
// every other kind is deterministic for the same input.
const (
	KindValidation         = "validation_failed"
	KindNotFound           = "not_found"
	KindPermissionDenied   = "permission_denied"
	KindDuplicateName      = "duplicate_name"
	KindDuplicateIdentity  = "duplicate_identity"
	KindConflict           = "conflict"
	KindInvalidCredentials = "invalid_credentials"
	KindExpiredCredential  = "expired_credential"
	KindTransient          = "transient"
)

// AppError is a structured application error carrying an HTTP status
// analogue and a machine-readable kind.
type AppError struct {
	HTTPStatus int
	Kind       string
	Message    string
	Details    []FieldError
}

func (e *AppError) Error() string {
	return e.Message
}

// Retryable reports whether the failure class may succeed on retry
// without changing the input.
func (e *AppError) Retryable() bool {
	return e.Kind == KindTransient
}

// WithField attaches a field-level detail and returns the error.
func (e *AppError) WithField(field, msg string) *AppError {
	e.Details = append(e.Details, FieldError{Field: field, Message: msg})
	return e
}

// Error constructors, one per kind.

func NewValidation(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindValidation, Message: msg}
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Kind: KindNotFound, Message: msg}
}

func NewPermissionDenied(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusForbidden, Kind: KindPermissionDenied, Message: msg}
}

func NewDuplicateName(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindDuplicateName, Message: msg}
}

func NewDuplicateIdentity(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindDuplicateIdentity, Message: msg}
}

func NewConflict(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindConflict, Message: msg}
}

func NewInvalidCredentials(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindInvalidCredentials, Message: msg}
}

func NewExpiredCredential(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindExpiredCredential, Message: msg}
}

func NewTransient(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusServiceUnavailable, Kind: KindTransient, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

// Error sends an error response. An *AppError keeps its status, kind and
// field details; anything else is masked as a transient server failure so
// storage internals never leak to the client.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, Response{
			Code:    appErr.HTTPStatus,
			Kind:    appErr.Kind,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{
		Code:    500,
		Kind:    KindTransient,
		Message: "internal error",
	})
}

// BadRequest sends a 400 validation failure with a plain message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: 400, Kind: KindValidation, Message: msg})
}

// Unauthorized sends a 401 with the invalid-credentials kind.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Kind: KindInvalidCredentials, Message: msg})
}

// Forbidden sends a 403 permission denial.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{Code: 403, Kind: KindPermissionDenied, Message: msg})
}

// NotFound sends a 404.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{Code: 404, Kind: KindNotFound, Message: msg})
}

// ServerError sends a 500.
func ServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 500, Kind: KindTransient, Message: msg})
}
