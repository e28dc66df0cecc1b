package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wageattest/attestation-engine/internal/errs"
)

// SuccessResponse is the uniform success envelope.
type SuccessResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// RespondOK writes a 200 success envelope.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data, RequestID: GetRequestID(c)})
}

// RespondCreated writes a 201 success envelope.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data, RequestID: GetRequestID(c)})
}

// RespondNoContent writes a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondError maps err to the appropriate HTTP status and writes a uniform
// error envelope. Unrecognized errors are reported as a 500 without leaking
// internal detail.
func RespondError(c *gin.Context, err error) {
	ae, ok := errs.AsAppError(err)
	if !ok {
		ae = errs.Internal("unexpected error", err)
	}
	c.Error(err)
	c.JSON(ae.HTTPStatus, ErrorResponse{
		Success:   false,
		Code:      ae.Code,
		Message:   ae.Message,
		Details:   ae.Details,
		RequestID: GetRequestID(c),
	})
}
