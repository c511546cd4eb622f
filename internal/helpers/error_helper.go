package helpers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/apperrors"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

var appErrorStatus = []struct {
	kind   error
	status int
}{
	{apperrors.ErrAuthentication, http.StatusUnauthorized},
	{apperrors.ErrAuthorization, http.StatusForbidden},
	{apperrors.ErrNotFound, http.StatusNotFound},
	{apperrors.ErrValidation, http.StatusBadRequest},
	{apperrors.ErrEntitlementExceeded, http.StatusPaymentRequired},
	{apperrors.ErrPaymentConfiguration, http.StatusServiceUnavailable},
	{apperrors.ErrGatewayUnavailable, http.StatusServiceUnavailable},
	{apperrors.ErrPaymentVerification, http.StatusBadRequest},
	{apperrors.ErrAlreadyPaid, http.StatusConflict},
	{apperrors.ErrConflict, http.StatusConflict},
}

// StatusForError maps an apperrors kind to its HTTP status; anything else is a 500.
func StatusForError(err error) int {
	for _, m := range appErrorStatus {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes the error envelope for a service error. Internal
// errors are logged and never echoed to the client.
func RespondWithAppError(c *gin.Context, err error) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		RespondWithError(c, status, "Something went wrong. Please try again later.")
		return
	}
	RespondWithError(c, status, apperrors.Message(err, HTTPStatusText(status)))
}
