package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collabhub/internal/transition"
)

// statusFor maps refusal kinds onto HTTP status codes.
func statusFor(err error) int {
	switch transition.KindOf(err) {
	case transition.KindNotFound:
		return http.StatusNotFound
	case transition.KindInvalidTransition, transition.KindPreconditionFailed:
		return http.StatusUnprocessableEntity
	case transition.KindForbidden:
		return http.StatusForbidden
	case transition.KindConflict:
		return http.StatusConflict
	case transition.KindSignatureInvalid:
		return http.StatusBadRequest
	case transition.KindExternalFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
