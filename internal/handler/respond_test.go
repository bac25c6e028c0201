package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"collabhub/internal/transition"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{transition.NotFound("phase", "missing"), http.StatusNotFound},
		{transition.Invalid("phase", "done is terminal"), http.StatusUnprocessableEntity},
		{transition.Precondition("phase", "previous phase is not done"), http.StatusUnprocessableEntity},
		{transition.Forbidden("cost", "not the leader"), http.StatusForbidden},
		{transition.Conflict("payment", "already processed"), http.StatusConflict},
		{transition.BadSignature("payment", "mismatch"), http.StatusBadRequest},
		{transition.External("payment", "gateway failure"), http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
