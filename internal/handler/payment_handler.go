package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabhub/internal/service"
)

type PaymentHandler struct {
	adapter *service.PaymentAdapter
	logger  *zap.Logger
}

func NewPaymentHandler(adapter *service.PaymentAdapter, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{adapter: adapter, logger: logger}
}

// Callback receives gateway redirects. Gateways send parameters either in
// the query string or as a form body, so both are merged into one map.
func (h *PaymentHandler) Callback(c *gin.Context) {
	gateway := c.Param("gateway")

	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	if err := c.Request.ParseForm(); err == nil {
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}

	phase, err := h.adapter.HandleCallback(c.Request.Context(), gateway, params)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Payment callback processed",
		zap.String("gateway", gateway),
		zap.Int("phase_id", phase.ID),
	)
	c.JSON(http.StatusOK, gin.H{"phase": phase})
}
