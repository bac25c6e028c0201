package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"collabhub/internal/httpserver/auth"
	"collabhub/internal/service"
)

type NotificationHandler struct {
	notifier *service.Notifier
}

func NewNotificationHandler(notifier *service.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notifier.MarkRead(c.Request.Context(), id, auth.MustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification read"})
}
