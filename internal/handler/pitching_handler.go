package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabhub/internal/httpserver/auth"
	"collabhub/internal/service"
)

type PitchingHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

func NewPitchingHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *PitchingHandler {
	return &PitchingHandler{orchestrator: orchestrator, logger: logger}
}

func (h *PitchingHandler) Register(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	pitching, err := h.orchestrator.RegisterPitching(c.Request.Context(), projectID, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Pitching registered",
		zap.Int("project_id", projectID),
		zap.Int("pitching_id", pitching.ID),
	)
	c.JSON(http.StatusCreated, gin.H{"pitching": pitching})
}

func (h *PitchingHandler) Select(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}
	pitchingID, err := strconv.Atoi(c.Param("pid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pitching id"})
		return
	}

	if err := h.orchestrator.SelectPitching(c.Request.Context(), projectID, pitchingID, auth.MustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Pitching selected",
		zap.Int("project_id", projectID),
		zap.Int("pitching_id", pitchingID),
	)
	c.JSON(http.StatusOK, gin.H{"message": "pitching selected"})
}
