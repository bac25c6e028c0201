package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabhub/internal/httpserver/auth"
	"collabhub/internal/model"
	"collabhub/internal/service"
)

type PhaseHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

func NewPhaseHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *PhaseHandler {
	return &PhaseHandler{orchestrator: orchestrator, logger: logger}
}

type createPhaseRequest struct {
	StartDate       time.Time `json:"start_date" binding:"required"`
	ExpectedEndDate time.Time `json:"expected_end_date" binding:"required"`
}

func (h *PhaseHandler) CreatePhase(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	var req createPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phase, err := h.orchestrator.CreatePhase(c.Request.Context(), projectID, service.CreatePhaseInput{
		StartDate:       req.StartDate,
		ExpectedEndDate: req.ExpectedEndDate,
	}, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Phase created",
		zap.Int("project_id", projectID),
		zap.Int("phase_id", phase.ID),
		zap.Int("phase_number", phase.PhaseNumber),
	)
	c.JSON(http.StatusCreated, gin.H{"phase": phase})
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *PhaseHandler) ChangeStatus(c *gin.Context) {
	phaseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phase, err := h.orchestrator.ChangePhaseStatus(
		c.Request.Context(), phaseID, model.PhaseStatus(req.Status), auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": phase})
}

func (h *PhaseHandler) Delete(c *gin.Context) {
	phaseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}

	if err := h.orchestrator.DeletePhase(c.Request.Context(), phaseID, auth.MustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Phase deleted", zap.Int("phase_id", phaseID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PhaseHandler) CanFinish(c *gin.Context) {
	phaseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}

	ok, err := h.orchestrator.CheckPhaseCanBeDone(c.Request.Context(), phaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_finish": ok})
}
