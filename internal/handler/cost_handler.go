package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collabhub/internal/httpserver/auth"
	"collabhub/internal/model"
	"collabhub/internal/service"
)

type CostHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

func NewCostHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *CostHandler {
	return &CostHandler{orchestrator: orchestrator, logger: logger}
}

type createCostRequest struct {
	ExpectedCost int64 `json:"expected_cost" binding:"required"`
}

func (h *CostHandler) Create(c *gin.Context) {
	phaseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}
	categoryID, err := strconv.Atoi(c.Param("categoryID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	var req createCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, err := h.orchestrator.CreateCost(
		c.Request.Context(), phaseID, categoryID, req.ExpectedCost, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Cost created",
		zap.Int("category_id", categoryID),
		zap.Int64("expected_cost", cost.ExpectedCost),
	)
	c.JSON(http.StatusCreated, gin.H{"cost": cost})
}

type actualCostRequest struct {
	ActualCost int64 `json:"actual_cost" binding:"min=0"`
}

func (h *CostHandler) SetActualCost(c *gin.Context) {
	costID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost id"})
		return
	}

	var req actualCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, err := h.orchestrator.UpdateActualCost(
		c.Request.Context(), costID, req.ActualCost, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost})
}

func (h *CostHandler) ChangeStatus(c *gin.Context) {
	costID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, err := h.orchestrator.ChangeCostStatus(
		c.Request.Context(), costID, model.CostState(req.Status), auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost})
}

type createEvidenceRequest struct {
	Description string `json:"description" binding:"required"`
	ImageURL    string `json:"image_url"`
}

func (h *CostHandler) CreateEvidence(c *gin.Context) {
	costID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost id"})
		return
	}

	var req createEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	evidence, err := h.orchestrator.CreateEvidence(
		c.Request.Context(), costID, req.Description, req.ImageURL, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"evidence": evidence})
}

func (h *CostHandler) ListEvidence(c *gin.Context) {
	costID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cost id"})
		return
	}

	evidence, err := h.orchestrator.ListEvidence(c.Request.Context(), costID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"evidence": evidence})
}
