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

type CategoryHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

func NewCategoryHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{orchestrator: orchestrator, logger: logger}
}

type createCategoryRequest struct {
	Name           string `json:"name" binding:"required"`
	ExpectedResult string `json:"expected_result"`
}

func (h *CategoryHandler) Create(c *gin.Context) {
	phaseID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phase id"})
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.orchestrator.CreateCategory(c.Request.Context(), phaseID, service.CreateCategoryInput{
		Name:           req.Name,
		ExpectedResult: req.ExpectedResult,
	}, auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Category created",
		zap.Int("phase_id", phaseID),
		zap.Int("category_id", category.ID),
	)
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (h *CategoryHandler) ChangeStatus(c *gin.Context) {
	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.orchestrator.ChangeCategoryStatus(
		c.Request.Context(), categoryID, model.CategoryStatus(req.Status), auth.MustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

type actualResultRequest struct {
	ActualResult string `json:"actual_result" binding:"required"`
}

func (h *CategoryHandler) SetActualResult(c *gin.Context) {
	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	var req actualResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.SetCategoryActualResult(
		c.Request.Context(), categoryID, req.ActualResult, auth.MustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
