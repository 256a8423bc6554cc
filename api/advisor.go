package api

import (
	"log"
	"math"
	"strings"

	"financas/config"
	"financas/database"
	"financas/middleware"
	"financas/models"
	"financas/service"

	"github.com/gin-gonic/gin"
)

// AdvisorHandler exposes the financial advisory endpoint.
type AdvisorHandler struct {
	advisor *service.AdvisorService
}

// NewAdvisorHandler creates an advisor handler.
func NewAdvisorHandler(cfg *config.Config) *AdvisorHandler {
	return &AdvisorHandler{advisor: service.NewAdvisorService(&cfg.AI)}
}

// AdvisorTransactionInput is one inline transaction for ad-hoc analysis.
type AdvisorTransactionInput struct {
	Description string  `json:"description" example:"Supermercado"`
	Amount      float64 `json:"amount" binding:"required" example:"250.40"`
	Type        string  `json:"type" binding:"required,oneof=INCOME EXPENSE" example:"EXPENSE"`
	Category    string  `json:"category" binding:"required" example:"Alimentação"`
	Date        string  `json:"date" binding:"required" example:"2025-08-01T12:00:00Z"`
}

// AdviseRequest optionally carries an inline transaction set. When absent,
// the user's stored ledger is analyzed.
type AdviseRequest struct {
	Transactions []AdvisorTransactionInput `json:"transactions" binding:"omitempty,dive"`
}

// Advise analyzes the ledger (or an inline set) and returns advice. The
// advisory pipeline never fails outward: storage or enrichment problems
// degrade to a deterministic result over what could be read.
// @Summary Financial advice
// @Description Deterministic metrics, rankings and suggestions, optionally enriched by a generation model.
// @Tags advisor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdviseRequest false "optional inline transactions"
// @Success 200 {object} Response{data=service.Advice} "advice"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/advisor [post]
func (h *AdvisorHandler) Advise(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req AdviseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, SafeErrorMessage(err, "invalid request"))
			return
		}
	}

	var txs []models.Transaction
	if len(req.Transactions) > 0 {
		txs = make([]models.Transaction, 0, len(req.Transactions))
		for _, in := range req.Transactions {
			date, err := parseDate(in.Date)
			if err != nil {
				BadRequest(c, "invalid date, use RFC3339 or 2006-01-02")
				return
			}
			txs = append(txs, models.Transaction{
				UserID:      userID,
				Description: in.Description,
				Amount:      math.Abs(in.Amount),
				Type:        in.Type,
				Category:    strings.TrimSpace(in.Category),
				Date:        date,
			})
		}
	} else {
		if err := database.DB.Where("user_id = ?", userID).Find(&txs).Error; err != nil {
			log.Printf("advisor ledger load failed, analyzing empty set: %v", err)
			txs = nil
		}
	}

	Success(c, h.advisor.Advise(c.Request.Context(), txs))
}
