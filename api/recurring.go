package api

import (
	"strconv"
	"strings"
	"time"

	"financas/database"
	"financas/middleware"
	"financas/models"

	"github.com/gin-gonic/gin"
)

// RecurringHandler handles recurring transaction templates and the
// cash-flow forecast.
type RecurringHandler struct{}

// NewRecurringHandler creates a recurring handler.
func NewRecurringHandler() *RecurringHandler {
	return &RecurringHandler{}
}

// CreateRecurringRequest is the creation payload.
type CreateRecurringRequest struct {
	Description string  `json:"description" binding:"required,min=2" example:"Aluguel"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"1800"`
	Type        string  `json:"type" binding:"required,oneof=INCOME EXPENSE" example:"EXPENSE"`
	Category    string  `json:"category" binding:"required,min=2" example:"Moradia"`
	Cadence     string  `json:"cadence" binding:"required,oneof=MONTHLY WEEKLY YEARLY" example:"MONTHLY"`
	NextDate    string  `json:"next_date" binding:"required" example:"2025-09-05T00:00:00Z"`
	Active      *bool   `json:"active"`
}

// UpdateRecurringRequest is a sparse patch; nil fields keep stored values.
type UpdateRecurringRequest struct {
	Description *string  `json:"description" binding:"omitempty,min=2"`
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0"`
	Type        *string  `json:"type" binding:"omitempty,oneof=INCOME EXPENSE"`
	Category    *string  `json:"category" binding:"omitempty,min=2"`
	Cadence     *string  `json:"cadence" binding:"omitempty,oneof=MONTHLY WEEKLY YEARLY"`
	NextDate    *string  `json:"next_date"`
	Active      *bool    `json:"active"`
}

// List returns the user's recurring templates, newest first.
// @Summary List recurring transactions
// @Tags recurrings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.RecurringTransaction} "templates"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/recurrings [get]
func (h *RecurringHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var list []models.RecurringTransaction
	if err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	Success(c, list)
}

// Create stores a recurring template. Realized transactions are never
// auto-inserted from it.
// @Summary Create recurring transaction
// @Tags recurrings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRecurringRequest true "template data"
// @Success 200 {object} Response{data=models.RecurringTransaction} "created"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/recurrings [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	nextDate, err := parseDate(req.NextDate)
	if err != nil {
		BadRequest(c, "invalid next_date, use RFC3339 or 2006-01-02")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rec := models.RecurringTransaction{
		UserID:      userID,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Cadence:     req.Cadence,
		NextDate:    nextDate,
		Active:      active,
	}

	if err := database.DB.Create(&rec).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "creating recurring failed"))
		return
	}

	SuccessWithMessage(c, "created", rec)
}

// Update applies a sparse patch to a recurring template.
// @Summary Update recurring transaction
// @Tags recurrings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "recurring id"
// @Param request body UpdateRecurringRequest true "fields to change"
// @Success 200 {object} Response{data=models.RecurringTransaction} "updated"
// @Failure 400 {object} Response "validation error"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/recurrings/{id} [put]
func (h *RecurringHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var rec models.RecurringTransaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&rec).Error; err != nil {
		NotFound(c, "recurring not found")
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	updates := make(map[string]interface{})
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Cadence != nil {
		updates["cadence"] = *req.Cadence
	}
	if req.NextDate != nil {
		nextDate, err := parseDate(*req.NextDate)
		if err != nil {
			BadRequest(c, "invalid next_date, use RFC3339 or 2006-01-02")
			return
		}
		updates["next_date"] = nextDate
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&rec).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "update failed"))
			return
		}
	}

	database.DB.First(&rec, rec.ID)
	SuccessWithMessage(c, "updated", rec)
}

// Delete removes a recurring template.
// @Summary Delete recurring transaction
// @Tags recurrings
// @Produce json
// @Security BearerAuth
// @Param id path int true "recurring id"
// @Success 200 {object} Response "deleted"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/recurrings/{id} [delete]
func (h *RecurringHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var rec models.RecurringTransaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&rec).Error; err != nil {
		NotFound(c, "recurring not found")
		return
	}

	if err := database.DB.Delete(&rec).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "delete failed"))
		return
	}

	SuccessWithMessage(c, "deleted", nil)
}

// buildForecast projects recurring entries over the given consecutive
// months starting at now's month. MONTHLY contributes every month, WEEKLY
// contributes amount*4 every month (flat approximation), YEARLY contributes
// only in months matching next_date's month number, whatever the year.
// Unknown cadences contribute nothing. One entry per month, even when zero.
func buildForecast(recs []models.RecurringTransaction, now time.Time, months int) []models.ForecastEntry {
	forecast := make([]models.ForecastEntry, 0, months)
	for i := 0; i < months; i++ {
		d := time.Date(now.Year(), now.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		entry := models.ForecastEntry{
			Month: int(d.Month()),
			Year:  d.Year(),
		}
		for _, r := range recs {
			var amount float64
			switch r.Cadence {
			case models.CadenceMonthly:
				amount = r.Amount
			case models.CadenceWeekly:
				amount = r.Amount * 4
			case models.CadenceYearly:
				if int(r.NextDate.Month()) == entry.Month {
					amount = r.Amount
				}
			}
			if amount == 0 {
				continue
			}
			switch r.Type {
			case models.TypeIncome:
				entry.Income += amount
			case models.TypeExpense:
				entry.Expense += amount
			}
		}
		forecast = append(forecast, entry)
	}
	return forecast
}

// Forecast projects active recurring entries over the next months.
// @Summary Cash-flow forecast
// @Tags recurrings
// @Produce json
// @Security BearerAuth
// @Param months query int false "months to project, 1-12" default(3)
// @Success 200 {object} Response{data=[]models.ForecastEntry} "forecast"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/recurrings/forecast [get]
func (h *RecurringHandler) Forecast(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	months := 3
	if v, err := strconv.Atoi(c.Query("months")); err == nil {
		months = v
	}
	if months < 1 {
		months = 1
	}
	if months > 12 {
		months = 12
	}

	var recs []models.RecurringTransaction
	if err := database.DB.Where("user_id = ? AND active = ?", userID, true).
		Find(&recs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	Success(c, buildForecast(recs, time.Now(), months))
}
