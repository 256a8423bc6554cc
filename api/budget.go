package api

import (
	"math"
	"strconv"
	"strings"
	"time"

	"financas/database"
	"financas/middleware"
	"financas/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

// BudgetHandler handles monthly category budgets.
type BudgetHandler struct{}

// NewBudgetHandler creates a budget handler.
func NewBudgetHandler() *BudgetHandler {
	return &BudgetHandler{}
}

// UpsertBudgetRequest is the create-or-update payload.
type UpsertBudgetRequest struct {
	Category string  `json:"category" binding:"required,min=2" example:"Alimentação"`
	Limit    float64 `json:"limit" binding:"required,gt=0" example:"1200"`
	Month    int     `json:"month" binding:"required,min=1,max=12" example:"8"`
	Year     int     `json:"year" binding:"required,min=2000,max=3000" example:"2025"`
}

// monthParams reads month/year query params, defaulting to the current month.
func monthParams(c *gin.Context) (int, int) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	if v, err := strconv.Atoi(c.Query("month")); err == nil {
		month = v
	}
	if v, err := strconv.Atoi(c.Query("year")); err == nil {
		year = v
	}
	return month, year
}

// monthWindow returns the inclusive [first day 00:00:00, last day 23:59:59]
// range of a calendar month.
func monthWindow(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// List returns the user's budgets for a month.
// @Summary List budgets
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param month query int false "month 1-12, defaults to current"
// @Param year query int false "year, defaults to current"
// @Success 200 {object} Response{data=[]models.Budget} "budgets"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, year := monthParams(c)

	var budgets []models.Budget
	if err := database.DB.Where("user_id = ? AND month = ? AND year = ?",
		userID, month, year).Find(&budgets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	Success(c, budgets)
}

// Upsert creates a budget or updates the limit of the existing one with the
// same (user, category, month, year) key. Atomicity comes from the store's
// conflict clause on the composite unique index, not app-side locking.
// @Summary Create or update budget
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpsertBudgetRequest true "budget data"
// @Success 200 {object} Response{data=models.Budget} "stored"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) Upsert(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req UpsertBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	budget := models.Budget{
		UserID:      userID,
		Category:    strings.TrimSpace(req.Category),
		LimitAmount: req.Limit,
		Month:       req.Month,
		Year:        req.Year,
	}

	if err := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "category"}, {Name: "month"}, {Name: "year"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"limit_amount", "updated_at"}),
	}).Create(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "saving budget failed"))
		return
	}

	// re-read so an update returns the stored row with its original id
	database.DB.Where("user_id = ? AND category = ? AND month = ? AND year = ?",
		budget.UserID, budget.Category, budget.Month, budget.Year).First(&budget)

	SuccessWithMessage(c, "budget stored", budget)
}

// Delete removes a budget for good, freeing its upsert key for re-creation.
// Ownership mismatch answers 404 like a missing id. Transactions are
// unaffected.
// @Summary Delete budget
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param id path int true "budget id"
// @Success 200 {object} Response "deleted"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var budget models.Budget
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&budget).Error; err != nil {
		NotFound(c, "budget not found")
		return
	}

	if err := database.DB.Delete(&budget).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "delete failed"))
		return
	}

	SuccessWithMessage(c, "deleted", nil)
}

// computeBudgetStatus joins budgets against the month's transactions.
// Only EXPENSE entries count as spent; categories without a budget are not
// reported. The percent denominator is floored at 1 to avoid division by
// zero; alert fires at 80% of the limit.
func computeBudgetStatus(budgets []models.Budget, txs []models.Transaction) []models.BudgetStatus {
	spentByCategory := make(map[string]float64)
	for _, t := range txs {
		if t.Type == models.TypeExpense {
			spentByCategory[t.Category] += t.Amount
		}
	}

	status := make([]models.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		spent := spentByCategory[b.Category]
		status = append(status, models.BudgetStatus{
			ID:        b.ID,
			Category:  b.Category,
			Limit:     b.LimitAmount,
			Spent:     spent,
			Remaining: b.LimitAmount - spent,
			Percent:   int(math.Round(spent / math.Max(1, b.LimitAmount) * 100)),
			Alert:     spent >= b.LimitAmount*0.8,
		})
	}
	return status
}

// Status computes the month's budget status. Derived data, recomputed on
// every call.
// @Summary Budget status
// @Tags budgets
// @Produce json
// @Security BearerAuth
// @Param month query int false "month 1-12, defaults to current"
// @Param year query int false "year, defaults to current"
// @Success 200 {object} Response{data=[]models.BudgetStatus} "status"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/budgets/status [get]
func (h *BudgetHandler) Status(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	month, year := monthParams(c)

	var budgets []models.Budget
	if err := database.DB.Where("user_id = ? AND month = ? AND year = ?",
		userID, month, year).Find(&budgets).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	start, end := monthWindow(month, year)
	var txs []models.Transaction
	if err := database.DB.Where("user_id = ? AND date >= ? AND date <= ?",
		userID, start, end).Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	Success(c, computeBudgetStatus(budgets, txs))
}
