package api

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"financas/database"
	"financas/middleware"
	"financas/models"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles the user's ledger.
type TransactionHandler struct{}

// NewTransactionHandler creates a transaction handler.
func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{}
}

// CreateTransactionRequest is the creation payload.
type CreateTransactionRequest struct {
	Description string  `json:"description" binding:"required" example:"Supermercado"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"250.40"`
	Type        string  `json:"type" binding:"required,oneof=INCOME EXPENSE" example:"EXPENSE"`
	Category    string  `json:"category" binding:"required" example:"Alimentação"`
	Date        string  `json:"date" binding:"required" example:"2025-08-01T12:00:00Z"`
}

// UpdateTransactionRequest is a sparse patch; nil fields keep the stored
// value. The merge is read-then-write without a transaction, so concurrent
// updates to the same row are last-write-wins.
type UpdateTransactionRequest struct {
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0"`
	Type        *string  `json:"type" binding:"omitempty,oneof=INCOME EXPENSE"`
	Category    *string  `json:"category"`
	Date        *string  `json:"date"`
}

// parseDate accepts RFC3339 or a bare date.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t.UTC(), err
}

// Create records a new transaction.
// @Summary Create transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTransactionRequest true "transaction data"
// @Success 200 {object} Response{data=models.Transaction} "created"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, SafeErrorMessage(err, "invalid request"))
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		BadRequest(c, "invalid date, use RFC3339 or 2006-01-02")
		return
	}

	tx := models.Transaction{
		UserID:      userID,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    strings.TrimSpace(req.Category),
		Date:        date,
	}

	if err := database.DB.Create(&tx).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "creating transaction failed"))
		return
	}

	SuccessWithMessage(c, "created", tx)
}

// List returns the user's transactions, date descending. Without paging
// params the full list is returned; with page/limit a paginated envelope.
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param page query int false "page number"
// @Param limit query int false "page size"
// @Success 200 {object} Response "list or page"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	pageStr := c.Query("page")
	limitStr := c.Query("limit")

	query := database.DB.Model(&models.Transaction{}).Where("user_id = ?", userID)

	if pageStr == "" && limitStr == "" {
		var list []models.Transaction
		if err := query.Order("date DESC").Find(&list).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "query failed"))
			return
		}
		Success(c, list)
		return
	}

	page := 1
	limit := 20
	if v, err := strconv.Atoi(pageStr); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	var list []models.Transaction
	offset := (page - 1) * limit
	if err := query.Order("date DESC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	Success(c, PageResponse{
		Total: total,
		Page:  page,
		Limit: limit,
		Items: list,
	})
}

// Get returns a single transaction by id.
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Success 200 {object} Response{data=models.Transaction} "found"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "transaction not found")
		return
	}

	Success(c, tx)
}

// Update applies a sparse patch to a transaction.
// @Summary Update transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Param request body UpdateTransactionRequest true "fields to change"
// @Success 200 {object} Response{data=models.Transaction} "updated"
// @Failure 400 {object} Response "validation error"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "transaction not found")
		return
	}

	var req UpdateTransactionRequest
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
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			BadRequest(c, "category must not be empty")
			return
		}
		updates["category"] = category
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			BadRequest(c, "invalid date, use RFC3339 or 2006-01-02")
			return
		}
		updates["date"] = date
	}

	if len(updates) > 0 {
		if err := database.DB.Model(&tx).Updates(updates).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "update failed"))
			return
		}
	}

	database.DB.First(&tx, tx.ID)
	SuccessWithMessage(c, "updated", tx)
}

// Delete removes a transaction.
// @Summary Delete transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "transaction id"
// @Success 200 {object} Response "deleted"
// @Failure 404 {object} Response "not found"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid id")
		return
	}

	var tx models.Transaction
	if err := database.DB.Where("id = ? AND user_id = ?", id, userID).First(&tx).Error; err != nil {
		NotFound(c, "transaction not found")
		return
	}

	if err := database.DB.Delete(&tx).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "delete failed"))
		return
	}

	SuccessWithMessage(c, "deleted", nil)
}

// Reset wipes the calling user's entire ledger.
// @Summary Delete all transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "ledger cleared"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/transactions [delete]
func (h *TransactionHandler) Reset(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	if err := database.DB.Where("user_id = ?", userID).
		Delete(&models.Transaction{}).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "delete failed"))
		return
	}

	SuccessWithMessage(c, "ledger cleared", nil)
}

// CategoryTotal is one category's aggregated amount.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// summarize aggregates a transaction set into totals and ranked categories.
func summarize(txs []models.Transaction) (income, expense float64, top []CategoryTotal) {
	byCategory := make(map[string]float64)
	for _, t := range txs {
		switch t.Type {
		case models.TypeIncome:
			income += t.Amount
		case models.TypeExpense:
			expense += t.Amount
		}
		byCategory[t.Category] += t.Amount
	}

	top = make([]CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		top = append(top, CategoryTotal{Category: category, Total: total})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Total > top[j].Total })
	if len(top) > 5 {
		top = top[:5]
	}
	return income, expense, top
}

// Summary returns income/expense/balance and the top-5 categories over the
// full ledger.
// @Summary Ledger summary
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "summary"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var txs []models.Transaction
	if err := database.DB.Where("user_id = ?", userID).Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	income, expense, top := summarize(txs)

	Success(c, gin.H{
		"income":        income,
		"expense":       expense,
		"balance":       income - expense,
		"topCategories": top,
	})
}
