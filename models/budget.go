package models

import (
	"time"
)

// Budget is a per-user spending limit for one category in one month.
// The composite unique index is the upsert key: submitting the same
// (user, category, month, year) again updates the stored limit in place.
// Deletes are hard deletes: a soft-deleted row would keep occupying the
// upsert key and make re-creating the budget a silent no-op.
// The column is limit_amount because "limit" is a reserved word.
type Budget struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_budget_key"`
	Category    string    `json:"category" gorm:"size:50;not null;uniqueIndex:idx_budget_key"`
	LimitAmount float64   `json:"limit" gorm:"column:limit_amount;type:decimal(10,2);not null"`
	Month       int       `json:"month" gorm:"not null;uniqueIndex:idx_budget_key"`
	Year        int       `json:"year" gorm:"not null;uniqueIndex:idx_budget_key"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `json:"-" gorm:"foreignKey:UserID"`
}

// TableName sets the table name.
func (Budget) TableName() string {
	return "budgets"
}

// BudgetStatus is the derived, never-persisted join of a budget against the
// month's expenses. Recomputed on every status query.
type BudgetStatus struct {
	ID        uint    `json:"id"`
	Category  string  `json:"category"`
	Limit     float64 `json:"limit"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	Percent   int     `json:"percent"`
	Alert     bool    `json:"alert"`
}
