package models

import (
	"time"

	"gorm.io/gorm"
)

// Cadence constants for recurring transactions.
const (
	CadenceMonthly = "MONTHLY"
	CadenceWeekly  = "WEEKLY"
	CadenceYearly  = "YEARLY"
)

// RecurringTransaction is a template for a repeating entry. It only drives
// the cash-flow forecast; realized transactions are never auto-inserted
// from it.
type RecurringTransaction struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	Description string         `json:"description" gorm:"size:255"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Type        string         `json:"type" gorm:"size:10;not null"`
	Category    string         `json:"category" gorm:"size:50;not null"`
	Cadence     string         `json:"cadence" gorm:"size:10;not null"`
	NextDate    time.Time      `json:"next_date" gorm:"not null"`
	Active      bool           `json:"active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName sets the table name.
func (RecurringTransaction) TableName() string {
	return "recurring_transactions"
}

// IsValidCadence reports whether c is one of the three cadences.
func IsValidCadence(c string) bool {
	return c == CadenceMonthly || c == CadenceWeekly || c == CadenceYearly
}

// ForecastEntry is one projected month of the cash-flow forecast.
type ForecastEntry struct {
	Month   int     `json:"month"`
	Year    int     `json:"year"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}
