package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction type constants. Amounts are stored non-negative; the sign of an
// entry comes from its type.
const (
	TypeIncome  = "INCOME"
	TypeExpense = "EXPENSE"
)

// Transaction is a dated, categorized, typed monetary entry owned by a user.
type Transaction struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"user_id" gorm:"index;not null"`
	Description string         `json:"description" gorm:"size:255"`
	Amount      float64        `json:"amount" gorm:"type:decimal(10,2);not null"`
	Type        string         `json:"type" gorm:"size:10;not null"`
	Category    string         `json:"category" gorm:"size:50;not null;index"`
	Date        time.Time      `json:"date" gorm:"not null;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
}

// TableName sets the table name.
func (Transaction) TableName() string {
	return "transactions"
}

// IsValidType reports whether t is one of the two transaction types.
func IsValidType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}
