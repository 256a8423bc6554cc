package api

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"financas/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildForecast_Monthly(t *testing.T) {
	recs := []models.RecurringTransaction{
		{ID: 1, UserID: 1, Description: "Aluguel", Amount: 1800, Type: "EXPENSE", Category: "Moradia", Cadence: models.CadenceMonthly},
		{ID: 2, UserID: 1, Description: "Salário", Amount: 5000, Type: "INCOME", Category: "Trabalho", Cadence: models.CadenceMonthly},
	}

	now := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	forecast := buildForecast(recs, now, 3)
	require.Len(t, forecast, 3)

	for i, entry := range forecast {
		assert.Equal(t, 5000.0, entry.Income, "month %d", i)
		assert.Equal(t, 1800.0, entry.Expense, "month %d", i)
	}
	assert.Equal(t, 8, forecast[0].Month)
	assert.Equal(t, 9, forecast[1].Month)
	assert.Equal(t, 10, forecast[2].Month)
	assert.Equal(t, 2025, forecast[0].Year)
}

func TestBuildForecast_WeeklyIsFourPerMonth(t *testing.T) {
	recs := []models.RecurringTransaction{
		{ID: 1, UserID: 1, Description: "Feira", Amount: 120, Type: "EXPENSE", Category: "Alimentação", Cadence: models.CadenceWeekly},
	}

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	forecast := buildForecast(recs, now, 1)
	require.Len(t, forecast, 1)
	assert.Equal(t, 480.0, forecast[0].Expense)
}

func TestBuildForecast_YearlyOnlyInMatchingMonth(t *testing.T) {
	recs := []models.RecurringTransaction{
		{ID: 1, UserID: 1, Description: "IPVA", Amount: 2400, Type: "EXPENSE", Category: "Impostos",
			Cadence: models.CadenceYearly, NextDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
	}

	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	forecast := buildForecast(recs, now, 12)
	require.Len(t, forecast, 12)

	for _, entry := range forecast {
		if entry.Month == 3 {
			assert.Equal(t, 2400.0, entry.Expense)
		} else {
			assert.Equal(t, 0.0, entry.Expense)
		}
	}
}

func TestBuildForecast_YearRollover(t *testing.T) {
	now := time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	forecast := buildForecast(nil, now, 4)
	require.Len(t, forecast, 4)

	assert.Equal(t, 11, forecast[0].Month)
	assert.Equal(t, 2025, forecast[0].Year)
	assert.Equal(t, 1, forecast[2].Month)
	assert.Equal(t, 2026, forecast[2].Year)

	// entries exist even when nothing contributes
	for _, entry := range forecast {
		assert.Equal(t, 0.0, entry.Income)
		assert.Equal(t, 0.0, entry.Expense)
	}
}

func TestBuildForecast_UnknownCadenceIgnored(t *testing.T) {
	recs := []models.RecurringTransaction{
		{ID: 1, UserID: 1, Description: "???", Amount: 100, Type: "EXPENSE", Category: "Outros", Cadence: "DAILY"},
	}

	forecast := buildForecast(recs, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), 2)
	require.Len(t, forecast, 2)
	assert.Equal(t, 0.0, forecast[0].Expense)
	assert.Equal(t, 0.0, forecast[1].Expense)
}

func TestRecurringHandler_Create_Invalid(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewRecurringHandler()
	router.POST("/recurrings", setUserID(1), h.Create)

	tests := []struct {
		name string
		body string
	}{
		{"unknown cadence", `{"description":"Aluguel","amount":1800,"type":"EXPENSE","category":"Moradia","cadence":"DAILY","next_date":"2025-09-05"}`},
		{"bad next_date", `{"description":"Aluguel","amount":1800,"type":"EXPENSE","category":"Moradia","cadence":"MONTHLY","next_date":"05/09/2025"}`},
		{"zero amount", `{"description":"Aluguel","amount":0,"type":"EXPENSE","category":"Moradia","cadence":"MONTHLY","next_date":"2025-09-05"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/recurrings", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, 400, w.Code)
		})
	}
}
