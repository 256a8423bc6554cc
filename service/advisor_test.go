package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"financas/config"
	"financas/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adviceTransactions(now time.Time) []models.Transaction {
	return []models.Transaction{
		{ID: 1, UserID: 1, Description: "Salário", Amount: 5000, Type: "INCOME", Category: "Trabalho", Date: now.AddDate(0, 0, -5)},
		{ID: 2, UserID: 1, Description: "Aluguel", Amount: 1800, Type: "EXPENSE", Category: "Moradia", Date: now.AddDate(0, 0, -4)},
		{ID: 3, UserID: 1, Description: "Mercado", Amount: 900, Type: "EXPENSE", Category: "Alimentação", Date: now.AddDate(0, 0, -3)},
	}
}

func TestBuildLocalAdvice_Empty(t *testing.T) {
	advice := BuildLocalAdvice(nil, time.Now())

	assert.Equal(t, 0.0, advice.Metrics.Income)
	assert.Equal(t, 0.0, advice.Metrics.Expense)
	assert.Equal(t, 0.0, advice.Metrics.Balance)
	assert.Equal(t, 0.0, advice.Metrics.SavingsRate)
	assert.Empty(t, advice.Riscos)
	assert.Empty(t, advice.TopCategories)
	assert.Equal(t, OrigemLocal, advice.Origem)
	assert.Equal(t, "Receita: R$ 0.00, Despesa: R$ 0.00, Saldo: R$ 0.00", advice.Resumo)
}

func TestBuildLocalAdvice_Metrics(t *testing.T) {
	now := time.Now()
	advice := BuildLocalAdvice(adviceTransactions(now), now)

	assert.Equal(t, 5000.0, advice.Metrics.Income)
	assert.Equal(t, 2700.0, advice.Metrics.Expense)
	assert.Equal(t, 2300.0, advice.Metrics.Balance)
	assert.InDelta(t, 0.46, advice.Metrics.SavingsRate, 0.001)
	assert.Equal(t, 1000.0, advice.Budget.RecommendedSavings)

	require.NotEmpty(t, advice.TopCategories)
	assert.Equal(t, "Trabalho", advice.TopCategories[0].Category)

	require.NotEmpty(t, advice.Budget.BudgetTargets)
	assert.Equal(t, "Trabalho", advice.Budget.BudgetTargets[0].Category)
	assert.InDelta(t, 4500.0, advice.Budget.BudgetTargets[0].Target, 0.001)
}

func TestBuildLocalAdvice_Risks(t *testing.T) {
	now := time.Now()
	txs := []models.Transaction{
		{Description: "Mercado", Amount: 1000, Type: "EXPENSE", Category: "Alimentação", Date: now.AddDate(0, 0, -1)},
		{Description: "Freela", Amount: 500, Type: "INCOME", Category: "Trabalho", Date: now.AddDate(0, 0, -1)},
	}

	advice := BuildLocalAdvice(txs, now)
	assert.Equal(t, -500.0, advice.Metrics.Balance)
	assert.Equal(t, 0.0, advice.Metrics.SavingsRate)
	assert.Contains(t, advice.Riscos, "Saldo negativo")
	assert.Contains(t, advice.Riscos, "Despesas próximas da receita")
	assert.Equal(t, "Alimentação", advice.TopCategories[0].Category)
	assert.Equal(t, 1000.0, advice.TopCategories[0].Total)
}

func TestBuildLocalAdvice_NormalizesInput(t *testing.T) {
	now := time.Now()
	txs := []models.Transaction{
		{Description: "Estorno", Amount: -300, Type: "EXPENSE", Category: "  Compras  ", Date: now.AddDate(0, 0, -1)},
	}

	advice := BuildLocalAdvice(txs, now)
	assert.Equal(t, 300.0, advice.Metrics.Expense)
	require.NotEmpty(t, advice.TopCategories)
	assert.Equal(t, "Compras", advice.TopCategories[0].Category)
}

func TestBuildLocalAdvice_WindowFallsBackToFullSet(t *testing.T) {
	now := time.Now()
	old := []models.Transaction{
		{Description: "Salário antigo", Amount: 4000, Type: "INCOME", Category: "Trabalho", Date: now.AddDate(0, -6, 0)},
		{Description: "Compra antiga", Amount: 1000, Type: "EXPENSE", Category: "Outros", Date: now.AddDate(0, -6, 0)},
	}

	// nothing in the last 30 days, metrics fall back to everything
	advice := BuildLocalAdvice(old, now)
	assert.Equal(t, 4000.0, advice.Metrics.Income)
	assert.Equal(t, 1000.0, advice.Metrics.Expense)
}

func TestBuildLocalAdvice_WindowExcludesOldFromMetrics(t *testing.T) {
	now := time.Now()
	txs := append(adviceTransactions(now), models.Transaction{
		Description: "Compra antiga", Amount: 9999, Type: "EXPENSE", Category: "Eletrônicos",
		Date: now.AddDate(0, -3, 0),
	})

	advice := BuildLocalAdvice(txs, now)

	// metrics use only the recent window
	assert.Equal(t, 2700.0, advice.Metrics.Expense)

	// category ranking still sees the full history
	assert.Equal(t, "Eletrônicos", advice.TopCategories[0].Category)
}

func TestBuildLocalAdvice_TopFiveCap(t *testing.T) {
	now := time.Now()
	var txs []models.Transaction
	for i, cat := range []string{"A1", "B2", "C3", "D4", "E5", "F6", "G7"} {
		txs = append(txs, models.Transaction{
			Description: cat, Amount: float64((i + 1) * 100), Type: "EXPENSE", Category: cat,
			Date: now.AddDate(0, 0, -1),
		})
	}

	advice := BuildLocalAdvice(txs, now)
	assert.Len(t, advice.TopCategories, 5)
	assert.Equal(t, "G7", advice.TopCategories[0].Category)
	assert.Len(t, advice.Oportunidades, 5)
}

func TestAdvise_NoCredentialStaysLocal(t *testing.T) {
	svc := NewAdvisorService(&config.AIConfig{TimeoutSeconds: 5})

	advice := svc.Advise(context.Background(), adviceTransactions(time.Now()))
	assert.Equal(t, OrigemLocal, advice.Origem)
	assert.Equal(t, 5000.0, advice.Metrics.Income)
}

func TestAdvise_EnrichmentFailureFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json at all"))
			},
		},
		{
			name: "non-JSON model output",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"choices":[{"message":{"content":"desculpe, não consigo"}}]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			svc := NewAdvisorService(&config.AIConfig{
				BaseURL: srv.URL, APIKey: "test-key", Model: "test-model", TimeoutSeconds: 5,
			})

			txs := adviceTransactions(time.Now())
			advice := svc.Advise(context.Background(), txs)

			// identical to the deterministic result, provenance included
			assert.Equal(t, OrigemLocal, advice.Origem)
			assert.Equal(t, 5000.0, advice.Metrics.Income)
			assert.Equal(t, 2700.0, advice.Metrics.Expense)
			assert.NotEmpty(t, advice.Resumo)
			assert.NotEmpty(t, advice.Dicas)
		})
	}
}

func TestAdvise_EnrichmentOverridesTextKeepsNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":` +
			`"` + "```json\\n" + `{\"resumo\":\"Mês saudável\",\"dicas\":[\"Invista a sobra\"]}` + "\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	svc := NewAdvisorService(&config.AIConfig{
		BaseURL: srv.URL, APIKey: "test-key", Model: "test-model", TimeoutSeconds: 5,
	})

	advice := svc.Advise(context.Background(), adviceTransactions(time.Now()))

	assert.Equal(t, OrigemAI, advice.Origem)
	assert.Equal(t, "Mês saudável", advice.Resumo)
	assert.Equal(t, []string{"Invista a sobra"}, advice.Dicas)

	// untouched fields keep the deterministic values
	assert.Equal(t, 5000.0, advice.Metrics.Income)
	assert.Equal(t, 2300.0, advice.Metrics.Balance)
	assert.Equal(t, "Trabalho", advice.TopCategories[0].Category)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}

func TestApplyOverrides_NilFieldsKeepBase(t *testing.T) {
	base := BuildLocalAdvice(adviceTransactions(time.Now()), time.Now())

	out := applyOverrides(base, adviceOverrides{})
	assert.Equal(t, base, out)

	resumo := "novo resumo"
	out = applyOverrides(base, adviceOverrides{Resumo: &resumo})
	assert.Equal(t, "novo resumo", out.Resumo)
	assert.Equal(t, base.Metrics, out.Metrics)
	assert.Equal(t, base.Dicas, out.Dicas)
}
