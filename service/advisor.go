package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"financas/config"
	"financas/models"
)

// Advice provenance tags.
const (
	OrigemLocal = "local"
	OrigemAI    = "ai"
)

// Metrics are the windowed financial indicators.
type Metrics struct {
	Income      float64 `json:"income"`
	Expense     float64 `json:"expense"`
	Balance     float64 `json:"balance"`
	SavingsRate float64 `json:"savingsRate"`
}

// CategoryTotal is one category's aggregated amount.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// BudgetTarget is a suggested monthly ceiling for one category.
type BudgetTarget struct {
	Category string  `json:"category"`
	Target   float64 `json:"target"`
}

// BudgetSuggestion bundles the savings reserve and per-category targets.
type BudgetSuggestion struct {
	RecommendedSavings float64        `json:"recommendedSavings"`
	BudgetTargets      []BudgetTarget `json:"budgetTargets"`
}

// Advice is the advisory result. Origem records whether the result is the
// deterministic computation ("local") or was enriched by the external
// model ("ai").
type Advice struct {
	Resumo        string           `json:"resumo"`
	Metrics       Metrics          `json:"metrics"`
	TopCategories []CategoryTotal  `json:"topCategories"`
	Budget        BudgetSuggestion `json:"budget"`
	Dicas         []string         `json:"dicas"`
	Riscos        []string         `json:"riscos"`
	Oportunidades []string         `json:"oportunidades"`
	Origem        string           `json:"origem"`
}

// adviceOverrides is the sparse patch parsed from the model response. Nil
// fields keep the deterministic value; construction always starts from the
// base and applies overrides on top, never the reverse.
type adviceOverrides struct {
	Resumo        *string           `json:"resumo"`
	Metrics       *Metrics          `json:"metrics"`
	TopCategories *[]CategoryTotal  `json:"topCategories"`
	Budget        *BudgetSuggestion `json:"budget"`
	Dicas         *[]string         `json:"dicas"`
	Riscos        *[]string         `json:"riscos"`
	Oportunidades *[]string         `json:"oportunidades"`
}

// BuildLocalAdvice computes the deterministic advisory result.
//
// Amounts are taken as absolute values and categories trimmed. The
// income/expense/balance/savingsRate metrics use the trailing-30-day subset
// when it is non-empty, falling back to the full set; category ranking and
// budget targets always use the full set.
func BuildLocalAdvice(txs []models.Transaction, now time.Time) Advice {
	normalized := make([]models.Transaction, len(txs))
	for i, t := range txs {
		t.Amount = math.Abs(t.Amount)
		t.Category = strings.TrimSpace(t.Category)
		t.Date = t.Date.UTC()
		normalized[i] = t
	}

	cutoff := now.Add(-30 * 24 * time.Hour)
	var last30 []models.Transaction
	for _, t := range normalized {
		if t.Date.After(cutoff) {
			last30 = append(last30, t)
		}
	}
	window := normalized
	if len(last30) > 0 {
		window = last30
	}

	var income, expense float64
	for _, t := range window {
		switch t.Type {
		case models.TypeIncome:
			income += t.Amount
		case models.TypeExpense:
			expense += t.Amount
		}
	}
	balance := income - expense

	savingsRate := 0.0
	if income > 0 {
		savingsRate = (income - expense) / income
		if savingsRate < 0 {
			savingsRate = 0
		}
		if savingsRate > 1 {
			savingsRate = 1
		}
	}

	byCategory := make(map[string]float64)
	for _, t := range normalized {
		byCategory[t.Category] += t.Amount
	}
	top := make([]CategoryTotal, 0, len(byCategory))
	for category, total := range byCategory {
		top = append(top, CategoryTotal{Category: category, Total: total})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Total > top[j].Total })
	if len(top) > 5 {
		top = top[:5]
	}

	recommendedSavings := income * 0.20
	targets := make([]BudgetTarget, 0, len(top))
	for _, ct := range top {
		targets = append(targets, BudgetTarget{Category: ct.Category, Target: ct.Total * 0.90})
	}

	riscos := make([]string, 0, 2)
	if balance < 0 {
		riscos = append(riscos, "Saldo negativo")
	}
	if expense > income*0.8 {
		riscos = append(riscos, "Despesas próximas da receita")
	}

	oportunidades := make([]string, 0, len(top))
	for _, ct := range top {
		oportunidades = append(oportunidades, fmt.Sprintf("Otimizar gastos em %s (R$ %.2f)", ct.Category, ct.Total))
	}

	return Advice{
		Resumo: fmt.Sprintf("Receita: R$ %.2f, Despesa: R$ %.2f, Saldo: R$ %.2f", income, expense, balance),
		Metrics: Metrics{
			Income:      income,
			Expense:     expense,
			Balance:     balance,
			SavingsRate: savingsRate,
		},
		TopCategories: top,
		Budget: BudgetSuggestion{
			RecommendedSavings: recommendedSavings,
			BudgetTargets:      targets,
		},
		Dicas: []string{
			"Defina um teto mensal para as categorias com maior gasto",
			fmt.Sprintf("Reserve R$ %.2f (20%% da receita) para uma reserva de emergência", recommendedSavings),
			"Revise assinaturas e despesas recorrentes",
		},
		Riscos:        riscos,
		Oportunidades: oportunidades,
		Origem:        OrigemLocal,
	}
}

// AdvisorService computes advisory results and, when a credential is
// configured, enriches them through an OpenAI-compatible completion call.
type AdvisorService struct {
	cfg    *config.AIConfig
	client *http.Client
}

// NewAdvisorService creates an advisor service.
func NewAdvisorService(cfg *config.AIConfig) *AdvisorService {
	return &AdvisorService{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Advise returns an advisory result. It never fails: without a configured
// credential, or when the external call or its parsing fails, the
// deterministic result is returned with origem "local".
func (s *AdvisorService) Advise(ctx context.Context, txs []models.Transaction) Advice {
	base := BuildLocalAdvice(txs, time.Now())

	if s.cfg.APIKey == "" {
		return base
	}

	overrides, err := s.requestOverrides(ctx, base, txs)
	if err != nil {
		log.Printf("advisor enrichment skipped: %v", err)
		return base
	}

	enriched := applyOverrides(base, overrides)
	enriched.Origem = OrigemAI
	return enriched
}

// buildPrompt instructs the model to answer with strict JSON matching the
// Advice shape.
func (s *AdvisorService) buildPrompt(base Advice, txs []models.Transaction) string {
	summary := struct {
		Metrics       Metrics         `json:"metrics"`
		TopCategories []CategoryTotal `json:"topCategories"`
		Count         int             `json:"count"`
	}{base.Metrics, base.TopCategories, len(txs)}
	payload, _ := json.Marshal(summary)

	return "Você é um consultor financeiro. Com base no resumo de transações abaixo, " +
		"responda APENAS com JSON estrito (sem markdown) com as chaves: " +
		"resumo, dicas, riscos, oportunidades. " +
		"Arrays de strings em português, objetivos e práticos. " +
		"Resumo das transações: " + string(payload)
}

// chat/completions request and response fragments (OpenAI-compatible).
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *AdvisorService) requestOverrides(ctx context.Context, base Advice, txs []models.Transaction) (adviceOverrides, error) {
	var overrides adviceOverrides

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: s.buildPrompt(base, txs)},
		},
	})
	if err != nil {
		return overrides, fmt.Errorf("building request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return overrides, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return overrides, fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return overrides, fmt.Errorf("generation service returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return overrides, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return overrides, fmt.Errorf("empty response")
	}

	content := stripCodeFence(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &overrides); err != nil {
		return overrides, fmt.Errorf("parsing model JSON: %w", err)
	}
	return overrides, nil
}

// stripCodeFence removes optional ```json fences around the model output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// applyOverrides lays the sparse patch over the deterministic base,
// field by field.
func applyOverrides(base Advice, o adviceOverrides) Advice {
	out := base
	if o.Resumo != nil {
		out.Resumo = *o.Resumo
	}
	if o.Metrics != nil {
		out.Metrics = *o.Metrics
	}
	if o.TopCategories != nil {
		out.TopCategories = *o.TopCategories
	}
	if o.Budget != nil {
		out.Budget = *o.Budget
	}
	if o.Dicas != nil {
		out.Dicas = *o.Dicas
	}
	if o.Riscos != nil {
		out.Riscos = *o.Riscos
	}
	if o.Oportunidades != nil {
		out.Oportunidades = *o.Oportunidades
	}
	return out
}
