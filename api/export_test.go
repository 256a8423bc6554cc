package api

import (
	"strings"
	"testing"
	"time"

	"financas/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTransactionsCSV(t *testing.T) {
	txs := []models.Transaction{
		{
			Description: "Mercado; frutas",
			Category:    "Alimentação",
			Type:        "EXPENSE",
			Amount:      250.4,
			Date:        time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	csv := buildTransactionsCSV(txs)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "descricao;categoria;tipo;valor;data", lines[0])

	// semicolons inside fields are scrubbed so the layout stays intact
	assert.Equal(t, "Mercado, frutas;Alimentação;EXPENSE;250.40;2025-08-01T12:00:00Z", lines[1])
}

func TestParseTransactionsCSV_RoundTrip(t *testing.T) {
	txs := []models.Transaction{
		{Description: "Salário", Category: "Trabalho", Type: "INCOME", Amount: 5000,
			Date: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)},
		{Description: "Aluguel", Category: "Moradia", Type: "EXPENSE", Amount: 1800,
			Date: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)},
	}

	parsed := parseTransactionsCSV(buildTransactionsCSV(txs), 7)
	require.Len(t, parsed, 2)

	assert.Equal(t, uint(7), parsed[0].UserID)
	assert.Equal(t, "Salário", parsed[0].Description)
	assert.Equal(t, "INCOME", parsed[0].Type)
	assert.Equal(t, 5000.0, parsed[0].Amount)
	assert.Equal(t, "Moradia", parsed[1].Category)
	assert.True(t, parsed[1].Date.Equal(txs[1].Date))
}

func TestParseTransactionsCSV_CommaDelimiterAndReorderedHeader(t *testing.T) {
	data := "data,valor,tipo,categoria,descricao\n" +
		"2025-08-01,99.90,EXPENSE,Lazer,Cinema\n"

	parsed := parseTransactionsCSV(data, 1)
	require.Len(t, parsed, 1)
	assert.Equal(t, "Cinema", parsed[0].Description)
	assert.Equal(t, "Lazer", parsed[0].Category)
	assert.Equal(t, 99.9, parsed[0].Amount)
}

func TestParseTransactionsCSV_DecimalComma(t *testing.T) {
	data := "descricao;categoria;tipo;valor;data\n" +
		"Mercado;Alimentação;EXPENSE;120,50;2025-08-02\n"

	parsed := parseTransactionsCSV(data, 1)
	require.Len(t, parsed, 1)
	assert.Equal(t, 120.5, parsed[0].Amount)
}

func TestParseTransactionsCSV_SkipsBadRows(t *testing.T) {
	data := "descricao;categoria;tipo;valor;data\n" +
		"Válida;Alimentação;EXPENSE;10.00;2025-08-01\n" +
		"Tipo ruim;Alimentação;TRANSFER;10.00;2025-08-01\n" +
		"Valor ruim;Alimentação;EXPENSE;abc;2025-08-01\n" +
		"Data ruim;Alimentação;EXPENSE;10.00;01/08/2025\n" +
		";Alimentação;EXPENSE;10.00;2025-08-01\n" +
		"\n" +
		"Também válida;Moradia;INCOME;20.00;2025-08-03\n"

	parsed := parseTransactionsCSV(data, 1)
	require.Len(t, parsed, 2)
	assert.Equal(t, "Válida", parsed[0].Description)
	assert.Equal(t, "Também válida", parsed[1].Description)
}

func TestParseTransactionsCSV_UnrecognizedHeader(t *testing.T) {
	data := "a;b;c;d;e\n1;2;3;4;5\n"
	assert.Empty(t, parseTransactionsCSV(data, 1))
}

func TestDetectDelimiter(t *testing.T) {
	assert.Equal(t, ";", detectDelimiter("descricao;categoria;tipo;valor;data"))
	assert.Equal(t, ",", detectDelimiter("descricao,categoria,tipo,valor,data"))
	assert.Equal(t, "\t", detectDelimiter("descricao\tcategoria\ttipo\tvalor\tdata"))
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("10.50")
	require.NoError(t, err)
	assert.Equal(t, 10.5, v)

	v, err = parseAmount("10,50")
	require.NoError(t, err)
	assert.Equal(t, 10.5, v)

	_, err = parseAmount("abc")
	assert.Error(t, err)
}
