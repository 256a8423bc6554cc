package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"financas/database"
	"financas/middleware"
	"financas/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler handles ledger export and import.
type ExportHandler struct{}

// NewExportHandler creates an export handler.
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// csvHeader is the fixed, semicolon-separated export header.
const csvHeader = "descricao;categoria;tipo;valor;data"

// scrubCSVField keeps text fields from breaking the semicolon layout.
func scrubCSVField(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}

// buildTransactionsCSV renders the ledger in the fixed export layout:
// one header line, then one line per transaction with the amount at two
// decimals and the date in RFC3339.
func buildTransactionsCSV(txs []models.Transaction) string {
	var b strings.Builder
	b.WriteString(csvHeader + "\n")
	for _, t := range txs {
		b.WriteString(fmt.Sprintf("%s;%s;%s;%.2f;%s\n",
			scrubCSVField(t.Description),
			scrubCSVField(t.Category),
			t.Type,
			t.Amount,
			t.Date.UTC().Format(time.RFC3339)))
	}
	return b.String()
}

// csvColumns maps header positions by substring so exports from other tools
// survive column renames and reordering.
type csvColumns struct {
	description, category, txType, amount, date int
}

func detectColumns(header []string) (csvColumns, bool) {
	cols := csvColumns{-1, -1, -1, -1, -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(name, "descr"):
			cols.description = i
		case strings.Contains(name, "categ"):
			cols.category = i
		case strings.Contains(name, "tipo"):
			cols.txType = i
		case strings.Contains(name, "valor"):
			cols.amount = i
		case strings.Contains(name, "data"):
			cols.date = i
		}
	}
	ok := cols.description >= 0 && cols.category >= 0 && cols.txType >= 0 &&
		cols.amount >= 0 && cols.date >= 0
	return cols, ok
}

// detectDelimiter picks the separator that actually splits the header.
func detectDelimiter(headerLine string) string {
	for _, d := range []string{";", ",", "\t"} {
		if fields := strings.Split(headerLine, d); len(fields) >= 5 {
			if _, ok := detectColumns(fields); ok {
				return d
			}
		}
	}
	return ";"
}

// parseAmount accepts both decimal point and decimal comma.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// parseTransactionsCSV reads the import payload. Rows that fail validation
// are skipped rather than aborting the batch.
func parseTransactionsCSV(data string, userID uint) []models.Transaction {
	data = strings.TrimPrefix(data, "\uFEFF")
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	delimiter := detectDelimiter(lines[0])
	cols, ok := detectColumns(strings.Split(lines[0], delimiter))
	if !ok {
		return nil
	}

	var txs []models.Transaction
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, delimiter)
		max := cols.description
		for _, i := range []int{cols.category, cols.txType, cols.amount, cols.date} {
			if i > max {
				max = i
			}
		}
		if len(fields) <= max {
			continue
		}

		txType := strings.ToUpper(strings.TrimSpace(fields[cols.txType]))
		if !models.IsValidType(txType) {
			continue
		}
		amount, err := parseAmount(fields[cols.amount])
		if err != nil || amount <= 0 {
			continue
		}
		date, err := parseDate(strings.TrimSpace(fields[cols.date]))
		if err != nil {
			continue
		}
		description := strings.TrimSpace(fields[cols.description])
		category := strings.TrimSpace(fields[cols.category])
		if description == "" || category == "" {
			continue
		}

		txs = append(txs, models.Transaction{
			UserID:      userID,
			Description: description,
			Amount:      amount,
			Type:        txType,
			Category:    category,
			Date:        date,
		})
	}
	return txs
}

// ExportCSV downloads the ledger as a semicolon-separated CSV.
// @Summary Export transactions as CSV
// @Tags export
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {string} string "CSV file"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var txs []models.Transaction
	if err := database.DB.Where("user_id = ?", userID).
		Order("date DESC").Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	filename := fmt.Sprintf("transacoes_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	// BOM keeps spreadsheet apps reading the file as UTF-8
	c.String(http.StatusOK, "\uFEFF"+buildTransactionsCSV(txs))
}

// ImportCSVRequest carries the CSV payload as a string body.
type ImportCSVRequest struct {
	CSV string `json:"csv" binding:"required"`
}

// ImportCSV bulk-imports transactions from CSV. Unparseable rows are
// skipped; the response reports how many rows were stored.
// @Summary Import transactions from CSV
// @Tags export
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImportCSVRequest true "CSV content"
// @Success 200 {object} Response "import result"
// @Failure 400 {object} Response "validation error"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/import/csv [post]
func (h *ExportHandler) ImportCSV(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ImportCSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "csv field is required")
		return
	}

	txs := parseTransactionsCSV(req.CSV, userID)
	if len(txs) > 0 {
		if err := database.DB.Create(&txs).Error; err != nil {
			InternalError(c, SafeErrorMessage(err, "saving imported rows failed"))
			return
		}
	}

	SuccessWithMessage(c, "import finished", gin.H{"imported": len(txs)})
}

// ExportExcel downloads the ledger as an Excel workbook.
// @Summary Export transactions as Excel
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {string} string "Excel file"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var txs []models.Transaction
	if err := database.DB.Where("user_id = ?", userID).
		Order("date DESC").Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transações"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Descrição", "Categoria", "Tipo", "Valor", "Data"}
	for i, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	for row, t := range txs {
		values := []interface{}{
			t.Description,
			t.Category,
			t.Type,
			t.Amount,
			t.Date.UTC().Format("2006-01-02"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("transacoes_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "writing workbook failed")
	}
}

// ExportJSON downloads the ledger plus totals as JSON.
// @Summary Export transactions as JSON
// @Tags export
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "ledger with totals"
// @Failure 401 {object} Response "unauthorized"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var txs []models.Transaction
	if err := database.DB.Where("user_id = ?", userID).
		Order("date DESC").Find(&txs).Error; err != nil {
		InternalError(c, SafeErrorMessage(err, "query failed"))
		return
	}

	income, expense, _ := summarize(txs)
	Success(c, gin.H{
		"transactions": txs,
		"income":       income,
		"expense":      expense,
		"balance":      income - expense,
		"count":        len(txs),
		"exported_at":  time.Now().UTC().Format(time.RFC3339),
	})
}
