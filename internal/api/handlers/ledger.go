package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"energy-billing/internal/analysis"
	"energy-billing/internal/api/models"
	"energy-billing/internal/ledger"
	"energy-billing/internal/metrics"
	"energy-billing/internal/model"
)

// topDays is how many of the highest-consumption days GET /ledger/:year lists
const topDays = 5

// LedgerHandler serves the daily ledger of one instance
type LedgerHandler struct {
	writer ledger.Writer
}

// NewLedgerHandler creates a new ledger handler. A nil writer answers 404.
func NewLedgerHandler(w ledger.Writer) *LedgerHandler {
	return &LedgerHandler{writer: w}
}

func (h *LedgerHandler) days(c *gin.Context) (int, []ledger.DailyRow, bool) {
	if h.writer == nil {
		respondError(c, http.StatusNotFound, "LEDGER_DISABLED", "no ledger is configured")
		return 0, nil, false
	}
	var req models.LedgerRequest
	if err := c.ShouldBindUri(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_YEAR", err.Error())
		return 0, nil, false
	}
	rows, err := h.writer.Days(req.Year)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "LEDGER_READ_ERROR", err.Error())
		return 0, nil, false
	}
	return req.Year, rows, true
}

// GetLedger handles GET /api/v1/ledger/:year
func (h *LedgerHandler) GetLedger(c *gin.Context) {
	year, rows, ok := h.days(c)
	if !ok {
		return
	}
	resp := models.LedgerResponse{Year: year, Rows: rows}
	if resp.Rows == nil {
		resp.Rows = []ledger.DailyRow{}
	}
	for _, r := range rows {
		resp.TotalBuy += r.BuyDay
		resp.TotalSell += r.SellDay
	}
	for _, ch := range model.Channels {
		resp.Usage = append(resp.Usage, analysis.Summarize(rows, ch))
	}
	resp.TopDays = analysis.TopDays(rows, model.ChannelBuy, topDays)
	c.JSON(http.StatusOK, resp)
}

// Export handles GET /api/v1/ledger/:year/export?format=xlsx|pdf
func (h *LedgerHandler) Export(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = "xlsx"
	}
	var (
		export      func(int, []ledger.DailyRow) ([]byte, error)
		contentType string
	)
	switch format {
	case "xlsx":
		export = ledger.ExportXLSX
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		export = ledger.ExportPDF
		contentType = "application/pdf"
	default:
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", fmt.Sprintf("unsupported export format %q", req.Format))
		return
	}

	year, rows, ok := h.days(c)
	if !ok {
		return
	}
	start := time.Now()
	data, err := export(year, rows)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", err.Error())
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="energy-%04d.%s"`, year, format))
	c.Data(http.StatusOK, contentType, data)
}
