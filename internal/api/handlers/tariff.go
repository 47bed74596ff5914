package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-billing/internal/api/models"
	"energy-billing/internal/tariff"
)

// TariffHandler prices consumption figures against the configured tiers
type TariffHandler struct {
	schedule     *tariff.Schedule
	sell         tariff.FlatRate
	currency     string
	costDecimals int
}

// NewTariffHandler creates a new tariff handler
func NewTariffHandler(schedule *tariff.Schedule, sell tariff.FlatRate, currency string, costDecimals int) *TariffHandler {
	return &TariffHandler{schedule: schedule, sell: sell, currency: currency, costDecimals: costDecimals}
}

// GetTariff handles GET /api/v1/tariff
func (h *TariffHandler) GetTariff(c *gin.Context) {
	resp := models.TariffResponse{
		Currency:  h.currency,
		TaxRate:   h.schedule.TaxRate(),
		SellPrice: h.sell.Price.String(),
	}
	for i, t := range h.schedule.Tiers() {
		resp.Tiers = append(resp.Tiers, models.TierInfo{Tier: i + 1, BlockKWh: t.BlockKWh, UnitPrice: t.UnitPrice})
	}
	c.JSON(http.StatusOK, resp)
}

// Quote handles GET /api/v1/tariff/quote?kwh=N
func (h *TariffHandler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	kwh, err := tariff.NewDecimal(req.KWh)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_KWH", err.Error())
		return
	}

	q := h.schedule.Quote(kwh)
	resp := models.QuoteResponse{
		KWh:            q.KWh.String(),
		Currency:       h.currency,
		Lines:          make([]models.QuoteLine, 0, len(q.Lines)),
		Subtotal:       q.Subtotal.String(),
		Tax:            q.Tax.String(),
		Total:          q.Total.String(),
		TotalThousands: tariff.Thousands(q.Total, h.costDecimals),
	}
	for _, l := range q.Lines {
		resp.Lines = append(resp.Lines, models.QuoteLine{
			Tier:      l.Tier,
			KWh:       l.KWh.String(),
			UnitPrice: l.UnitPrice.String(),
			Amount:    l.Amount.String(),
		})
	}
	c.JSON(http.StatusOK, resp)
}
