package models

// QuoteRequest is the query of GET /api/v1/tariff/quote
type QuoteRequest struct {
	KWh string `form:"kwh" binding:"required"` // decimal string, e.g. "123.45"
}

// ExportRequest is the query of GET /api/v1/ledger/:year/export
type ExportRequest struct {
	Format string `form:"format"` // "xlsx" (default) or "pdf"
}

// LedgerRequest carries the path parameter of the ledger endpoints
type LedgerRequest struct {
	Year int `uri:"year" binding:"required,min=1970,max=9999"`
}
