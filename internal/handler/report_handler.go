package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"fakturio/internal/domain"
	"fakturio/internal/port"
	"fakturio/internal/report"
)

// exportRowLimit caps how many records a single report download covers.
const exportRowLimit = 10000

// ReportHandler serves invoice register downloads.
type ReportHandler struct {
	repo port.InvoiceRepository
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(repo port.InvoiceRepository) *ReportHandler {
	return &ReportHandler{repo: repo}
}

// DownloadCSV handles GET /reports/invoices.csv?status=
func (h *ReportHandler) DownloadCSV(c *gin.Context) {
	recs, ok := h.fetch(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	buf.Write(report.BOM)
	w := report.NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		HandleError(c, err)
		return
	}
	if err := w.WriteRecords(recs); err != nil {
		HandleError(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.BuildFilename("invoices", "csv")+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// DownloadXLSX handles GET /reports/invoices.xlsx?status=
func (h *ReportHandler) DownloadXLSX(c *gin.Context) {
	recs, ok := h.fetch(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, recs); err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.BuildFilename("invoices", "xlsx")+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ReportHandler) fetch(c *gin.Context) ([]domain.InvoiceRecord, bool) {
	status := domain.InvoiceStatus(c.Query("status"))
	if status != "" && !domain.ValidStatuses[status] {
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "unknown status filter")
		return nil, false
	}
	recs, _, err := h.repo.List(c.Request.Context(), status, 0, exportRowLimit)
	if err != nil {
		HandleError(c, err)
		return nil, false
	}
	return recs, true
}
