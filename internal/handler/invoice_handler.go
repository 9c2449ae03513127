package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fakturio/internal/domain"
	"fakturio/internal/port"
	"fakturio/internal/service"
)

// InvoiceHandler handles invoice pipeline endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logRepo        port.ProcessingLogRepository
	batchSize      int
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService, logRepo port.ProcessingLogRepository, batchSize int) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, logRepo: logRepo, batchSize: batchSize}
}

// List handles GET /invoices?status=&offset=&limit=
func (h *InvoiceHandler) List(c *gin.Context) {
	status := domain.InvoiceStatus(c.Query("status"))
	if status != "" && !domain.ValidStatuses[status] {
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "unknown status filter")
		return
	}
	offset, limit := parsePagination(c)

	recs, total, err := h.invoiceService.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	rec, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// Retry handles POST /invoices/:id/retry
func (h *InvoiceHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	rec, err := h.invoiceService.RetryInvoice(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// Logs handles GET /invoices/:id/logs
func (h *InvoiceHandler) Logs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice id")
		return
	}

	entries, err := h.logRepo.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entries)
}

// RecentLogs handles GET /logs?limit=
func (h *InvoiceHandler) RecentLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	entries, err := h.logRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, entries)
}

// TriggerIngest handles POST /pipeline/ingest. The pass runs synchronously;
// failures inside it surface in the processing log, not here.
func (h *InvoiceHandler) TriggerIngest(c *gin.Context) {
	if err := h.invoiceService.ProcessAll(c.Request.Context()); err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"triggered": "ingest"})
}

// TriggerExport handles POST /pipeline/export
func (h *InvoiceHandler) TriggerExport(c *gin.Context) {
	summary, err := h.invoiceService.ExportPending(c.Request.Context(), h.batchSize)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, summary)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
