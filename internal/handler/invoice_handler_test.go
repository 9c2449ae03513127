package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fakturio/internal/domain"
	"fakturio/internal/handler"
	"fakturio/internal/service"
	"fakturio/mocks"
)

func newInvoiceHandler() (*handler.InvoiceHandler, *mocks.MockInvoiceService, *mocks.MockProcessingLogRepo) {
	mockSvc := new(mocks.MockInvoiceService)
	mockLogs := new(mocks.MockProcessingLogRepo)
	h := handler.NewInvoiceHandler(mockSvc, mockLogs, 50)
	return h, mockSvc, mockLogs
}

func TestInvoiceHandler_List_Success(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	recs := []domain.InvoiceRecord{{ID: uuid.New(), Status: domain.StatusPending}}
	mockSvc.On("List", mock.Anything, domain.StatusPending, 0, 20).Return(recs, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/invoices?status=PENDING", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Meta.Total)
	mockSvc.AssertExpectations(t)
}

func TestInvoiceHandler_List_InvalidStatus(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/invoices?status=NONSENSE", nil)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_GetByID_NotFound(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	id := uuid.New()
	mockSvc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrInvoiceNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetByID(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVOICE_NOT_FOUND", resp.Error.Code)
}

func TestInvoiceHandler_GetByID_BadID(t *testing.T) {
	h, _, _ := newInvoiceHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_Retry_NotRetriable(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	id := uuid.New()
	mockSvc.On("RetryInvoice", mock.Anything, id).Return(nil, domain.ErrNotRetriable)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/invoices/"+id.String()+"/retry", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Retry(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_RETRIABLE", resp.Error.Code)
}

func TestInvoiceHandler_Retry_Success(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	id := uuid.New()
	mockSvc.On("RetryInvoice", mock.Anything, id).
		Return(&domain.InvoiceRecord{ID: id, Status: domain.StatusPending}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/invoices/"+id.String()+"/retry", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Retry(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvoiceHandler_TriggerExport(t *testing.T) {
	h, mockSvc, _ := newInvoiceHandler()

	mockSvc.On("ExportPending", mock.Anything, 50).
		Return(&service.ExportSummary{Selected: 3, Exported: 2, Duplicates: 1}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/pipeline/export", nil)

	h.TriggerExport(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}
