package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	invoiceapp "github.com/infinity-9427/invoicing/internal/application/invoice"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoiceapp.Service
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoiceapp.Service) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Description  Retrieve a paginated list of the invoices visible to the caller
// @Tags         invoices
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Page size" default(20) maximum(100)
// @Param        sort_by query string false "Order by field"
// @Param        sort_order query string false "Order direction" Enums(asc, desc)
// @Param        search query string false "Search term"
// @Param        invoice_number query string false "Invoice number"
// @Param        client_id query string false "Client ID" format(uuid)
// @Param        status query string false "Payment status" Enums(pending, paid, overdue)
// @Param        issue_date_from query string false "Issued on or after" format(date)
// @Param        issue_date_to query string false "Issued on or before" format(date)
// @Param        due_date_from query string false "Due on or after" format(date)
// @Param        due_date_to query string false "Due on or before" format(date)
// @Param        amount_min query number false "Minimum total"
// @Param        amount_max query number false "Maximum total"
// @Success      200 {object} dto.Response{data=[]invoiceapp.InvoiceResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var req invoiceapp.ListInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.invoiceService.List(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(c, page)
}

// Create godoc
// @ID           createInvoice
// @Summary      Create invoice
// @Description  Issue a new invoice; its PDF is generated asynchronously
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoiceapp.CreateInvoiceRequest true "Invoice details"
// @Success      201 {object} dto.Response{data=invoiceapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoiceapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	inv, err := h.invoiceService.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inv)
}

// GetByID godoc
// @ID           getInvoice
// @Summary      Get invoice
// @Description  Return one invoice with its client and items
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoiceapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	inv, err := h.invoiceService.GetByID(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Update godoc
// @ID           updateInvoice
// @Summary      Update invoice
// @Description  Apply a partial update; omitted fields are left unchanged
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoiceapp.UpdateInvoiceRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=invoiceapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req invoiceapp.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	inv, err := h.invoiceService.Update(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Delete godoc
// @ID           deleteInvoice
// @Summary      Delete invoice
// @Description  Remove an invoice and, asynchronously, its document
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Message(c, "Invoice deleted successfully")
}

// UpdateStatus godoc
// @ID           updateInvoiceStatus
// @Summary      Update invoice status
// @Description  Set the payment status
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoiceapp.UpdateStatusRequest true "New status"
// @Success      200 {object} dto.Response{data=invoiceapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/status [patch]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req invoiceapp.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	inv, err := h.invoiceService.UpdateStatus(c.Request.Context(), middleware.GetActor(c), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inv)
}

// Recent godoc
// @ID           recentInvoices
// @Summary      Recent invoices
// @Description  Return the latest invoices visible to the caller
// @Tags         invoices
// @Produce      json
// @Param        limit query int false "Maximum number of invoices"
// @Success      200 {object} dto.Response{data=[]invoiceapp.InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/recent [get]
func (h *InvoiceHandler) Recent(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}
	invs, err := h.invoiceService.Recent(c.Request.Context(), middleware.GetActor(c), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invs)
}

// Statistics godoc
// @ID           invoiceStatistics
// @Summary      Invoice statistics
// @Description  Return invoice counts and amounts per status
// @Tags         invoices
// @Produce      json
// @Success      200 {object} dto.Response{data=object}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/stats [get]
func (h *InvoiceHandler) Statistics(c *gin.Context) {
	stats, err := h.invoiceService.Statistics(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
