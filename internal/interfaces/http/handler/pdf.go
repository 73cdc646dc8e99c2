package handler

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/interfaces/http/middleware"
)

// PDFHandler serves invoice documents
type PDFHandler struct {
	BaseHandler
	manager *printing.Manager
}

// NewPDFHandler creates a new PDFHandler
func NewPDFHandler(manager *printing.Manager) *PDFHandler {
	return &PDFHandler{manager: manager}
}

// Download godoc
// @ID           downloadInvoicePDF
// @Summary      Download invoice PDF
// @Description  Stream the invoice PDF as an attachment, or redirect to the object URL when downloads are configured to redirect
// @Tags         invoices
// @Produce      application/pdf
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {file} binary
// @Success      302 {string} string "Redirect to the object URL"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/pdf/download [get]
func (h *PDFHandler) Download(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	doc, err := h.manager.Download(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if doc.Content == nil {
		c.Redirect(http.StatusFound, doc.URL)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

// Regenerate godoc
// @ID           regenerateInvoicePDF
// @Summary      Regenerate invoice PDF
// @Description  Render the invoice again and replace its stored PDF
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=printing.PDFInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/pdf/regenerate [post]
func (h *PDFHandler) Regenerate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	info, err := h.manager.Regenerate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// Info godoc
// @ID           invoicePDFInfo
// @Summary      Invoice PDF info
// @Description  Report whether a PDF is stored for the invoice and where
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=printing.PDFInfo}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/pdf/info [get]
func (h *PDFHandler) Info(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	info, err := h.manager.Info(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}
