package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/models"
	"github.com/diewo77/voyage-billing/internal/services"
)

// DocumentHandler serves quotations, invoices and receipts.
type DocumentHandler struct {
	Quotations *services.QuotationService
	Invoices   *services.InvoiceService
	Receipts   *services.ReceiptService
	Log        logrus.FieldLogger
}

func NewDocumentHandler(q *services.QuotationService, i *services.InvoiceService, r *services.ReceiptService, log logrus.FieldLogger) *DocumentHandler {
	return &DocumentHandler{Quotations: q, Invoices: i, Receipts: r, Log: log}
}

func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quotations", h.CreateQuotation)
	mux.HandleFunc("GET /api/quotations/{id}", h.GetQuotation)
	mux.HandleFunc("PUT /api/quotations/{id}", h.UpdateQuotation)
	mux.HandleFunc("POST /api/quotations/{id}/status", h.QuotationStatus)
	mux.HandleFunc("POST /api/quotations/{id}/convert", h.ConvertQuotation)

	mux.HandleFunc("POST /api/invoices", h.CreateInvoice)
	mux.HandleFunc("GET /api/invoices/{id}", h.GetInvoice)
	mux.HandleFunc("PUT /api/invoices/{id}", h.UpdateInvoice)
	mux.HandleFunc("POST /api/invoices/{id}/status", h.InvoiceStatus)
	mux.HandleFunc("GET /api/invoices/{id}/receipts", h.ListReceipts)
	mux.HandleFunc("POST /api/invoices/{id}/receipts", h.SaveReceipt)

	mux.HandleFunc("GET /api/receipts/{id}", h.GetReceipt)
	mux.HandleFunc("PUT /api/receipts/{id}", h.UpdateReceipt)
}

// respond writes v with status, or the mapped error.
func (h *DocumentHandler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, status, v)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *DocumentHandler) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req services.QuotationInput
	if !decode(w, r, &req) {
		return
	}
	q, err := h.Quotations.Create(r.Context(), req)
	h.respond(w, r, http.StatusCreated, q, err)
}

func (h *DocumentHandler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.Quotations.Get(r.Context(), id)
	h.respond(w, r, http.StatusOK, q, err)
}

func (h *DocumentHandler) UpdateQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.QuotationUpdate
	if !decode(w, r, &req) {
		return
	}
	q, err := h.Quotations.Update(r.Context(), id, req)
	h.respond(w, r, http.StatusOK, q, err)
}

func (h *DocumentHandler) QuotationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	q, err := h.Quotations.Transition(r.Context(), id, models.QuotationStatus(req.Status))
	h.respond(w, r, http.StatusOK, q, err)
}

func (h *DocumentHandler) ConvertQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Invoices.ConvertQuotation(r.Context(), id)
	h.respond(w, r, http.StatusCreated, inv, err)
}

func (h *DocumentHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req services.InvoiceInput
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.Invoices.Create(r.Context(), req)
	h.respond(w, r, http.StatusCreated, inv, err)
}

func (h *DocumentHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.Invoices.Get(r.Context(), id)
	h.respond(w, r, http.StatusOK, inv, err)
}

func (h *DocumentHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.InvoiceUpdate
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.Invoices.Update(r.Context(), id, req)
	h.respond(w, r, http.StatusOK, inv, err)
}

func (h *DocumentHandler) InvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.Invoices.Transition(r.Context(), id, models.InvoiceStatus(req.Status))
	h.respond(w, r, http.StatusOK, inv, err)
}

func (h *DocumentHandler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Receipts.ListByInvoice(r.Context(), id)
	h.respond(w, r, http.StatusOK, map[string]any{"items": list}, err)
}

func (h *DocumentHandler) SaveReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.ReceiptInput
	if !decode(w, r, &req) {
		return
	}
	rc, err := h.Receipts.Save(r.Context(), id, req)
	h.respond(w, r, http.StatusCreated, rc, err)
}

func (h *DocumentHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rc, err := h.Receipts.Get(r.Context(), id)
	h.respond(w, r, http.StatusOK, rc, err)
}

func (h *DocumentHandler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.ReceiptInput
	if !decode(w, r, &req) {
		return
	}
	rc, err := h.Receipts.Update(r.Context(), id, req)
	h.respond(w, r, http.StatusOK, rc, err)
}
