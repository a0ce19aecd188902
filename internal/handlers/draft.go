package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/services"
)

// Rates are the tax and service charge applied to draft previews when the request gives none.
type Rates struct {
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
}

// DraftHandler exposes the per-lead quotation editor.
type DraftHandler struct {
	Drafts   *services.DraftService
	Defaults Rates
	Log      logrus.FieldLogger
}

func NewDraftHandler(drafts *services.DraftService, defaults Rates, log logrus.FieldLogger) *DraftHandler {
	return &DraftHandler{Drafts: drafts, Defaults: defaults, Log: log}
}

func (h *DraftHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leads/{id}/draft", h.Get)
	mux.HandleFunc("POST /api/leads/{id}/draft", h.Open)
	mux.HandleFunc("DELETE /api/leads/{id}/draft", h.Discard)
	mux.HandleFunc("POST /api/leads/{id}/draft/mode", h.SetMode)
	mux.HandleFunc("POST /api/leads/{id}/draft/items", h.AddItem)
	mux.HandleFunc("PATCH /api/leads/{id}/draft/items/{index}", h.EditItem)
	mux.HandleFunc("DELETE /api/leads/{id}/draft/items/{index}", h.RemoveItem)
	mux.HandleFunc("POST /api/leads/{id}/draft/package-price", h.SetPackagePrice)
	mux.HandleFunc("POST /api/leads/{id}/draft/save", h.Save)
}

type draftView struct {
	billing.Snapshot
	Totals   billing.Totals `json:"totals"`
	Warnings []string       `json:"warnings,omitempty"`
}

// preview builds the draft payload. Rates and discount come from the query string.
func (h *DraftHandler) preview(r *http.Request, e *billing.Editor) draftView {
	q := r.URL.Query()
	taxRate := queryDecimal(q.Get("tax_rate"), h.Defaults.TaxRate)
	serviceRate := queryDecimal(q.Get("service_charge_rate"), h.Defaults.ServiceChargeRate)
	discount := billing.DiscountPolicy{
		Type:  billing.DiscountType(q.Get("discount_type")),
		Value: queryDecimal(q.Get("discount_value"), decimal.Zero),
	}
	if !discount.Type.Valid() {
		discount = billing.DiscountPolicy{Type: billing.DiscountNone}
	}
	t := e.Totals(discount, serviceRate, taxRate)
	return draftView{Snapshot: e.Snapshot(), Totals: t, Warnings: billing.Warnings(t, discount)}
}

func queryDecimal(raw string, fallback decimal.Decimal) decimal.Decimal {
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fallback
	}
	return d
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.Drafts.Get(leadID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.preview(r, e))
}

// Open loads the lead's draft. ?fresh=true discards the current one first.
func (h *DraftHandler) Open(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))
	e, err := h.Drafts.Open(r.Context(), leadID, fresh)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.preview(r, e))
}

func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.Drafts.Discard(leadID)
	w.WriteHeader(http.StatusNoContent)
}

type modeRequest struct {
	Mode billing.Mode `json:"mode"`
}

func (h *DraftHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	h.edit(w, r, &req, func(e *billing.Editor) error { return e.SetMode(r.Context(), req.Mode) })
}

func (h *DraftHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req billing.LineItem
	h.edit(w, r, &req, func(e *billing.Editor) error { return e.AddItem(req) })
}

func (h *DraftHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_index", nil)
		return
	}
	var req billing.ItemEdit
	h.edit(w, r, &req, func(e *billing.Editor) error { return e.EditItem(index, req) })
}

func (h *DraftHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_index", nil)
		return
	}
	h.edit(w, r, nil, func(e *billing.Editor) error { return e.RemoveItem(index) })
}

type packagePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *DraftHandler) SetPackagePrice(w http.ResponseWriter, r *http.Request) {
	var req packagePriceRequest
	h.edit(w, r, &req, func(e *billing.Editor) error { return e.SetPackagePrice(req.Price) })
}

// edit decodes body into req when given, applies fn to the lead's open draft and
// answers with the updated draft.
func (h *DraftHandler) edit(w http.ResponseWriter, r *http.Request, req any, fn func(*billing.Editor) error) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if req != nil && !decode(w, r, req) {
		return
	}
	e, err := h.Drafts.Get(leadID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := fn(e); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.preview(r, e))
}

func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	leadID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req services.DraftSaveInput
	if !decode(w, r, &req) {
		return
	}
	q, err := h.Drafts.Save(r.Context(), leadID, req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}
