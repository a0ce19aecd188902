package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/itinerary"
	"github.com/diewo77/voyage-billing/internal/services"
	"github.com/diewo77/voyage-billing/internal/validation"
)

// BillingHandler serves the stateless extraction and totals endpoints and the lead lookups.
type BillingHandler struct {
	Leads *services.LeadService
	Log   logrus.FieldLogger
}

func NewBillingHandler(leads *services.LeadService, log logrus.FieldLogger) *BillingHandler {
	return &BillingHandler{Leads: leads, Log: log}
}

func (h *BillingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/billing/extract", h.Extract)
	mux.HandleFunc("POST /api/billing/totals", h.Totals)
	mux.HandleFunc("GET /api/leads/{id}/itinerary", h.Itinerary)
	mux.HandleFunc("GET /api/leads/{id}/documents", h.Documents)
}

type extractRequest struct {
	Days []itinerary.NormalizedDay `json:"days"`
}

func (h *BillingHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if !decode(w, r, &req) {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": billing.ExtractItems(req.Days)})
}

type totalsRequest struct {
	Items             []billing.LineItem     `json:"items"`
	Mode              billing.Mode           `json:"mode"`
	Discount          billing.DiscountPolicy `json:"discount"`
	ServiceChargeRate decimal.Decimal        `json:"service_charge_rate"`
	TaxRate           decimal.Decimal        `json:"tax_rate"`
}

type totalsResponse struct {
	Totals   billing.Totals `json:"totals"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (h *BillingHandler) Totals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = billing.ModeSummary
	}
	v := validation.Violations{}
	if !req.Mode.Valid() {
		v["mode"] = "invalid_value"
	}
	if !req.Discount.Type.Valid() {
		v["discount.type"] = "invalid_value"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	for i := range req.Items {
		req.Items[i].Normalize()
	}
	t := billing.ComputeTotals(req.Items, req.Discount, req.ServiceChargeRate, req.TaxRate, req.Mode)
	httpx.JSON(w, http.StatusOK, totalsResponse{Totals: t, Warnings: billing.Warnings(t, req.Discount)})
}

func (h *BillingHandler) Itinerary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Leads.Itinerary(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *BillingHandler) Documents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	docs, err := h.Leads.Documents(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}
