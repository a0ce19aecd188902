package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/voyage-billing/internal/billing"
	"github.com/diewo77/voyage-billing/internal/httpx"
	"github.com/diewo77/voyage-billing/internal/logging"
	"github.com/diewo77/voyage-billing/internal/services"
)

var errInvalidID = errors.New("invalid_id")

// writeError maps service and editor errors onto the JSON error envelope.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		ue *services.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		var details any
		if !ve.Fields.Empty() {
			details = ve.Fields
		} else if ve.Details != "" {
			details = ve.Details
		}
		httpx.JSONError(w, http.StatusUnprocessableEntity, ve.Err.Error(), details)
	case errors.As(err, &nf):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nf.Error())
	case errors.Is(err, billing.ErrBusy):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	case isEditorError(err):
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.As(err, &ue), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logging.FromContext(r.Context(), log).WithError(err).Warn("request failed upstream")
		httpx.JSONError(w, http.StatusServiceUnavailable, "upstream_unavailable", nil)
	default:
		logging.FromContext(r.Context(), log).WithError(err).Error("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func isEditorError(err error) bool {
	for _, target := range []error{
		billing.ErrNotDetailedMode, billing.ErrReadOnlyItem, billing.ErrItemIndex, billing.ErrInvalidItem,
		billing.ErrNegativePrice, billing.ErrInvalidQuantity, billing.ErrInvalidMode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// decode reads the JSON body into dst and answers 400 when it cannot.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 0)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, errInvalidID.Error(), name)
		return 0, false
	}
	return uint(id), true
}
