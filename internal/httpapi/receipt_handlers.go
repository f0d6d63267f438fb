package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"receiptz.org/internal/receipt"
)

type createReceiptRequest struct {
	Amount       int64              `json:"amount"`
	Kind         string             `json:"kind"`
	MobileNumber string             `json:"mobile_number"`
	LineItems    []receipt.LineItem `json:"line_items"`
}

type listReceiptsResponse struct {
	Items []*receipt.Receipt `json:"items"`
	AsOf  time.Time          `json:"as_of"`
}

type listReceiptViewsResponse struct {
	Items []*receipt.View `json:"items"`
	AsOf  time.Time       `json:"as_of"`
}

func (a *API) handleReceiptsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createReceipt(w, r)
	case http.MethodGet:
		a.listOrgReceipts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleReceiptResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/receipts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	v, err := a.receipts.Get(r.Context(), ac, id)
	if err != nil {
		handleReceiptError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) createReceipt(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	var req createReceiptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := a.receipts.Create(r.Context(), ac, receipt.CreateParams{
		Amount:       req.Amount,
		Kind:         receipt.Kind(req.Kind),
		MobileNumber: req.MobileNumber,
		LineItems:    req.LineItems,
	})
	if err != nil {
		handleReceiptError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/receipts/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) listOrgReceipts(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	items, err := a.receipts.ListByOrganization(r.Context(), ac)
	if err != nil {
		handleReceiptError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listReceiptsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) handleMyReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	items, err := a.receipts.ListByUser(r.Context(), ac)
	if err != nil {
		handleReceiptError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listReceiptViewsResponse{Items: items, AsOf: time.Now().UTC()})
}

func handleReceiptError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, receipt.ErrInvalidAmount), errors.Is(err, receipt.ErrInvalidKind):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, receipt.ErrNotPermitted):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, receipt.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
