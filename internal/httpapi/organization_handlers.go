package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"receiptz.org/internal/country"
	"receiptz.org/internal/organization"
	"receiptz.org/internal/saga"
	"receiptz.org/internal/user"
)

type onboardRequest struct {
	Name          string  `json:"name"`
	StreetAddress string  `json:"street_address"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	TaxRate       float64 `json:"tax_rate"`
	ZipCode       string  `json:"zip_code"`

	Admin struct {
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		MobileNumber string `json:"mobile_number"`
	} `json:"admin"`
}

type onboardResponse struct {
	Organization *organization.Organization `json:"organization"`
	Admin        user.Profile               `json:"admin"`
}

func (a *API) handleOrganizationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.onboardOrganization(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleOrganizationResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	org, err := a.orgs.Get(r.Context(), id)
	if err != nil {
		handleOrganizationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) onboardOrganization(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if req.TaxRate < 0 || req.TaxRate >= 1 {
		writeError(w, r, http.StatusBadRequest, "tax_rate must be in [0, 1)")
		return
	}
	if strings.TrimSpace(req.Admin.Email) == "" || req.Admin.Password == "" {
		writeError(w, r, http.StatusBadRequest, "admin email and password are required")
		return
	}
	if len(req.Admin.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	org, admin, err := a.orgs.Onboard(r.Context(), organization.OnboardParams{
		Name:          req.Name,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		CountryName:   req.Country,
		TaxRate:       req.TaxRate,
		ZipCode:       req.ZipCode,

		AdminFirstName:    req.Admin.FirstName,
		AdminLastName:     req.Admin.LastName,
		AdminEmail:        req.Admin.Email,
		AdminPassword:     req.Admin.Password,
		AdminMobileNumber: req.Admin.MobileNumber,
	})
	if err != nil {
		handleOrganizationError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/organizations/"+org.ID)
	writeJSON(w, http.StatusCreated, onboardResponse{
		Organization: org,
		Admin:        admin.Profile(),
	})
}

func handleOrganizationError(w http.ResponseWriter, r *http.Request, err error) {
	// A failed compensation leaves residual state behind; that is an internal
	// problem regardless of what caused the rollback.
	var cerr *saga.CompensationError
	if errors.As(err, &cerr) && len(cerr.Failed) > 0 {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	switch {
	case errors.Is(err, country.ErrUnknown), errors.Is(err, country.ErrAmbiguous):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrDuplicateEmail):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, organization.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
