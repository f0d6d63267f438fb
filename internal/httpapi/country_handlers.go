package httpapi

import (
	"net/http"

	"receiptz.org/internal/country"
)

func (a *API) handleCountries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": country.All()})
}
