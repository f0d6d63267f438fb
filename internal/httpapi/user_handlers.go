package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/country"
	"receiptz.org/internal/user"
)

type registerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	MobileNumber string `json:"mobile_number"`
	Country      string `json:"country"`
	DeviceID     string `json:"device_id"`
	DeviceType   string `json:"device_type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type updateDeviceRequest struct {
	DeviceID   string `json:"device_id"`
	DeviceType string `json:"device_type"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.register(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleUserActions(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	switch action {
	case "login":
		a.post(w, r, a.login)
	case "forgotPassword":
		a.post(w, r, a.forgotPassword)
	case "resetPassword":
		a.post(w, r, a.resetPassword)
	case "verify":
		a.get(w, r, a.verifyAccount)
	case "updatePassword":
		a.post(w, r, a.updatePassword)
	case "updateProfile":
		a.post(w, r, a.updateProfile)
	case "updateDevice":
		a.post(w, r, a.updateDevice)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) post(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	h(w, r)
}

func (a *API) get(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	h(w, r)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.DeviceType != "" && req.DeviceType != user.DeviceAndroid && req.DeviceType != user.DeviceIOS {
		writeError(w, r, http.StatusBadRequest, "device_type must be ANDROID or IOS")
		return
	}

	u, err := a.users.Register(r.Context(), user.RegisterParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Password:     req.Password,
		MobileNumber: req.MobileNumber,
		CountryName:  req.Country,
		Role:         auth.RoleIndividual,
		DeviceID:     req.DeviceID,
		DeviceType:   req.DeviceType,
	})
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Profile())
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, expiresAt, err := a.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "reset email sent"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if err := a.users.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "password updated"})
}

func (a *API) verifyAccount(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, r, http.StatusBadRequest, "token query parameter is required")
		return
	}
	if err := a.users.VerifyAccount(r.Context(), token); err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "account verified"})
}

func (a *API) updatePassword(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if err := a.users.UpdatePassword(r.Context(), ac, req.CurrentPassword, req.NewPassword); err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "password updated"})
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.UpdateProfile(r.Context(), ac, req.FirstName, req.LastName)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Profile())
}

func (a *API) updateDevice(w http.ResponseWriter, r *http.Request) {
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	var req updateDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.DeviceType != user.DeviceAndroid && req.DeviceType != user.DeviceIOS {
		writeError(w, r, http.StatusBadRequest, "device_type must be ANDROID or IOS")
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		writeError(w, r, http.StatusBadRequest, "device_id is required")
		return
	}
	if err := a.users.UpdateDevice(r.Context(), ac, req.DeviceID, req.DeviceType); err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "device updated"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	ac, ok := authContext(w, r)
	if !ok {
		return
	}
	u, err := a.users.Me(r.Context(), ac)
	if err != nil {
		handleUserError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Profile())
}

func handleUserError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, country.ErrUnknown), errors.Is(err, country.ErrAmbiguous):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrTokenInvalid), errors.Is(err, user.ErrTokenExpired):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, user.ErrDuplicateEmail):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
