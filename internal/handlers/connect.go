package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ianb/trivia-maker/internal/services"
)

type ConnectHandler struct {
	connect *services.ConnectService
}

func NewConnectHandler(connect *services.ConnectService) *ConnectHandler {
	return &ConnectHandler{connect: connect}
}

// Connect begins the PKCE handshake and returns the authorization URL the
// user must visit.
func (h *ConnectHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallbackURL string `json:"callback_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	authURL, err := h.connect.BeginAuthorization(r.Context(), req.CallbackURL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": authURL})
}

// Callback exchanges the authorization code for the bearer credential.
func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.connect.CompleteAuthorization(r.Context(), req.Code); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Connected"})
}

func (h *ConnectHandler) Status(w http.ResponseWriter, r *http.Request) {
	connected, err := h.connect.Connected(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": connected})
}

func (h *ConnectHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.connect.Disconnect(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Disconnected"})
}
