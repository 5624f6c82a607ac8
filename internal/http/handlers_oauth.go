package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/service/oauth"
)

type oauthHandler struct {
	svc *oauth.Service
}

func newOAuthHandler(svc *oauth.Service) *oauthHandler {
	return &oauthHandler{svc: svc}
}

func (h *oauthHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/oauth/authorize", h.authorize)
		r.Post("/v1/oauth/token", h.token)
		r.Post("/v1/oauth/retoken", h.retoken)
		r.Post("/v1/oauth/revoke", h.revoke)
	})
}

// sessionBearer extrae el JWT de sesión del header Authorization.
func sessionBearer(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// POST /v1/oauth/authorize
func (h *oauthHandler) authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	code, err := h.svc.Authorize(r.Context(), sessionBearer(r),
		req.ClientID, req.RedirectURL, req.CodeChallenge, req.CodeChallengeMethod, req.Scope)
	if err != nil {
		WriteError(w, err)
		return
	}

	RecordTokenIssued("authorize")
	noStore(w)
	WriteJSON(w, http.StatusOK, authorizeResponse{Code: code})
}

// POST /v1/oauth/token
func (h *oauthHandler) token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	access, refresh, err := h.svc.Token(r.Context(), req.ClientID, req.Code, req.CodeVerifier, req.RedirectURL)
	if err != nil {
		WriteError(w, err)
		return
	}

	RecordTokenIssued("token")
	noStore(w)
	WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "opaque",
	})
}

// POST /v1/oauth/retoken
func (h *oauthHandler) retoken(w http.ResponseWriter, r *http.Request) {
	var req retokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	access, err := h.svc.ReToken(r.Context(), req.ClientID, req.ClientSecret, req.RefreshToken)
	if err != nil {
		WriteError(w, err)
		return
	}

	RecordTokenIssued("retoken")
	noStore(w)
	WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "opaque"})
}

// POST /v1/oauth/revoke
func (h *oauthHandler) revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	if err := h.svc.Revoke(r.Context(), sessionBearer(r), req.ClientID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
