package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/security/session"
)

// errorResponse estructura interna para la serialización JSON.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError mapea la taxonomía del dominio a status HTTP. Los rechazos de
// permisos viajan como not_found: no filtramos existencia a actores sin
// acceso.
func WriteError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// No exponemos detalles internos.
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Message: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, repository.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, repository.ErrBannedClient):
		return http.StatusForbidden, "banned_client"
	case errors.Is(err, repository.ErrCodeExpired):
		return http.StatusBadRequest, "code_expired"
	case errors.Is(err, repository.ErrInvalidCodeVerifier):
		return http.StatusBadRequest, "invalid_code_verifier"
	case errors.Is(err, repository.ErrRefreshTokenExpired):
		return http.StatusBadRequest, "refresh_token_expired"
	case errors.Is(err, repository.ErrInvalidRefreshToken):
		return http.StatusBadRequest, "invalid_refresh_token"
	case errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, repository.ErrOperation):
		return http.StatusBadRequest, "invalid_operation"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// WriteJSON serializa una respuesta exitosa.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
