package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/grantjohn/internal/clients"
	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
	"github.com/dropDatabas3/grantjohn/internal/security/session"
	"github.com/dropDatabas3/grantjohn/internal/service/users"
)

type usersHandler struct {
	svc     *users.Service
	auth    session.Authenticator
	clients *clients.Registry
}

func newUsersHandler(svc *users.Service, auth session.Authenticator, reg *clients.Registry) *usersHandler {
	return &usersHandler{svc: svc, auth: auth, clients: reg}
}

func (h *usersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/v1/users", h.register)
		r.Get("/v1/users/{userID}", h.get)
		r.Post("/v1/users/query", h.query)
		r.Post("/v1/users/update", h.bulkUpdate)
		r.Delete("/v1/users/{userID}", h.delete)
		r.Put("/v1/users/{userID}/permissions", h.permissions)
	})
}

// actorFrom resuelve la identidad que ejecuta la operación: credenciales de
// client por Basic auth, o sesión de usuario por Bearer.
func (h *usersHandler) actorFrom(r *http.Request) (users.Actor, error) {
	if id, secret, ok := r.BasicAuth(); ok {
		c, err := h.clients.ResolveBySecret(r.Context(), id, secret)
		if err != nil {
			return users.Actor{}, err
		}
		return users.Actor{ID: c.ID, IsClient: true}, nil
	}
	userID, err := h.auth.Authenticate(r.Context(), sessionBearer(r))
	if err != nil {
		return users.Actor{}, err
	}
	return users.Actor{ID: userID}, nil
}

// POST /v1/users
func (h *usersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	u, err := h.svc.Register(r.Context(), users.NewUser{
		Email:       req.Email,
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		MiddleName:  req.MiddleName,
		PhoneNumber: req.PhoneNumber,
		AvatarURL:   req.AvatarURL,
		Privileges:  req.Privileges,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"id": u.ID})
}

// GET /v1/users/{userID}
func (h *usersHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFrom(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.svc.Get(r.Context(), actor, chi.URLParam(r, "userID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// POST /v1/users/query
func (h *usersHandler) query(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFrom(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}
	opts, err := req.options()
	if err != nil {
		WriteError(w, err)
		return
	}

	out, err := h.svc.List(r.Context(), actor, opts)
	if err != nil {
		WriteError(w, err)
		return
	}
	if out == nil {
		out = []repository.PartialUser{}
	}
	WriteJSON(w, http.StatusOK, out)
}

// POST /v1/users/update
func (h *usersHandler) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFrom(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}
	f, err := req.Filter.domain()
	if err != nil {
		WriteError(w, err)
		return
	}
	ups, err := toUpdates(req.Updates)
	if err != nil {
		WriteError(w, err)
		return
	}

	matched, err := h.svc.BulkUpdate(r.Context(), actor, f, ups)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"matched": matched})
}

// DELETE /v1/users/{userID}
func (h *usersHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFrom(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "userID")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PUT /v1/users/{userID}/permissions
func (h *usersHandler) permissions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actorFrom(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var perms repository.UserPermissions
	if err := json.NewDecoder(r.Body).Decode(&perms); err != nil {
		WriteError(w, repository.ErrInvalidInput)
		return
	}

	if err := h.svc.UpdatePermissions(r.Context(), actor, chi.URLParam(r, "userID"), perms); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
