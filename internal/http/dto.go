package http

import (
	"fmt"

	"github.com/dropDatabas3/grantjohn/internal/domain/repository"
)

// DTOs de la superficie de consulta. El Value del dominio es una unión
// etiquetada; en el wire viaja como (type, value) crudo y se interpreta acá.

type filterDTO struct {
	Op      string      `json:"op"`
	Field   string      `json:"field,omitempty"`
	Type    string      `json:"type,omitempty"`
	Value   any         `json:"value,omitempty"`
	Filters []filterDTO `json:"filters,omitempty"`
}

func (d *filterDTO) domain() (*repository.Filter, error) {
	if d == nil {
		return nil, nil
	}
	f := &repository.Filter{
		Op:    repository.FilterOp(d.Op),
		Field: d.Field,
		Type:  repository.Kind(d.Type),
	}
	if f.IsNode() {
		for i := range d.Filters {
			child, err := d.Filters[i].domain()
			if err != nil {
				return nil, err
			}
			f.Filters = append(f.Filters, *child)
		}
		return f, nil
	}
	v, err := parseWireValue(f.Type, d.Value)
	if err != nil {
		return nil, fmt.Errorf("filter %s %s: %w", d.Op, d.Field, err)
	}
	f.Value = v
	return f, nil
}

type updateDTO struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

func toUpdates(dtos []updateDTO) ([]repository.Update, error) {
	ups := make([]repository.Update, 0, len(dtos))
	for _, d := range dtos {
		kind := repository.Kind(d.Type)
		v, err := parseWireValue(kind, d.Value)
		if err != nil {
			return nil, fmt.Errorf("update %s %s: %w", d.Op, d.Field, err)
		}
		ups = append(ups, repository.Update{
			Field: d.Field,
			Op:    repository.UpdateOp(d.Op),
			Type:  kind,
			Value: v,
		})
	}
	return ups, nil
}

// parseWireValue interpreta el valor crudo del JSON según el tipo declarado.
// Un array se interpreta como lista de elementos de ese tipo (IN, ALL,
// PUSHEACH, PULLALL).
func parseWireValue(kind repository.Kind, raw any) (repository.Value, error) {
	if items, ok := raw.([]any); ok {
		return repository.ParseList(kind, items)
	}
	return repository.ParseValue(kind, raw)
}

type queryRequest struct {
	Filter    *filterDTO `json:"filter,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Iteration int        `json:"iteration,omitempty"`
	SortBy    string     `json:"sort_by,omitempty"`
	Ascending bool       `json:"ascending,omitempty"`
}

func (q *queryRequest) options() (repository.RetrieveOptions, error) {
	f, err := q.Filter.domain()
	if err != nil {
		return repository.RetrieveOptions{}, err
	}
	return repository.RetrieveOptions{
		Filter:    f,
		Limit:     q.Limit,
		Iteration: q.Iteration,
		SortBy:    q.SortBy,
		Ascending: q.Ascending,
	}, nil
}

type bulkUpdateRequest struct {
	Filter  *filterDTO  `json:"filter,omitempty"`
	Updates []updateDTO `json:"updates"`
}

// ─── OAuth ───

type authorizeRequest struct {
	ClientID            string                     `json:"client_id"`
	RedirectURL         string                     `json:"redirect_url"`
	CodeChallenge       string                     `json:"code_challenge"`
	CodeChallengeMethod string                     `json:"code_challenge_method"`
	Scope               repository.TokenPrivileges `json:"scope"`
}

type authorizeResponse struct {
	Code string `json:"code"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURL  string `json:"redirect_url"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type retokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

type revokeRequest struct {
	ClientID string `json:"client_id"`
}

// ─── Users ───

type registerRequest struct {
	Email       string   `json:"email"`
	Username    string   `json:"username"`
	FirstName   string   `json:"first_name,omitempty"`
	LastName    string   `json:"last_name,omitempty"`
	MiddleName  *string  `json:"middle_name,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Privileges  []string `json:"privileges,omitempty"`
}
