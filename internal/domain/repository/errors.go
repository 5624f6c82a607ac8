package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica que el recurso solicitado no existe, o que el actor
	// no tiene permiso para verlo. Ambos casos son deliberadamente
	// indistinguibles para no filtrar existencia a actores no autorizados.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indica que el actor no puede otorgar el scope pedido.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBannedClient indica un client baneado por exposición repetida.
	// Es terminal: ningún reintento ayuda.
	ErrBannedClient = errors.New("client banned")

	// ErrCodeExpired indica que el authorization code ya expiró.
	ErrCodeExpired = errors.New("authorization code expired")

	// ErrRefreshTokenExpired indica que el refresh token ya expiró.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrInvalidRefreshToken indica que el refresh token no coincide con el
	// hash almacenado.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidCodeVerifier indica que falló la verificación PKCE.
	ErrInvalidCodeVerifier = errors.New("invalid code verifier")

	// ErrConflict indica una violación de unicidad (ej: colisión de hash de
	// token). El caller puede regenerar y reintentar una vez.
	ErrConflict = errors.New("conflict")

	// ErrStorage indica una falla transitoria de infraestructura. Es seguro
	// reintentar la operación completa: las escrituras multi-documento son
	// atómicas.
	ErrStorage = errors.New("storage failure")

	// ErrOperation indica una invariante interna violada (ej: un registro
	// recién escrito que no se puede releer). Señal de bug, no de datos.
	ErrOperation = errors.New("operation invariant violated")
)

// NotFoundError lleva el nombre de la entidad ausente ("user", "client",
// "refreshToken", "userClient"). Envuelve ErrNotFound.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %v", e.Entity, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound construye un NotFoundError para la entidad dada.
func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// StorageError envuelve una falla del store con la operación que falló.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorage, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorage }

// Storagef construye un StorageError para la operación dada.
func Storagef(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// OperationError envuelve una invariante violada con contexto.
type OperationError struct {
	Detail string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrOperation, e.Detail)
}

func (e *OperationError) Unwrap() error { return ErrOperation }

// Operationf construye un OperationError.
func Operationf(format string, args ...any) error {
	return &OperationError{Detail: fmt.Sprintf(format, args...)}
}

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStorage verifica si el error es una falla de infraestructura.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
