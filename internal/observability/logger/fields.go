package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar del dominio. Usarlos en vez de zap.String directo
// mantiene los nombres de campo consistentes entre capas.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// UserID crea un campo para el ID del usuario afectado.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// ActorID crea un campo para la identidad que ejecuta la operación.
func ActorID(v string) zap.Field {
	return zap.String("actor_id", v)
}

// ClientID crea un campo para el client OAuth.
func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Count crea un campo para cantidades (registros afectados, etc).
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}
