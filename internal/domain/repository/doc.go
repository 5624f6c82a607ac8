// Package repository define el modelo de dominio y los contratos de
// repositorio del servicio.
//
// El agregado central es User: perfil, listas de permisos por campo
// (UserPermissions), el grant pendiente (AuthorizingClient) y los grants
// completados (AuthorizedClients). Los tipos Filter/Update/Value forman el
// lenguaje de expresiones con el que se consultan y mutan usuarios en bloque;
// su intérprete vive en internal/query.
//
// Las implementaciones concretas de los repositorios viven en internal/store.
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
//   - Solo se persisten hashes de secrets y tokens, nunca el plaintext
package repository
