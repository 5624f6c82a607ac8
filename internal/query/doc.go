// Package query compila el lenguaje de expresiones Filter/Update del
// dominio a predicados y transformadores sobre el agregado User.
//
// Un Filter compila a un Predicate; AND corta en el primer false, OR en el
// primer true. Un []Update compila a un Transform que aplica las
// operaciones en orden de lista sobre la misma instancia; la falla de una
// operación aborta el transform completo (el rollback, si hace falta, es
// responsabilidad de la transacción del store).
//
// El despacho de operadores es un switch sobre (operación, kind). Una
// combinación no soportada es un error de programación en la expresión,
// no un error de datos: Compile la rechaza antes de tocar ningún registro.
//
// Decisión heredada y deliberada: GT/LT/GTE/LTE sobre strings comparan
// largo en runas, no orden lexicográfico.
package query
