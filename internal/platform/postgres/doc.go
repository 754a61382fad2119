// Package postgres provides PostgreSQL implementations of the store
// interfaces. Queries run through database/sql with the pgx driver, and
// every store can be bound to a caller-managed transaction with WithTx.
// The schema lives in the migrations subpackage and is applied with goose.
package postgres
