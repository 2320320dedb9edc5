// Package postgres provides a server-backed mirror store using pgx.
//
// It is the multi-process alternative to the sqlite adapter: several
// intake processes can share one mirror, the unique index on
// content_hash backs the duplicate guard, and a session advisory lock
// keeps reconciliation runs exclusive across hosts.
package postgres
