// Package repository provides data access interfaces and implementations
// for the Paper Assistant Service.
//
// # Overview
//
// PaperRepository persists the paper aggregate: the papers row plus its
// owned authors, sections, references and images. Authors, sections and
// references are replaced wholesale on update; images are append-only and
// only their caption can change afterwards.
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Wrap database errors with context using fmt.Errorf with %w verb.
// Common errors include:
//
//   - domain.ErrNotFound: Resource does not exist
//   - domain.ErrInvalidInput: Invalid parameters or a constraint violation
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Pass the transaction from database.DB.WithTransaction for atomic operations:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgPaperRepository(tx).Create(ctx, paper)
//	})
package repository

import (
	"github.com/helixir/paper-assistant-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// PostgreSQL error codes mapped to domain errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
