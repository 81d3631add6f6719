package ports

import (
	"context"

	"p4son/internal/domain"
)

// AliasResolver resolves alias names to changelist numbers.
type AliasResolver interface {
	// Resolve returns the changelist an alias points at, or
	// domain.ErrAliasNotFound.
	Resolve(ctx context.Context, name string) (domain.ChangelistPosition, error)
}

// AliasStore is the full alias bookkeeping interface.
type AliasStore interface {
	AliasResolver

	// Save stores name -> pos. Without force, saving over an existing alias
	// returns domain.ErrAliasExists.
	Save(ctx context.Context, name string, pos domain.ChangelistPosition, force bool) error

	// List returns all aliases ordered by name.
	List(ctx context.Context) ([]domain.Alias, error)

	// Delete removes an alias, returning domain.ErrAliasNotFound if absent.
	Delete(ctx context.Context, name string) error

	// Close releases the underlying database.
	Close() error
}
