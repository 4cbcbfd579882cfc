// Package store persists committed import batches and serves export listings.
//
// The exchange engine never stores data itself; the web layer adapts a
// Records implementation into the workflow's completion handler with Handler.
package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/logging"
)

// Records stores exchange records per entity.
type Records interface {
	// Insert stores records as one batch, all or nothing, and returns the
	// number stored.
	Insert(ctx context.Context, entity string, records []exchange.Record) (int, error)

	// List returns every stored record of entity in insertion order.
	List(ctx context.Context, entity string) ([]exchange.Record, error)
}

// Handler returns a completion handler that inserts committed records of
// entity into s.
func Handler(s Records, entity string) exchange.CompletionHandler {
	return func(ctx context.Context, records []exchange.Record) error {
		n, err := s.Insert(ctx, entity, records)
		if err != nil {
			return fmt.Errorf("save %s: %w", entity, err)
		}
		logging.WithFields(ctx, "entity", entity).Info("import batch stored", "rows", n)
		return nil
	}
}
