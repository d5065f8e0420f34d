// Package storage provides the durable persistence contract for tickets and
// its two interchangeable implementations: one JSON file per ticket, and a
// Postgres schema. The engine is backend-agnostic beyond this interface.
package storage

import (
	"context"

	"github.com/e1ixyz/ReportSystem-sub000/internal/domain"
)

// Backend persists full ticket snapshots. Save replaces any prior version
// of the same ticket atomically: a crash mid-write must never leave a
// partially-written record readable. LoadAll skips corrupt individual
// records with a warning rather than failing the whole scan.
type Backend interface {
	Init(ctx context.Context) error
	LoadAll(ctx context.Context) ([]domain.Ticket, error)
	Save(ctx context.Context, ticket domain.Ticket) error
	Close() error
}
