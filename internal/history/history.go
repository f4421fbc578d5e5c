// Package history records saved melodies so they can be listed, downloaded
// again and previewed later.
package history

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("history: record not found")

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store persists generation records.
type Store interface {
	// Save inserts or replaces the record with r.ID.
	Save(ctx context.Context, r *models.GenerationRecord) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.GenerationRecord, error)

	// List returns at most limit records, newest first. A non-empty userID
	// restricts the result to records saved by that user.
	List(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// ClampLimit maps a requested page size onto [1, MaxListLimit]; zero or
// negative values select DefaultListLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func validate(r *models.GenerationRecord) error {
	if r == nil {
		return errors.New("history: nil record")
	}
	if r.ID == "" {
		return errors.New("history: record id is required")
	}
	return nil
}
