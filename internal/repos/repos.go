// Package repos contains the repository interfaces needed in Sked
// It exists to prevent circular dependencies between sked and the repo implementations
package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tbrandt/sked/internal/models"
)

var (
	// ErrEntityNotExisting is fired by a repository when an entity that is read, updated or deleted does not exist
	ErrEntityNotExisting = fmt.Errorf("entity does not exist")
	// ErrDuplicateID is fired by a repository when an entity with the given ID already exists
	ErrDuplicateID = fmt.Errorf("an entity with the given ID already exists")
)

// EventRepo defines a repository that handles storing and querying events and their participants.
// All mutating operations are transactional: either the event row and all of its participant
// rows change together, or nothing changes at all.
type EventRepo interface {
	// Create persists a new event together with its initial participants
	Create(ev *models.Event) error
	// Update writes the full field set of the given event. When replaceParticipants is set,
	// the stored participant rows are replaced by ev.Participants within the same transaction
	Update(ev *models.Event, replaceParticipants bool) error
	// Delete removes an event and all of its participants
	Delete(id string) error
	// GetByID returns the event with the given ID including its participants
	GetByID(id string) (*models.Event, error)
	// Find searches for events matching the given filter - supports pagination.
	// The result order is stable for a fixed store state
	Find(filter *models.EventFilter) ([]models.Event, uint, error)
	// Ping checks whether the underlying store is reachable
	Ping() error
}

// -- Helpers for SQLX repos -------------------------------------------------------------------------------------------

// DoRollback rolls back a transaction and catches any error resulting from it while appending the original error
func DoRollback(tx *sqlx.Tx, originalError error) error {
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("doRollback: Transaction rollback failed: %v; Recent error: %v", err, originalError)
	}
	return originalError
}
