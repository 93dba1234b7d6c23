// Package sqlite provides an event repository that stores its data inside a SQLite database
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/jmoiron/sqlx"
	"github.com/tbrandt/sked/internal/log"
	"github.com/tbrandt/sked/internal/models"
	"github.com/tbrandt/sked/internal/repos"
)

const (
	eventFields       = `title, agenda, date, time, importance, location, coordinator, recurrence, createdAt, updatedAt`
	participantFields = `name, eventId, createdAt`
)

// EventRepo is a repository that stores events and their participants inside a SQLite database
type EventRepo struct {
	db     *sqlx.DB
	logger *logrus.Entry
}

// New creates a new event repository instance with the given database and logger
func New(db *sqlx.DB, logger *logrus.Entry) *EventRepo {
	return &EventRepo{
		db:     db,
		logger: logger,
	}
}

// Create persists a new event together with its initial participants. The event row and
// all participant rows are written in a single transaction
func (r *EventRepo) Create(ev *models.Event) error {
	r.logger.WithField(log.FldID, ev.ID).Debug("Adding new event")
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO events(id, %s) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", eventFields)
	if _, err = tx.Exec(query,
		ev.ID, ev.Title, ev.Agenda, ev.Date, ev.Time, ev.Importance, ev.Location, ev.Coordinator, ev.Recurrence,
		ev.CreatedAt, ev.UpdatedAt,
	); err != nil {
		return repos.DoRollback(tx, translateError(err))
	}
	if err = insertParticipants(tx, ev); err != nil {
		return repos.DoRollback(tx, fmt.Errorf("Create: Failed to write participants: %v", err))
	}
	return tx.Commit()
}

// Update writes the full field set of the given event. When replaceParticipants is set,
// the stored participant rows are replaced by ev.Participants within the same transaction
func (r *EventRepo) Update(ev *models.Event, replaceParticipants bool) error {
	r.logger.WithField(log.FldID, ev.ID).Debug("Updating event")
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	query := `UPDATE events SET title = ?, agenda = ?, date = ?, time = ?, importance = ?, location = ?,
        coordinator = ?, recurrence = ?, updatedAt = ? WHERE id = ?`
	res, err := tx.Exec(query,
		ev.Title, ev.Agenda, ev.Date, ev.Time, ev.Importance, ev.Location, ev.Coordinator, ev.Recurrence,
		ev.UpdatedAt, ev.ID,
	)
	if err != nil {
		return repos.DoRollback(tx, err)
	}
	if num, err := res.RowsAffected(); err == nil && num == 0 {
		return repos.DoRollback(tx, repos.ErrEntityNotExisting)
	}
	if replaceParticipants {
		if _, err = tx.Exec(`DELETE FROM participants WHERE eventId = ?`, ev.ID); err != nil {
			return repos.DoRollback(tx, fmt.Errorf("Update: Failed to remove participants: %v", err))
		}
		if err = insertParticipants(tx, ev); err != nil {
			return repos.DoRollback(tx, fmt.Errorf("Update: Failed to write participants: %v", err))
		}
	}
	return tx.Commit()
}

// Delete removes an event and all of its participants
func (r *EventRepo) Delete(id string) error {
	r.logger.WithField(log.FldID, id).Debug("Deleting event")
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	// The schema cascades on its own, but the foreign-key pragma is connection-scoped,
	// so the participant rows are removed explicitly as well
	if _, err = tx.Exec(`DELETE FROM participants WHERE eventId = ?`, id); err != nil {
		return repos.DoRollback(tx, fmt.Errorf("Delete: Failed to remove participants: %v", err))
	}
	res, err := tx.Exec(`DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return repos.DoRollback(tx, err)
	}
	if num, err := res.RowsAffected(); err == nil && num == 0 {
		return repos.DoRollback(tx, repos.ErrEntityNotExisting)
	}
	return tx.Commit()
}

// GetByID returns the event with the given ID including its participants
func (r *EventRepo) GetByID(id string) (*models.Event, error) {
	r.logger.WithField(log.FldID, id).Debug("Loading event")
	query := fmt.Sprintf("SELECT id, %s FROM events WHERE id = ?", eventFields)
	var ev models.Event
	if err := r.db.Get(&ev, query, id); err != nil {
		if err == sql.ErrNoRows {
			// Nothing found
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	events := []models.Event{ev}
	if err := r.loadParticipants(events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// Find searches for events matching the given filter - supports pagination. The result
// order is by creation date and ID, which is stable for a fixed store state
func (r *EventRepo) Find(filter *models.EventFilter) ([]models.Event, uint, error) {
	var f models.EventFilter
	if filter != nil {
		f = *filter
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	r.logger.WithFields(logrus.Fields{
		log.FldSearch:      f.Text,
		log.FldCoordinator: f.Coordinator,
		log.FldOffset:      f.Offset,
		log.FldLimit:       f.Limit,
	}).Debug("Searching for events")

	var conditions []string
	var args []interface{}
	if f.Text != "" {
		// For now, we're using a simple LIKE search
		sub := "%" + f.Text + "%"
		conditions = append(conditions, "(title LIKE ? OR agenda LIKE ?)")
		args = append(args, sub, sub)
	}
	if f.Coordinator != "" {
		conditions = append(conditions, "coordinator = ?")
		args = append(args, f.Coordinator)
	}
	if f.From != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, f.To)
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Query the full count first since the argument list is extended for pagination below
	var numRows uint
	query := fmt.Sprintf(`SELECT COUNT(*) FROM events %s`, whereClause)
	if err := r.db.Get(&numRows, query, args...); err != nil {
		return nil, 0, err
	}

	query = fmt.Sprintf(
		`SELECT id, %s FROM events %s ORDER BY createdAt, id LIMIT ? OFFSET ?`,
		eventFields, whereClause,
	)
	args = append(args, f.Limit, f.Offset)
	var ret []models.Event
	if err := r.db.Select(&ret, query, args...); err != nil {
		return nil, 0, err
	}
	if err := r.loadParticipants(ret); err != nil {
		return nil, 0, err
	}
	return ret, numRows, nil
}

// Ping checks whether the underlying store is reachable
func (r *EventRepo) Ping() error {
	return r.db.Ping()
}

// loadParticipants fetches the participants for all given events in one query and
// attaches them to their events
func (r *EventRepo) loadParticipants(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]string, len(events))
	byID := make(map[string]*models.Event, len(events))
	for i := range events {
		events[i].Participants = []models.Participant{}
		ids[i] = events[i].ID
		byID[events[i].ID] = &events[i]
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT id, %s FROM participants WHERE eventId IN (?) ORDER BY id", participantFields),
		ids,
	)
	if err != nil {
		return err
	}
	var participants []models.Participant
	if err := r.db.Select(&participants, query, args...); err != nil {
		return err
	}
	for _, p := range participants {
		if ev, ok := byID[p.EventID]; ok {
			ev.Participants = append(ev.Participants, p)
		}
	}
	return nil
}

// insertParticipants writes the participant rows of the given event within the given
// transaction and fills in the store-assigned IDs
func insertParticipants(tx *sqlx.Tx, ev *models.Event) error {
	query := fmt.Sprintf("INSERT INTO participants(%s) VALUES(?, ?, ?)", participantFields)
	for i := range ev.Participants {
		p := &ev.Participants[i]
		p.EventID = ev.ID
		res, err := tx.Exec(query, p.Name, p.EventID, p.CreatedAt)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil {
			p.ID = id
		}
	}
	return nil
}

// translateError maps constraint violations on the primary key to the repo's sentinel error
func translateError(err error) error {
	if serr, ok := err.(sqlite3.Error); ok && serr.Code == sqlite3.ErrConstraint {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return repos.ErrDuplicateID
		}
	}
	return err
}
