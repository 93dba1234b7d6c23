// Package inmem provides an event repository that works from memory.
// It mirrors the semantics of the SQLite repository and is mainly used in tests
// and for throwaway instances that do not need a durable store.
package inmem

import (
	"sort"
	"strings"
	"sync"

	"github.com/tbrandt/sked/internal/models"
	"github.com/tbrandt/sked/internal/repos"
)

// EventRepo provides a simple in-memory event storage
type EventRepo struct {
	mu     sync.RWMutex
	events map[string]models.Event
	// The maximum participant ID currently in the storage
	maxParticipantID int64
}

// New creates a new event repository instance
func New() *EventRepo {
	return &EventRepo{
		events: make(map[string]models.Event),
	}
}

// Create persists a new event together with its initial participants
func (r *EventRepo) Create(ev *models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.ID]; ok {
		return repos.ErrDuplicateID
	}
	r.assignParticipantIDs(ev)
	r.events[ev.ID] = copyEvent(ev)
	return nil
}

// Update writes the full field set of the given event
func (r *EventRepo) Update(ev *models.Event, replaceParticipants bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.events[ev.ID]
	if !ok {
		return repos.ErrEntityNotExisting
	}
	if replaceParticipants {
		r.assignParticipantIDs(ev)
	} else {
		ev.Participants = existing.Participants
	}
	r.events[ev.ID] = copyEvent(ev)
	return nil
}

// Delete removes an event and all of its participants
func (r *EventRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[id]; !ok {
		return repos.ErrEntityNotExisting
	}
	delete(r.events, id)
	return nil
}

// GetByID returns the event with the given ID including its participants
func (r *EventRepo) GetByID(id string) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ev, ok := r.events[id]; ok {
		ret := copyEvent(&ev)
		return &ret, nil
	}
	return nil, repos.ErrEntityNotExisting
}

// Find searches for events matching the given filter - supports pagination
func (r *EventRepo) Find(filter *models.EventFilter) ([]models.Event, uint, error) {
	var f models.EventFilter
	if filter != nil {
		f = *filter
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matching []models.Event
	for _, ev := range r.events {
		if matches(&ev, &f) {
			matching = append(matching, copyEvent(&ev))
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.Before(matching[j].CreatedAt)
		}
		return matching[i].ID < matching[j].ID
	})
	numRows := uint(len(matching))
	if f.Offset >= numRows {
		return []models.Event{}, numRows, nil
	}
	matching = matching[f.Offset:]
	if uint(len(matching)) > f.Limit {
		matching = matching[:f.Limit]
	}
	return matching, numRows, nil
}

// Ping checks whether the store is reachable - which it always is for a memory store
func (r *EventRepo) Ping() error {
	return nil
}

func (r *EventRepo) assignParticipantIDs(ev *models.Event) {
	for i := range ev.Participants {
		r.maxParticipantID++
		ev.Participants[i].ID = r.maxParticipantID
		ev.Participants[i].EventID = ev.ID
	}
}

func matches(ev *models.Event, f *models.EventFilter) bool {
	if f.Text != "" &&
		!strings.Contains(ev.Title, f.Text) && !strings.Contains(ev.Agenda, f.Text) {
		return false
	}
	if f.Coordinator != "" && ev.Coordinator != f.Coordinator {
		return false
	}
	// Dates are in ISO format, so plain string comparison orders them correctly
	if f.From != "" && ev.Date < f.From {
		return false
	}
	if f.To != "" && ev.Date > f.To {
		return false
	}
	return true
}

func copyEvent(ev *models.Event) models.Event {
	ret := *ev
	ret.Participants = make([]models.Participant, len(ev.Participants))
	copy(ret.Participants, ev.Participants)
	return ret
}
