package internal

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/tbrandt/sked/internal/log"
	"github.com/tbrandt/sked/internal/models"
	"github.com/tbrandt/sked/internal/repos"
)

// Number of times a fresh event ID is generated when the store keeps reporting collisions.
// UUID collisions are essentially theoretical, so running out of attempts means something
// is seriously wrong with either the store or the entropy source.
const maxIDAttempts = 3

// Health status values reported by the service's health probe
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// HealthStatus reports whether the service can reach its store
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// EventService provides service functions for working with events. It is the sole
// reader and writer of the event store; both protocol adapters consume this interface
// and therefore observe identical state and error semantics.
type EventService interface {
	// List returns events matching the given query without validating its criteria
	List(ctx context.Context, search *Search) ([]models.Event, uint, error)
	// Search validates the query's date range and returns the matching events
	Search(ctx context.Context, search *Search) ([]models.Event, uint, error)
	// Get returns the event with the given ID including its participants
	Get(ctx context.Context, id string) (*models.Event, error)
	// Create validates and persists a new event with the given initial participant names
	Create(ctx context.Context, event *models.Event, participantNames []string) (*models.Event, error)
	// Update applies a partial field update to an existing event
	Update(ctx context.Context, id string, upd *EventUpdate) (*models.Event, error)
	// Delete removes an event and all of its participants
	Delete(ctx context.Context, id string) error
	// Health reports whether the store is reachable
	Health(ctx context.Context) HealthStatus
}

// -- EventService implementation --------------------------------------------------------------------------------------

type eventService struct {
	repo   repos.EventRepo
	logger *logrus.Entry
}

// NewEventService creates a new event service instance
func NewEventService(repo repos.EventRepo, logger *logrus.Entry) EventService {
	return &eventService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and persists a new event. The event row and all participant rows are
// written in a single transaction; validation happens before that transaction is opened.
// A collision of the generated ID is retried internally and never surfaces to the caller
// unless all attempts are exhausted.
func (s *eventService) Create(ctx context.Context, event *models.Event, participantNames []string) (*models.Event, error) {
	if err := event.Validate(); err != nil {
		return nil, makeValidationError(err)
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Participants = participantsFromNames(participantNames, now)

	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		event.ID = uuid.New().String()
		if err = s.repo.Create(event); err != repos.ErrDuplicateID {
			break
		}
		s.logger.WithField(log.FldID, event.ID).Warn("Generated event ID collided - retrying with a new one")
	}
	if err != nil {
		if err == repos.ErrDuplicateID {
			return nil, MakeError(http.StatusConflict, ErrCodeIDConflict,
				"Could not generate a unique event ID",
			)
		}
		return nil, makeStorageError("Error while creating event", err)
	}
	return event, nil
}

// Get returns the event with the given ID
func (s *eventService) Get(ctx context.Context, id string) (*models.Event, error) {
	ev, err := s.repo.GetByID(id)
	if err != nil {
		if err == repos.ErrEntityNotExisting {
			return nil, makeNotFoundError(id)
		}
		return nil, makeStorageError(fmt.Sprintf("Error while retrieving event '%s'", id), err)
	}
	return ev, nil
}

// List returns the events matching the given query
func (s *eventService) List(ctx context.Context, search *Search) ([]models.Event, uint, error) {
	if search == nil {
		search = &Search{}
	}
	events, numRows, err := s.repo.Find(search.filter())
	if err != nil {
		return nil, 0, makeStorageError("Error while searching events", err)
	}
	return events, numRows, nil
}

// Search validates the query's date range and returns the matching events
func (s *eventService) Search(ctx context.Context, search *Search) ([]models.Event, uint, error) {
	if search == nil {
		search = &Search{}
	}
	var from, to time.Time
	var err error
	if search.From != "" {
		if from, err = models.ParseDate(search.From); err != nil {
			return nil, 0, makeValidationError(&models.FieldError{
				Field:   "from",
				Message: fmt.Sprintf("'%s' is no valid date (expected %s)", search.From, models.DateFormat),
			})
		}
	}
	if search.To != "" {
		if to, err = models.ParseDate(search.To); err != nil {
			return nil, 0, makeValidationError(&models.FieldError{
				Field:   "to",
				Message: fmt.Sprintf("'%s' is no valid date (expected %s)", search.To, models.DateFormat),
			})
		}
	}
	if search.From != "" && search.To != "" && to.Before(from) {
		return nil, 0, makeValidationError(&models.FieldError{
			Field:   "to",
			Message: "date range is inverted",
		})
	}
	return s.List(ctx, search)
}

// Update applies a partial field update to an existing event. Unset fields keep their
// stored values; a supplied participant list replaces the full set. Concurrent updates
// to the same event follow last-write-wins.
func (s *eventService) Update(ctx context.Context, id string, upd *EventUpdate) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(event, upd)
	if err := event.Validate(); err != nil {
		return nil, makeValidationError(err)
	}
	now := time.Now().UTC()
	event.UpdatedAt = now
	replaceParticipants := upd.Participants != nil
	if replaceParticipants {
		event.Participants = participantsFromNames(*upd.Participants, now)
	}
	if err := s.repo.Update(event, replaceParticipants); err != nil {
		if err == repos.ErrEntityNotExisting {
			return nil, makeNotFoundError(id)
		}
		return nil, makeStorageError(fmt.Sprintf("Error while updating event '%s'", id), err)
	}
	return event, nil
}

// Delete removes an existing event and its participants from the repository
func (s *eventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		if err == repos.ErrEntityNotExisting {
			return makeNotFoundError(id)
		}
		return makeStorageError(fmt.Sprintf("Error while deleting event '%s'", id), err)
	}
	return nil
}

// Health reports whether the store is reachable
func (s *eventService) Health(ctx context.Context) HealthStatus {
	if err := s.repo.Ping(); err != nil {
		s.logger.WithError(err).Warn("Store ping failed")
		return HealthStatus{Status: StatusDegraded, Database: "unreachable"}
	}
	return HealthStatus{Status: StatusHealthy, Database: "connected"}
}

// applyUpdate copies all supplied fields of the partial update onto the event
func applyUpdate(ev *models.Event, upd *EventUpdate) {
	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.Agenda != nil {
		ev.Agenda = *upd.Agenda
	}
	if upd.Date != nil {
		ev.Date = *upd.Date
	}
	if upd.Time != nil {
		ev.Time = *upd.Time
	}
	if upd.Importance != nil {
		ev.Importance = *upd.Importance
	}
	if upd.Location != nil {
		ev.Location = *upd.Location
	}
	if upd.Coordinator != nil {
		ev.Coordinator = *upd.Coordinator
	}
	if upd.Recurrence != nil {
		ev.Recurrence = *upd.Recurrence
	}
}

// participantsFromNames builds participant records from a list of names.
// Empty names are skipped.
func participantsFromNames(names []string, createdAt time.Time) []models.Participant {
	ret := []models.Participant{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ret = append(ret, models.Participant{
			Name:      name,
			CreatedAt: createdAt,
		})
	}
	return ret
}
