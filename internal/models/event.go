package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator"
)

// Date and time-of-day formats used on the wire and inside the database
const (
	DateFormat      = "2006-01-02"
	TimeFormat      = "15:04:05"
	timeFormatShort = "15:04"
)

// Importance levels an event may have
const (
	ImportanceLow    = "low"
	ImportanceMedium = "medium"
	ImportanceHigh   = "high"
)

// Recurrence modes an event may have
const (
	RecurrenceNone     = "none"
	RecurrenceDaily    = "daily"
	RecurrenceWeekly   = "weekly"
	RecurrenceMonthly  = "monthly"
	RecurrenceAnnually = "annually"
)

// go-playground/validator suggests using a single instance of the validator
var validate = validator.New()

// Event describes a scheduled event with its time, location and ownership metadata
type Event struct {
	// Server-generated UUID - immutable once assigned
	ID string `db:"id" json:"id"`
	// Short title of the event
	Title string `db:"title" json:"title" validate:"required"`
	// Optional free-text agenda
	Agenda string `db:"agenda" json:"agenda,omitempty"`
	// Calendar date the event takes place on (2006-01-02)
	Date string `db:"date" json:"date" validate:"required"`
	// Time of day the event starts at (15:04:05)
	Time string `db:"time" json:"time" validate:"required"`
	// One of the Importance* constants - defaults to "medium"
	Importance string `db:"importance" json:"importance"`
	// Optional location text
	Location string `db:"location" json:"location,omitempty"`
	// The identity responsible for the event
	Coordinator string `db:"coordinator" json:"coordinator" validate:"required"`
	// One of the Recurrence* constants - defaults to "none"
	Recurrence string `db:"recurrence" json:"recurrence"`
	// Creation date of this entry
	CreatedAt time.Time `db:"createdAt" json:"createdAt"`
	// Date of the last update of this entry
	UpdatedAt time.Time `db:"updatedAt" json:"updatedAt"`
	// The attendees bound to this event - loaded separately, never scanned from the events table
	Participants []Participant `db:"-" json:"participants"`
}

// Participant describes an attendee bound to exactly one event
type Participant struct {
	// Store-assigned numeric ID
	ID int64 `db:"id" json:"id"`
	// Name of the attendee
	Name string `db:"name" json:"name" validate:"required"`
	// ID of the event this participant belongs to
	EventID string `db:"eventId" json:"eventId"`
	// Creation date of this entry
	CreatedAt time.Time `db:"createdAt" json:"createdAt"`
}

// FieldError reports a single field that failed validation. Missing is set when the
// field was required but absent, as opposed to carrying an illegal value.
type FieldError struct {
	Field   string
	Message string
	Missing bool
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidImportance checks if the given string is a member of the importance enumeration
func ValidImportance(s string) bool {
	switch s {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// ValidRecurrence checks if the given string is a member of the recurrence enumeration
func ValidRecurrence(s string) bool {
	switch s {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceAnnually:
		return true
	}
	return false
}

// ParseDate parses a calendar date in the canonical wire format
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}

// Validate normalizes the event in place and checks all field constraints. Empty
// enumeration fields are filled with their defaults and the time of day is
// canonicalized to HH:MM:SS. It returns a *FieldError naming the first offending
// field.
func (ev *Event) Validate() error {
	ev.Title = strings.TrimSpace(ev.Title)
	ev.Coordinator = strings.TrimSpace(ev.Coordinator)
	if ev.Importance == "" {
		ev.Importance = ImportanceMedium
	}
	if ev.Recurrence == "" {
		ev.Recurrence = RecurrenceNone
	}

	if err := validate.Struct(ev); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &FieldError{
				Field:   strings.ToLower(errs[0].Field()),
				Message: "required field is missing or empty",
				Missing: true,
			}
		}
		return &FieldError{Field: "", Message: err.Error()}
	}

	if !ValidImportance(ev.Importance) {
		return &FieldError{Field: "importance", Message: fmt.Sprintf("illegal importance value '%s'", ev.Importance)}
	}
	if !ValidRecurrence(ev.Recurrence) {
		return &FieldError{Field: "recurrence", Message: fmt.Sprintf("illegal recurrence value '%s'", ev.Recurrence)}
	}

	d, err := ParseDate(ev.Date)
	if err != nil {
		return &FieldError{Field: "date", Message: fmt.Sprintf("'%s' is no valid date (expected %s)", ev.Date, DateFormat)}
	}
	ev.Date = d.Format(DateFormat)

	t, err := time.Parse(TimeFormat, ev.Time)
	if err != nil {
		// Also accept the short form most calendar clients send
		if t, err = time.Parse(timeFormatShort, ev.Time); err != nil {
			return &FieldError{Field: "time", Message: fmt.Sprintf("'%s' is no valid time of day (expected %s)", ev.Time, TimeFormat)}
		}
	}
	ev.Time = t.Format(TimeFormat)

	return nil
}

// EventFilter narrows down the events returned by a repository query.
// All criteria that are set compose with logical AND.
type EventFilter struct {
	// Substring matched against both title and agenda
	Text string
	// Exact match on the coordinator field
	Coordinator string
	// Inclusive lower bound on the event date (2006-01-02) - empty means unbounded
	From string
	// Inclusive upper bound on the event date (2006-01-02) - empty means unbounded
	To string
	// Position in the resultset to start the returned result at
	Offset uint
	// Number of items to return
	Limit uint
}
