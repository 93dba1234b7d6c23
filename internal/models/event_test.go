package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() Event {
	return Event{
		Title:       "Team Standup",
		Date:        "2019-07-01",
		Time:        "09:00:00",
		Coordinator: "alice@example.com",
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	ev := validEvent()
	require.NoError(t, ev.Validate())
	assert.Equal(t, ImportanceMedium, ev.Importance)
	assert.Equal(t, RecurrenceNone, ev.Recurrence)
}

func TestValidateNormalizesShortTime(t *testing.T) {
	ev := validEvent()
	ev.Time = "09:00"
	require.NoError(t, ev.Validate())
	assert.Equal(t, "09:00:00", ev.Time)
}

func TestValidateTrimsWhitespace(t *testing.T) {
	ev := validEvent()
	ev.Title = "  Team Standup  "
	ev.Coordinator = " alice@example.com "
	require.NoError(t, ev.Validate())
	assert.Equal(t, "Team Standup", ev.Title)
	assert.Equal(t, "alice@example.com", ev.Coordinator)
}

func TestValidateMissingRequiredFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Event)
	}{
		{"title", func(ev *Event) { ev.Title = "" }},
		{"title", func(ev *Event) { ev.Title = "   " }},
		{"date", func(ev *Event) { ev.Date = "" }},
		{"time", func(ev *Event) { ev.Time = "" }},
		{"coordinator", func(ev *Event) { ev.Coordinator = "" }},
	}
	for _, tt := range tests {
		ev := validEvent()
		tt.mutate(&ev)
		err := ev.Validate()
		require.Error(t, err)
		fe, ok := err.(*FieldError)
		require.True(t, ok, "expected a *FieldError, got %T", err)
		assert.Equal(t, tt.field, fe.Field)
		assert.True(t, fe.Missing)
	}
}

func TestValidateIllegalValues(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Event)
	}{
		{"date", func(ev *Event) { ev.Date = "01.07.2019" }},
		{"date", func(ev *Event) { ev.Date = "2019-13-45" }},
		{"time", func(ev *Event) { ev.Time = "9 o'clock" }},
		{"importance", func(ev *Event) { ev.Importance = "critical" }},
		{"recurrence", func(ev *Event) { ev.Recurrence = "fortnightly" }},
	}
	for _, tt := range tests {
		ev := validEvent()
		tt.mutate(&ev)
		err := ev.Validate()
		require.Error(t, err)
		fe, ok := err.(*FieldError)
		require.True(t, ok, "expected a *FieldError, got %T", err)
		assert.Equal(t, tt.field, fe.Field)
		assert.False(t, fe.Missing)
	}
}

func TestValidImportance(t *testing.T) {
	assert.True(t, ValidImportance(ImportanceLow))
	assert.True(t, ValidImportance(ImportanceMedium))
	assert.True(t, ValidImportance(ImportanceHigh))
	assert.False(t, ValidImportance(""))
	assert.False(t, ValidImportance("urgent"))
}

func TestValidRecurrence(t *testing.T) {
	assert.True(t, ValidRecurrence(RecurrenceNone))
	assert.True(t, ValidRecurrence(RecurrenceAnnually))
	assert.False(t, ValidRecurrence(""))
	assert.False(t, ValidRecurrence("hourly"))
}
