package sqlite

import (
	"fmt"
	"io/ioutil"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbrandt/sked/internal/migrate"
	"github.com/tbrandt/sked/internal/models"
	"github.com/tbrandt/sked/internal/repos"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = ioutil.Discard
	return logrus.NewEntry(l)
}

// makeRepo creates a repository on a fresh in-memory database. The connection pool is
// limited to a single connection since every new connection would see its own empty
// in-memory database.
func makeRepo(t *testing.T) (*EventRepo, func()) {
	db, err := sqlx.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, migrate.ExecuteMigrationsOnDb(db, testLogger()))
	return New(db, testLogger()), func() { db.Close() }
}

func makeEvent(id string) *models.Event {
	now := time.Now().UTC()
	return &models.Event{
		ID:          id,
		Title:       "Team Standup",
		Agenda:      "Daily sync",
		Date:        "2019-07-01",
		Time:        "09:00:00",
		Importance:  models.ImportanceMedium,
		Location:    "Room 2",
		Coordinator: "alice@example.com",
		Recurrence:  models.RecurrenceDaily,
		CreatedAt:   now,
		UpdatedAt:   now,
		Participants: []models.Participant{
			{Name: "Bob", CreatedAt: now},
			{Name: "Carol", CreatedAt: now},
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("11111111-1111-1111-1111-111111111111")
	require.NoError(t, repo.Create(ev))

	got, err := repo.GetByID(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, ev.Date, got.Date)
	assert.Equal(t, ev.Time, got.Time)
	assert.Equal(t, ev.Coordinator, got.Coordinator)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, "Bob", got.Participants[0].Name)
	assert.Equal(t, ev.ID, got.Participants[0].EventID)
	assert.NotZero(t, got.Participants[0].ID)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestGetMissing(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	_, err := repo.GetByID("does-not-exist")
	assert.Equal(t, repos.ErrEntityNotExisting, err)
}

func TestCreateDuplicateID(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("22222222-2222-2222-2222-222222222222")
	require.NoError(t, repo.Create(ev))

	dup := makeEvent(ev.ID)
	assert.Equal(t, repos.ErrDuplicateID, repo.Create(dup))

	// The store must still hold exactly the original event
	_, numRows, err := repo.Find(nil)
	require.NoError(t, err)
	assert.Equal(t, uint(1), numRows)
}

func TestUpdate(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("33333333-3333-3333-3333-333333333333")
	require.NoError(t, repo.Create(ev))

	ev.Title = "Team Standup (moved)"
	ev.Importance = models.ImportanceHigh
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Update(ev, false))

	got, err := repo.GetByID(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Team Standup (moved)", got.Title)
	assert.Equal(t, models.ImportanceHigh, got.Importance)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	// Participants stay untouched when not replaced
	assert.Len(t, got.Participants, 2)
}

func TestUpdateReplacesParticipants(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("44444444-4444-4444-4444-444444444444")
	require.NoError(t, repo.Create(ev))

	ev.Participants = []models.Participant{{Name: "Dave", CreatedAt: time.Now().UTC()}}
	require.NoError(t, repo.Update(ev, true))

	got, err := repo.GetByID(ev.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, "Dave", got.Participants[0].Name)
}

func TestUpdateMissing(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("55555555-5555-5555-5555-555555555555")
	assert.Equal(t, repos.ErrEntityNotExisting, repo.Update(ev, false))
}

func TestDeleteRemovesParticipants(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	ev := makeEvent("66666666-6666-6666-6666-666666666666")
	require.NoError(t, repo.Create(ev))
	require.NoError(t, repo.Delete(ev.ID))

	_, err := repo.GetByID(ev.ID)
	assert.Equal(t, repos.ErrEntityNotExisting, err)

	var count int
	require.NoError(t, repo.db.Get(&count, `SELECT COUNT(*) FROM participants WHERE eventId = ?`, ev.ID))
	assert.Zero(t, count)
}

func TestDeleteMissing(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	assert.Equal(t, repos.ErrEntityNotExisting, repo.Delete("does-not-exist"))
}

func TestFind(t *testing.T) {
	repo, done := makeRepo(t)
	defer done()

	base := time.Date(2019, 7, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		id, title, coordinator, date string
	}{
		{"aaaaaaaa-0000-0000-0000-000000000001", "Team Standup", "alice@example.com", "2019-07-01"},
		{"aaaaaaaa-0000-0000-0000-000000000002", "Sprint Review", "alice@example.com", "2019-07-05"},
		{"aaaaaaaa-0000-0000-0000-000000000003", "Budget Meeting", "bob@example.com", "2019-07-10"},
		{"aaaaaaaa-0000-0000-0000-000000000004", "All Hands", "bob@example.com", "2019-08-01"},
	}
	for i, s := range seed {
		ev := makeEvent(s.id)
		ev.Title = s.title
		ev.Coordinator = s.coordinator
		ev.Date = s.date
		ev.Participants = nil
		ev.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ev.UpdatedAt = ev.CreatedAt
		require.NoError(t, repo.Create(ev))
	}

	// No filter returns everything in creation order
	events, numRows, err := repo.Find(nil)
	require.NoError(t, err)
	assert.Equal(t, uint(4), numRows)
	require.Len(t, events, 4)
	assert.Equal(t, "Team Standup", events[0].Title)
	assert.Equal(t, "All Hands", events[3].Title)

	// Text matches title and agenda as substring
	events, numRows, err = repo.Find(&models.EventFilter{Text: "Standup"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), numRows)
	require.Len(t, events, 1)
	assert.Equal(t, seed[0].id, events[0].ID)

	// Coordinator is an exact match
	_, numRows, err = repo.Find(&models.EventFilter{Coordinator: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), numRows)

	// Date bounds are inclusive on both ends
	events, numRows, err = repo.Find(&models.EventFilter{From: "2019-07-05", To: "2019-07-10"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), numRows)
	require.Len(t, events, 2)
	assert.Equal(t, "2019-07-05", events[0].Date)
	assert.Equal(t, "2019-07-10", events[1].Date)

	// Pagination slices the result but reports the full count
	events, numRows, err = repo.Find(&models.EventFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint(4), numRows)
	require.Len(t, events, 2)
	assert.Equal(t, "Sprint Review", events[0].Title)
	assert.Equal(t, "Budget Meeting", events[1].Title)

	// Events without participants come back with an empty slice, not nil
	assert.NotNil(t, events[0].Participants)
	assert.Len(t, events[0].Participants, 0)
}

func TestCreateRollsBackOnParticipantFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlite3")
	repo := New(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO participants").
		WillReturnError(fmt.Errorf("disk I/O error"))
	mock.ExpectRollback()

	ev := makeEvent("77777777-7777-7777-7777-777777777777")
	err = repo.Create(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRollsBackOnStatementFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlite3")
	repo := New(db, testLogger())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events").
		WillReturnError(fmt.Errorf("database is locked"))
	mock.ExpectRollback()

	ev := makeEvent("88888888-8888-8888-8888-888888888888")
	err = repo.Update(ev, false)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
