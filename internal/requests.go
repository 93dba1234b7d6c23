package internal

import "github.com/tbrandt/sked/internal/models"

// -- Request data -----------------------------------------------------------------------------------------------------

// Pagination describes a request that uses paging data to retrieve only a subset of the full result
type Pagination struct {
	// Position in the resultset to start the returned result at
	Offset uint
	// Number of items to return
	Limit uint
}

// Search describes an event query. All criteria that are set compose with logical AND;
// a zero-value Search matches every event.
type Search struct {
	Pagination
	// Substring to match against title and agenda
	Text string
	// Exact coordinator to filter on
	Coordinator string
	// Inclusive lower bound on the event date (2006-01-02)
	From string
	// Inclusive upper bound on the event date (2006-01-02)
	To string
}

// filter converts the search request into the repository's filter form
func (s *Search) filter() *models.EventFilter {
	return &models.EventFilter{
		Text:        s.Text,
		Coordinator: s.Coordinator,
		From:        s.From,
		To:          s.To,
		Offset:      s.Offset,
		Limit:       s.Limit,
	}
}

// EventUpdate carries a partial set of event fields for an update operation.
// Nil fields keep their stored values; a non-nil Participants slice replaces
// the full participant set of the event.
type EventUpdate struct {
	Title        *string   `json:"title"`
	Agenda       *string   `json:"agenda"`
	Date         *string   `json:"date"`
	Time         *string   `json:"time"`
	Importance   *string   `json:"importance"`
	Location     *string   `json:"location"`
	Coordinator  *string   `json:"coordinator"`
	Recurrence   *string   `json:"recurrence"`
	Participants *[]string `json:"participants"`
}
