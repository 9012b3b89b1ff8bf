package client

import (
	"context"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
)

const mockUserID = 12345

// mockClient implements the Client contract without any network or
// automation work. Login always succeeds and the query methods return
// a fixed synthetic batch shaped exactly like real upstream payloads,
// so every downstream consumer can run without upstream access.
type mockClient struct {
	baseURL       string
	authenticated bool
	closed        bool
}

func newMockClient(baseURL string) *mockClient {
	return &mockClient{baseURL: baseURL}
}

func (m *mockClient) Login(ctx context.Context) error {
	if m.closed {
		return compass.ErrDriverClosed
	}
	m.authenticated = true
	return nil
}

func (m *mockClient) GetUserDetails(ctx context.Context) (compass.RawUser, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return compass.RawUser{
		"userId":        mockUserID,
		"userFirstName": "Alex",
		"userLastName":  "Harper",
		"userFullName":  "Alex Harper",
		"userEmail":     "[REDACTED]",
		"userSussiID":   "STU-0042",
	}, nil
}

// GetCalendarEvents returns the synthetic batch anchored to the
// requested start date and filtered to the requested range, so the
// same arguments always produce the same events.
func (m *mockClient) GetCalendarEvents(ctx context.Context, start, end time.Time) ([]compass.RawEvent, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = start
	}
	// Anchor on the calendar date in the caller's zone; truncating on
	// the absolute epoch would shift non-UTC midnights a day back.
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	lastDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	var events []compass.RawEvent
	for _, f := range mockFixtures {
		eventDay := day.AddDate(0, 0, f.offsetDays)
		if eventDay.Before(day) || eventDay.After(lastDay) {
			continue
		}
		eventStart := eventDay.Add(f.startHour)
		events = append(events, compass.RawEvent{
			"id":                   f.id,
			"longTitle":            f.longTitle,
			"longTitleWithoutTime": f.title,
			"start":                eventStart.Format(time.RFC3339),
			"finish":               eventStart.Add(f.duration).Format(time.RFC3339),
			"allDay":               f.allDay,
			"subjectTitle":         f.subject,
			"subjectLongName":      f.subjectLong,
			"locations":            []any{map[string]any{"name": f.location}},
			"managers":             []any{map[string]any{"name": f.manager}},
			"rollMarked":           f.rollMarked,
			"description":          f.description,
		})
	}
	return events, nil
}

func (m *mockClient) Close() error {
	m.closed = true
	m.authenticated = false
	return nil
}

func (m *mockClient) ready() error {
	if m.closed {
		return compass.ErrDriverClosed
	}
	if !m.authenticated {
		return compass.ErrNotAuthenticated
	}
	return nil
}

type mockFixture struct {
	id          string
	title       string
	longTitle   string
	offsetDays  int
	startHour   time.Duration
	duration    time.Duration
	allDay      bool
	subject     string
	subjectLong string
	location    string
	manager     string
	rollMarked  bool
	description string
}

// Fixtures cover the shapes downstream filtering cares about:
// excursions, performances, sports days, assemblies, free dress days,
// permission slips, mixed year levels. The assembly sits on the start
// day itself so even a single-day query returns something.
var mockFixtures = []mockFixture{
	{
		id: "1", title: "Year 3 Excursion to Taronga Zoo", longTitle: "Year 3 Excursion to Taronga Zoo",
		offsetDays: 5, startHour: 9 * time.Hour, duration: 3 * time.Hour,
		subject: "Excursion", subjectLong: "Excursion",
		location: "Taronga Zoo", manager: "Mrs Smith",
		description: "Permission slip required. Cost: $25",
	},
	{
		id: "2", title: "Year 3 Music Performance", longTitle: "Year 3 Music Performance",
		offsetDays: 10, startHour: 18 * time.Hour, duration: time.Hour,
		subject: "Music", subjectLong: "Music Performance",
		location: "School Hall", manager: "Mr Johnson",
		description: "Evening performance. Tickets available online.",
	},
	{
		id: "3", title: "Free Dress Day", longTitle: "Free Dress Day - Community Fund",
		offsetDays: 3, allDay: true, duration: 0,
		subject: "Event", subjectLong: "Free Dress Day",
		location: "School", manager: "Principal",
		description: "Wear your favorite outfit. Gold coin donation.",
	},
	{
		id: "4", title: "Year 2-3 Sports Carnival", longTitle: "Year 2-3 Sports Carnival",
		offsetDays: 7, startHour: 9 * time.Hour, duration: 4 * time.Hour,
		subject: "Sports", subjectLong: "Sports Carnival",
		location: "School Oval", manager: "PE Department", rollMarked: true,
		description: "House colors provided. Parents welcome to attend.",
	},
	{
		id: "5", title: "Whole School Assembly", longTitle: "Whole School Assembly",
		offsetDays: 0, startHour: 10 * time.Hour, duration: time.Hour,
		subject: "Assembly", subjectLong: "Whole School Assembly",
		location: "School Hall", manager: "Principal", rollMarked: true,
		description: "General announcements and awards.",
	},
	{
		id: "6", title: "Year 4 Excursion - Museum Visit", longTitle: "Year 4 Excursion - Museum Visit",
		offsetDays: 8, startHour: 9 * time.Hour, duration: 3 * time.Hour,
		subject: "Excursion", subjectLong: "Excursion",
		location: "State Museum", manager: "Mrs Davis",
		description: "Year 4 only. Permission slip due by Friday.",
	},
}
