package compass

import (
	"time"

	"github.com/jkairys/bellbird/internal/parser"
)

// RawEvent and RawUser are untyped upstream payloads. Field names and
// shapes are dictated by the upstream, not by this module.
type (
	RawEvent = map[string]any
	RawUser  = map[string]any
)

// Credentials authenticate one login call. They are consumed once and
// never stored by this subsystem.
type Credentials struct {
	Username string
	Password string
}

type Location struct {
	Name string `mapstructure:"name"`
}

type Manager struct {
	Name string `mapstructure:"name"`
}

// CalendarEvent is a validated upstream calendar entry. Once a value of
// this type exists, every field downstream logic depends on is present
// and correctly typed; payloads that fail validation never become one.
type CalendarEvent struct {
	ID          string     `mapstructure:"id"`
	Title       string     `mapstructure:"longTitleWithoutTime"`
	LongTitle   string     `mapstructure:"longTitle"`
	Start       time.Time  `mapstructure:"start"`
	Finish      time.Time  `mapstructure:"finish"`
	AllDay      bool       `mapstructure:"allDay"`
	Subject     string     `mapstructure:"subjectLongName"`
	Locations   []Location `mapstructure:"locations"`
	Managers    []Manager  `mapstructure:"managers"`
	RollMarked  bool       `mapstructure:"rollMarked"`
	Description string     `mapstructure:"description"`
}

func (e CalendarEvent) Validate() error {
	switch {
	case e.ID == "":
		return &parser.FieldError{Field: "id", Reason: "required"}
	case e.Title == "" && e.LongTitle == "":
		return &parser.FieldError{Field: "longTitle", Reason: "required"}
	case e.Start.IsZero():
		return &parser.FieldError{Field: "start", Reason: "required"}
	case e.Finish.IsZero():
		return &parser.FieldError{Field: "finish", Reason: "required"}
	case e.Finish.Before(e.Start):
		return &parser.FieldError{Field: "finish", Reason: "before start"}
	}
	return nil
}

// UserProfile is the validated owner of a session.
type UserProfile struct {
	ID        int    `mapstructure:"userId"`
	FirstName string `mapstructure:"userFirstName"`
	LastName  string `mapstructure:"userLastName"`
	FullName  string `mapstructure:"userFullName"`
	Email     string `mapstructure:"userEmail"`
	SchoolID  string `mapstructure:"userSussiID"`
}

func (u UserProfile) Validate() error {
	switch {
	case u.ID <= 0:
		return &parser.FieldError{Field: "userId", Reason: "required"}
	case u.FirstName == "" && u.FullName == "":
		return &parser.FieldError{Field: "userFirstName", Reason: "required"}
	}
	return nil
}
