// Package eventstore models the platform reminders store: reminder lists
// (calendars), native reminder items and their due-date components, and the
// callback-based access and fetch operations the store exposes.
package eventstore

import (
	"math"
	"time"
)

// Undefined marks a date component that carries no value.
const Undefined int64 = math.MaxInt64

// EntityType selects which kind of calendar item an operation targets.
type EntityType int

const (
	EntityTypeEvent EntityType = iota
	EntityTypeReminder
)

// AuthorizationStatus is the store's cached access decision for an entity type.
type AuthorizationStatus int

const (
	StatusNotDetermined AuthorizationStatus = iota
	StatusDenied
	StatusAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case StatusDenied:
		return "denied"
	case StatusAuthorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

// DateComponents is a due date split into independent fields. Any field may
// be Undefined.
type DateComponents struct {
	Year   int64
	Month  int64
	Day    int64
	Hour   int64
	Minute int64
}

// NewDateComponents returns components with every field Undefined.
func NewDateComponents() *DateComponents {
	return &DateComponents{
		Year:   Undefined,
		Month:  Undefined,
		Day:    Undefined,
		Hour:   Undefined,
		Minute: Undefined,
	}
}

// Calendar is a named reminder list.
type Calendar struct {
	ID    string
	Title string
}

// Reminder is the store's native reminder item. ID is empty until the item
// is first saved and never changes afterwards.
type Reminder struct {
	ID                string
	Title             string
	Notes             string
	URL               string
	Priority          int
	DueDateComponents *DateComponents
	Calendar          *Calendar

	completed      bool
	completionDate *time.Time
	createdAt      time.Time
}

// IsCompleted reports whether the item is marked done.
func (r *Reminder) IsCompleted() bool { return r.completed }

// CompletionDate returns when the item was completed, or nil.
func (r *Reminder) CompletionDate() *time.Time { return r.completionDate }

// SetCompleted flips the completed flag, stamping or clearing the completion
// date the way the platform does.
func (r *Reminder) SetCompleted(done bool) {
	if done == r.completed {
		return
	}
	r.completed = done
	if done {
		now := time.Now()
		r.completionDate = &now
		return
	}
	r.completionDate = nil
}

// Predicate scopes a reminder fetch. A nil Calendars slice means all lists.
type Predicate struct {
	Calendars []*Calendar
}

// Store is the platform reminders service. RequestAccess and FetchReminders
// report through completion callbacks that fire exactly once, possibly on
// another goroutine.
type Store interface {
	AuthorizationStatus(entity EntityType) AuthorizationStatus
	RequestAccess(entity EntityType, completion func(granted bool, err error))

	Calendars(entity EntityType) ([]*Calendar, error)
	DefaultCalendarForNewReminders() (*Calendar, error)
	SaveCalendar(cal *Calendar) error

	NewReminder() *Reminder
	PredicateForReminders(calendars []*Calendar) Predicate
	FetchReminders(pred Predicate, completion func([]*Reminder))
	CalendarItem(id string) (*Reminder, error)
	SaveReminder(r *Reminder, commit bool) error
	RemoveReminder(r *Reminder, commit bool) error

	Close() error
}
