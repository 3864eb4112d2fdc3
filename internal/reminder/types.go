package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/notexe/mcp-reminders/internal/eventstore"
)

// Priority levels. The store accepts 0-9: 0 is none, 1-4 high, 5 medium,
// 6-9 low.
const (
	PriorityNone   = 0
	PriorityHigh   = 1
	PriorityMedium = 5
	PriorityLow    = 9
)

// PriorityLabel names the band a priority value falls in.
func PriorityLabel(p int) string {
	switch {
	case p <= PriorityNone:
		return "none"
	case p < PriorityMedium:
		return "high"
	case p == PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Reminder is a read-only snapshot of a stored reminder.
type Reminder struct {
	Title          string     `json:"title"`
	Identifier     string     `json:"identifier"`
	ListName       string     `json:"list_name,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Priority       int        `json:"priority"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	URL            string     `json:"url,omitempty"`

	handle itemHandle
}

// itemHandle points back at the store item a snapshot was read from. It is
// only valid inside this process.
type itemHandle struct {
	item *eventstore.Reminder
}

func fromNative(item *eventstore.Reminder) *Reminder {
	r := &Reminder{
		Title:          item.Title,
		Identifier:     item.ID,
		Notes:          item.Notes,
		Priority:       item.Priority,
		Completed:      item.IsCompleted(),
		CompletionDate: item.CompletionDate(),
		URL:            item.URL,
		handle:         itemHandle{item: item},
	}
	if item.Calendar != nil {
		r.ListName = item.Calendar.Title
	}
	if item.DueDateComponents != nil {
		due := TimeFromComponents(item.DueDateComponents)
		r.DueDate = &due
	}
	if r.Priority < 0 {
		r.Priority = PriorityNone
	}
	return r
}

const displayLayout = "2006-01-02 15:04:05"

// String renders the reminder as the multi-line record used in tool output.
func (r *Reminder) String() string {
	status := "Pending"
	if r.Completed {
		status = "Completed"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reminder: %s,\n", r.Title)
	fmt.Fprintf(&b, " - Identifier: %s,\n", r.Identifier)
	fmt.Fprintf(&b, " - List: %s,\n", orNA(r.ListName))
	fmt.Fprintf(&b, " - Due Date: %s,\n", formatTime(r.DueDate))
	fmt.Fprintf(&b, " - Priority: %d (%s),\n", r.Priority, PriorityLabel(r.Priority))
	fmt.Fprintf(&b, " - Status: %s,\n", status)
	fmt.Fprintf(&b, " - Completion Date: %s,\n", formatTime(r.CompletionDate))
	fmt.Fprintf(&b, " - Notes: %s,\n", orNA(r.Notes))
	fmt.Fprintf(&b, " - URL: %s\n", orNA(r.URL))
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format(displayLayout)
}

// CreateRequest describes a new reminder. Empty optional strings and a nil
// DueDate leave the store's defaults alone.
type CreateRequest struct {
	Title    string
	DueDate  *time.Time
	Notes    string
	Priority int
	ListName string
	URL      string
}

// Validate checks the request before it reaches the store.
func (r CreateRequest) Validate() error {
	if r.Title == "" {
		return validationError("title", "field required")
	}
	return validatePriority(r.Priority)
}

// UpdateRequest carries the fields to change. A nil field is left as is.
type UpdateRequest struct {
	Title     *string
	DueDate   *time.Time
	Notes     *string
	Priority  *int
	ListName  *string
	URL       *string
	Completed *bool
}

// Validate checks the request before it reaches the store.
func (r UpdateRequest) Validate() error {
	if r.Priority != nil {
		return validatePriority(*r.Priority)
	}
	return nil
}

func validatePriority(p int) error {
	if p < 0 || p > 9 {
		return validationError("priority", fmt.Sprintf("must be between 0 and 9, got %d", p))
	}
	return nil
}
