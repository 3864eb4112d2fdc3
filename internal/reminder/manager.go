package reminder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/notexe/mcp-reminders/internal/eventstore"
	"github.com/notexe/mcp-reminders/internal/logging"
)

// Manager is the single point of contact with the reminders store. Calls are
// serialized: each one finishes its store round trip before the next starts.
type Manager struct {
	store eventstore.Store
	log   *slog.Logger
	mu    sync.Mutex
}

// NewManager requests reminders access, whatever the store's cached status
// says, and blocks until the store answers. A refusal yields an error
// matching ErrPermissionDenied.
func NewManager(store eventstore.Store) (*Manager, error) {
	m := &Manager{
		store: store,
		log:   logging.For("manager"),
	}

	status := store.AuthorizationStatus(eventstore.EntityTypeReminder)
	m.log.Debug("initial reminders authorization status", "status", status)

	granted, err := m.requestAccess()
	if !granted {
		m.log.Error("reminders access request failed", "error", err)
		return nil, permissionDenied(err)
	}
	m.log.Info("reminders access granted")
	return m, nil
}

// await turns a single-callback store API into a blocking call. Only the
// first completion counts. With no completion it blocks forever.
func await[T any](start func(done func(T))) T {
	ch := make(chan T, 1)
	var once sync.Once
	start(func(v T) {
		once.Do(func() { ch <- v })
	})
	return <-ch
}

type accessResult struct {
	granted bool
	err     error
}

func (m *Manager) requestAccess() (bool, error) {
	res := await(func(done func(accessResult)) {
		m.store.RequestAccess(eventstore.EntityTypeReminder, func(granted bool, err error) {
			done(accessResult{granted: granted, err: err})
		})
	})
	return res.granted, res.err
}

// List returns reminders matching the filters in store order. An empty
// listName searches every list. With a date bound set, reminders without a
// due date are dropped; both bounds are inclusive.
func (m *Manager) List(start, end *time.Time, listName string, includeCompleted bool) ([]*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var calendars []*eventstore.Calendar
	if listName != "" {
		cal, err := m.findList(listName)
		if err != nil {
			return nil, err
		}
		if cal == nil {
			return nil, noSuchList(listName)
		}
		calendars = []*eventstore.Calendar{cal}
	}

	scope := listName
	if scope == "" {
		scope = "all lists"
	}
	m.log.Info("listing reminders", "list", scope, "include_completed", includeCompleted)

	pred := m.store.PredicateForReminders(calendars)
	items := await(func(done func([]*eventstore.Reminder)) {
		m.store.FetchReminders(pred, done)
	})

	var results []*Reminder
	for _, item := range items {
		if !includeCompleted && item.IsCompleted() {
			continue
		}
		if start != nil || end != nil {
			if item.DueDateComponents == nil {
				continue
			}
			due := TimeFromComponents(item.DueDateComponents)
			if start != nil && due.Before(*start) {
				continue
			}
			if end != nil && due.After(*end) {
				continue
			}
		}
		results = append(results, fromNative(item))
	}
	return results, nil
}

// Create saves a new reminder. Without a list name it goes to the store's
// default list.
func (m *Manager) Create(req CreateRequest) (*Reminder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item := m.store.NewReminder()
	item.Title = req.Title
	if req.Notes != "" {
		item.Notes = req.Notes
	}
	if req.URL != "" {
		item.URL = req.URL
	}
	item.Priority = req.Priority
	if req.DueDate != nil {
		item.DueDateComponents = ComponentsFromTime(*req.DueDate)
	}

	var cal *eventstore.Calendar
	if req.ListName != "" {
		found, err := m.findList(req.ListName)
		if err != nil {
			return nil, err
		}
		if found == nil {
			m.log.Error("failed to create reminder: list does not exist", "list", req.ListName)
			return nil, noSuchList(req.ListName)
		}
		cal = found
	} else {
		def, err := m.store.DefaultCalendarForNewReminders()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve default reminder list")
		}
		m.log.Debug("using default reminder list", "list", def.Title)
		cal = def
	}
	item.Calendar = cal

	if err := m.store.SaveReminder(item, true); err != nil {
		m.log.Error("failed to save reminder", "error", err)
		return nil, saveFailed(err)
	}

	m.log.Info("created reminder", "title", req.Title, "id", item.ID)
	return fromNative(item), nil
}

// Update applies the set fields of req to the reminder with the given id.
func (m *Manager) Update(id string, req UpdateRequest) (*Reminder, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	item := existing.handle.item

	var cal *eventstore.Calendar
	if req.ListName != nil && *req.ListName != "" {
		found, err := m.findList(*req.ListName)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, noSuchList(*req.ListName)
		}
		cal = found
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.URL != nil {
		item.URL = *req.URL
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	if req.Completed != nil {
		item.SetCompleted(*req.Completed)
	}
	if req.DueDate != nil {
		item.DueDateComponents = ComponentsFromTime(*req.DueDate)
	}
	if cal != nil {
		item.Calendar = cal
	}

	if err := m.store.SaveReminder(item, true); err != nil {
		m.log.Error("failed to update reminder", "id", id, "error", err)
		return nil, saveFailed(err)
	}

	m.log.Info("updated reminder", "title", item.Title, "id", id)
	return fromNative(item), nil
}

// Complete marks the reminder done.
func (m *Manager) Complete(id string) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	item := existing.handle.item
	item.SetCompleted(true)

	if err := m.store.SaveReminder(item, true); err != nil {
		m.log.Error("failed to complete reminder", "id", id, "error", err)
		return nil, saveFailed(err)
	}

	m.log.Info("completed reminder", "title", existing.Title, "id", id)
	return fromNative(item), nil
}

// Delete removes the reminder. It returns true on success.
func (m *Manager) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.lookup(id)
	if err != nil {
		return false, err
	}

	if err := m.store.RemoveReminder(existing.handle.item, true); err != nil {
		m.log.Error("failed to delete reminder", "id", id, "error", err)
		return false, deleteFailed(err)
	}

	m.log.Info("deleted reminder", "title", existing.Title, "id", id)
	return true, nil
}

// Find looks a reminder up by identifier. A missing reminder is (nil, nil).
func (m *Manager) Find(id string) (*Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *Manager) find(id string) (*Reminder, error) {
	item, err := m.store.CalendarItem(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up reminder %s", id)
	}
	if item == nil {
		m.log.Info("no reminder found", "id", id)
		return nil, nil
	}
	return fromNative(item), nil
}

func (m *Manager) lookup(id string) (*Reminder, error) {
	r, err := m.find(id)
	if err != nil {
		return nil, err
	}
	if r == nil || r.handle.item == nil {
		return nil, noSuchReminder(id)
	}
	return r, nil
}

// ListNames returns the titles of every reminder list.
func (m *Manager) ListNames() ([]string, error) {
	lists, err := m.Lists()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(lists))
	for _, l := range lists {
		names = append(names, l.Title)
	}
	return names, nil
}

// Lists returns every reminder list known to the store.
func (m *Manager) Lists() ([]*eventstore.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lists, err := m.store.Calendars(eventstore.EntityTypeReminder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder lists")
	}
	return lists, nil
}

// findList resolves a list by exact, case-sensitive title. With duplicate
// titles the first in store order wins. A miss is (nil, nil).
func (m *Manager) findList(name string) (*eventstore.Calendar, error) {
	lists, err := m.store.Calendars(eventstore.EntityTypeReminder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder lists")
	}
	for _, l := range lists {
		if l.Title == name {
			return l, nil
		}
	}
	m.log.Info("reminder list not found", "list", name)
	return nil, nil
}
