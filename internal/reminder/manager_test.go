package reminder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mcp-reminders/internal/eventstore"
)

func openStore(t *testing.T, opts ...eventstore.Option) *eventstore.SQLiteStore {
	t.Helper()
	s, err := eventstore.Open(filepath.Join(t.TempDir(), "reminders.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestManager(t *testing.T, opts ...eventstore.Option) (*Manager, *eventstore.SQLiteStore) {
	t.Helper()
	s := openStore(t, opts...)
	m, err := NewManager(s)
	require.NoError(t, err)
	return m, s
}

// countingStore records writes that reach the store.
type countingStore struct {
	eventstore.Store
	saves int
}

func (c *countingStore) SaveReminder(r *eventstore.Reminder, commit bool) error {
	c.saves++
	return c.Store.SaveReminder(r, commit)
}

// failingStore rejects writes once fail is set.
type failingStore struct {
	eventstore.Store
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) SaveReminder(r *eventstore.Reminder, commit bool) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.SaveReminder(r, commit)
}

func (f *failingStore) RemoveReminder(r *eventstore.Reminder, commit bool) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.RemoveReminder(r, commit)
}

func TestWriteFailuresCarryStoreError(t *testing.T) {
	fs := &failingStore{Store: openStore(t)}
	m, err := NewManager(fs)
	require.NoError(t, err)

	existing, err := m.Create(CreateRequest{Title: "keep"})
	require.NoError(t, err)
	fs.fail = true

	_, err = m.Create(CreateRequest{Title: "new"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSaveFailed))
	assert.Equal(t, "failed to save reminder: disk full", err.Error())

	title := "renamed"
	_, err = m.Update(existing.Identifier, UpdateRequest{Title: &title})
	assert.True(t, errors.Is(err, ErrSaveFailed))
	assert.Contains(t, err.Error(), "disk full")

	_, err = m.Complete(existing.Identifier)
	assert.True(t, errors.Is(err, ErrSaveFailed))
	assert.Contains(t, err.Error(), "disk full")

	ok, err := m.Delete(existing.Identifier)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrDeleteFailed))
	assert.False(t, errors.Is(err, ErrSaveFailed))
	assert.Equal(t, "failed to delete reminder: disk full", err.Error())

	found, err := m.Find(existing.Identifier)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "keep", found.Title)
	assert.False(t, found.Completed)
}

func TestCreateUsesDefaultList(t *testing.T) {
	m, _ := newTestManager(t)

	created, err := m.Create(CreateRequest{Title: "Buy milk"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Identifier)

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Buy milk", found.Title)
	assert.Equal(t, "Reminders", found.ListName)
	assert.False(t, found.Completed)
	assert.Equal(t, 0, found.Priority)
	assert.Nil(t, found.DueDate)
	assert.Nil(t, found.CompletionDate)
}

func TestCreateWithAllFields(t *testing.T) {
	m, _ := newTestManager(t, eventstore.WithLists("Work"))
	due := time.Date(2024, 3, 15, 14, 30, 45, 0, time.Local)

	created, err := m.Create(CreateRequest{
		Title:    "Ship release",
		DueDate:  &due,
		Notes:    "tag and push",
		Priority: 1,
		ListName: "Work",
		URL:      "https://example.com/release",
	})
	require.NoError(t, err)

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Work", found.ListName)
	assert.Equal(t, "tag and push", found.Notes)
	assert.Equal(t, 1, found.Priority)
	assert.Equal(t, "https://example.com/release", found.URL)
	require.NotNil(t, found.DueDate)
	assert.True(t, found.DueDate.Equal(time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local)))
}

func TestCreateUnknownList(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(CreateRequest{Title: "x", ListName: "Nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchReminderList))
	assert.Equal(t, "Reminder list: Nope does not exist", err.Error())

	_, err = m.List(nil, nil, "Nope", false)
	assert.True(t, errors.Is(err, ErrNoSuchReminderList))
}

func TestCreateRejectsPriorityBeforeStore(t *testing.T) {
	s := openStore(t)
	cs := &countingStore{Store: s}
	m, err := NewManager(cs)
	require.NoError(t, err)

	_, err = m.Create(CreateRequest{Title: "x", Priority: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, cs.saves)

	bad := 42
	_, err = m.Update("whatever", UpdateRequest{Priority: &bad})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, cs.saves)
}

func TestUpdateOnlyTouchesSetFields(t *testing.T) {
	m, _ := newTestManager(t, eventstore.WithLists("Home"))
	due := time.Date(2024, 5, 1, 8, 0, 0, 0, time.Local)
	created, err := m.Create(CreateRequest{Title: "Water plants", Notes: "balcony", Priority: 5, DueDate: &due})
	require.NoError(t, err)

	title := "Water all plants"
	list := "Home"
	updated, err := m.Update(created.Identifier, UpdateRequest{Title: &title, ListName: &list})
	require.NoError(t, err)
	assert.Equal(t, "Water all plants", updated.Title)

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Water all plants", found.Title)
	assert.Equal(t, "Home", found.ListName)
	assert.Equal(t, "balcony", found.Notes)
	assert.Equal(t, 5, found.Priority)
	require.NotNil(t, found.DueDate)
	assert.True(t, found.DueDate.Equal(due))
	assert.False(t, found.Completed)
}

func TestUpdateEmptyListNameIsIgnored(t *testing.T) {
	m, _ := newTestManager(t)
	created, err := m.Create(CreateRequest{Title: "x"})
	require.NoError(t, err)

	empty := ""
	_, err = m.Update(created.Identifier, UpdateRequest{ListName: &empty})
	require.NoError(t, err)

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	assert.Equal(t, "Reminders", found.ListName)
}

func TestUpdateCompletedFlag(t *testing.T) {
	m, _ := newTestManager(t)
	created, err := m.Create(CreateRequest{Title: "x"})
	require.NoError(t, err)

	done := true
	_, err = m.Update(created.Identifier, UpdateRequest{Completed: &done})
	require.NoError(t, err)
	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	assert.True(t, found.Completed)
	assert.NotNil(t, found.CompletionDate)

	undone := false
	_, err = m.Update(created.Identifier, UpdateRequest{Completed: &undone})
	require.NoError(t, err)
	found, err = m.Find(created.Identifier)
	require.NoError(t, err)
	assert.False(t, found.Completed)
	assert.Nil(t, found.CompletionDate)
}

func TestUpdateMissingReminderOrList(t *testing.T) {
	m, _ := newTestManager(t)

	title := "y"
	_, err := m.Update("does-not-exist", UpdateRequest{Title: &title})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSuchReminder))
	assert.Equal(t, "Reminder with id: does-not-exist does not exist", err.Error())

	created, err := m.Create(CreateRequest{Title: "x"})
	require.NoError(t, err)
	list := "Nope"
	_, err = m.Update(created.Identifier, UpdateRequest{Title: &title, ListName: &list})
	assert.True(t, errors.Is(err, ErrNoSuchReminderList))

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	assert.Equal(t, "x", found.Title)
}

func TestCompleteAndDelete(t *testing.T) {
	m, _ := newTestManager(t)
	created, err := m.Create(CreateRequest{Title: "x"})
	require.NoError(t, err)

	completed, err := m.Complete(created.Identifier)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	found, err := m.Find(created.Identifier)
	require.NoError(t, err)
	assert.True(t, found.Completed)

	ok, err := m.Delete(created.Identifier)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err = m.Find(created.Identifier)
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = m.Complete(created.Identifier)
	assert.True(t, errors.Is(err, ErrNoSuchReminder))
	_, err = m.Delete(created.Identifier)
	assert.True(t, errors.Is(err, ErrNoSuchReminder))
}

func TestListFiltersCompleted(t *testing.T) {
	m, _ := newTestManager(t)
	open, err := m.Create(CreateRequest{Title: "open"})
	require.NoError(t, err)
	done, err := m.Create(CreateRequest{Title: "done"})
	require.NoError(t, err)
	_, err = m.Complete(done.Identifier)
	require.NoError(t, err)

	pending, err := m.List(nil, nil, "", false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.Identifier, pending[0].Identifier)

	all, err := m.List(nil, nil, "", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "open", all[0].Title)
	assert.Equal(t, "done", all[1].Title)
}

func TestListDateBoundsAreInclusive(t *testing.T) {
	m, _ := newTestManager(t)
	due := time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)
	_, err := m.Create(CreateRequest{Title: "dated", DueDate: &due})
	require.NoError(t, err)
	_, err = m.Create(CreateRequest{Title: "undated"})
	require.NoError(t, err)

	unbounded, err := m.List(nil, nil, "", false)
	require.NoError(t, err)
	assert.Len(t, unbounded, 2)

	exact, err := m.List(&due, &due, "", false)
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "dated", exact[0].Title)

	later := due.Add(time.Minute)
	after, err := m.List(&later, nil, "", false)
	require.NoError(t, err)
	assert.Empty(t, after)

	earlier := due.Add(-time.Minute)
	before, err := m.List(nil, &earlier, "", false)
	require.NoError(t, err)
	assert.Empty(t, before)

	onlyStart, err := m.List(&earlier, nil, "", false)
	require.NoError(t, err)
	require.Len(t, onlyStart, 1)
	assert.Equal(t, "dated", onlyStart[0].Title)
}

func TestListScopesToNamedList(t *testing.T) {
	m, _ := newTestManager(t, eventstore.WithLists("Work"))
	_, err := m.Create(CreateRequest{Title: "a", ListName: "Work"})
	require.NoError(t, err)
	_, err = m.Create(CreateRequest{Title: "b"})
	require.NoError(t, err)

	work, err := m.List(nil, nil, "Work", false)
	require.NoError(t, err)
	require.Len(t, work, 1)
	assert.Equal(t, "a", work[0].Title)
}

func TestDuplicateListNamesResolveToFirst(t *testing.T) {
	m, s := newTestManager(t, eventstore.WithLists("Work"))
	dup := &eventstore.Calendar{Title: "Work"}
	require.NoError(t, s.SaveCalendar(dup))

	cals, err := m.Lists()
	require.NoError(t, err)
	var first *eventstore.Calendar
	for _, c := range cals {
		if c.Title == "Work" {
			first = c
			break
		}
	}
	require.NotNil(t, first)
	require.NotEqual(t, first.ID, dup.ID)

	created, err := m.Create(CreateRequest{Title: "x", ListName: "Work"})
	require.NoError(t, err)

	item, err := s.CalendarItem(created.Identifier)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, first.ID, item.Calendar.ID)
}

func TestListNames(t *testing.T) {
	m, _ := newTestManager(t, eventstore.WithLists("Work", "Home"))

	names, err := m.ListNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Reminders", "Work", "Home"}, names)
}

func TestNewManagerPermissionDenied(t *testing.T) {
	s := openStore(t, eventstore.WithAccessHandler(func(eventstore.EntityType) (bool, error) {
		return false, nil
	}))

	_, err := NewManager(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Contains(t, errors.FlattenHints(err), "Privacy & Security > Reminders")
	assert.Equal(t, eventstore.StatusDenied, s.AuthorizationStatus(eventstore.EntityTypeReminder))
}

func TestProviderRetriesAfterDenial(t *testing.T) {
	calls := 0
	s := openStore(t, eventstore.WithAccessHandler(func(eventstore.EntityType) (bool, error) {
		calls++
		return calls > 1, nil
	}))
	p := NewProvider(func() (*Manager, error) { return NewManager(s) })

	_, err := p.Manager()
	assert.True(t, errors.Is(err, ErrPermissionDenied))

	m, err := p.Manager()
	require.NoError(t, err)
	require.NotNil(t, m)

	again, err := p.Manager()
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 2, calls)
}

func TestReminderString(t *testing.T) {
	due := time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local)
	r := &Reminder{
		Title:      "Call mom",
		Identifier: "ABC",
		ListName:   "Family",
		DueDate:    &due,
		Priority:   5,
	}

	want := "Reminder: Call mom,\n" +
		" - Identifier: ABC,\n" +
		" - List: Family,\n" +
		" - Due Date: 2024-03-15 14:30:00,\n" +
		" - Priority: 5 (medium),\n" +
		" - Status: Pending,\n" +
		" - Completion Date: N/A,\n" +
		" - Notes: N/A,\n" +
		" - URL: N/A\n"
	assert.Equal(t, want, r.String())
}
