package eventstore

import (
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultListTitle is the list new reminders land in when none is named.
const DefaultListTitle = "Reminders"

// AccessHandler decides whether the calling process may use the store.
type AccessHandler func(entity EntityType) (bool, error)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithAccessHandler replaces the default access decision.
func WithAccessHandler(h AccessHandler) Option {
	return func(s *SQLiteStore) { s.access = h }
}

// WithDefaultList sets the title of the default list created on first open.
func WithDefaultList(title string) Option {
	return func(s *SQLiteStore) { s.defaultList = title }
}

// WithLists seeds additional lists on open. Existing titles are left alone.
func WithLists(titles ...string) Option {
	return func(s *SQLiteStore) { s.seedLists = append(s.seedLists, titles...) }
}

// WithLogger sets the logger used for background fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// SQLiteStore is a Store persisted in a local SQLite database.
type SQLiteStore struct {
	db          *sql.DB
	path        string
	access      AccessHandler
	defaultList string
	seedLists   []string
	log         *slog.Logger

	mu     sync.Mutex
	status AuthorizationStatus
	tx     *sql.Tx
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) the store at dbPath, creating the schema and the
// default list if needed.
func Open(dbPath string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:        dbPath,
		defaultList: DefaultListTitle,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.access == nil {
		s.access = s.fileAccess
	}

	// busy_timeout is per connection, so it goes in the DSN
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Enable WAL mode so background fetches don't block writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set WAL mode")
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db

	if err := s.seed(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS calendars (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    NOT NULL UNIQUE,
			title      TEXT    NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS reminders (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT    NOT NULL UNIQUE,
			calendar_id     TEXT    NOT NULL,
			title           TEXT    NOT NULL DEFAULT '',
			notes           TEXT    NOT NULL DEFAULT '',
			url             TEXT    NOT NULL DEFAULT '',
			priority        INTEGER NOT NULL DEFAULT 0,
			completed       INTEGER NOT NULL DEFAULT 0,
			completion_date TEXT,
			has_due         INTEGER NOT NULL DEFAULT 0,
			due_year        INTEGER,
			due_month       INTEGER,
			due_day         INTEGER,
			due_hour        INTEGER,
			due_minute      INTEGER,
			created_at      TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_reminders_calendar ON reminders(calendar_id);
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create tables")
	}
	return nil
}

func (s *SQLiteStore) seed() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM calendars WHERE is_default = 1`).Scan(&n); err != nil {
		return errors.Wrap(err, "failed to look up default list")
	}
	if n == 0 {
		res, err := s.db.Exec(`UPDATE calendars SET is_default = 1
			WHERE seq = (SELECT MIN(seq) FROM calendars WHERE title = ?)`, s.defaultList)
		if err != nil {
			return errors.Wrap(err, "failed to mark default list")
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			if _, err := s.db.Exec(`INSERT INTO calendars (id, title, is_default) VALUES (?, ?, 1)`,
				newIdentifier(), s.defaultList); err != nil {
				return errors.Wrap(err, "failed to create default list")
			}
		}
	}

	for _, title := range s.seedLists {
		if strings.TrimSpace(title) == "" {
			continue
		}
		if _, err := s.db.Exec(`INSERT INTO calendars (id, title)
			SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM calendars WHERE title = ?)`,
			newIdentifier(), title, title); err != nil {
			return errors.Wrapf(err, "failed to seed list %q", title)
		}
	}
	return nil
}

// fileAccess grants access when the database file can be opened for writing.
func (s *SQLiteStore) fileAccess(_ EntityType) (bool, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	f.Close()
	return true, nil
}

// Close rolls back any uncommitted writes and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	s.rollbackLocked()
	s.mu.Unlock()
	return s.db.Close()
}

func (s *SQLiteStore) AuthorizationStatus(_ EntityType) AuthorizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RequestAccess always re-asks the access handler, whatever the cached status.
// The completion fires once from a separate goroutine.
func (s *SQLiteStore) RequestAccess(entity EntityType, completion func(granted bool, err error)) {
	go func() {
		granted, err := s.access(entity)
		s.mu.Lock()
		if granted {
			s.status = StatusAuthorized
		} else {
			s.status = StatusDenied
		}
		s.mu.Unlock()
		completion(granted, err)
	}()
}

func (s *SQLiteStore) Calendars(entity EntityType) ([]*Calendar, error) {
	if entity != EntityTypeReminder {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT id, title FROM calendars ORDER BY seq ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calendars")
	}
	defer rows.Close()

	var cals []*Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Title); err != nil {
			return nil, errors.Wrap(err, "failed to scan calendar")
		}
		cals = append(cals, &c)
	}
	return cals, rows.Err()
}

func (s *SQLiteStore) DefaultCalendarForNewReminders() (*Calendar, error) {
	var c Calendar
	err := s.db.QueryRow(`SELECT id, title FROM calendars WHERE is_default = 1 ORDER BY seq LIMIT 1`).
		Scan(&c.ID, &c.Title)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get default calendar")
	}
	return &c, nil
}

// SaveCalendar inserts a new list or renames an existing one.
func (s *SQLiteStore) SaveCalendar(cal *Calendar) error {
	if cal.Title == "" {
		return errors.New("calendar title is required")
	}
	if cal.ID == "" {
		id := newIdentifier()
		if _, err := s.db.Exec(`INSERT INTO calendars (id, title) VALUES (?, ?)`, id, cal.Title); err != nil {
			return errors.Wrap(err, "failed to insert calendar")
		}
		cal.ID = id
		return nil
	}
	res, err := s.db.Exec(`UPDATE calendars SET title = ? WHERE id = ?`, cal.Title, cal.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update calendar")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("calendar %s not found", cal.ID)
	}
	return nil
}

// NewReminder returns an unsaved item bound to this store.
func (s *SQLiteStore) NewReminder() *Reminder {
	return &Reminder{createdAt: time.Now()}
}

func (s *SQLiteStore) PredicateForReminders(calendars []*Calendar) Predicate {
	return Predicate{Calendars: calendars}
}

// FetchReminders runs the query on its own goroutine. On failure the
// completion receives nil.
func (s *SQLiteStore) FetchReminders(pred Predicate, completion func([]*Reminder)) {
	go func() {
		items, err := s.fetch(pred)
		if err != nil {
			s.log.Error("reminder fetch failed", "error", err)
			completion(nil)
			return
		}
		completion(items)
	}()
}

const selectReminders = `
	SELECT r.id, r.title, r.notes, r.url, r.priority, r.completed, r.completion_date,
	       r.has_due, r.due_year, r.due_month, r.due_day, r.due_hour, r.due_minute,
	       r.created_at, c.id, c.title
	FROM reminders r JOIN calendars c ON c.id = r.calendar_id`

func (s *SQLiteStore) fetch(pred Predicate) ([]*Reminder, error) {
	query := selectReminders
	var args []interface{}
	if pred.Calendars != nil {
		if len(pred.Calendars) == 0 {
			return nil, nil
		}
		marks := make([]string, len(pred.Calendars))
		for i, c := range pred.Calendars {
			marks[i] = "?"
			args = append(args, c.ID)
		}
		query += " WHERE r.calendar_id IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY r.seq ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reminders")
	}
	defer rows.Close()

	var items []*Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// CalendarItem looks an item up by identifier. A missing item is (nil, nil).
func (s *SQLiteStore) CalendarItem(id string) (*Reminder, error) {
	rows, err := s.db.Query(selectReminders+" WHERE r.id = ?", id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reminder")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanReminder(rows)
}

// SaveReminder inserts or updates r. With commit false the write joins a
// pending transaction that Commit flushes. A failed committing save rolls the
// pending transaction back.
func (s *SQLiteStore) SaveReminder(r *Reminder, commit bool) error {
	if r.Calendar == nil || r.Calendar.ID == "" {
		return errors.New("reminder has no calendar")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer()
	if err != nil {
		return err
	}
	id, err := saveReminder(w, r)
	if err == nil && commit {
		err = s.commitLocked()
	}
	if err != nil {
		if commit {
			s.rollbackLocked()
		}
		return err
	}
	r.ID = id
	return nil
}

func saveReminder(w execQuerier, r *Reminder) (string, error) {
	var exists int
	if err := w.QueryRow(`SELECT COUNT(*) FROM calendars WHERE id = ?`, r.Calendar.ID).Scan(&exists); err != nil {
		return "", errors.Wrap(err, "failed to check calendar")
	}
	if exists == 0 {
		return "", errors.Newf("calendar %s not found", r.Calendar.ID)
	}

	hasDue, year, month, day, hour, minute := dueColumns(r.DueDateComponents)
	var completionDate interface{}
	if r.completionDate != nil {
		completionDate = r.completionDate.UTC().Format(time.RFC3339Nano)
	}

	if r.ID != "" {
		res, err := w.Exec(`
			UPDATE reminders SET calendar_id = ?, title = ?, notes = ?, url = ?, priority = ?,
				completed = ?, completion_date = ?, has_due = ?, due_year = ?, due_month = ?,
				due_day = ?, due_hour = ?, due_minute = ?
			WHERE id = ?
		`, r.Calendar.ID, r.Title, r.Notes, r.URL, r.Priority, r.completed, completionDate,
			hasDue, year, month, day, hour, minute, r.ID)
		if err != nil {
			return "", errors.Wrap(err, "failed to update reminder")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", errors.Newf("reminder %s not found", r.ID)
		}
		return r.ID, nil
	}

	id := newIdentifier()
	if r.createdAt.IsZero() {
		r.createdAt = time.Now()
	}
	_, err := w.Exec(`
		INSERT INTO reminders (id, calendar_id, title, notes, url, priority, completed, completion_date,
			has_due, due_year, due_month, due_day, due_hour, due_minute, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, r.Calendar.ID, r.Title, r.Notes, r.URL, r.Priority, r.completed, completionDate,
		hasDue, year, month, day, hour, minute, r.createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", errors.Wrap(err, "failed to insert reminder")
	}
	return id, nil
}

// RemoveReminder deletes r from the store.
func (s *SQLiteStore) RemoveReminder(r *Reminder, commit bool) error {
	if r.ID == "" {
		return errors.New("reminder has not been saved")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.writer()
	if err != nil {
		return err
	}
	err = removeReminder(w, r.ID)
	if err == nil && commit {
		err = s.commitLocked()
	}
	if err != nil && commit {
		s.rollbackLocked()
	}
	return err
}

func removeReminder(w execQuerier, id string) error {
	res, err := w.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete reminder")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Newf("reminder %s not found", id)
	}
	return nil
}

// Commit flushes writes made with commit false.
func (s *SQLiteStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

type execQuerier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// writer returns the pending transaction, opening one if needed. Callers hold mu.
func (s *SQLiteStore) writer() (execQuerier, error) {
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return nil, errors.Wrap(err, "failed to begin transaction")
		}
		s.tx = tx
	}
	return s.tx, nil
}

func (s *SQLiteStore) rollbackLocked() {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
}

func (s *SQLiteStore) commitLocked() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return errors.Wrap(err, "failed to commit")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (*Reminder, error) {
	var r Reminder
	var cal Calendar
	var completionDate sql.NullString
	var hasDue bool
	var year, month, day, hour, minute sql.NullInt64
	var createdAt string
	if err := row.Scan(&r.ID, &r.Title, &r.Notes, &r.URL, &r.Priority, &r.completed, &completionDate,
		&hasDue, &year, &month, &day, &hour, &minute, &createdAt, &cal.ID, &cal.Title); err != nil {
		return nil, errors.Wrap(err, "failed to scan reminder")
	}

	r.Calendar = &cal
	if completionDate.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completionDate.String); err == nil {
			t = t.Local()
			r.completionDate = &t
		}
	}
	if hasDue {
		r.DueDateComponents = &DateComponents{
			Year:   orUndefined(year),
			Month:  orUndefined(month),
			Day:    orUndefined(day),
			Hour:   orUndefined(hour),
			Minute: orUndefined(minute),
		}
	}
	r.createdAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

func dueColumns(dc *DateComponents) (has bool, year, month, day, hour, minute interface{}) {
	if dc == nil {
		return false, nil, nil, nil, nil, nil
	}
	return true, dc.Year, dc.Month, dc.Day, dc.Hour, dc.Minute
}

func orUndefined(v sql.NullInt64) int64 {
	if !v.Valid {
		return Undefined
	}
	return v.Int64
}

func newIdentifier() string {
	return strings.ToUpper(uuid.NewString())
}
