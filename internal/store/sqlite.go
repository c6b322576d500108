package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rapportlabs/rapport/internal/models"
)

// SQLiteStore implements Store on a local SQLite database. Records are stored
// as JSON documents with the columns needed for lookup and ordering extracted
// alongside.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// modernc sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		last_meeting_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_contacts_owner ON contacts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_contacts_owner_name ON contacts(owner_id, name);

	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		contact_id TEXT NOT NULL,
		meeting_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_meetings_owner ON meetings(owner_id);
	CREATE INDEX IF NOT EXISTS idx_meetings_contact ON meetings(contact_id);

	CREATE TABLE IF NOT EXISTS playbooks (
		contact_id TEXT PRIMARY KEY,
		updated_at TEXT NOT NULL,
		doc TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by ID scoped to an owner.
func (s *SQLiteStore) GetContact(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanContact(row, id)
}

// FindContactByName finds the oldest contact matching name under the given
// mode. Fuzzy matching lowercases both sides, which folds case for ASCII and
// leaves CJK text byte-exact.
func (s *SQLiteStore) FindContactByName(ctx context.Context, ownerID, name string, mode MatchMode) (*models.Contact, error) {
	var row *sql.Row
	switch mode {
	case MatchExact:
		row = s.db.QueryRowContext(ctx,
			`SELECT doc FROM contacts WHERE owner_id = ? AND name = ?
			 ORDER BY created_at, id LIMIT 1`, ownerID, name)
	case MatchFuzzy:
		row = s.db.QueryRowContext(ctx,
			`SELECT doc FROM contacts WHERE owner_id = ? AND instr(lower(name), lower(?)) > 0
			 ORDER BY created_at, id LIMIT 1`, ownerID, strings.ToLower(name))
	default:
		return nil, fmt.Errorf("unknown match mode %d", mode)
	}
	return scanContact(row, name)
}

// CreateContact persists a new contact.
func (s *SQLiteStore) CreateContact(ctx context.Context, c *models.Contact) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding contact: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, owner_id, name, last_meeting_date, created_at, updated_at, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, timePtrText(c.LastMeetingDate),
		timeText(c.CreatedAt), timeText(c.UpdatedAt), string(doc))
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

// SaveContact overwrites an existing contact.
func (s *SQLiteStore) SaveContact(ctx context.Context, c *models.Contact) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding contact: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, last_meeting_date = ?, updated_at = ?, doc = ?
		 WHERE id = ? AND owner_id = ?`,
		c.Name, timePtrText(c.LastMeetingDate), timeText(c.UpdatedAt), string(doc),
		c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("updating contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: contact %s", ErrNotFound, c.ID)
	}
	return nil
}

// ListContacts returns the owner's contacts, most recently met first,
// never-met contacts last by creation time.
func (s *SQLiteStore) ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM contacts WHERE owner_id = ?
		 ORDER BY last_meeting_date IS NULL, last_meeting_date DESC, created_at DESC, id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var out []models.Contact
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		var c models.Contact
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("decoding contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContact removes the contact, its meetings, and its playbook in one
// transaction.
func (s *SQLiteStore) DeleteContact(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE contact_id = ?`, id); err != nil {
		return fmt.Errorf("deleting contact meetings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playbooks WHERE contact_id = ?`, id); err != nil {
		return fmt.Errorf("deleting contact playbook: %w", err)
	}
	return tx.Commit()
}

// CreateMeeting persists a new timeline entry.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding meeting: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, owner_id, contact_id, meeting_date, status, created_at, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.ContactID, timeText(m.MeetingDate), string(m.Status),
		timeText(m.CreatedAt), string(doc))
	if err != nil {
		return fmt.Errorf("inserting meeting: %w", err)
	}
	return nil
}

// UpdateMeeting overwrites an existing timeline entry.
func (s *SQLiteStore) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding meeting: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET meeting_date = ?, status = ?, doc = ? WHERE id = ?`,
		timeText(m.MeetingDate), string(m.Status), string(doc), m.ID)
	if err != nil {
		return fmt.Errorf("updating meeting: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: meeting %s", ErrNotFound, m.ID)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID scoped to an owner.
func (s *SQLiteStore) GetMeeting(ctx context.Context, ownerID, id string) (*models.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM meetings WHERE id = ? AND owner_id = ?`, id, ownerID)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: meeting %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading meeting: %w", err)
	}
	var m models.Meeting
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, fmt.Errorf("decoding meeting: %w", err)
	}
	return &m, nil
}

// ListMeetings returns a contact's meetings, newest meeting date first.
func (s *SQLiteStore) ListMeetings(ctx context.Context, contactID string) ([]models.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM meetings WHERE contact_id = ? ORDER BY meeting_date DESC, id`,
		contactID)
	if err != nil {
		return nil, fmt.Errorf("listing meetings: %w", err)
	}
	defer rows.Close()

	var out []models.Meeting
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scanning meeting row: %w", err)
		}
		var m models.Meeting
		if err := json.Unmarshal([]byte(doc), &m); err != nil {
			return nil, fmt.Errorf("decoding meeting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPlaybook retrieves the contact's playbook.
func (s *SQLiteStore) GetPlaybook(ctx context.Context, contactID string) (*models.Playbook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc FROM playbooks WHERE contact_id = ?`, contactID)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: playbook for contact %s", ErrNotFound, contactID)
		}
		return nil, fmt.Errorf("reading playbook: %w", err)
	}
	var p models.Playbook
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decoding playbook: %w", err)
	}
	return &p, nil
}

// SavePlaybook inserts or overwrites the contact's playbook.
func (s *SQLiteStore) SavePlaybook(ctx context.Context, p *models.Playbook) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding playbook: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playbooks (contact_id, updated_at, doc) VALUES (?, ?, ?)
		 ON CONFLICT(contact_id) DO UPDATE SET updated_at = excluded.updated_at, doc = excluded.doc`,
		p.ContactID, timeText(p.LastUpdatedAt), string(doc))
	if err != nil {
		return fmt.Errorf("upserting playbook: %w", err)
	}
	return nil
}

// Stats returns store-wide counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{MeetingsByStatus: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&st.Contacts); err != nil {
		return nil, fmt.Errorf("counting contacts: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings`).Scan(&st.Meetings); err != nil {
		return nil, fmt.Errorf("counting meetings: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playbooks`).Scan(&st.Playbooks); err != nil {
		return nil, fmt.Errorf("counting playbooks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM meetings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting meetings by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		st.MeetingsByStatus[status] = n
	}
	return st, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

func scanContact(row *sql.Row, key string) (*models.Contact, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: contact %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading contact: %w", err)
	}
	var c models.Contact
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("decoding contact: %w", err)
	}
	return &c, nil
}

func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timePtrText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeText(*t)
}
