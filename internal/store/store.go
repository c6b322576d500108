package store

import (
	"context"
	"errors"

	"github.com/rapportlabs/rapport/internal/models"
)

// ErrNotFound is returned when the requested contact, meeting, or playbook
// does not exist.
var ErrNotFound = errors.New("record not found")

// MatchMode selects how FindContactByName compares names.
type MatchMode int

const (
	// MatchExact requires a case-sensitive exact name match.
	MatchExact MatchMode = iota
	// MatchFuzzy accepts a case-insensitive substring match; when several
	// contacts qualify the oldest one wins, so repeated lookups with the
	// same input stay deterministic.
	MatchFuzzy
)

// Store is the knowledge store for contacts, their timeline, and playbooks.
// Each method is transactional at the single-entity level; cross-entity
// atomicity is the pipeline's responsibility.
type Store interface {
	// GetContact retrieves a contact by ID scoped to an owner.
	GetContact(ctx context.Context, ownerID, id string) (*models.Contact, error)

	// FindContactByName finds the owner's contact matching name under the
	// given mode. Returns ErrNotFound when nothing matches.
	FindContactByName(ctx context.Context, ownerID, name string, mode MatchMode) (*models.Contact, error)

	// CreateContact persists a new contact.
	CreateContact(ctx context.Context, c *models.Contact) error

	// SaveContact overwrites an existing contact.
	SaveContact(ctx context.Context, c *models.Contact) error

	// ListContacts returns all of the owner's contacts, most recently met
	// first; contacts without any meeting sort last by creation time.
	ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error)

	// DeleteContact removes a contact together with its meetings and playbook.
	DeleteContact(ctx context.Context, ownerID, id string) error

	// CreateMeeting persists a new timeline entry.
	CreateMeeting(ctx context.Context, m *models.Meeting) error

	// UpdateMeeting overwrites an existing timeline entry.
	UpdateMeeting(ctx context.Context, m *models.Meeting) error

	// GetMeeting retrieves a meeting by ID scoped to an owner.
	GetMeeting(ctx context.Context, ownerID, id string) (*models.Meeting, error)

	// ListMeetings returns a contact's meetings, newest meeting date first.
	ListMeetings(ctx context.Context, contactID string) ([]models.Meeting, error)

	// GetPlaybook retrieves the contact's playbook. Returns ErrNotFound
	// when no extraction has created one yet.
	GetPlaybook(ctx context.Context, contactID string) (*models.Playbook, error)

	// SavePlaybook inserts or overwrites the contact's playbook.
	SavePlaybook(ctx context.Context, p *models.Playbook) error

	// Stats returns store-wide counters.
	Stats(ctx context.Context) (*Stats, error)

	// Close cleans up resources.
	Close() error
}

// Stats holds summary counters for the knowledge store.
type Stats struct {
	Contacts         int64            `json:"contacts"`
	Meetings         int64            `json:"meetings"`
	Playbooks        int64            `json:"playbooks"`
	MeetingsByStatus map[string]int64 `json:"meetings_by_status"`
}
