package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rapportlabs/rapport/internal/models"
)

// MemStore is an in-memory implementation of Store. It backs tests and the
// "memory" storage driver. All reads and writes deep-copy records so callers
// can never mutate stored state through a returned pointer.
type MemStore struct {
	mu        sync.RWMutex
	contacts  map[string]*models.Contact
	meetings  map[string]*models.Meeting
	playbooks map[string]*models.Playbook // keyed by contact ID
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		contacts:  make(map[string]*models.Contact),
		meetings:  make(map[string]*models.Meeting),
		playbooks: make(map[string]*models.Playbook),
	}
}

// GetContact retrieves a contact by ID scoped to an owner.
func (s *MemStore) GetContact(_ context.Context, ownerID, id string) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// FindContactByName finds a contact by exact or fuzzy name match.
// Candidates are ordered by creation time so repeated lookups with the same
// input resolve to the same contact.
func (s *MemStore) FindContactByName(_ context.Context, ownerID, name string, mode MatchMode) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*models.Contact
	for _, c := range s.contacts {
		if c.OwnerID != ownerID {
			continue
		}
		switch mode {
		case MatchExact:
			if c.Name == name {
				candidates = append(candidates, c)
			}
		case MatchFuzzy:
			if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
				candidates = append(candidates, c)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: contact named %q", ErrNotFound, name)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0].Clone(), nil
}

// CreateContact persists a new contact.
func (s *MemStore) CreateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; ok {
		return fmt.Errorf("contact %s already exists", c.ID)
	}
	s.contacts[c.ID] = c.Clone()
	return nil
}

// SaveContact overwrites an existing contact.
func (s *MemStore) SaveContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[c.ID]; !ok {
		return fmt.Errorf("%w: contact %s", ErrNotFound, c.ID)
	}
	s.contacts[c.ID] = c.Clone()
	return nil
}

// ListContacts returns the owner's contacts, most recently met first.
func (s *MemStore) ListContacts(_ context.Context, ownerID string) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Contact
	for _, c := range s.contacts {
		if c.OwnerID == ownerID {
			out = append(out, *c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMeetingDate, out[j].LastMeetingDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteContact removes a contact along with its meetings and playbook.
func (s *MemStore) DeleteContact(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return fmt.Errorf("%w: contact %s", ErrNotFound, id)
	}
	delete(s.contacts, id)
	delete(s.playbooks, id)
	for mid, m := range s.meetings {
		if m.ContactID == id {
			delete(s.meetings, mid)
		}
	}
	return nil
}

// CreateMeeting persists a new timeline entry.
func (s *MemStore) CreateMeeting(_ context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; ok {
		return fmt.Errorf("meeting %s already exists", m.ID)
	}
	s.meetings[m.ID] = m.Clone()
	return nil
}

// UpdateMeeting overwrites an existing timeline entry.
func (s *MemStore) UpdateMeeting(_ context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[m.ID]; !ok {
		return fmt.Errorf("%w: meeting %s", ErrNotFound, m.ID)
	}
	s.meetings[m.ID] = m.Clone()
	return nil
}

// GetMeeting retrieves a meeting by ID scoped to an owner.
func (s *MemStore) GetMeeting(_ context.Context, ownerID, id string) (*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok || m.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: meeting %s", ErrNotFound, id)
	}
	return m.Clone(), nil
}

// ListMeetings returns a contact's meetings, newest meeting date first.
func (s *MemStore) ListMeetings(_ context.Context, contactID string) ([]models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Meeting
	for _, m := range s.meetings {
		if m.ContactID == contactID {
			out = append(out, *m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MeetingDate.Equal(out[j].MeetingDate) {
			return out[i].MeetingDate.After(out[j].MeetingDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetPlaybook retrieves the contact's playbook.
func (s *MemStore) GetPlaybook(_ context.Context, contactID string) (*models.Playbook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playbooks[contactID]
	if !ok {
		return nil, fmt.Errorf("%w: playbook for contact %s", ErrNotFound, contactID)
	}
	return p.Clone(), nil
}

// SavePlaybook inserts or overwrites the contact's playbook.
func (s *MemStore) SavePlaybook(_ context.Context, p *models.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbooks[p.ContactID] = p.Clone()
	return nil
}

// Stats returns counters computed from the in-memory maps.
func (s *MemStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{
		Contacts:         int64(len(s.contacts)),
		Meetings:         int64(len(s.meetings)),
		Playbooks:        int64(len(s.playbooks)),
		MeetingsByStatus: make(map[string]int64),
	}
	for _, m := range s.meetings {
		st.MeetingsByStatus[string(m.Status)]++
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error {
	return nil
}
