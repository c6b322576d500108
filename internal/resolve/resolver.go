// Package resolve maps free-text name hints to contact records.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rapportlabs/rapport/internal/metrics"
	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/store"
)

// UnnamedContactName is the placeholder name given to contacts created from
// meetings that carry no name hint.
const UnnamedContactName = "未命名联系人"

// Resolver finds or creates the contact a meeting belongs to.
type Resolver struct {
	store  store.Store
	logger *slog.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(st store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: st, logger: logger}
}

// Resolve maps a name hint to a contact. An empty hint always creates a fresh
// unnamed contact: with no identifying signal, two unnamed meetings must not
// silently share a profile. Otherwise resolution tries an exact
// case-sensitive match, then a case-insensitive substring match (oldest
// contact wins), and finally creates a new contact with the hinted name.
// The returned bool reports whether a contact was created.
func (r *Resolver) Resolve(ctx context.Context, ownerID, nameHint string) (*models.Contact, bool, error) {
	if nameHint == "" {
		c, err := r.create(ctx, ownerID, UnnamedContactName)
		if err != nil {
			return nil, false, err
		}
		r.logger.Info("created unnamed contact", "contact_id", c.ID, "owner", ownerID)
		return c, true, nil
	}

	c, err := r.store.FindContactByName(ctx, ownerID, nameHint, store.MatchExact)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("resolving contact %q: %w", nameHint, err)
	}

	// Substring match is a heuristic: when several contacts share the
	// substring the oldest wins, which can attach a meeting to the wrong
	// person. Accepted trade-off for hint-only resolution.
	c, err = r.store.FindContactByName(ctx, ownerID, nameHint, store.MatchFuzzy)
	if err == nil {
		r.logger.Debug("fuzzy name match", "hint", nameHint, "contact_id", c.ID, "name", c.Name)
		return c, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("resolving contact %q: %w", nameHint, err)
	}

	c, err = r.create(ctx, ownerID, nameHint)
	if err != nil {
		return nil, false, err
	}
	r.logger.Info("created contact", "contact_id", c.ID, "name", nameHint, "owner", ownerID)
	return c, true, nil
}

func (r *Resolver) create(ctx context.Context, ownerID, name string) (*models.Contact, error) {
	now := time.Now().UTC()
	c := &models.Contact{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("creating contact %q: %w", name, err)
	}
	metrics.Inc(metrics.ContactsCreated)
	return c, nil
}
