// Package pipeline sequences extraction, contact resolution, and merging for
// one logged meeting, and owns the meeting's processing/completed/failed
// state machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rapportlabs/rapport/internal/extract"
	"github.com/rapportlabs/rapport/internal/merge"
	"github.com/rapportlabs/rapport/internal/metrics"
	"github.com/rapportlabs/rapport/internal/models"
	"github.com/rapportlabs/rapport/internal/resolve"
	"github.com/rapportlabs/rapport/internal/store"
)

// Request describes one meeting to log.
type Request struct {
	ContactName string    `json:"contact_name"`
	RawText     string    `json:"raw_text"`
	MeetingDate time.Time `json:"meeting_date"`
	Location    string    `json:"location"`
	Scenario    string    `json:"scenario"`
}

// Pipeline runs the create -> extract -> merge sequence for logged meetings.
// Many pipelines may run concurrently; merges targeting the same contact are
// serialized by a per-contact lock, and no lock is held during the
// completion-service call.
type Pipeline struct {
	store     store.Store
	extractor extract.Extractor
	resolver  *resolve.Resolver
	engine    *merge.Engine
	locks     *contactLocks
	logger    *slog.Logger
}

// New creates a pipeline over the given collaborators.
func New(st store.Store, ex extract.Extractor, r *resolve.Resolver, eng *merge.Engine, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     st,
		extractor: ex,
		resolver:  r,
		engine:    eng,
		locks:     newContactLocks(),
		logger:    logger,
	}
}

// LogMeeting resolves the contact, durably records the meeting in
// "processing", then extracts and merges. The returned meeting is always
// created; extraction or merge failures surface as its terminal "failed"
// status rather than as an error. A failed run persists only the status
// marker: the contact and playbook on disk stay exactly as they were.
func (p *Pipeline) LogMeeting(ctx context.Context, ownerID string, req Request) (*models.Meeting, error) {
	if req.RawText == "" {
		return nil, fmt.Errorf("raw_text is required")
	}

	contact, _, err := p.resolver.Resolve(ctx, ownerID, req.ContactName)
	if err != nil {
		return nil, fmt.Errorf("resolving contact: %w", err)
	}

	now := time.Now().UTC()
	meetingDate := req.MeetingDate
	if meetingDate.IsZero() {
		meetingDate = now
	}
	meeting := &models.Meeting{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		ContactID:   contact.ID,
		MeetingDate: meetingDate,
		Location:    req.Location,
		Scenario:    req.Scenario,
		RawText:     req.RawText,
		Status:      models.MeetingProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.CreateMeeting(ctx, meeting); err != nil {
		return nil, fmt.Errorf("creating meeting: %w", err)
	}
	metrics.Inc(metrics.MeetingsTotal)

	// The completion call is the long I/O-bound wait; it runs without the
	// contact lock so concurrent pipelines for the same contact only
	// serialize around the read-modify-write below.
	result, err := p.extractor.Extract(ctx, req.RawText, req.ContactName)
	if err != nil {
		return p.fail(ctx, meeting, err), nil
	}

	unlock := p.locks.Lock(contact.ID)
	defer unlock()

	// Re-read under the lock: another pipeline may have merged onto this
	// contact while extraction was in flight.
	contact, err = p.store.GetContact(ctx, ownerID, contact.ID)
	if err != nil {
		return p.fail(ctx, meeting, fmt.Errorf("reloading contact: %w", err)), nil
	}
	playbook, err := p.store.GetPlaybook(ctx, contact.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return p.fail(ctx, meeting, fmt.Errorf("loading playbook: %w", err)), nil
		}
		playbook = nil
	}

	mergedAt := time.Now().UTC()
	playbook, err = p.engine.Apply(contact, playbook, meeting, result, mergedAt)
	if err != nil {
		return p.fail(ctx, meeting, fmt.Errorf("merging extraction: %w", err)), nil
	}

	// Commit. Contact first, then playbook, then the terminal status; a
	// store error anywhere flips the meeting to failed.
	if err := p.store.SaveContact(ctx, contact); err != nil {
		return p.fail(ctx, meeting, fmt.Errorf("saving contact: %w", err)), nil
	}
	if err := p.store.SavePlaybook(ctx, playbook); err != nil {
		return p.fail(ctx, meeting, fmt.Errorf("saving playbook: %w", err)), nil
	}

	meeting.Status = models.MeetingCompleted
	meeting.UpdatedAt = mergedAt
	if err := p.store.UpdateMeeting(ctx, meeting); err != nil {
		return nil, fmt.Errorf("completing meeting %s: %w", meeting.ID, err)
	}

	metrics.Inc(metrics.MergesTotal)
	p.logger.Info("meeting processed",
		"meeting_id", meeting.ID, "contact_id", contact.ID, "status", meeting.Status)
	return meeting, nil
}

// fail transitions the meeting to its terminal failed state, persisting only
// the status and error message.
func (p *Pipeline) fail(ctx context.Context, meeting *models.Meeting, cause error) *models.Meeting {
	metrics.Inc(metrics.ExtractionsFailed)
	p.logger.Error("meeting processing failed",
		"meeting_id", meeting.ID, "contact_id", meeting.ContactID, "error", cause)

	failed := meeting.Clone()
	failed.Status = models.MeetingFailed
	failed.ErrorMessage = cause.Error()
	failed.UpdatedAt = time.Now().UTC()
	// Derived fields stay unset on the failed path.
	failed.Topics = nil
	failed.KeyFacts = nil
	failed.Sentiment = ""
	failed.MyCommitments = nil
	failed.TheirCommitments = nil
	failed.OpenLoops = nil
	failed.NextConversationHooks = nil

	if err := p.store.UpdateMeeting(ctx, failed); err != nil {
		p.logger.Error("persisting failed status", "meeting_id", meeting.ID, "error", err)
	}
	return failed
}
