// Package merge reconciles one extraction result into a contact's long-lived
// knowledge record: Identity/Status fields, the meeting's derived Timeline
// fields, and the accumulated Action Playbook.
package merge

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rapportlabs/rapport/internal/models"
)

// ErrConflict is reserved for merge policies that cannot resolve
// deterministically. No current policy triggers it: scalar fields are
// last-write-wins and list fields are set unions.
var ErrConflict = errors.New("merge conflict")

// DefaultEvidenceCap bounds how many meeting references a playbook section
// retains. Oldest references are dropped first.
const DefaultEvidenceCap = 100

// Engine applies extraction results onto contact state. It mutates only the
// values passed in; persistence is the caller's concern.
type Engine struct {
	evidenceCap int
	logger      *slog.Logger
}

// NewEngine creates a merge engine. evidenceCap <= 0 selects
// DefaultEvidenceCap.
func NewEngine(evidenceCap int, logger *slog.Logger) *Engine {
	if evidenceCap <= 0 {
		evidenceCap = DefaultEvidenceCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{evidenceCap: evidenceCap, logger: logger}
}

// Apply folds res into the contact, meeting, and playbook. A nil playbook is
// created and populated from this extraction. The updated (or new) playbook
// is returned; contact and meeting are updated in place.
//
// Field policies:
//   - Contact Identity/Status: a non-null, non-empty extracted value
//     overwrites the field; anything else leaves it untouched.
//   - Meeting: derived fields are set from the extraction, once.
//   - Playbook lists: set union with exact-string dedup, so re-merging the
//     same fact never grows a list and merge order does not matter.
//   - Playbook Relationship Health scalars: replaced when present.
//   - contact.LastMeetingDate tracks the meeting date and
//     contact.LastVerifiedAt the merge time.
func (e *Engine) Apply(contact *models.Contact, playbook *models.Playbook, meeting *models.Meeting, res *models.ExtractionResult, now time.Time) (*models.Playbook, error) {
	e.applyContact(contact, &res.Contact)
	e.applyMeeting(meeting, &res.Meeting)

	md := meeting.MeetingDate
	contact.LastMeetingDate = &md
	contact.LastVerifiedAt = &now
	contact.UpdatedAt = now

	if playbook == nil {
		playbook = &models.Playbook{
			ID:        uuid.NewString(),
			ContactID: contact.ID,
			CreatedAt: now,
		}
		e.logger.Debug("creating playbook", "contact_id", contact.ID)
	}
	e.applyPlaybook(playbook, &res.Playbook, meeting.ID)
	playbook.LastUpdatedAt = now

	return playbook, nil
}

// applyContact overwrites contact fields that the extraction supplies with a
// non-empty value. Blanks never erase existing data.
func (e *Engine) applyContact(c *models.Contact, d *models.ContactDelta) {
	setString(&c.Name, d.Name)
	setString(&c.Nickname, d.Nickname)
	setString(&c.Gender, d.Gender)
	setString(&c.AgeGroup, d.AgeGroup)
	setString(&c.Hometown, d.Hometown)
	setString(&c.City, d.City)
	setString(&c.Phone, d.Phone)
	setString(&c.Email, d.Email)
	setString(&c.Wechat, d.Wechat)
	setString(&c.LinkedIn, d.LinkedIn)
	setString(&c.EducationSchool, d.EducationSchool)
	setString(&c.EducationMajor, d.EducationMajor)
	setString(&c.EducationDegree, d.EducationDegree)
	setString(&c.CareerSummary, d.CareerSummary)
	setString(&c.PreferredContactMethod, d.PreferredContactMethod)
	setString(&c.PreferredContactTime, d.PreferredContactTime)
	setString(&c.CommunicationStyle, d.CommunicationStyle)

	setString(&c.CurrentCompany, d.CurrentCompany)
	setString(&c.CurrentPosition, d.CurrentPosition)
	setString(&c.CurrentIndustry, d.CurrentIndustry)
	setString(&c.CurrentLocation, d.CurrentLocation)
	setString(&c.StartupStatus, d.StartupStatus)
	setList(&c.FocusTopics, d.FocusTopics)
	setList(&c.CurrentProjects, d.CurrentProjects)
	setList(&c.ShortTermGoals, d.ShortTermGoals)
	setList(&c.LongTermGoals, d.LongTermGoals)
	setList(&c.ResourceNeeds, d.ResourceNeeds)
	setList(&c.ResourceOffers, d.ResourceOffers)
	setList(&c.ExcitementPoints, d.ExcitementPoints)
	setList(&c.AnxietyPoints, d.AnxietyPoints)
	setList(&c.SensitivePoints, d.SensitivePoints)
}

// applyMeeting sets the meeting's derived fields from the extraction.
func (e *Engine) applyMeeting(m *models.Meeting, d *models.MeetingDelta) {
	m.Topics = d.Topics
	m.KeyFacts = d.KeyFacts
	if d.Sentiment != nil {
		m.Sentiment = *d.Sentiment
	}
	m.MyCommitments = d.MyCommitments
	m.TheirCommitments = d.TheirCommitments
	m.OpenLoops = d.OpenLoops
	m.NextConversationHooks = d.NextConversationHooks
}

// applyPlaybook folds the delta into the playbook section by section and
// records which sections this meeting contributed to.
func (e *Engine) applyPlaybook(p *models.Playbook, d *models.PlaybookDelta, meetingID string) {
	if gc := d.GiftCare; gc != nil {
		touched := unionInto(&p.Preferences, gc.Preferences)
		touched = unionInto(&p.Taboos, gc.Taboos) || touched
		touched = unionInto(&p.GiftOccasions, gc.GiftOccasions) || touched
		if gr := gc.GiftRecommendations; gr != nil {
			touched = unionInto(&p.GiftRecommendations.Small, gr.Small) || touched
			touched = unionInto(&p.GiftRecommendations.Medium, gr.Medium) || touched
			touched = unionInto(&p.GiftRecommendations.Formal, gr.Formal) || touched
		}
		if touched {
			e.addEvidence(p, models.SectionGiftCare, meetingID)
		}
	}

	if ch := d.ConversationHooks; ch != nil {
		touched := unionInto(&p.TopTopics, ch.TopTopics)
		touched = unionInto(&p.OpenLoops, ch.OpenLoops) || touched
		touched = unionInto(&p.ConversationQuestions, ch.ConversationQuestions) || touched
		touched = unionInto(&p.ConversationAvoid, ch.ConversationAvoid) || touched
		if touched {
			e.addEvidence(p, models.SectionConversationHooks, meetingID)
		}
	}

	if cm := d.CollaborationMap; cm != nil {
		touched := unionInto(&p.HowICanHelpThem, cm.HowICanHelpThem)
		touched = unionInto(&p.HowTheyCanHelpMe, cm.HowTheyCanHelpMe) || touched
		touched = unionInto(&p.ExchangeBoundaries, cm.ExchangeBoundaries) || touched
		if cm.ContactRhythm != nil {
			r := *cm.ContactRhythm
			p.ContactRhythm = &r
			touched = true
		}
		if touched {
			e.addEvidence(p, models.SectionCollaborationMap, meetingID)
		}
	}

	if rh := d.RelationshipHealth; rh != nil {
		touched := false
		if rh.RelationshipStage != nil && *rh.RelationshipStage != "" {
			p.RelationshipStage = *rh.RelationshipStage
			touched = true
		}
		if rh.TemperatureScore != nil {
			v := *rh.TemperatureScore
			p.TemperatureScore = &v
			touched = true
		}
		touched = unionInto(&p.RecentRisks, rh.RecentRisks) || touched
		if rh.NextAction != nil && rh.NextAction.Action != "" {
			a := *rh.NextAction
			p.NextAction = &a
			touched = true
		}
		if touched {
			e.addEvidence(p, models.SectionRelationshipHealth, meetingID)
		}
	}
}

// addEvidence appends the meeting ID to a section's evidence list, skipping
// duplicates and dropping the oldest entries beyond the cap.
func (e *Engine) addEvidence(p *models.Playbook, section, meetingID string) {
	if meetingID == "" {
		return
	}
	if p.EvidenceRefs == nil {
		p.EvidenceRefs = make(map[string][]string)
	}
	refs := p.EvidenceRefs[section]
	for _, id := range refs {
		if id == meetingID {
			return
		}
	}
	refs = append(refs, meetingID)
	if len(refs) > e.evidenceCap {
		refs = refs[len(refs)-e.evidenceCap:]
	}
	p.EvidenceRefs[section] = refs
}

// setString overwrites dst when the delta supplies a non-empty value.
func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

// setList replaces dst wholesale when the delta supplies a non-empty list.
func setList(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = append([]string(nil), src...)
	}
}

// unionInto appends the values from src not already present in dst,
// preserving dst's existing order and deduplicating by exact string.
// Returns true if src supplied any values at all.
func unionInto(dst *[]string, src []string) bool {
	if len(src) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(*dst)+len(src))
	for _, v := range *dst {
		seen[v] = struct{}{}
	}
	for _, v := range src {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		*dst = append(*dst, v)
	}
	return true
}
