package models

import (
	"time"
)

// Evidence section keys used in Playbook.EvidenceRefs.
const (
	SectionGiftCare           = "gift_care"
	SectionConversationHooks  = "conversation_hooks"
	SectionCollaborationMap   = "collaboration_map"
	SectionRelationshipHealth = "relationship_health"
)

// GiftTiers holds gift recommendations grouped by formality tier.
type GiftTiers struct {
	Small  []string `json:"small,omitempty"`
	Medium []string `json:"medium,omitempty"`
	Formal []string `json:"formal,omitempty"`
}

// ContactRhythm is the suggested cadence and tone for staying in touch.
type ContactRhythm struct {
	Frequency string `json:"frequency,omitempty"`
	Style     string `json:"style,omitempty"`
}

// NextAction is the single suggested next step for the relationship.
type NextAction struct {
	Action string `json:"action"`
	Timing string `json:"timing,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Playbook is the derived, continuously-merged advisory record for a contact.
// Exactly one exists per contact, created lazily on the first successful
// extraction. List fields accumulate across extractions with exact-string
// dedup; Relationship Health scalars track the latest extraction's value.
type Playbook struct {
	ID        string `json:"id"`
	ContactID string `json:"contact_id"`

	// Gift & Care
	Preferences         []string  `json:"preferences,omitempty"`
	Taboos              []string  `json:"taboos,omitempty"`
	GiftOccasions       []string  `json:"gift_occasions,omitempty"`
	GiftRecommendations GiftTiers `json:"gift_recommendations"`

	// Conversation Hooks
	TopTopics             []string `json:"top_topics,omitempty"`
	OpenLoops             []string `json:"open_loops,omitempty"`
	ConversationQuestions []string `json:"conversation_questions,omitempty"`
	ConversationAvoid     []string `json:"conversation_avoid,omitempty"`

	// Collaboration Map
	HowICanHelpThem    []string       `json:"how_i_can_help_them,omitempty"`
	HowTheyCanHelpMe   []string       `json:"how_they_can_help_me,omitempty"`
	ExchangeBoundaries []string       `json:"exchange_boundaries,omitempty"`
	ContactRhythm      *ContactRhythm `json:"contact_rhythm,omitempty"`

	// Relationship Health
	RelationshipStage string      `json:"relationship_stage,omitempty"`
	TemperatureScore  *float64    `json:"temperature_score,omitempty"`
	RecentRisks       []string    `json:"recent_risks,omitempty"`
	NextAction        *NextAction `json:"next_action,omitempty"`

	// EvidenceRefs maps a section key to the IDs of the meetings that
	// contributed to it, oldest first. Accumulated, never replaced wholesale.
	EvidenceRefs map[string][]string `json:"evidence_refs,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Clone returns a deep copy of the playbook.
func (p *Playbook) Clone() *Playbook {
	out := *p
	out.Preferences = cloneStrings(p.Preferences)
	out.Taboos = cloneStrings(p.Taboos)
	out.GiftOccasions = cloneStrings(p.GiftOccasions)
	out.GiftRecommendations = GiftTiers{
		Small:  cloneStrings(p.GiftRecommendations.Small),
		Medium: cloneStrings(p.GiftRecommendations.Medium),
		Formal: cloneStrings(p.GiftRecommendations.Formal),
	}
	out.TopTopics = cloneStrings(p.TopTopics)
	out.OpenLoops = cloneStrings(p.OpenLoops)
	out.ConversationQuestions = cloneStrings(p.ConversationQuestions)
	out.ConversationAvoid = cloneStrings(p.ConversationAvoid)
	out.HowICanHelpThem = cloneStrings(p.HowICanHelpThem)
	out.HowTheyCanHelpMe = cloneStrings(p.HowTheyCanHelpMe)
	out.ExchangeBoundaries = cloneStrings(p.ExchangeBoundaries)
	if p.ContactRhythm != nil {
		r := *p.ContactRhythm
		out.ContactRhythm = &r
	}
	if p.TemperatureScore != nil {
		v := *p.TemperatureScore
		out.TemperatureScore = &v
	}
	out.RecentRisks = cloneStrings(p.RecentRisks)
	if p.NextAction != nil {
		a := *p.NextAction
		out.NextAction = &a
	}
	if p.EvidenceRefs != nil {
		refs := make(map[string][]string, len(p.EvidenceRefs))
		for k, v := range p.EvidenceRefs {
			refs[k] = cloneStrings(v)
		}
		out.EvidenceRefs = refs
	}
	return &out
}
