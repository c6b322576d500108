package models

// ExtractionResult is the structured shape the completion service returns for
// one meeting's raw text. Each top-level key is optional: a missing key
// decodes to its zero value and means "no information", never an error.
// Unknown keys in the response are dropped at the JSON boundary.
type ExtractionResult struct {
	Contact  ContactDelta  `json:"contact"`
	Meeting  MeetingDelta  `json:"meeting"`
	Playbook PlaybookDelta `json:"action_playbook"`
}

// ContactDelta carries Identity/Status updates. Pointer fields distinguish
// "absent or null" (leave the contact untouched) from a supplied value;
// list fields replace the contact's list only when non-empty.
type ContactDelta struct {
	Name                   *string `json:"name"`
	Nickname               *string `json:"nickname"`
	Gender                 *string `json:"gender"`
	AgeGroup               *string `json:"age_group"`
	Hometown               *string `json:"hometown"`
	City                   *string `json:"city"`
	Phone                  *string `json:"phone"`
	Email                  *string `json:"email"`
	Wechat                 *string `json:"wechat"`
	LinkedIn               *string `json:"linkedin"`
	EducationSchool        *string `json:"education_school"`
	EducationMajor         *string `json:"education_major"`
	EducationDegree        *string `json:"education_degree"`
	CareerSummary          *string `json:"career_summary"`
	PreferredContactMethod *string `json:"preferred_contact_method"`
	PreferredContactTime   *string `json:"preferred_contact_time"`
	CommunicationStyle     *string `json:"communication_style"`

	CurrentCompany   *string  `json:"current_company"`
	CurrentPosition  *string  `json:"current_position"`
	CurrentIndustry  *string  `json:"current_industry"`
	CurrentLocation  *string  `json:"current_location"`
	StartupStatus    *string  `json:"startup_status"`
	FocusTopics      []string `json:"focus_topics"`
	CurrentProjects  []string `json:"current_projects"`
	ShortTermGoals   []string `json:"short_term_goals"`
	LongTermGoals    []string `json:"long_term_goals"`
	ResourceNeeds    []string `json:"resource_needs"`
	ResourceOffers   []string `json:"resource_offers"`
	ExcitementPoints []string `json:"excitement_points"`
	AnxietyPoints    []string `json:"anxiety_points"`
	SensitivePoints  []string `json:"sensitive_points"`
}

// MeetingDelta carries the Timeline fields derived from one extraction pass.
// They are applied exactly once, at the transition out of MeetingProcessing.
type MeetingDelta struct {
	Topics                []string     `json:"topics"`
	KeyFacts              []KeyFact    `json:"key_facts"`
	Sentiment             *string      `json:"sentiment"`
	MyCommitments         []Commitment `json:"my_commitments"`
	TheirCommitments      []Commitment `json:"their_commitments"`
	OpenLoops             []string     `json:"open_loops"`
	NextConversationHooks []string     `json:"next_conversation_hooks"`
}

// PlaybookDelta carries Playbook updates, subdivided into the four sections.
// A nil section contributes nothing.
type PlaybookDelta struct {
	GiftCare           *GiftCareDelta           `json:"gift_care"`
	ConversationHooks  *ConversationHooksDelta  `json:"conversation_hooks"`
	CollaborationMap   *CollaborationMapDelta   `json:"collaboration_map"`
	RelationshipHealth *RelationshipHealthDelta `json:"relationship_health"`
}

// IsEmpty reports whether the delta carries no section at all.
func (d PlaybookDelta) IsEmpty() bool {
	return d.GiftCare == nil && d.ConversationHooks == nil &&
		d.CollaborationMap == nil && d.RelationshipHealth == nil
}

// GiftCareDelta updates the Gift & Care section.
type GiftCareDelta struct {
	Preferences         []string   `json:"preferences"`
	Taboos              []string   `json:"taboos"`
	GiftOccasions       []string   `json:"gift_occasions"`
	GiftRecommendations *GiftTiers `json:"gift_recommendations"`
}

// ConversationHooksDelta updates the Conversation Hooks section.
type ConversationHooksDelta struct {
	TopTopics             []string `json:"top_topics"`
	OpenLoops             []string `json:"open_loops"`
	ConversationQuestions []string `json:"conversation_questions"`
	ConversationAvoid     []string `json:"conversation_avoid"`
}

// CollaborationMapDelta updates the Collaboration Map section.
type CollaborationMapDelta struct {
	HowICanHelpThem    []string       `json:"how_i_can_help_them"`
	HowTheyCanHelpMe   []string       `json:"how_they_can_help_me"`
	ExchangeBoundaries []string       `json:"exchange_boundaries"`
	ContactRhythm      *ContactRhythm `json:"contact_rhythm"`
}

// RelationshipHealthDelta updates the Relationship Health section. Scalars
// replace the prior value when present; absent values leave it untouched.
type RelationshipHealthDelta struct {
	RelationshipStage *string     `json:"relationship_stage"`
	TemperatureScore  *float64    `json:"temperature_score"`
	RecentRisks       []string    `json:"recent_risks"`
	NextAction        *NextAction `json:"next_action"`
}
