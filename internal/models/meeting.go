package models

import (
	"time"
)

// MeetingStatus tracks a meeting's extraction lifecycle.
type MeetingStatus string

const (
	MeetingProcessing MeetingStatus = "processing"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingFailed     MeetingStatus = "failed"
)

// IsValid returns true if the status is recognized.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingProcessing, MeetingCompleted, MeetingFailed:
		return true
	}
	return false
}

// IsTerminal returns true once a meeting can no longer change state.
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingCompleted || s == MeetingFailed
}

// KeyFact is a fact the contact explicitly stated during a meeting.
type KeyFact struct {
	Fact     string `json:"fact"`
	Category string `json:"category,omitempty"`
}

// Commitment is a promise made during a meeting, by either party.
type Commitment struct {
	Commitment string `json:"commitment"`
	Deadline   string `json:"deadline,omitempty"`
}

// Meeting is one Timeline entry: a single real-world interaction.
// RawText is write-once; the derived fields (topics through hooks) are set
// exactly once during the transition out of MeetingProcessing.
type Meeting struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	ContactID string `json:"contact_id"`

	MeetingDate time.Time `json:"meeting_date"`
	Location    string    `json:"location,omitempty"`
	Scenario    string    `json:"scenario,omitempty"`

	RawText string `json:"raw_text"`

	// Derived by extraction.
	Topics                []string     `json:"topics,omitempty"`
	KeyFacts              []KeyFact    `json:"key_facts,omitempty"`
	Sentiment             string       `json:"sentiment,omitempty"`
	MyCommitments         []Commitment `json:"my_commitments,omitempty"`
	TheirCommitments      []Commitment `json:"their_commitments,omitempty"`
	OpenLoops             []string     `json:"open_loops,omitempty"`
	NextConversationHooks []string     `json:"next_conversation_hooks,omitempty"`

	Status       MeetingStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the meeting.
func (m *Meeting) Clone() *Meeting {
	out := *m
	out.Topics = cloneStrings(m.Topics)
	if m.KeyFacts != nil {
		out.KeyFacts = append([]KeyFact(nil), m.KeyFacts...)
	}
	if m.MyCommitments != nil {
		out.MyCommitments = append([]Commitment(nil), m.MyCommitments...)
	}
	if m.TheirCommitments != nil {
		out.TheirCommitments = append([]Commitment(nil), m.TheirCommitments...)
	}
	out.OpenLoops = cloneStrings(m.OpenLoops)
	out.NextConversationHooks = cloneStrings(m.NextConversationHooks)
	return &out
}
