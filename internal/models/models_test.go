package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingStatusIsValid(t *testing.T) {
	assert.True(t, MeetingProcessing.IsValid())
	assert.True(t, MeetingCompleted.IsValid())
	assert.True(t, MeetingFailed.IsValid())
	assert.False(t, MeetingStatus("done").IsValid())
	assert.False(t, MeetingStatus("").IsValid())
}

func TestMeetingStatusIsTerminal(t *testing.T) {
	assert.False(t, MeetingProcessing.IsTerminal())
	assert.True(t, MeetingCompleted.IsTerminal())
	assert.True(t, MeetingFailed.IsTerminal())
}

func TestContactCloneIsIndependent(t *testing.T) {
	lastMet := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	c := &Contact{
		ID:              "c-1",
		Name:            "张伟",
		FocusTopics:     []string{"AI"},
		LastMeetingDate: &lastMet,
	}

	clone := c.Clone()
	clone.Name = "李四"
	clone.FocusTopics[0] = "mutated"
	*clone.LastMeetingDate = lastMet.AddDate(0, 1, 0)

	assert.Equal(t, "张伟", c.Name)
	assert.Equal(t, []string{"AI"}, c.FocusTopics)
	assert.Equal(t, lastMet, *c.LastMeetingDate)
}

func TestMeetingCloneIsIndependent(t *testing.T) {
	m := &Meeting{
		ID:       "m-1",
		Topics:   []string{"融资"},
		KeyFacts: []KeyFact{{Fact: "刚换工作"}},
	}

	clone := m.Clone()
	clone.Topics[0] = "mutated"
	clone.KeyFacts[0].Fact = "mutated"

	assert.Equal(t, "融资", m.Topics[0])
	assert.Equal(t, "刚换工作", m.KeyFacts[0].Fact)
}

func TestPlaybookCloneIsIndependent(t *testing.T) {
	score := 75.0
	p := &Playbook{
		ID:               "p-1",
		ContactID:        "c-1",
		Preferences:      []string{"茶"},
		TemperatureScore: &score,
		ContactRhythm:    &ContactRhythm{Frequency: "每月"},
		NextAction:       &NextAction{Action: "约饭"},
		EvidenceRefs:     map[string][]string{SectionGiftCare: {"m-1"}},
	}

	clone := p.Clone()
	clone.Preferences[0] = "mutated"
	*clone.TemperatureScore = 10
	clone.ContactRhythm.Frequency = "mutated"
	clone.NextAction.Action = "mutated"
	clone.EvidenceRefs[SectionGiftCare][0] = "mutated"

	assert.Equal(t, "茶", p.Preferences[0])
	assert.Equal(t, 75.0, *p.TemperatureScore)
	assert.Equal(t, "每月", p.ContactRhythm.Frequency)
	assert.Equal(t, "约饭", p.NextAction.Action)
	assert.Equal(t, "m-1", p.EvidenceRefs[SectionGiftCare][0])
}

func TestExtractionResultDecodesMissingKeys(t *testing.T) {
	var res ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(`{"contact": {"name": "王芳"}}`), &res))

	require.NotNil(t, res.Contact.Name)
	assert.Equal(t, "王芳", *res.Contact.Name)
	assert.Empty(t, res.Meeting.Topics)
	assert.True(t, res.Playbook.IsEmpty())
}

func TestPlaybookDeltaIsEmpty(t *testing.T) {
	assert.True(t, PlaybookDelta{}.IsEmpty())
	assert.False(t, PlaybookDelta{GiftCare: &GiftCareDelta{}}.IsEmpty())
}
