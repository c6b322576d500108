package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapportlabs/rapport/internal/models"
)

func strPtr(s string) *string { return &s }

func testContact() *models.Contact {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Contact{
		ID:        "c-1",
		OwnerID:   "local",
		Name:      "李娜",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testMeeting() *models.Meeting {
	return &models.Meeting{
		ID:          "m-1",
		OwnerID:     "local",
		ContactID:   "c-1",
		MeetingDate: time.Date(2026, 3, 15, 19, 0, 0, 0, time.UTC),
		RawText:     "晚餐聊了很多",
		Status:      models.MeetingProcessing,
	}
}

func TestApplyCreatesPlaybookLazily(t *testing.T) {
	eng := NewEngine(0, nil)
	contact := testContact()
	meeting := testMeeting()
	now := time.Now().UTC()

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{Preferences: []string{"花草茶"}},
		},
	}

	pb, err := eng.Apply(contact, nil, meeting, res, now)
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.NotEmpty(t, pb.ID)
	assert.Equal(t, contact.ID, pb.ContactID)
	assert.Equal(t, []string{"花草茶"}, pb.Preferences)
	assert.Equal(t, now, pb.CreatedAt)
	assert.Equal(t, now, pb.LastUpdatedAt)
}

func TestApplyContactOverwritesOnlySuppliedFields(t *testing.T) {
	eng := NewEngine(0, nil)
	contact := testContact()
	contact.City = "北京"
	contact.CurrentCompany = "老东家"
	contact.FocusTopics = []string{"AI"}

	res := &models.ExtractionResult{
		Contact: models.ContactDelta{
			CurrentCompany: strPtr("新公司"),
			Email:          strPtr(""),
			FocusTopics:    []string{"出海", "SaaS"},
		},
	}

	_, err := eng.Apply(contact, nil, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "新公司", contact.CurrentCompany, "non-empty value overwrites")
	assert.Equal(t, "北京", contact.City, "absent value leaves field untouched")
	assert.Empty(t, contact.Email, "empty string never erases")
	assert.Equal(t, []string{"出海", "SaaS"}, contact.FocusTopics, "lists replace wholesale")
}

func TestApplySetsMeetingDerivedFields(t *testing.T) {
	eng := NewEngine(0, nil)
	meeting := testMeeting()

	res := &models.ExtractionResult{
		Meeting: models.MeetingDelta{
			Topics:    []string{"融资", "团队"},
			KeyFacts:  []models.KeyFact{{Fact: "刚完成A轮", Category: "career"}},
			Sentiment: strPtr("positive"),
			OpenLoops: []string{"下次聊产品定价"},
		},
	}

	_, err := eng.Apply(testContact(), nil, meeting, res, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, []string{"融资", "团队"}, meeting.Topics)
	require.Len(t, meeting.KeyFacts, 1)
	assert.Equal(t, "刚完成A轮", meeting.KeyFacts[0].Fact)
	assert.Equal(t, "positive", meeting.Sentiment)
	assert.Equal(t, []string{"下次聊产品定价"}, meeting.OpenLoops)
}

func TestApplyTracksLastMeetingAndVerifiedAt(t *testing.T) {
	eng := NewEngine(0, nil)
	contact := testContact()
	meeting := testMeeting()
	now := time.Now().UTC()

	_, err := eng.Apply(contact, nil, meeting, &models.ExtractionResult{}, now)
	require.NoError(t, err)

	require.NotNil(t, contact.LastMeetingDate)
	assert.Equal(t, meeting.MeetingDate, *contact.LastMeetingDate)
	require.NotNil(t, contact.LastVerifiedAt)
	assert.Equal(t, now, *contact.LastVerifiedAt)
	assert.Equal(t, now, contact.UpdatedAt)
}

func TestPlaybookUnionIsIdempotent(t *testing.T) {
	eng := NewEngine(0, nil)
	contact := testContact()

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{Preferences: []string{"花草茶", "手冲咖啡"}},
			ConversationHooks: &models.ConversationHooksDelta{
				TopTopics: []string{"越野跑"},
			},
		},
	}

	pb, err := eng.Apply(contact, nil, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)

	// Re-merging the identical delta from a second meeting must not grow any list.
	meeting2 := testMeeting()
	meeting2.ID = "m-2"
	pb, err = eng.Apply(contact, pb, meeting2, res, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, []string{"花草茶", "手冲咖啡"}, pb.Preferences)
	assert.Equal(t, []string{"越野跑"}, pb.TopTopics)

	// Evidence still records both meetings.
	assert.Equal(t, []string{"m-1", "m-2"}, pb.EvidenceRefs[models.SectionGiftCare])
}

func TestPlaybookUnionIsCommutative(t *testing.T) {
	eng := NewEngine(0, nil)

	deltaA := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{Preferences: []string{"花草茶", "黑巧克力"}},
		},
	}
	deltaB := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{Preferences: []string{"黑巧克力", "手冲咖啡"}},
		},
	}

	apply := func(first, second *models.ExtractionResult) []string {
		m1, m2 := testMeeting(), testMeeting()
		m2.ID = "m-2"
		pb, err := eng.Apply(testContact(), nil, m1, first, time.Now().UTC())
		require.NoError(t, err)
		pb, err = eng.Apply(testContact(), pb, m2, second, time.Now().UTC())
		require.NoError(t, err)
		return pb.Preferences
	}

	ab := apply(deltaA, deltaB)
	ba := apply(deltaB, deltaA)
	assert.ElementsMatch(t, ab, ba, "merge order changes ordering only, never membership")
	assert.Len(t, ab, 3)
}

func TestPlaybookUnionPreservesOrderAndSkipsBlanks(t *testing.T) {
	eng := NewEngine(0, nil)
	pb := &models.Playbook{ID: "p-1", ContactID: "c-1", Preferences: []string{"茶"}}

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{Preferences: []string{"", "咖啡", "茶"}},
		},
	}
	pb, err := eng.Apply(testContact(), pb, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []string{"茶", "咖啡"}, pb.Preferences)
}

func TestGiftRecommendationsMergePerTier(t *testing.T) {
	eng := NewEngine(0, nil)

	first := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{
				GiftRecommendations: &models.GiftTiers{Small: []string{"书签"}},
			},
		},
	}
	pb, err := eng.Apply(testContact(), nil, testMeeting(), first, time.Now().UTC())
	require.NoError(t, err)

	second := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare: &models.GiftCareDelta{
				GiftRecommendations: &models.GiftTiers{
					Small:  []string{"书签", "明信片"},
					Formal: []string{"茶具"},
				},
			},
		},
	}
	meeting2 := testMeeting()
	meeting2.ID = "m-2"
	pb, err = eng.Apply(testContact(), pb, meeting2, second, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, []string{"书签", "明信片"}, pb.GiftRecommendations.Small)
	assert.Equal(t, []string{"茶具"}, pb.GiftRecommendations.Formal)
	assert.Empty(t, pb.GiftRecommendations.Medium)
}

func TestRelationshipHealthScalarsOverwrite(t *testing.T) {
	eng := NewEngine(0, nil)
	score1, score2 := 60.0, 80.0

	first := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			RelationshipHealth: &models.RelationshipHealthDelta{
				RelationshipStage: strPtr("acquaintance"),
				TemperatureScore:  &score1,
				NextAction:        &models.NextAction{Action: "一周内发感谢消息", Timing: "本周"},
			},
		},
	}
	pb, err := eng.Apply(testContact(), nil, testMeeting(), first, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "acquaintance", pb.RelationshipStage)

	second := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			RelationshipHealth: &models.RelationshipHealthDelta{
				RelationshipStage: strPtr("friend"),
				TemperatureScore:  &score2,
			},
		},
	}
	meeting2 := testMeeting()
	meeting2.ID = "m-2"
	pb, err = eng.Apply(testContact(), pb, meeting2, second, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "friend", pb.RelationshipStage)
	require.NotNil(t, pb.TemperatureScore)
	assert.Equal(t, 80.0, *pb.TemperatureScore)
	// NextAction from the first merge survives when the second supplies none.
	require.NotNil(t, pb.NextAction)
	assert.Equal(t, "一周内发感谢消息", pb.NextAction.Action)
}

func TestEmptyRelationshipStageDoesNotErase(t *testing.T) {
	eng := NewEngine(0, nil)
	pb := &models.Playbook{ID: "p-1", ContactID: "c-1", RelationshipStage: "friend"}

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			RelationshipHealth: &models.RelationshipHealthDelta{
				RelationshipStage: strPtr(""),
			},
		},
	}
	pb, err := eng.Apply(testContact(), pb, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "friend", pb.RelationshipStage)
}

func TestEvidenceCapDropsOldest(t *testing.T) {
	eng := NewEngine(3, nil)
	contact := testContact()

	var pb *models.Playbook
	var err error
	for i := 1; i <= 5; i++ {
		m := testMeeting()
		m.ID = "m-" + string(rune('0'+i))
		res := &models.ExtractionResult{
			Playbook: models.PlaybookDelta{
				ConversationHooks: &models.ConversationHooksDelta{
					TopTopics: []string{"话题" + string(rune('0'+i))},
				},
			},
		}
		pb, err = eng.Apply(contact, pb, m, res, time.Now().UTC())
		require.NoError(t, err)
	}

	refs := pb.EvidenceRefs[models.SectionConversationHooks]
	assert.Equal(t, []string{"m-3", "m-4", "m-5"}, refs)
}

func TestEvidenceNotRecordedForUntouchedSections(t *testing.T) {
	eng := NewEngine(0, nil)

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			GiftCare:          &models.GiftCareDelta{},
			ConversationHooks: &models.ConversationHooksDelta{TopTopics: []string{"篮球"}},
		},
	}
	pb, err := eng.Apply(testContact(), nil, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)

	assert.NotContains(t, pb.EvidenceRefs, models.SectionGiftCare)
	assert.Contains(t, pb.EvidenceRefs, models.SectionConversationHooks)
}

func TestContactRhythmCopiedByValue(t *testing.T) {
	eng := NewEngine(0, nil)
	rhythm := &models.ContactRhythm{Frequency: "每月一次", Style: "轻松"}

	res := &models.ExtractionResult{
		Playbook: models.PlaybookDelta{
			CollaborationMap: &models.CollaborationMapDelta{ContactRhythm: rhythm},
		},
	}
	pb, err := eng.Apply(testContact(), nil, testMeeting(), res, time.Now().UTC())
	require.NoError(t, err)

	require.NotNil(t, pb.ContactRhythm)
	rhythm.Frequency = "mutated"
	assert.Equal(t, "每月一次", pb.ContactRhythm.Frequency)
}
