package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapportlabs/rapport/internal/models"
)

const owner = "local"

// storeFactories lets every behavioral test run against both implementations.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemStore()
		},
		"sqlite": func(t *testing.T) Store {
			st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
	}
}

func newContact(id, name string, createdAt time.Time) *models.Contact {
	return &models.Contact{
		ID:        id,
		OwnerID:   owner,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func newMeeting(id, contactID string, date time.Time) *models.Meeting {
	return &models.Meeting{
		ID:          id,
		OwnerID:     owner,
		ContactID:   contactID,
		MeetingDate: date,
		RawText:     "一些会谈记录",
		Status:      models.MeetingProcessing,
		CreatedAt:   date,
		UpdatedAt:   date,
	}
}

func TestContactRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			created := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

			c := newContact("c-1", "张伟", created)
			c.City = "上海"
			c.FocusTopics = []string{"AI", "出海"}
			require.NoError(t, st.CreateContact(ctx, c))

			got, err := st.GetContact(ctx, owner, "c-1")
			require.NoError(t, err)
			assert.Equal(t, "张伟", got.Name)
			assert.Equal(t, "上海", got.City)
			assert.Equal(t, []string{"AI", "出海"}, got.FocusTopics)

			got.CurrentCompany = "新公司"
			require.NoError(t, st.SaveContact(ctx, got))

			got, err = st.GetContact(ctx, owner, "c-1")
			require.NoError(t, err)
			assert.Equal(t, "新公司", got.CurrentCompany)
		})
	}
}

func TestGetContactNotFound(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			_, err := st.GetContact(context.Background(), owner, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			err = st.SaveContact(context.Background(), newContact("missing", "x", time.Now().UTC()))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGetContactScopedToOwner(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			require.NoError(t, st.CreateContact(ctx, newContact("c-1", "张伟", time.Now().UTC())))

			_, err := st.GetContact(ctx, "other-owner", "c-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFindContactByName(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			require.NoError(t, st.CreateContact(ctx, newContact("c-2", "张伟强", base.AddDate(0, 0, 5))))
			require.NoError(t, st.CreateContact(ctx, newContact("c-1", "张伟", base)))

			got, err := st.FindContactByName(ctx, owner, "张伟", MatchExact)
			require.NoError(t, err)
			assert.Equal(t, "c-1", got.ID)

			_, err = st.FindContactByName(ctx, owner, "伟强", MatchExact)
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = st.FindContactByName(ctx, owner, "伟强", MatchFuzzy)
			require.NoError(t, err)
			assert.Equal(t, "c-2", got.ID)

			// Multiple fuzzy candidates: the oldest wins.
			got, err = st.FindContactByName(ctx, owner, "张伟", MatchFuzzy)
			require.NoError(t, err)
			assert.Equal(t, "c-1", got.ID)
		})
	}
}

func TestFindContactByNameFoldsASCIICase(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			require.NoError(t, st.CreateContact(ctx, newContact("c-1", "David Chen", time.Now().UTC())))

			got, err := st.FindContactByName(ctx, owner, "david", MatchFuzzy)
			require.NoError(t, err)
			assert.Equal(t, "c-1", got.ID)
		})
	}
}

func TestListContactsOrder(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			recent := newContact("c-recent", "最近见过", base)
			recentMet := base.AddDate(0, 2, 0)
			recent.LastMeetingDate = &recentMet

			older := newContact("c-older", "早先见过", base)
			olderMet := base.AddDate(0, 1, 0)
			older.LastMeetingDate = &olderMet

			never := newContact("c-never", "还没见过", base.AddDate(0, 0, 1))

			require.NoError(t, st.CreateContact(ctx, older))
			require.NoError(t, st.CreateContact(ctx, never))
			require.NoError(t, st.CreateContact(ctx, recent))

			out, err := st.ListContacts(ctx, owner)
			require.NoError(t, err)
			require.Len(t, out, 3)
			assert.Equal(t, "c-recent", out[0].ID)
			assert.Equal(t, "c-older", out[1].ID)
			assert.Equal(t, "c-never", out[2].ID, "never-met contacts sort last")
		})
	}
}

func TestDeleteContactCascades(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			now := time.Now().UTC()

			require.NoError(t, st.CreateContact(ctx, newContact("c-1", "张伟", now)))
			require.NoError(t, st.CreateMeeting(ctx, newMeeting("m-1", "c-1", now)))
			require.NoError(t, st.SavePlaybook(ctx, &models.Playbook{ID: "p-1", ContactID: "c-1"}))

			require.NoError(t, st.DeleteContact(ctx, owner, "c-1"))

			_, err := st.GetContact(ctx, owner, "c-1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = st.GetMeeting(ctx, owner, "m-1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = st.GetPlaybook(ctx, "c-1")
			assert.ErrorIs(t, err, ErrNotFound)

			err = st.DeleteContact(ctx, owner, "c-1")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMeetingRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			now := time.Date(2026, 3, 15, 19, 0, 0, 0, time.UTC)

			m := newMeeting("m-1", "c-1", now)
			require.NoError(t, st.CreateMeeting(ctx, m))

			m.Status = models.MeetingCompleted
			m.Topics = []string{"融资"}
			m.KeyFacts = []models.KeyFact{{Fact: "刚完成A轮", Category: "career"}}
			require.NoError(t, st.UpdateMeeting(ctx, m))

			got, err := st.GetMeeting(ctx, owner, "m-1")
			require.NoError(t, err)
			assert.Equal(t, models.MeetingCompleted, got.Status)
			assert.Equal(t, []string{"融资"}, got.Topics)
			assert.Equal(t, "一些会谈记录", got.RawText)

			err = st.UpdateMeeting(ctx, newMeeting("missing", "c-1", now))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListMeetingsNewestFirst(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

			require.NoError(t, st.CreateMeeting(ctx, newMeeting("m-old", "c-1", base)))
			require.NoError(t, st.CreateMeeting(ctx, newMeeting("m-new", "c-1", base.AddDate(0, 1, 0))))
			require.NoError(t, st.CreateMeeting(ctx, newMeeting("m-other", "c-2", base)))

			out, err := st.ListMeetings(ctx, "c-1")
			require.NoError(t, err)
			require.Len(t, out, 2)
			assert.Equal(t, "m-new", out[0].ID)
			assert.Equal(t, "m-old", out[1].ID)
		})
	}
}

func TestPlaybookUpsert(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()

			_, err := st.GetPlaybook(ctx, "c-1")
			assert.ErrorIs(t, err, ErrNotFound)

			p := &models.Playbook{
				ID:           "p-1",
				ContactID:    "c-1",
				Preferences:  []string{"花草茶"},
				EvidenceRefs: map[string][]string{models.SectionGiftCare: {"m-1"}},
			}
			require.NoError(t, st.SavePlaybook(ctx, p))

			p.Preferences = append(p.Preferences, "手冲咖啡")
			require.NoError(t, st.SavePlaybook(ctx, p))

			got, err := st.GetPlaybook(ctx, "c-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"花草茶", "手冲咖啡"}, got.Preferences)
			assert.Equal(t, []string{"m-1"}, got.EvidenceRefs[models.SectionGiftCare])
		})
	}
}

func TestStats(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			st := factory(t)
			ctx := context.Background()
			now := time.Now().UTC()

			require.NoError(t, st.CreateContact(ctx, newContact("c-1", "张伟", now)))
			m1 := newMeeting("m-1", "c-1", now)
			m1.Status = models.MeetingCompleted
			require.NoError(t, st.CreateMeeting(ctx, m1))
			m2 := newMeeting("m-2", "c-1", now)
			m2.Status = models.MeetingFailed
			require.NoError(t, st.CreateMeeting(ctx, m2))
			require.NoError(t, st.SavePlaybook(ctx, &models.Playbook{ID: "p-1", ContactID: "c-1"}))

			stats, err := st.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), stats.Contacts)
			assert.Equal(t, int64(2), stats.Meetings)
			assert.Equal(t, int64(1), stats.Playbooks)
			assert.Equal(t, int64(1), stats.MeetingsByStatus[string(models.MeetingCompleted)])
			assert.Equal(t, int64(1), stats.MeetingsByStatus[string(models.MeetingFailed)])
		})
	}
}

func TestMemStoreReturnsDeepCopies(t *testing.T) {
	st := NewMemStore()
	ctx := context.Background()

	c := newContact("c-1", "张伟", time.Now().UTC())
	c.FocusTopics = []string{"AI"}
	require.NoError(t, st.CreateContact(ctx, c))

	// Mutating the input after create must not affect stored state.
	c.FocusTopics[0] = "mutated"

	got, err := st.GetContact(ctx, owner, "c-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI"}, got.FocusTopics)

	// Mutating a returned record must not affect stored state either.
	got.FocusTopics[0] = "mutated"
	again, err := st.GetContact(ctx, owner, "c-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AI"}, again.FocusTopics)
}
