package models

import (
	"time"
)

// Contact is one profile of a real-world person, owned by a single user.
// Fields split into two layers: Identity (biographical, rarely changes) and
// Status (volatile, overwritten wholesale by the latest extraction that
// supplies a non-empty value).
type Contact struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	// Identity layer
	Name                   string `json:"name"`
	Nickname               string `json:"nickname,omitempty"`
	Gender                 string `json:"gender,omitempty"`
	AgeGroup               string `json:"age_group,omitempty"`
	Hometown               string `json:"hometown,omitempty"`
	City                   string `json:"city,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	Email                  string `json:"email,omitempty"`
	Wechat                 string `json:"wechat,omitempty"`
	LinkedIn               string `json:"linkedin,omitempty"`
	EducationSchool        string `json:"education_school,omitempty"`
	EducationMajor         string `json:"education_major,omitempty"`
	EducationDegree        string `json:"education_degree,omitempty"`
	CareerSummary          string `json:"career_summary,omitempty"`
	PreferredContactMethod string `json:"preferred_contact_method,omitempty"`
	PreferredContactTime   string `json:"preferred_contact_time,omitempty"`
	CommunicationStyle     string `json:"communication_style,omitempty"`

	// Status layer
	CurrentCompany   string   `json:"current_company,omitempty"`
	CurrentPosition  string   `json:"current_position,omitempty"`
	CurrentIndustry  string   `json:"current_industry,omitempty"`
	CurrentLocation  string   `json:"current_location,omitempty"`
	StartupStatus    string   `json:"startup_status,omitempty"`
	FocusTopics      []string `json:"focus_topics,omitempty"`
	CurrentProjects  []string `json:"current_projects,omitempty"`
	ShortTermGoals   []string `json:"short_term_goals,omitempty"`
	LongTermGoals    []string `json:"long_term_goals,omitempty"`
	ResourceNeeds    []string `json:"resource_needs,omitempty"`
	ResourceOffers   []string `json:"resource_offers,omitempty"`
	ExcitementPoints []string `json:"excitement_points,omitempty"`
	AnxietyPoints    []string `json:"anxiety_points,omitempty"`
	SensitivePoints  []string `json:"sensitive_points,omitempty"`

	// Timeline-driven metadata. These two are the only Contact fields set by
	// a completed meeting rather than by Identity/Status extraction.
	LastMeetingDate *time.Time `json:"last_meeting_date,omitempty"`
	LastVerifiedAt  *time.Time `json:"last_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the contact.
func (c *Contact) Clone() *Contact {
	out := *c
	out.FocusTopics = cloneStrings(c.FocusTopics)
	out.CurrentProjects = cloneStrings(c.CurrentProjects)
	out.ShortTermGoals = cloneStrings(c.ShortTermGoals)
	out.LongTermGoals = cloneStrings(c.LongTermGoals)
	out.ResourceNeeds = cloneStrings(c.ResourceNeeds)
	out.ResourceOffers = cloneStrings(c.ResourceOffers)
	out.ExcitementPoints = cloneStrings(c.ExcitementPoints)
	out.AnxietyPoints = cloneStrings(c.AnxietyPoints)
	out.SensitivePoints = cloneStrings(c.SensitivePoints)
	out.LastMeetingDate = cloneTime(c.LastMeetingDate)
	out.LastVerifiedAt = cloneTime(c.LastVerifiedAt)
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
