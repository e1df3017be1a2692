package domain

import "time"

// CommunityOpinion is a scraped social-media post geocoded to a location.
// SafetyRelevant is nil until the LLM classifier has seen the post.
type CommunityOpinion struct {
	ID             string // stable UUIDv5 of (source, external id)
	Source         string // reddit
	ExternalID     string
	CityID         int64
	Title          *string
	Body           *string
	Author         *string
	Permalink      *string
	Lat, Lon       *float64
	PlaceName      *string
	SafetyRelevant *bool
	PostedAt       *time.Time
	RawJSON        []byte
}

func (o CommunityOpinion) Text() string {
	t := deref(o.Title)
	b := deref(o.Body)
	if t == "" {
		return b
	}
	if b == "" {
		return t
	}
	return t + "\n" + b
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Takeaways is an LLM-generated bullet summary of community opinions near an
// accommodation, persisted with an expiry so it is regenerated lazily.
type Takeaways struct {
	AccommodationID string
	Positive        []string
	Negative        []string
	OpinionCount    int
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

func (t Takeaways) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

// TakeawayDraft is the analyst's raw output before persistence.
type TakeawayDraft struct {
	Positive []string
	Negative []string
}
