package app_test

import (
	"context"
	"sync"
	"time"

	"safestay/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu sync.Mutex

	accommodations map[string]domain.Accommodation
	metrics        []domain.SafetyMetric
	cities         map[int64]domain.City
	opinions       map[string]domain.CommunityOpinion
	takeaways      map[string]domain.Takeaways

	replacedMetrics map[int64][]domain.SafetyMetric
	scoreUpdates    []domain.AccommodationScoreUpdate
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accommodations:  map[string]domain.Accommodation{},
		cities:          map[int64]domain.City{},
		opinions:        map[string]domain.CommunityOpinion{},
		takeaways:       map[string]domain.Takeaways{},
		replacedMetrics: map[int64][]domain.SafetyMetric{},
	}
}

func (f *fakeRepo) GetAccommodation(_ context.Context, id string) (domain.Accommodation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accommodations[id]
	if !ok {
		return domain.Accommodation{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetAccommodationByListing(_ context.Context, ref domain.ListingRef) (domain.Accommodation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accommodations {
		if a.Source == ref.Source && a.ExternalID == ref.ExternalID {
			return a, nil
		}
	}
	return domain.Accommodation{}, domain.ErrNotFound
}

func (f *fakeRepo) UpsertAccommodation(_ context.Context, a domain.Accommodation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accommodations[a.ID] = a
	return nil
}

func (f *fakeRepo) ListAccommodationsInBounds(_ context.Context, cityID int64, b domain.Bounds) ([]domain.Accommodation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Accommodation
	for _, a := range f.accommodations {
		if a.CityID != cityID || a.Lat == nil || a.Lon == nil {
			continue
		}
		if b.Contains(*a.Lat, *a.Lon) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListCityAccommodations(_ context.Context, cityID int64) ([]domain.Accommodation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Accommodation
	for _, a := range f.accommodations {
		if a.CityID == cityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateAccommodationScores(_ context.Context, updates []domain.AccommodationScoreUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreUpdates = append(f.scoreUpdates, updates...)
	for _, u := range updates {
		a, ok := f.accommodations[u.ID]
		if !ok {
			continue
		}
		a.OverallScore = u.OverallScore
		a.MetricTypesFound = u.MetricTypesFound
		a.CellKey = u.CellKey
		f.accommodations[u.ID] = a
	}
	return nil
}

func (f *fakeRepo) ListMetricsInBounds(_ context.Context, b domain.Bounds, notAfter time.Time) ([]domain.SafetyMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SafetyMetric
	for _, m := range f.metrics {
		if b.Contains(m.Lat, m.Lon) && m.ExpiresAt.After(notAfter) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) ReplaceCityMetrics(_ context.Context, cityID int64, ms []domain.SafetyMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replacedMetrics[cityID] = ms
	kept := f.metrics[:0]
	for _, m := range f.metrics {
		if m.CityID != cityID {
			kept = append(kept, m)
		}
	}
	f.metrics = append(kept, ms...)
	return nil
}

func (f *fakeRepo) GetCity(_ context.Context, id int64) (domain.City, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cities[id]
	if !ok {
		return domain.City{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) UpsertOpinions(_ context.Context, ops []domain.CommunityOpinion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range ops {
		f.opinions[o.ID] = o
	}
	return nil
}

func (f *fakeRepo) ListRelevantOpinionsInBounds(_ context.Context, b domain.Bounds, limit int) ([]domain.CommunityOpinion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CommunityOpinion
	for _, o := range f.opinions {
		if o.SafetyRelevant == nil || !*o.SafetyRelevant || o.Lat == nil || o.Lon == nil {
			continue
		}
		if b.Contains(*o.Lat, *o.Lon) {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) ListUnclassifiedOpinions(_ context.Context, limit int) ([]domain.CommunityOpinion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CommunityOpinion
	for _, o := range f.opinions {
		if o.SafetyRelevant == nil {
			out = append(out, o)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepo) SetOpinionRelevance(_ context.Context, id string, relevant bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.opinions[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.SafetyRelevant = &relevant
	f.opinions[id] = o
	return nil
}

func (f *fakeRepo) GetTakeaways(_ context.Context, accommodationID string) (domain.Takeaways, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.takeaways[accommodationID]
	if !ok {
		return domain.Takeaways{}, domain.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) UpsertTakeaways(_ context.Context, t domain.Takeaways) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takeaways[t.AccommodationID] = t
	return nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.SafetyReport:
		*d = v.(domain.SafetyReport)
	case *[]domain.SimilarStay:
		*d = v.([]domain.SimilarStay)
	}
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakePOI struct {
	counts domain.POICounts
	err    error
	calls  int
}

func (p *fakePOI) CountNearby(_ context.Context, _ domain.Coords, _ int) (domain.POICounts, error) {
	p.calls++
	return p.counts, p.err
}

type fakeCrimes struct {
	incidents []domain.CrimeIncident
	err       error
}

func (c *fakeCrimes) FetchIncidents(_ context.Context, _ time.Time, _ int) ([]domain.CrimeIncident, error) {
	return c.incidents, c.err
}

type fakeGeocoder struct {
	places  map[string]domain.Coords
	context []string
}

func (g *fakeGeocoder) Forward(_ context.Context, place string, _ domain.Coords) (domain.Coords, bool, error) {
	c, ok := g.places[place]
	return c, ok, nil
}

func (g *fakeGeocoder) ReverseContext(_ context.Context, _ domain.Coords) ([]string, error) {
	return g.context, nil
}

type fakeSource struct {
	posts []domain.RawPost
}

func (s *fakeSource) FetchPosts(_ context.Context, _ string, _ int) ([]domain.RawPost, error) {
	return s.posts, nil
}

type fakeAnalyst struct {
	mu       sync.Mutex
	verdicts map[string]bool
	draft    domain.TakeawayDraft
	err      error
	calls    int
}

func (a *fakeAnalyst) ClassifySafetyRelevance(_ context.Context, ops []domain.CommunityOpinion) (map[string]bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	out := map[string]bool{}
	for _, op := range ops {
		if v, ok := a.verdicts[op.ID]; ok {
			out[op.ID] = v
		}
	}
	return out, nil
}

func (a *fakeAnalyst) SummarizeTakeaways(_ context.Context, _ []domain.CommunityOpinion) (domain.TakeawayDraft, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return domain.TakeawayDraft{}, a.err
	}
	return a.draft, nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

// laCity is a bounding box loosely around central Los Angeles.
func laCity() domain.City {
	return domain.City{
		ID:      1,
		Name:    "Los Angeles",
		Country: "US",
		Bounds:  domain.Bounds{SWLat: 33.7, SWLon: -118.7, NELat: 34.35, NELon: -118.1},
	}
}
