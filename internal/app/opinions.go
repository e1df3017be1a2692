package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"safestay/internal/domain"
)

const classifyBatchSize = 10

// OpinionPipeline ingests scraped community posts, pins them to a location,
// and asks the LLM which of them actually discuss neighbourhood safety.
type OpinionPipeline struct {
	source   domain.OpinionSource
	geocoder domain.Geocoder
	analyst  domain.OpinionAnalyst
	repo     domain.Repository
	workers  int64
}

func NewOpinionPipeline(src domain.OpinionSource, g domain.Geocoder, a domain.OpinionAnalyst, r domain.Repository, workers int) *OpinionPipeline {
	if workers <= 0 {
		workers = 4
	}
	return &OpinionPipeline{source: src, geocoder: g, analyst: a, repo: r, workers: int64(workers)}
}

// Sync pulls posts from a scraped dataset, geocodes the first place name
// each post mentions, keeps only posts that resolve inside the city, and
// upserts them. Posts that name no place, or whose place resolves outside
// the city, are dropped.
func (p *OpinionPipeline) Sync(ctx context.Context, datasetID string, cityID int64, limit int) (int, error) {
	city, err := p.repo.GetCity(ctx, cityID)
	if err != nil {
		return 0, fmt.Errorf("load city %d: %w", cityID, err)
	}
	center := domain.Coords{
		Lat: (city.Bounds.SWLat + city.Bounds.NELat) / 2,
		Lon: (city.Bounds.SWLon + city.Bounds.NELon) / 2,
	}

	posts, err := p.source.FetchPosts(ctx, datasetID, limit)
	if err != nil {
		return 0, fmt.Errorf("fetch posts from %s: %w", datasetID, err)
	}
	log.Info().Str("dataset", datasetID).Int("posts", len(posts)).Msg("opinion fetch complete")

	var ops []domain.CommunityOpinion
	for _, post := range posts {
		op, ok := p.locatePost(ctx, post, city, center)
		if !ok {
			continue
		}
		op.CityID = cityID
		ops = append(ops, op)
	}

	if len(ops) == 0 {
		log.Info().Str("dataset", datasetID).Msg("no geolocatable posts")
		return 0, nil
	}
	if err := p.repo.UpsertOpinions(ctx, ops); err != nil {
		return 0, fmt.Errorf("upsert opinions: %w", err)
	}
	log.Info().Int("stored", len(ops)).Msg("opinions stored")
	return len(ops), nil
}

// locatePost geocodes candidate place names from the post text until one
// resolves inside the city and passes reverse-context validation.
func (p *OpinionPipeline) locatePost(ctx context.Context, post domain.RawPost, city domain.City, center domain.Coords) (domain.CommunityOpinion, bool) {
	for _, place := range extractPlaces(post.Title + "\n" + post.Body) {
		c, ok, err := p.geocoder.Forward(ctx, place, center)
		if err != nil {
			log.Warn().Err(err).Str("place", place).Msg("forward geocode failed")
			continue
		}
		if !ok || !city.Bounds.Contains(c.Lat, c.Lon) {
			continue
		}
		// Reverse context has to mention the city, otherwise the forward
		// match was a same-named place elsewhere that the proximity bias
		// still pulled inside the box.
		names, err := p.geocoder.ReverseContext(ctx, c)
		if err != nil {
			log.Warn().Err(err).Str("place", place).Msg("reverse geocode failed")
			continue
		}
		if !containsFold(names, city.Name) {
			continue
		}

		op := domain.CommunityOpinion{
			ID:         opinionID(post),
			Source:     "reddit",
			ExternalID: post.ID,
			Lat:        &c.Lat,
			Lon:        &c.Lon,
			PlaceName:  &place,
			PostedAt:   post.CreatedAt,
			RawJSON:    post.RawJSON,
		}
		if post.Title != "" {
			op.Title = &post.Title
		}
		if post.Body != "" {
			op.Body = &post.Body
		}
		if post.Author != "" {
			op.Author = &post.Author
		}
		if post.Permalink != "" {
			op.Permalink = &post.Permalink
		}
		return op, true
	}
	return domain.CommunityOpinion{}, false
}

func opinionID(post domain.RawPost) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("reddit:"+post.ID)).String()
}

// placeRe picks capitalized phrases that follow a locative preposition.
var placeRe = regexp.MustCompile(`\b(?:in|near|around|at|on)\s+((?:[A-Z][\w'.-]*)(?:\s+(?:[A-Z][\w'.-]*|of|the)){0,3})`)

// placeStopwords filter pronouns and sentence starts the regex would
// otherwise treat as place names.
var placeStopwords = map[string]struct{}{
	"i": {}, "my": {}, "me": {}, "we": {}, "us": {}, "it": {}, "he": {}, "she": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {}, "friday": {},
	"saturday": {}, "sunday": {}, "january": {}, "february": {}, "march": {},
	"april": {}, "may": {}, "june": {}, "july": {}, "august": {}, "september": {},
	"october": {}, "november": {}, "december": {}, "god": {}, "reddit": {}, "airbnb": {},
}

// extractPlaces returns unique candidate place names in appearance order.
func extractPlaces(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range placeRe.FindAllStringSubmatch(text, -1) {
		cand := strings.TrimRight(strings.TrimSpace(m[1]), ".,!?")
		first := strings.ToLower(strings.SplitN(cand, " ", 2)[0])
		if _, bad := placeStopwords[first]; bad {
			continue
		}
		key := strings.ToLower(cand)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}
	return out
}

func containsFold(names []string, want string) bool {
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), want) {
			return true
		}
	}
	return false
}

// Classify runs the LLM relevance classifier over stored opinions that have
// not been classified yet, in capped-concurrency batches.
func (p *OpinionPipeline) Classify(ctx context.Context, max int) error {
	ops, err := p.repo.ListUnclassifiedOpinions(ctx, max)
	if err != nil {
		return fmt.Errorf("list unclassified opinions: %w", err)
	}
	if len(ops) == 0 {
		log.Info().Msg("no opinions awaiting classification")
		return nil
	}
	log.Info().Int("opinions", len(ops)).Msg("classifying opinions")

	sem := semaphore.NewWeighted(p.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(ops); start += classifyBatchSize {
		end := start + classifyBatchSize
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[start:end]

		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(batch []domain.CommunityOpinion) {
			defer wg.Done()
			defer sem.Release(1)

			verdicts, err := p.analyst.ClassifySafetyRelevance(ctx, batch)
			if err != nil {
				log.Warn().Err(err).Int("batch", len(batch)).Msg("classification batch failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			for _, op := range batch {
				relevant, ok := verdicts[op.ID]
				if !ok {
					continue // classifier abstained, leave unclassified
				}
				if err := p.repo.SetOpinionRelevance(ctx, op.ID, relevant); err != nil {
					log.Warn().Err(err).Str("opinion", op.ID).Msg("relevance write failed")
				}
			}
		}(batch)
	}

	wg.Wait()
	return firstErr
}
