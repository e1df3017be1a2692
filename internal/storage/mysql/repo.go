package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"safestay/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func f64Ptr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- accommodations ----

func (r *Repo) UpsertAccommodation(ctx context.Context, a domain.Accommodation) error {
	_, err := r.db.ExecContext(ctx, upsertAccommodationSQL,
		a.ID,
		a.CityID,
		a.Source,
		a.ExternalID,
		valStr(a.URL),
		valStr(a.Name),
		valStr(a.PropertyType),
		valF64(a.PricePerNight),
		valStr(a.Currency),
		valF64(a.Lat),
		valF64(a.Lon),
		valF64(a.Rating),
		valStr(a.ImageURL),
		valStr(a.CellKey),
		valJSON(a.RawJSON),
	)
	return err
}

func scanAccommodation(sc interface{ Scan(...any) error }) (domain.Accommodation, error) {
	var a domain.Accommodation
	var (
		url, name, ptype, currency, imageURL, cellKey sql.NullString
		price, lat, lon, rating                       sql.NullFloat64
		overall, typesFound                           sql.NullInt64
		raw                                           []byte
	)
	if err := sc.Scan(
		&a.ID, &a.CityID, &a.Source, &a.ExternalID,
		&url, &name, &ptype,
		&price, &currency, &lat, &lon, &rating, &imageURL,
		&overall, &typesFound, &cellKey, &raw,
	); err != nil {
		return domain.Accommodation{}, err
	}
	a.URL = strPtr(url)
	a.Name = strPtr(name)
	a.PropertyType = strPtr(ptype)
	a.PricePerNight = f64Ptr(price)
	a.Currency = strPtr(currency)
	a.Lat = f64Ptr(lat)
	a.Lon = f64Ptr(lon)
	a.Rating = f64Ptr(rating)
	a.ImageURL = strPtr(imageURL)
	a.OverallScore = intPtr(overall)
	a.MetricTypesFound = intPtr(typesFound)
	a.CellKey = strPtr(cellKey)
	if len(raw) > 0 {
		a.RawJSON = append([]byte(nil), raw...)
	}
	return a, nil
}

func (r *Repo) GetAccommodation(ctx context.Context, id string) (domain.Accommodation, error) {
	a, err := scanAccommodation(r.db.QueryRowContext(ctx, getAccommodationSQL, id))
	if err == sql.ErrNoRows {
		return domain.Accommodation{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repo) GetAccommodationByListing(ctx context.Context, ref domain.ListingRef) (domain.Accommodation, error) {
	a, err := scanAccommodation(r.db.QueryRowContext(ctx, getAccommodationByListingSQL, ref.Source, ref.ExternalID))
	if err == sql.ErrNoRows {
		return domain.Accommodation{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repo) listAccommodations(ctx context.Context, query string, args ...any) ([]domain.Accommodation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Accommodation
	for rows.Next() {
		a, err := scanAccommodation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) ListAccommodationsInBounds(ctx context.Context, cityID int64, b domain.Bounds) ([]domain.Accommodation, error) {
	return r.listAccommodations(ctx, listAccommodationsInBoundsSQL,
		cityID, b.SWLat, b.NELat, b.SWLon, b.NELon)
}

func (r *Repo) ListCityAccommodations(ctx context.Context, cityID int64) ([]domain.Accommodation, error) {
	return r.listAccommodations(ctx, listCityAccommodationsSQL, cityID)
}

func (r *Repo) UpdateAccommodationScores(ctx context.Context, updates []domain.AccommodationScoreUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, updateAccommodationScoreSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx,
			valInt(u.OverallScore),
			valInt(u.MetricTypesFound),
			valStr(u.CellKey),
			u.UpdatedAt.UTC(),
			u.ID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- safety metrics ----

func (r *Repo) ListMetricsInBounds(ctx context.Context, b domain.Bounds, notAfter time.Time) ([]domain.SafetyMetric, error) {
	rows, err := r.db.QueryContext(ctx, listMetricsInBoundsSQL,
		b.SWLat, b.NELat, b.SWLon, b.NELon, notAfter.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SafetyMetric
	for rows.Next() {
		var m domain.SafetyMetric
		var mt string
		if err := rows.Scan(
			&m.ID, &m.CityID, &m.CellKey, &m.Lat, &m.Lon, &mt,
			&m.Score, &m.Question, &m.Description,
			&m.DirectIncidents, &m.WeightedIncidents, &m.IncidentsPer1000,
			&m.Confidence, &m.CreatedAt, &m.ExpiresAt,
		); err != nil {
			return nil, err
		}
		m.Type = domain.MetricType(mt)
		out = append(out, m)
	}
	return out, rows.Err()
}

const metricInsertBatch = 100

// ReplaceCityMetrics swaps a city's metric set in one transaction so readers
// never observe a half-ingested city.
func (r *Repo) ReplaceCityMetrics(ctx context.Context, cityID int64, ms []domain.SafetyMetric) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteCityMetricsSQL, cityID); err != nil {
		return err
	}

	for start := 0; start < len(ms); start += metricInsertBatch {
		end := start + metricInsertBatch
		if end > len(ms) {
			end = len(ms)
		}
		batch := ms[start:end]

		values := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*15)
		for _, m := range batch {
			values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
			args = append(args,
				m.ID, m.CityID, m.CellKey, m.Lat, m.Lon, string(m.Type),
				m.Score, m.Question, m.Description,
				m.DirectIncidents, m.WeightedIncidents, m.IncidentsPer1000,
				m.Confidence, m.CreatedAt.UTC(), m.ExpiresAt.UTC(),
			)
		}
		stmt := insertMetricsPrefix + strings.Join(values, ",") + insertMetricsOnDup
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ---- cities ----

func (r *Repo) GetCity(ctx context.Context, id int64) (domain.City, error) {
	var c domain.City
	err := r.db.QueryRowContext(ctx, getCitySQL, id).Scan(
		&c.ID, &c.Name, &c.Country,
		&c.Bounds.SWLat, &c.Bounds.SWLon, &c.Bounds.NELat, &c.Bounds.NELon,
	)
	if err == sql.ErrNoRows {
		return domain.City{}, domain.ErrNotFound
	}
	return c, err
}

// ---- community opinions ----

func (r *Repo) UpsertOpinions(ctx context.Context, ops []domain.CommunityOpinion) error {
	if len(ops) == 0 {
		return nil
	}
	values := make([]string, 0, len(ops))
	args := make([]any, 0, len(ops)*14)
	for _, o := range ops {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			o.ID, o.Source, o.ExternalID, o.CityID,
			valStr(o.Title), valStr(o.Body), valStr(o.Author), valStr(o.Permalink),
			valF64(o.Lat), valF64(o.Lon), valStr(o.PlaceName),
			valBool(o.SafetyRelevant), valTime(o.PostedAt), valJSON(o.RawJSON),
		)
	}
	stmt := insertOpinionsPrefix + strings.Join(values, ",") + insertOpinionsOnDup
	_, err := r.db.ExecContext(ctx, stmt, args...)
	return err
}

func (r *Repo) listOpinions(ctx context.Context, query string, args ...any) ([]domain.CommunityOpinion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommunityOpinion
	for rows.Next() {
		var o domain.CommunityOpinion
		var (
			title, body, author, permalink, place sql.NullString
			lat, lon                              sql.NullFloat64
			relevant                              sql.NullBool
			postedAt                              sql.NullTime
			raw                                   []byte
		)
		if err := rows.Scan(
			&o.ID, &o.Source, &o.ExternalID, &o.CityID,
			&title, &body, &author, &permalink,
			&lat, &lon, &place, &relevant, &postedAt, &raw,
		); err != nil {
			return nil, err
		}
		o.Title = strPtr(title)
		o.Body = strPtr(body)
		o.Author = strPtr(author)
		o.Permalink = strPtr(permalink)
		o.Lat = f64Ptr(lat)
		o.Lon = f64Ptr(lon)
		o.PlaceName = strPtr(place)
		if relevant.Valid {
			v := relevant.Bool
			o.SafetyRelevant = &v
		}
		if postedAt.Valid {
			t := postedAt.Time
			o.PostedAt = &t
		}
		if len(raw) > 0 {
			o.RawJSON = append([]byte(nil), raw...)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) ListRelevantOpinionsInBounds(ctx context.Context, b domain.Bounds, limit int) ([]domain.CommunityOpinion, error) {
	return r.listOpinions(ctx, listRelevantOpinionsSQL,
		b.SWLat, b.NELat, b.SWLon, b.NELon, limit)
}

func (r *Repo) ListUnclassifiedOpinions(ctx context.Context, limit int) ([]domain.CommunityOpinion, error) {
	return r.listOpinions(ctx, listUnclassifiedOpinionsSQL, limit)
}

func (r *Repo) SetOpinionRelevance(ctx context.Context, id string, relevant bool) error {
	_, err := r.db.ExecContext(ctx, setOpinionRelevanceSQL, relevant, id)
	return err
}

// ---- takeaways ----

func (r *Repo) GetTakeaways(ctx context.Context, accommodationID string) (domain.Takeaways, error) {
	var t domain.Takeaways
	var posJSON, negJSON []byte
	err := r.db.QueryRowContext(ctx, getTakeawaysSQL, accommodationID).Scan(
		&t.AccommodationID, &posJSON, &negJSON, &t.OpinionCount,
		&t.CreatedAt, &t.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return domain.Takeaways{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Takeaways{}, err
	}
	_ = json.Unmarshal(posJSON, &t.Positive)
	_ = json.Unmarshal(negJSON, &t.Negative)
	return t, nil
}

func (r *Repo) UpsertTakeaways(ctx context.Context, t domain.Takeaways) error {
	pos, _ := json.Marshal(t.Positive)
	neg, _ := json.Marshal(t.Negative)
	_, err := r.db.ExecContext(ctx, upsertTakeawaysSQL,
		t.AccommodationID, string(pos), string(neg), t.OpinionCount,
		t.CreatedAt.UTC(), t.ExpiresAt.UTC(),
	)
	return err
}
