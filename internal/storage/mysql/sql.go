package mysql

const upsertAccommodationSQL = `
INSERT INTO accommodations
  (id, city_id, source, external_id, url, name, property_type,
   price_per_night, currency, lat, lon, rating, image_url, cell_key, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  city_id         = VALUES(city_id),
  url             = VALUES(url),
  name            = VALUES(name),
  property_type   = VALUES(property_type),
  price_per_night = VALUES(price_per_night),
  currency        = VALUES(currency),
  lat             = VALUES(lat),
  lon             = VALUES(lon),
  rating          = VALUES(rating),
  image_url       = VALUES(image_url),
  cell_key        = VALUES(cell_key),
  raw             = VALUES(raw),
  updated_at      = CURRENT_TIMESTAMP
`

const accommodationColumns = `
  id, city_id, source, external_id, url, name, property_type,
  price_per_night, currency, lat, lon, rating, image_url,
  overall_safety_score, metric_types_found, cell_key, raw
`

const getAccommodationSQL = `
SELECT ` + accommodationColumns + `
FROM accommodations
WHERE id = ?
`

const getAccommodationByListingSQL = `
SELECT ` + accommodationColumns + `
FROM accommodations
WHERE source = ? AND external_id = ?
`

const listAccommodationsInBoundsSQL = `
SELECT ` + accommodationColumns + `
FROM accommodations
WHERE city_id = ?
  AND lat IS NOT NULL AND lon IS NOT NULL
  AND lat BETWEEN ? AND ?
  AND lon BETWEEN ? AND ?
`

const listCityAccommodationsSQL = `
SELECT ` + accommodationColumns + `
FROM accommodations
WHERE city_id = ?
`

const updateAccommodationScoreSQL = `
UPDATE accommodations
SET overall_safety_score = ?,
    metric_types_found   = ?,
    cell_key             = ?,
    updated_at           = ?
WHERE id = ?
`

const listMetricsInBoundsSQL = `
SELECT
  id, city_id, cell_key, lat, lon, metric_type, score, question, description,
  direct_incidents, weighted_incidents, incidents_per_1000, confidence,
  created_at, expires_at
FROM safety_metrics
WHERE lat BETWEEN ? AND ?
  AND lon BETWEEN ? AND ?
  AND expires_at > ?
`

const deleteCityMetricsSQL = `DELETE FROM safety_metrics WHERE city_id = ?`

// Metric ids are stable UUIDv5s, so a replace run that collides with leftover
// rows (a previous partial insert) updates them in place.
const insertMetricsPrefix = `INSERT INTO safety_metrics
  (id, city_id, cell_key, lat, lon, metric_type, score, question, description,
   direct_incidents, weighted_incidents, incidents_per_1000, confidence,
   created_at, expires_at)
VALUES `

const insertMetricsOnDup = ` ON DUPLICATE KEY UPDATE
  lat                = VALUES(lat),
  lon                = VALUES(lon),
  score              = VALUES(score),
  description        = VALUES(description),
  direct_incidents   = VALUES(direct_incidents),
  weighted_incidents = VALUES(weighted_incidents),
  incidents_per_1000 = VALUES(incidents_per_1000),
  confidence         = VALUES(confidence),
  created_at         = VALUES(created_at),
  expires_at         = VALUES(expires_at)
`

const getCitySQL = `
SELECT id, name, country, sw_lat, sw_lon, ne_lat, ne_lon
FROM cities
WHERE id = ?
`

const insertOpinionsPrefix = `INSERT INTO community_opinions
  (id, source, external_id, city_id, title, body, author, permalink,
   lat, lon, place_name, safety_relevant, posted_at, raw)
VALUES `

const insertOpinionsOnDup = ` ON DUPLICATE KEY UPDATE
  title      = COALESCE(VALUES(title), community_opinions.title),
  body       = COALESCE(VALUES(body), community_opinions.body),
  lat        = COALESCE(VALUES(lat), community_opinions.lat),
  lon        = COALESCE(VALUES(lon), community_opinions.lon),
  place_name = COALESCE(VALUES(place_name), community_opinions.place_name),
  raw        = COALESCE(VALUES(raw), community_opinions.raw)
`

const listRelevantOpinionsSQL = `
SELECT
  id, source, external_id, city_id, title, body, author, permalink,
  lat, lon, place_name, safety_relevant, posted_at, raw
FROM community_opinions
WHERE safety_relevant = 1
  AND lat BETWEEN ? AND ?
  AND lon BETWEEN ? AND ?
ORDER BY posted_at DESC, id
LIMIT ?
`

const listUnclassifiedOpinionsSQL = `
SELECT
  id, source, external_id, city_id, title, body, author, permalink,
  lat, lon, place_name, safety_relevant, posted_at, raw
FROM community_opinions
WHERE safety_relevant IS NULL
ORDER BY posted_at DESC, id
LIMIT ?
`

const setOpinionRelevanceSQL = `
UPDATE community_opinions SET safety_relevant = ? WHERE id = ?
`

const getTakeawaysSQL = `
SELECT accommodation_id, positive, negative, opinion_count, created_at, expires_at
FROM takeaways
WHERE accommodation_id = ?
`

const upsertTakeawaysSQL = `
INSERT INTO takeaways
  (accommodation_id, positive, negative, opinion_count, created_at, expires_at)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  positive      = VALUES(positive),
  negative      = VALUES(negative),
  opinion_count = VALUES(opinion_count),
  created_at    = VALUES(created_at),
  expires_at    = VALUES(expires_at)
`
