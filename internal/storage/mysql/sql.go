package mysql

const reviewColumns = "id, external_id, listing_name, channel, type, status, rating, categories, " +
	"public_review, guest_name, submitted_at, approved, show_public, created_at, updated_at"

// approved, show_public and created_at are set on insert only; the update
// list is the sync-owned allowlist.
const upsertReviewSQL = `
INSERT INTO reviews
  (id, external_id, listing_name, channel, type, status, rating, categories,
   public_review, guest_name, submitted_at, approved, show_public, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
ON DUPLICATE KEY UPDATE
  listing_name  = VALUES(listing_name),
  channel       = VALUES(channel),
  type          = VALUES(type),
  status        = VALUES(status),
  rating        = VALUES(rating),
  categories    = VALUES(categories),
  public_review = VALUES(public_review),
  guest_name    = VALUES(guest_name),
  submitted_at  = VALUES(submitted_at),
  updated_at    = VALUES(updated_at)
`

const setApprovedSQL = `UPDATE reviews SET approved = ?, updated_at = ? WHERE id = ?`

const setShowPublicSQL = `UPDATE reviews SET show_public = ?, updated_at = ? WHERE id = ?`

const getReviewSQL = "SELECT " + reviewColumns + " FROM reviews WHERE id = ?"

// -----------------------------------------------------------------------------
// REPORTS
// -----------------------------------------------------------------------------

// Unrated listings sort after rated ones.
const performanceSQL = `
SELECT
  listing_name,
  AVG(rating),
  COUNT(*),
  COALESCE(SUM(approved), 0),
  COALESCE(SUM(show_public), 0)
FROM reviews%s
GROUP BY listing_name
ORDER BY AVG(rating) IS NULL, AVG(rating) DESC, listing_name ASC
`

// %[1]s is a DATE_FORMAT pattern from bucketFormats, %[2]s the WHERE clause.
const trendsSQL = `
SELECT
  DATE_FORMAT(submitted_at, '%[1]s') AS bucket,
  AVG(rating),
  COUNT(*)
FROM reviews%[2]s
GROUP BY bucket
ORDER BY bucket ASC
`

// -----------------------------------------------------------------------------
// LISTINGS
// -----------------------------------------------------------------------------

const listingColumns = "id, listing_name, slug, place_id, address, city, country, bedrooms, bathrooms, " +
	"sleeps, sqft, nightly_from, hero_image, gallery, highlights, description"

// An empty incoming place_id keeps the stored one.
const upsertListingSQL = `
INSERT INTO listings
  (id, listing_name, slug, place_id, address, city, country, bedrooms, bathrooms,
   sleeps, sqft, nightly_from, hero_image, gallery, highlights, description)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  slug         = VALUES(slug),
  place_id     = COALESCE(NULLIF(VALUES(place_id), ''), listings.place_id),
  address      = VALUES(address),
  city         = VALUES(city),
  country      = VALUES(country),
  bedrooms     = VALUES(bedrooms),
  bathrooms    = VALUES(bathrooms),
  sleeps       = VALUES(sleeps),
  sqft         = VALUES(sqft),
  nightly_from = VALUES(nightly_from),
  hero_image   = VALUES(hero_image),
  gallery      = VALUES(gallery),
  highlights   = VALUES(highlights),
  description  = VALUES(description)
`

const listListingsSQL = "SELECT " + listingColumns + " FROM listings ORDER BY listing_name ASC"

const getListingByNameSQL = "SELECT " + listingColumns + " FROM listings WHERE listing_name = ?"

const getListingByIDSQL = "SELECT " + listingColumns + " FROM listings WHERE id = ?"

const setPlaceIDSQL = `UPDATE listings SET place_id = ? WHERE id = ?`
