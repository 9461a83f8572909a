package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ErlanBelekov/store-finder/internal/domain"
	"github.com/ErlanBelekov/store-finder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const storeColumns = `
	s.id::text, s.name, s.slug, s.description, s.tags, s.created,
	s.location_type, s.lng, s.lat, s.address, s.photo, s.author_id::text`

// metersPerDegreeLat is used for the bounding-box prefilter of Near.
const metersPerDegreeLat = 111_320.0

type StoreRepository struct {
	pool *pgxpool.Pool
}

func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) (*domain.Store, error) {
	if err := validateStore(s); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO stores (
			name, slug, description, tags, location_type, lng, lat, address, photo, author_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + storeColumns

	row := r.pool.QueryRow(ctx, query,
		s.Name, s.Slug, s.Description, nonNilTags(s.Tags),
		locationType(s.Location), s.Location.Lng(), s.Location.Lat(), s.Location.Address,
		s.Photo, s.AuthorID,
	)

	created, err := scanStore(row)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, &domain.ValidationError{Fields: []domain.FieldError{
				{Field: "AuthorID", Message: storeMessages["AuthorID"]},
			}}
		}
		return nil, err
	}
	return created, nil
}

func (r *StoreRepository) Update(ctx context.Context, s *domain.Store) (*domain.Store, error) {
	if !validID(s.ID) {
		return nil, domain.ErrStoreNotFound
	}
	if err := validateStore(s); err != nil {
		return nil, err
	}

	// photo is only replaced when a new one was uploaded.
	query := `
		UPDATE stores s
		SET    name          = $3,
		       slug          = $4,
		       description   = $5,
		       tags          = $6,
		       location_type = $7,
		       lng           = $8,
		       lat           = $9,
		       address       = $10,
		       photo         = COALESCE($11, s.photo)
		WHERE  s.id = $1 AND s.author_id = $2
		RETURNING ` + storeColumns

	row := r.pool.QueryRow(ctx, query,
		s.ID, s.AuthorID,
		s.Name, s.Slug, s.Description, nonNilTags(s.Tags),
		locationType(s.Location), s.Location.Lng(), s.Location.Lat(), s.Location.Address,
		s.Photo,
	)
	return scanStore(row)
}

func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	if !validID(id) {
		return nil, domain.ErrStoreNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores s WHERE s.id = $1`, id)
	return scanStore(row)
}

func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	query := `
		SELECT ` + storeColumns + `, u.id::text, u.email, u.name
		FROM stores s
		JOIN users u ON u.id = s.author_id
		WHERE s.slug = $1
		ORDER BY s.created DESC
		LIMIT 1`

	var (
		s      domain.Store
		author domain.User
	)
	dest := append(storeDest(&s), &author.ID, &author.Email, &author.Name)
	if err := r.pool.QueryRow(ctx, query, slug).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get store by slug: %w", err)
	}
	s.Author = &author

	reviews, err := r.reviewsFor(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Reviews = reviews
	return &s, nil
}

func (r *StoreRepository) reviewsFor(ctx context.Context, storeID string) ([]*domain.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id::text, r.created, r.author_id::text, r.store_id::text, r.text, r.rating,
		       u.id::text, u.email, u.name
		FROM reviews r
		JOIN users u ON u.id = r.author_id
		WHERE r.store_id = $1
		ORDER BY r.created DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var (
			rv     domain.Review
			author domain.User
		)
		if err := rows.Scan(
			&rv.ID, &rv.Created, &rv.AuthorID, &rv.StoreID, &rv.Text, &rv.Rating,
			&author.ID, &author.Email, &author.Name,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rv.Author = &author
		reviews = append(reviews, &rv)
	}
	return reviews, rows.Err()
}

func (r *StoreRepository) List(ctx context.Context, input repository.ListStoresInput) ([]*domain.Store, error) {
	return r.queryStores(ctx, "list stores", `
		SELECT `+storeColumns+`
		FROM stores s
		ORDER BY s.created DESC, s.id DESC
		OFFSET $1 LIMIT $2`, input.Skip, input.Limit)
}

func (r *StoreRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM stores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

func (r *StoreRepository) CountSlugs(ctx context.Context, base string) (int, error) {
	pattern := `^(` + regexp.QuoteMeta(base) + `)((-[0-9]*)?)$`

	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM stores WHERE slug ~* $1`, pattern).Scan(&n); err != nil {
		return 0, fmt.Errorf("count slugs: %w", err)
	}
	return n, nil
}

func (r *StoreRepository) ListByTag(ctx context.Context, tag string) ([]*domain.Store, error) {
	if tag == "" {
		return r.queryStores(ctx, "list tagged stores", `
			SELECT `+storeColumns+`
			FROM stores s
			WHERE cardinality(s.tags) > 0
			ORDER BY s.created DESC`)
	}
	return r.queryStores(ctx, "list stores by tag", `
		SELECT `+storeColumns+`
		FROM stores s
		WHERE $1 = ANY (s.tags)
		ORDER BY s.created DESC`, tag)
}

func (r *StoreRepository) TagList(ctx context.Context) ([]domain.TagCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.tag, count(*)
		FROM stores s, unnest(s.tags) AS t(tag)
		GROUP BY t.tag
		ORDER BY count(*) DESC, t.tag ASC`)
	if err != nil {
		return nil, fmt.Errorf("tag list: %w", err)
	}
	defer rows.Close()

	var tags []domain.TagCount
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}

func (r *StoreRepository) Search(ctx context.Context, query string, limit int) ([]*domain.Store, error) {
	return r.queryStores(ctx, "search stores", `
		SELECT `+storeColumns+`
		FROM stores s, websearch_to_tsquery('english', $1) q
		WHERE s.search @@ q
		ORDER BY ts_rank(s.search, q) DESC
		LIMIT $2`, query, limit)
}

func (r *StoreRepository) Near(ctx context.Context, input repository.NearInput) ([]*domain.Store, error) {
	latDelta := input.MaxDistanceMet / metersPerDegreeLat

	// Haversine distance in meters; the lat window only trims the candidate set.
	return r.queryStores(ctx, "near stores", `
		SELECT `+storeColumns+`
		FROM stores s
		CROSS JOIN LATERAL (
			SELECT 2 * 6371000 * asin(least(1, sqrt(
				power(sin(radians(s.lat - $2::float8) / 2), 2) +
				cos(radians($2::float8)) * cos(radians(s.lat)) *
				power(sin(radians(s.lng - $1::float8) / 2), 2)
			))) AS meters
		) d
		WHERE s.lat BETWEEN $2::float8 - $3::float8 AND $2::float8 + $3::float8
		  AND d.meters <= $4::float8
		ORDER BY d.meters ASC
		LIMIT $5`,
		input.Lng, input.Lat, latDelta, input.MaxDistanceMet, input.Limit)
}

func (r *StoreRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Store, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	return r.queryStores(ctx, "list stores by ids", `
		SELECT `+storeColumns+`
		FROM stores s
		WHERE s.id = ANY ($1::uuid[])
		ORDER BY s.created DESC`, valid)
}

func (r *StoreRepository) Top(ctx context.Context, minReviews, limit int) ([]*domain.RankedStore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+storeColumns+`, avg(r.rating)::float8, count(r.id)
		FROM stores s
		JOIN reviews r ON r.store_id = s.id
		GROUP BY s.id
		HAVING count(r.id) >= $1
		ORDER BY avg(r.rating) DESC, count(r.id) DESC
		LIMIT $2`, minReviews, limit)
	if err != nil {
		return nil, fmt.Errorf("top stores: %w", err)
	}
	defer rows.Close()

	var ranked []*domain.RankedStore
	for rows.Next() {
		var (
			s  domain.Store
			rs domain.RankedStore
		)
		dest := append(storeDest(&s), &rs.AverageRating, &rs.ReviewCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan top store: %w", err)
		}
		rs.Store = &s
		ranked = append(ranked, &rs)
	}
	return ranked, rows.Err()
}

func (r *StoreRepository) queryStores(ctx context.Context, op, query string, args ...any) ([]*domain.Store, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var stores []*domain.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stores, nil
}

func storeDest(s *domain.Store) []any {
	s.Location.Coordinates = make([]float64, 2)
	return []any{
		&s.ID, &s.Name, &s.Slug, &s.Description, &s.Tags, &s.Created,
		&s.Location.Type, &s.Location.Coordinates[0], &s.Location.Coordinates[1],
		&s.Location.Address, &s.Photo, &s.AuthorID,
	}
}

func scanStore(row rowScanner) (*domain.Store, error) {
	var s domain.Store
	if err := row.Scan(storeDest(&s)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStoreNotFound
		}
		return nil, fmt.Errorf("scan store: %w", err)
	}
	return &s, nil
}

func nonNilTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func locationType(l domain.Location) string {
	if l.Type == "" {
		return domain.PointType
	}
	return l.Type
}
