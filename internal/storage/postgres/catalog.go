package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

const (
	listCatalogRecordsSQL = `SELECT id, name, price, image, description, featured, variations, sizes
		FROM products ORDER BY created_at`

	listFeaturedRecordsSQL = `SELECT id, name, price, image, description, featured, variations, sizes
		FROM products WHERE featured ORDER BY created_at`

	getCatalogRecordSQL = `SELECT id, name, price, image, description, featured, variations, sizes
		FROM products WHERE id = $1`

	getCatalogRecordBySlugSQL = `SELECT id, name, price, image, description, featured, variations, sizes
		FROM products WHERE slug = $1`
)

var _ catalog.Source = (*StaticCatalogSource)(nil)

// StaticCatalogSource serves catalog records from the local products table.
// It is the fallback source for deployments without a CMS: there is no draft
// state, so preview queries see the same rows as published ones.
type StaticCatalogSource struct {
	pool *pgxpool.Pool
}

// NewStaticCatalogSource returns a StaticCatalogSource using the pool.
func NewStaticCatalogSource(pool *pgxpool.Pool) *StaticCatalogSource {
	return &StaticCatalogSource{pool: pool}
}

// FetchCollection returns catalog records, honouring the featured and slug
// filters. Other filters are ignored: the table has no further filterable
// fields.
func (s *StaticCatalogSource) FetchCollection(ctx context.Context, q catalog.SourceQuery) ([]catalog.Record, error) {
	if slug := q.Filter["slug"]; slug != "" {
		rec, err := s.fetchBy(ctx, getCatalogRecordBySlugSQL, slug)
		if err != nil {
			if errors.Is(err, catalog.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []catalog.Record{*rec}, nil
	}

	sql := listCatalogRecordsSQL
	if q.Filter["featured"] == "true" {
		sql = listFeaturedRecordsSQL
	}

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, errors.Wrap(err, "list catalog records")
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, errors.Wrap(err, "scan catalog records")
	}
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}
	return recs, nil
}

// FetchOne returns a single record by its identifier.
func (s *StaticCatalogSource) FetchOne(ctx context.Context, id string, _ bool) (*catalog.Record, error) {
	return s.fetchBy(ctx, getCatalogRecordSQL, id)
}

func (s *StaticCatalogSource) fetchBy(ctx context.Context, sql, arg string) (*catalog.Record, error) {
	rows, err := s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrapf(err, "get catalog record %q", arg)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRecordNotFound
		}
		return nil, errors.Wrapf(err, "get catalog record %q", arg)
	}
	return &rec, nil
}

func scanRecord(row pgx.CollectableRow) (catalog.Record, error) {
	var (
		rec            catalog.Record
		price          decimal.Decimal
		description    []byte
		variationsJSON []byte
		sizesJSON      []byte
	)
	err := row.Scan(
		&rec.RemoteID, &rec.Name, &price, &rec.ImageURL,
		&description, &rec.Featured, &variationsJSON, &sizesJSON,
	)
	if err != nil {
		return rec, err
	}
	rec.Price = price
	rec.Description = description

	if err := json.Unmarshal(variationsJSON, &rec.EmbeddedVariations); err != nil {
		return rec, errors.Wrap(err, "decode variations")
	}
	if err := json.Unmarshal(sizesJSON, &rec.Sizes); err != nil {
		return rec, errors.Wrap(err, "decode sizes")
	}
	return rec, nil
}
