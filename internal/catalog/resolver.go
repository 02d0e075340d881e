// Package catalog resolves the remote product collection into normalized,
// slug-addressable products, with time-bound caching per catalog view.
package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	domain "github.com/vetrina/storefront/internal/domain/catalog"
)

const (
	defaultTTL      = 5 * time.Minute
	defaultPageSize = 100
)

// Config tunes the resolver. TTL is a deployment parameter (shorter in
// development); PageSize caps collection fetches.
type Config struct {
	TTL      time.Duration
	PageSize int
}

type collectionEntry struct {
	products  []domain.Product
	fetchedAt time.Time
}

type pointKey struct {
	key     string
	preview bool
}

type pointEntry struct {
	product   domain.Product
	fetchedAt time.Time
}

// Resolver caches and answers catalog lookups. The preview and published
// views are cached under independent entries and never share data, so a
// caller asking for draft content cannot silently receive published content.
//
// All cache state, including the slug ledger, is owned by the instance and
// dropped together by ClearCache.
type Resolver struct {
	source   domain.Source
	ttl      time.Duration
	pageSize int
	lg       *zap.Logger
	now      func() time.Time

	// mu is held for the whole of each operation, remote round trip included.
	// Concurrent callers asking for the same expired view wait for the first
	// fetch instead of issuing duplicates.
	mu       sync.Mutex
	full     map[bool]collectionEntry
	featured map[bool]collectionEntry
	points   map[pointKey]pointEntry
	ledger   *domain.SlugLedger
}

// NewResolver creates a Resolver over the given collection source.
func NewResolver(source domain.Source, cfg Config, lg *zap.Logger) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &Resolver{
		source:   source,
		ttl:      cfg.TTL,
		pageSize: cfg.PageSize,
		lg:       lg,
		now:      time.Now,
		full:     make(map[bool]collectionEntry),
		featured: make(map[bool]collectionEntry),
		points:   make(map[pointKey]pointEntry),
		ledger:   domain.NewSlugLedger(),
	}
}

func (r *Resolver) fresh(fetchedAt time.Time) bool {
	return r.now().Sub(fetchedAt) < r.ttl
}

// FetchAll returns the full catalog for the requested view, from cache when
// the entry is still inside its TTL. A collaborator failure propagates so the
// caller can distinguish "no products" from "fetch failed".
func (r *Resolver) FetchAll(ctx context.Context, preview bool) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.full[preview]; ok && r.fresh(e.fetchedAt) {
		return e.products, nil
	}

	recs, err := r.source.FetchCollection(ctx, domain.SourceQuery{
		Preview: preview,
		Limit:   r.pageSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog collection")
	}

	products := make([]domain.Product, len(recs))
	for i, rec := range recs {
		products[i] = normalize(rec, r.ledger, r.lg)
	}

	r.full[preview] = collectionEntry{products: products, fetchedAt: r.now()}
	r.lg.Info("catalog fetched",
		zap.Bool("preview", preview),
		zap.Int("products", len(products)),
	)
	return products, nil
}

// FetchFeatured returns the featured subset. A fresh full-catalog cache is
// filtered client-side to avoid a second round trip; the collaborator is only
// asked for a server-side featured filter when no fresh full cache exists.
func (r *Resolver) FetchFeatured(ctx context.Context, preview bool) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.full[preview]; ok && r.fresh(e.fetchedAt) {
		featured := make([]domain.Product, 0, len(e.products))
		for _, p := range e.products {
			if p.Featured {
				featured = append(featured, p)
			}
		}
		return featured, nil
	}

	if e, ok := r.featured[preview]; ok && r.fresh(e.fetchedAt) {
		return e.products, nil
	}

	recs, err := r.source.FetchCollection(ctx, domain.SourceQuery{
		Preview: preview,
		Filter:  map[string]string{"featured": "true"},
		Limit:   r.pageSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch featured collection")
	}

	products := make([]domain.Product, len(recs))
	for i, rec := range recs {
		products[i] = normalize(rec, r.ledger, r.lg)
	}

	r.featured[preview] = collectionEntry{products: products, fetchedAt: r.now()}
	return products, nil
}

// ResolveOne looks a product up by id, remote id, or slug. Lookup order: the
// fresh full-catalog cache, the point cache, a direct remote fetch by id, and
// finally a slug-filtered collection query when the key is slug-shaped. It
// returns nil when nothing matches; fetch failures on the fallback paths are
// logged and treated as a miss, because by then the higher-confidence
// cache-based answers are already exhausted.
func (r *Resolver) ResolveOne(ctx context.Context, key string, preview bool) *domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.full[preview]; ok && r.fresh(e.fetchedAt) {
		for i := range e.products {
			if e.products[i].Matches(key) {
				p := e.products[i]
				return &p
			}
		}
	}

	pk := pointKey{key: key, preview: preview}
	if e, ok := r.points[pk]; ok && r.fresh(e.fetchedAt) {
		p := e.product
		return &p
	}

	if p := r.fetchPoint(ctx, key, preview); p != nil {
		r.points[pk] = pointEntry{product: *p, fetchedAt: r.now()}
		return p
	}
	return nil
}

// fetchPoint runs the remote fallback paths of ResolveOne.
func (r *Resolver) fetchPoint(ctx context.Context, key string, preview bool) *domain.Product {
	rec, err := r.source.FetchOne(ctx, key, preview)
	if err == nil {
		p := normalize(*rec, r.ledger, r.lg)
		return &p
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		r.lg.Debug("point fetch failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	// Slug-shaped keys get one more chance via a filtered collection query.
	if !strings.Contains(key, "-") {
		return nil
	}
	recs, err := r.source.FetchCollection(ctx, domain.SourceQuery{
		Preview: preview,
		Filter:  map[string]string{"slug": key},
		Limit:   1,
	})
	if err != nil {
		r.lg.Debug("slug query failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil
	}
	if len(recs) == 0 {
		return nil
	}
	p := normalize(recs[0], r.ledger, r.lg)
	return &p
}

// ClearCache drops every cached collection, the point cache, and the slug
// ledger. Used when the underlying dataset is known to have changed.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.full = make(map[bool]collectionEntry)
	r.featured = make(map[bool]collectionEntry)
	r.points = make(map[pointKey]pointEntry)
	r.ledger.Reset()
	r.lg.Info("catalog cache cleared")
}
