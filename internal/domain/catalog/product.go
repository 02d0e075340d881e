package catalog

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrRecordNotFound is returned by a Source when a point lookup matches nothing.
var ErrRecordNotFound = errors.New("catalog record not found")

// Product is a normalized catalog entry. ID is the remote system's identifier
// for CMS-backed catalogs, or a small integer rendered as a string for the
// locally seeded static catalog. RemoteID always carries the original remote
// identifier so the record can be re-fetched after ID normalization.
type Product struct {
	ID          string      `json:"id"`
	RemoteID    string      `json:"remoteId,omitempty"`
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string      `json:"image"`
	Description Description `json:"description"`
	Featured    bool        `json:"featured"`
	Variations  []Variation `json:"variations"`
	Sizes       []Size      `json:"sizes"`
}

// Variation is a selectable product variant. Value is the discriminator the
// bag stores (a color swatch such as "#1f2933"). Image, when set, replaces the
// product's default image for that variation.
type Variation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Image string `json:"image,omitempty"`
}

// Size is a selectable product size.
type Size struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Matches reports whether key identifies this product by id, remote id, or slug.
func (p Product) Matches(key string) bool {
	return key == p.ID || (p.RemoteID != "" && key == p.RemoteID) || key == p.Slug
}

// DescriptionKind discriminates the two description representations.
type DescriptionKind string

const (
	// DescriptionPlainText is a flat text description.
	DescriptionPlainText DescriptionKind = "text"
	// DescriptionRichDocument is a structured rich-text document kept verbatim.
	DescriptionRichDocument DescriptionKind = "document"
)

// Description is a tagged variant decided once at normalization time, so
// consumers switch on Kind instead of probing the payload shape.
type Description struct {
	Kind     DescriptionKind `json:"kind"`
	Text     string          `json:"text,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
}

// PlainText returns a plain-text description.
func PlainText(s string) Description {
	return Description{Kind: DescriptionPlainText, Text: s}
}

// RichDocument returns a rich-text description holding the document verbatim.
func RichDocument(doc json.RawMessage) Description {
	return Description{Kind: DescriptionRichDocument, Document: doc}
}

// Record is a raw collection entry as delivered by a Source, before
// normalization assigns slugs and resolves images, descriptions, and
// variations.
type Record struct {
	RemoteID           string
	Name               string
	Price              decimal.Decimal
	ImageURL           string
	Description        json.RawMessage
	Featured           bool
	EmbeddedVariations []Variation
	LinkedVariations   []Variation
	Sizes              []Size
}

// SourceQuery selects records from a collection source. Filter holds field
// equality constraints (e.g. {"featured": "true"} or {"slug": "silk-scarf"}).
type SourceQuery struct {
	Preview bool
	Filter  map[string]string
	Limit   int
}

// Source fetches raw catalog records from a remote collection. Collection
// results are ordered by creation time and capped at the query limit; both a
// published and a preview variant of the dataset are addressable.
type Source interface {
	FetchCollection(ctx context.Context, q SourceQuery) ([]Record, error)
	FetchOne(ctx context.Context, id string, preview bool) (*Record, error)
}
