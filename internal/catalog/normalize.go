package catalog

import (
	"strings"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	domain "github.com/vetrina/storefront/internal/domain/catalog"
)

// descriptionPlaceholder substitutes descriptions that arrive malformed or
// missing. A bad description is a data-quality issue, never a fetch failure.
const descriptionPlaceholder = "No description available yet."

// normalize maps a raw remote record onto a Product: the remote id becomes the
// local id, the image URL is made absolute, the description is decided into
// its tagged variant, variations resolve through the ordered strategy list,
// and the ledger assigns a unique slug.
func normalize(rec domain.Record, ledger *domain.SlugLedger, lg *zap.Logger) domain.Product {
	return domain.Product{
		ID:          rec.RemoteID,
		RemoteID:    rec.RemoteID,
		Slug:        ledger.Assign(rec.Name),
		Name:        rec.Name,
		Price:       rec.Price,
		Image:       rewriteImageURL(rec.ImageURL),
		Description: resolveDescription(rec, lg),
		Featured:    rec.Featured,
		Variations:  resolveVariations(rec),
		Sizes:       rec.Sizes,
	}
}

// rewriteImageURL makes protocol-relative URLs (//host/path) absolute over
// https. Anything else passes through untouched.
func rewriteImageURL(url string) string {
	if strings.HasPrefix(url, "//") {
		return "https:" + url
	}
	return url
}

// resolveDescription decides the description variant once. A JSON string
// becomes PlainText, an object carrying a nodeType field is kept verbatim as a
// RichDocument, and everything else falls back to the placeholder.
func resolveDescription(rec domain.Record, lg *zap.Logger) domain.Description {
	raw := rec.Description
	if len(raw) == 0 {
		lg.Warn("product has no description, using placeholder",
			zap.String("remote_id", rec.RemoteID),
			zap.String("name", rec.Name),
		)
		return domain.PlainText(descriptionPlaceholder)
	}

	d := jx.DecodeBytes(raw)
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err == nil {
			return domain.PlainText(s)
		}
	case jx.Object:
		if hasNodeType(jx.Raw(raw)) {
			return domain.RichDocument(raw)
		}
	}

	lg.Warn("product description is malformed, using placeholder",
		zap.String("remote_id", rec.RemoteID),
		zap.String("name", rec.Name),
	)
	return domain.PlainText(descriptionPlaceholder)
}

// hasNodeType reports whether the object carries a top-level nodeType key,
// the marker of a well-formed rich-text document.
func hasNodeType(raw jx.Raw) bool {
	found := false
	d := jx.DecodeBytes(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "nodeType" {
			found = true
		}
		return d.Skip()
	})
	return err == nil && found
}

// variationStrategy is one step of the ordered variation resolution chain.
type variationStrategy struct {
	name    string
	resolve func(rec domain.Record) ([]domain.Variation, bool)
}

// variationStrategies are tried in order; the first one that yields a
// non-empty list wins. The precedence is embedded list, then referenced
// sub-records, then no variations at all.
var variationStrategies = []variationStrategy{
	{
		name: "embedded",
		resolve: func(rec domain.Record) ([]domain.Variation, bool) {
			return rec.EmbeddedVariations, len(rec.EmbeddedVariations) > 0
		},
	},
	{
		name: "referenced",
		resolve: func(rec domain.Record) ([]domain.Variation, bool) {
			return rec.LinkedVariations, len(rec.LinkedVariations) > 0
		},
	},
}

// resolveVariations runs the strategy chain and rewrites each variation's
// image URL the same way the product image is rewritten.
func resolveVariations(rec domain.Record) []domain.Variation {
	for _, s := range variationStrategies {
		vars, ok := s.resolve(rec)
		if !ok {
			continue
		}
		out := make([]domain.Variation, len(vars))
		for i, v := range vars {
			v.Image = rewriteImageURL(v.Image)
			out[i] = v
		}
		return out
	}
	return []domain.Variation{}
}
