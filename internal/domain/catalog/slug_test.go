package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Zenith Jacket", "zenith-jacket"},
		{"accents stripped", "Café Crème Coat", "caf-crme-coat"},
		{"punctuation stripped", "Silk Scarf (Limited!)", "silk-scarf-limited"},
		{"whitespace runs", "Linen   Wide\tTrousers", "linen-wide-trousers"},
		{"existing hyphens kept", "T-Shirt Oversize", "t-shirt-oversize"},
		{"hyphens collapsed", "Wrap - Dress", "wrap-dress"},
		{"edge hyphens trimmed", " -Belt- ", "belt"},
		{"all symbols", "???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugLedger_Collisions(t *testing.T) {
	l := NewSlugLedger()

	assert.Equal(t, "zenith-jacket", l.Assign("Zenith Jacket"))
	assert.Equal(t, "zenith-jacket-2", l.Assign("Zenith Jacket"))
	assert.Equal(t, "zenith-jacket-3", l.Assign("Zenith Jacket"))
	assert.Equal(t, "silk-scarf", l.Assign("Silk Scarf"))
}

func TestSlugLedger_Reset(t *testing.T) {
	l := NewSlugLedger()

	assert.Equal(t, "zenith-jacket", l.Assign("Zenith Jacket"))
	l.Reset()
	assert.Equal(t, "zenith-jacket", l.Assign("Zenith Jacket"))
}

func TestProduct_Matches(t *testing.T) {
	p := Product{ID: "a1b2", RemoteID: "a1b2", Slug: "zenith-jacket"}

	assert.True(t, p.Matches("a1b2"))
	assert.True(t, p.Matches("zenith-jacket"))
	assert.False(t, p.Matches("zenith-jacket-2"))

	static := Product{ID: "3", Slug: "belt"}
	assert.True(t, static.Matches("3"))
	assert.False(t, static.Matches(""))
}
