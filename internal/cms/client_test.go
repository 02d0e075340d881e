package cms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

const collectionBody = `{
  "sys": {"type": "Array"},
  "total": 2,
  "items": [
    {
      "sys": {"id": "p1", "createdAt": "2024-01-01T00:00:00Z"},
      "fields": {
        "name": "Zenith Jacket",
        "price": 120.5,
        "featured": true,
        "description": "A lined wool jacket.",
        "image": {"sys": {"type": "Link", "linkType": "Asset", "id": "a1"}},
        "variations": [{"sys": {"type": "Link", "linkType": "Entry", "id": "v1"}}],
        "sizes": [{"name": "M", "value": "m"}, {"name": "L", "value": "l"}]
      }
    },
    {
      "sys": {"id": "p2", "createdAt": "2024-01-02T00:00:00Z"},
      "fields": {
        "name": "Silk Scarf",
        "price": 45,
        "featured": false,
        "description": {"nodeType": "document", "content": []},
        "image": "//images.example.com/scarf.jpg",
        "embeddedVariations": [{"name": "Red", "value": "#c0392b"}],
        "sizes": []
      }
    }
  ],
  "includes": {
    "Entry": [
      {
        "sys": {"id": "v1"},
        "fields": {
          "name": "Black",
          "value": "#000000",
          "image": {"sys": {"type": "Link", "linkType": "Asset", "id": "a2"}}
        }
      }
    ],
    "Asset": [
      {"sys": {"id": "a1"}, "fields": {"title": "jacket", "file": {"url": "//images.example.com/jacket.jpg"}}},
      {"sys": {"id": "a2"}, "fields": {"title": "black", "file": {"url": "//images.example.com/jacket-black.jpg"}}}
    ]
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		SpaceID:       "space1",
		DeliveryToken: "delivery-token",
		PreviewToken:  "preview-token",
		DeliveryHost:  srv.URL,
		PreviewHost:   srv.URL,
		HTTPClient:    srv.Client(),
	}), srv
}

func TestFetchCollection(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(collectionBody))
	})

	recs, err := c.FetchCollection(context.Background(), catalog.SourceQuery{Limit: 100})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Bearer delivery-token", gotAuth)
	assert.Equal(t, "product", gotQuery["content_type"])
	assert.Equal(t, "2", gotQuery["include"])
	assert.Equal(t, "sys.createdAt", gotQuery["order"])
	assert.Equal(t, "100", gotQuery["limit"])

	jacket := recs[0]
	assert.Equal(t, "p1", jacket.RemoteID)
	assert.Equal(t, "Zenith Jacket", jacket.Name)
	assert.Equal(t, "120.5", jacket.Price.String())
	assert.True(t, jacket.Featured)
	assert.Equal(t, "//images.example.com/jacket.jpg", jacket.ImageURL)
	assert.Len(t, jacket.Sizes, 2)
	require.Len(t, jacket.LinkedVariations, 1)
	assert.Equal(t, "Black", jacket.LinkedVariations[0].Name)
	assert.Equal(t, "#000000", jacket.LinkedVariations[0].Value)
	assert.Equal(t, "//images.example.com/jacket-black.jpg", jacket.LinkedVariations[0].Image)

	scarf := recs[1]
	assert.Equal(t, "//images.example.com/scarf.jpg", scarf.ImageURL)
	require.Len(t, scarf.EmbeddedVariations, 1)
	assert.Equal(t, "#c0392b", scarf.EmbeddedVariations[0].Value)
	assert.Empty(t, scarf.LinkedVariations)
}

func TestFetchCollection_FieldFilters(t *testing.T) {
	var gotQuery map[string]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	_, err := c.FetchCollection(context.Background(), catalog.SourceQuery{
		Filter: map[string]string{"featured": "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, "true", gotQuery["fields.featured"])
}

func TestFetchCollection_PreviewUsesPreviewToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	_, err := c.FetchCollection(context.Background(), catalog.SourceQuery{Preview: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer preview-token", gotAuth)
}

func TestFetchCollection_ServerErrorPropagates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.FetchCollection(context.Background(), catalog.SourceQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchOne(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		var gotQuery map[string]string
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = map[string]string{}
			for k := range r.URL.Query() {
				gotQuery[k] = r.URL.Query().Get(k)
			}
			_, _ = w.Write([]byte(collectionBody))
		})

		rec, err := c.FetchOne(context.Background(), "p1", false)
		require.NoError(t, err)
		assert.Equal(t, "p1", rec.RemoteID)
		assert.Equal(t, "p1", gotQuery["sys.id"])
		assert.Equal(t, "1", gotQuery["limit"])
	})

	t.Run("empty result is not found", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items": []}`))
		})

		_, err := c.FetchOne(context.Background(), "missing", false)
		require.ErrorIs(t, err, catalog.ErrRecordNotFound)
	})

	t.Run("http 404 is not found", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		_, err := c.FetchOne(context.Background(), "missing", false)
		require.True(t, errors.Is(err, catalog.ErrRecordNotFound))
	})
}
