// Package cms implements the catalog collection source against a
// Contentful-style content delivery API. The published and preview datasets
// live on separate hosts under separate tokens and are never mixed.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

const (
	defaultDeliveryHost = "cdn.contentful.com"
	defaultPreviewHost  = "preview.contentful.com"
	defaultContentType  = "product"
	includeDepth        = 2
)

// Config holds the connection settings for both catalog views.
type Config struct {
	SpaceID       string
	Environment   string
	DeliveryToken string
	PreviewToken  string
	DeliveryHost  string
	PreviewHost   string
	ContentType   string
	HTTPClient    *http.Client
}

// Client fetches product entries. It implements catalog.Source.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ catalog.Source = (*Client)(nil)

// NewClient creates a Client with sane defaults for hosts, content type, and
// the HTTP timeout expected of the fetch collaborator.
func NewClient(cfg Config) *Client {
	if cfg.DeliveryHost == "" {
		cfg.DeliveryHost = defaultDeliveryHost
	}
	if cfg.PreviewHost == "" {
		cfg.PreviewHost = defaultPreviewHost
	}
	if cfg.Environment == "" {
		cfg.Environment = "master"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = defaultContentType
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// FetchCollection returns product records matching the query, ordered by
// creation time, with linked entries and assets resolved up to depth 2.
func (c *Client) FetchCollection(ctx context.Context, q catalog.SourceQuery) ([]catalog.Record, error) {
	params := url.Values{}
	params.Set("content_type", c.cfg.ContentType)
	params.Set("include", fmt.Sprint(includeDepth))
	params.Set("order", "sys.createdAt")
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}
	for field, value := range q.Filter {
		params.Set("fields."+field, value)
	}

	env, err := c.getEntries(ctx, q.Preview, params)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, len(env.Items))
	for i, e := range env.Items {
		records[i] = mapEntry(e, env.Includes)
	}
	return records, nil
}

// FetchOne returns the record with the given entry id, or ErrRecordNotFound.
// It queries the collection endpoint filtered by sys.id so linked variations
// and assets resolve the same way they do for full collection fetches.
func (c *Client) FetchOne(ctx context.Context, id string, preview bool) (*catalog.Record, error) {
	params := url.Values{}
	params.Set("content_type", c.cfg.ContentType)
	params.Set("include", fmt.Sprint(includeDepth))
	params.Set("sys.id", id)
	params.Set("limit", "1")

	env, err := c.getEntries(ctx, preview, params)
	if err != nil {
		return nil, err
	}
	if len(env.Items) == 0 {
		return nil, catalog.ErrRecordNotFound
	}
	rec := mapEntry(env.Items[0], env.Includes)
	return &rec, nil
}

func (c *Client) getEntries(ctx context.Context, preview bool, params url.Values) (*envelope, error) {
	host, token := c.cfg.DeliveryHost, c.cfg.DeliveryToken
	if preview {
		host, token = c.cfg.PreviewHost, c.cfg.PreviewToken
	}

	// Hosts are bare hostnames in production config; tests pass a full URL.
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	u := fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		base, c.cfg.SpaceID, c.cfg.Environment, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch entries")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, catalog.ErrRecordNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("content api returned %d: %s", resp.StatusCode, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decode entries response")
	}
	return &env, nil
}

// --- Wire types ---

type envelope struct {
	Items    []entry  `json:"items"`
	Includes includes `json:"includes"`
}

type entry struct {
	Sys    sys                        `json:"sys"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type sys struct {
	ID       string `json:"id"`
	LinkType string `json:"linkType"`
}

type link struct {
	Sys sys `json:"sys"`
}

type includes struct {
	Entry []entry `json:"Entry"`
	Asset []asset `json:"Asset"`
}

type asset struct {
	Sys    sys `json:"sys"`
	Fields struct {
		Title string `json:"title"`
		File  struct {
			URL string `json:"url"`
		} `json:"file"`
	} `json:"fields"`
}

// --- Mapping ---

// mapEntry flattens a wire entry into a raw Record. Unparseable individual
// fields zero out rather than failing the whole collection; the normalization
// layer treats those as data-quality issues.
func mapEntry(e entry, inc includes) catalog.Record {
	rec := catalog.Record{
		RemoteID:    e.Sys.ID,
		Description: e.Fields["description"],
	}
	_ = json.Unmarshal(e.Fields["name"], &rec.Name)
	_ = json.Unmarshal(e.Fields["featured"], &rec.Featured)
	_ = json.Unmarshal(e.Fields["sizes"], &rec.Sizes)

	var price decimal.Decimal
	if err := json.Unmarshal(e.Fields["price"], &price); err == nil {
		rec.Price = price
	}

	rec.ImageURL = resolveImageField(e.Fields["image"], inc)
	rec.EmbeddedVariations = mapEmbeddedVariations(e.Fields["embeddedVariations"])
	rec.LinkedVariations = mapLinkedVariations(e.Fields["variations"], inc)
	return rec
}

// resolveImageField accepts either a plain URL string or an asset link.
func resolveImageField(raw json.RawMessage, inc includes) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var l link
	if err := json.Unmarshal(raw, &l); err == nil && l.Sys.ID != "" {
		return assetURL(l.Sys.ID, inc)
	}
	return ""
}

func assetURL(id string, inc includes) string {
	for _, a := range inc.Asset {
		if a.Sys.ID == id {
			return a.Fields.File.URL
		}
	}
	return ""
}

func mapEmbeddedVariations(raw json.RawMessage) []catalog.Variation {
	if len(raw) == 0 {
		return nil
	}
	var vars []catalog.Variation
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil
	}
	return vars
}

// mapLinkedVariations resolves entry links through the includes payload. Each
// referenced variation is a sub-record whose own image may be an asset link.
func mapLinkedVariations(raw json.RawMessage, inc includes) []catalog.Variation {
	if len(raw) == 0 {
		return nil
	}
	var links []link
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil
	}

	var vars []catalog.Variation
	for _, l := range links {
		for _, e := range inc.Entry {
			if e.Sys.ID != l.Sys.ID {
				continue
			}
			var v catalog.Variation
			_ = json.Unmarshal(e.Fields["name"], &v.Name)
			_ = json.Unmarshal(e.Fields["value"], &v.Value)
			v.Image = resolveImageField(e.Fields["image"], inc)
			vars = append(vars, v)
			break
		}
	}
	return vars
}
