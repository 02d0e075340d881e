// Command seed-db loads a static product catalog from a JSON file into the
// products table. Used for deployments that do not pull from a CMS.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
	"github.com/vetrina/storefront/internal/storage/postgres"
)

const upsertProductSQL = `INSERT INTO products (id, slug, name, price, image, description, featured, variations, sizes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		slug = EXCLUDED.slug,
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		image = EXCLUDED.image,
		description = EXCLUDED.description,
		featured = EXCLUDED.featured,
		variations = EXCLUDED.variations,
		sizes = EXCLUDED.sizes`

type productJSON struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	Image       string              `json:"image"`
	Description json.RawMessage     `json:"description"`
	Featured    bool                `json:"featured"`
	Variations  []catalog.Variation `json:"variations"`
	Sizes       []catalog.Size      `json:"sizes"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedProducts(ctx, pool, productsFile)
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	ledger := catalog.NewSlugLedger()
	for _, p := range products {
		slug := ledger.Assign(p.Name)

		variations := p.Variations
		if variations == nil {
			variations = []catalog.Variation{}
		}
		variationsJSON, err := json.Marshal(variations)
		if err != nil {
			return errors.Wrapf(err, "marshal variations for %s", p.ID)
		}

		sizes := p.Sizes
		if sizes == nil {
			sizes = []catalog.Size{}
		}
		sizesJSON, err := json.Marshal(sizes)
		if err != nil {
			return errors.Wrapf(err, "marshal sizes for %s", p.ID)
		}

		_, err = pool.Exec(ctx, upsertProductSQL,
			p.ID, slug, p.Name, p.Price, p.Image,
			[]byte(p.Description), p.Featured, variationsJSON, sizesJSON,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("slug", slug))
	}

	return nil
}
