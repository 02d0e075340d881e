// Command subscriber-import bulk-loads mailing list data. It reads gzipped
// newline-delimited email lists exported from a previous provider, builds a
// bloom filter over the provider's bounce dumps, and upserts the remaining
// addresses as subscribers while flagging the bounced ones as suppressed.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"net/mail"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/vetrina/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

const (
	importSubscriberSQL = `INSERT INTO subscribers (email, source)
		VALUES ($1, 'import')
		ON CONFLICT (email) DO NOTHING`

	suppressSubscriberSQL = `INSERT INTO subscribers (email, source, suppressed)
		VALUES ($1, 'import', TRUE)
		ON CONFLICT (email) DO UPDATE SET suppressed = TRUE`
)

func main() {
	var (
		listFile    string
		bounceFiles stringList
		databaseURL string
	)

	flag.StringVar(&listFile, "list", "", "gzipped newline-delimited email list to import")
	flag.Var(&bounceFiles, "bounces", "gzipped bounce dump (repeatable)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if listFile == "" {
		slog.Error("subscriber list is required: set --list")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, listFile, bounceFiles, databaseURL); err != nil {
		slog.Error("subscriber import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("subscriber import completed successfully")
}

func run(ctx context.Context, listFile string, bounceFiles []string, databaseURL string) error {
	// Pass 1: build one bloom filter per bounce dump, concurrently.
	slog.Info("pass 1: building bounce filters", slog.Int("files", len(bounceFiles)))

	suppressed, err := buildBounceFilter(ctx, bounceFiles)
	if err != nil {
		return errors.Wrap(err, "build bounce filter")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Pass 2: stream the list and upsert, routing bounced addresses to the
	// suppression flag.
	slog.Info("pass 2: importing subscribers", slog.String("file", listFile))
	return importList(ctx, pool, listFile, suppressed)
}

// buildBounceFilter reads every bounce dump concurrently into bloom filters,
// then merges them. A bloom filter false positive suppresses a valid address,
// which only costs one newsletter recipient; the FPR keeps that rare.
func buildBounceFilter(ctx context.Context, files []string) (*bloom.BloomFilter, error) {
	merged := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	if len(files) == 0 {
		return merged, nil
	}

	filters := make([]*bloom.BloomFilter, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			n, err := scanGzipLines(ctx, f, func(email string) error {
				filter.AddString(email)
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}
			slog.Info("bounce dump scanned", slog.String("file", f), slog.Int("addresses", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, f := range filters {
		if err := merged.Merge(f); err != nil {
			return nil, errors.Wrap(err, "merge filters")
		}
	}
	return merged, nil
}

// importList streams the subscriber list and writes each address to the
// database, one statement per address inside periodic progress logging.
func importList(ctx context.Context, pool *pgxpool.Pool, listFile string, suppressed *bloom.BloomFilter) error {
	var imported, flagged, skipped int

	_, err := scanGzipLines(ctx, listFile, func(email string) error {
		if _, err := mail.ParseAddress(email); err != nil {
			skipped++
			return nil
		}

		sql := importSubscriberSQL
		if suppressed.TestString(email) {
			sql = suppressSubscriberSQL
			flagged++
		} else {
			imported++
		}

		if _, err := pool.Exec(ctx, sql, email); err != nil {
			return errors.Wrapf(err, "upsert %s", email)
		}

		if (imported+flagged)%progressEvery == 0 {
			slog.Info("progress", slog.Int("imported", imported), slog.Int("flagged", flagged))
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("import finished",
		slog.Int("imported", imported),
		slog.Int("flagged", flagged),
		slog.Int("skipped", skipped),
	)
	return nil
}

// scanGzipLines streams a gzipped file line by line, lowercasing and trimming
// each line before handing it to fn. Returns the number of lines processed.
func scanGzipLines(ctx context.Context, path string, fn func(line string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open file")
	}
	defer func() { _ = f.Close() }()

	zr, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrap(err, "open gzip reader")
	}
	defer func() { _ = zr.Close() }()

	var n int
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return n, err
		}
		n++
	}
	return n, errors.Wrap(scanner.Err(), "scan lines")
}

// stringList collects repeatable string flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
