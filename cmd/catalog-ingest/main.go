// Command catalog-ingest bulk-loads the product catalog from gzipped JSONL
// exports (products*.jsonl.gz). Files are parsed concurrently; a bloom filter
// suppresses duplicate product IDs across files, so the first occurrence of
// an ID wins. A false positive drops a product (at the configured rate of
// 0.01%), which is acceptable for catalog refreshes since the next run picks
// it up.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/shopworks/discount-engine/internal/domain/product"
	"github.com/shopworks/discount-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.0001
	batchSize     = 500
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing products*.jsonl.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
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

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "products*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob catalog files")
	}
	if len(files) == 0 {
		return errors.Errorf("no products*.jsonl.gz files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("ingesting catalog files", slog.Int("files", len(files)))

	records := make(chan product.Product, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	parsers, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		parsers.Go(parseFile(ctx, f, records))
	}
	g.Go(func() error {
		defer close(records)
		return parsers.Wait()
	})

	// The writer is the single consumer, so the bloom filter needs no lock.
	var total int
	g.Go(func() error {
		seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		batch := make([]product.Product, 0, batchSize)

		for p := range records {
			if seen.TestAndAddString(p.ID) {
				continue
			}
			batch = append(batch, p)
			if len(batch) == batchSize {
				if err := upsertBatch(ctx, pool, batch); err != nil {
					return err
				}
				total += len(batch)
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			if err := upsertBatch(ctx, pool, batch); err != nil {
				return err
			}
			total += len(batch)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("catalog upserted", slog.Int("products", total))
	return nil
}

// parseFile streams one gzipped JSONL file and sends every parsed product to
// out. Malformed lines abort the ingest; catalog exports are machine-written
// and a bad line means a broken export.
func parseFile(ctx context.Context, path string, out chan<- product.Product) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer f.Close()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "gzip reader for %s", path)
		}
		defer gz.Close()

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		line := 0
		for scanner.Scan() {
			line++
			if len(scanner.Bytes()) == 0 {
				continue
			}
			p, err := parseProduct(scanner.Bytes())
			if err != nil {
				return errors.Wrapf(err, "%s line %d", path, line)
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return errors.Wrapf(scanner.Err(), "scan %s", path)
	}
}

// parseProduct decodes a single JSONL record:
// {"id": "...", "name": "...", "price": "12.34", "category": "electronics"}.
// Price accepts both JSON strings and numbers.
func parseProduct(data []byte) (product.Product, error) {
	var p product.Product
	d := jx.DecodeBytes(data)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Str()
			p.ID = v
			return err
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "category":
			v, err := d.Str()
			p.Category = product.Category(v)
			return err
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			raw := n
			if n.Str() {
				raw = n[1 : len(n)-1]
			}
			price, err := decimal.NewFromString(string(raw))
			p.Price = price
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return product.Product{}, errors.Wrap(err, "decode product")
	}
	if p.ID == "" {
		return product.Product{}, errors.New("product record missing id")
	}
	return p, nil
}

func upsertBatch(ctx context.Context, pool *pgxpool.Pool, products []product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(
			`INSERT INTO products (id, name, price, category) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, category = $4`,
			p.ID, p.Name, p.Price, p.Category)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert product batch")
	}
	return nil
}
