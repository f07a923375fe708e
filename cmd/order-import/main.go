package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000

	// Unique violation, raised when an order was already imported.
	pgUniqueViolation = "23505"
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing orders-*.jsonl.gz export files")
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
		slog.Error("order import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "orders-*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob export files")
	}
	if len(files) == 0 {
		return errors.Errorf("no orders-*.jsonl.gz files in %s", dataDir)
	}
	sort.Strings(files)

	slog.Info("importing order exports", slog.Int("files", len(files)))

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	orders := postgres.NewOrderRepository(pool)

	// Exports overlap across files. The writer dedupes by order ID with a
	// bloom filter and falls back to the unique constraint for the rare
	// false positive handed to the database anyway.
	parsed := make(chan *order.PersistedOrder, 256)

	g, ctx := errgroup.WithContext(ctx)

	producers, pctx := errgroup.WithContext(ctx)
	for i, f := range files {
		producers.Go(parseFile(pctx, i, f, parsed))
	}

	g.Go(func() error {
		defer close(parsed)
		return producers.Wait()
	})
	g.Go(func() error {
		return writeOrders(ctx, orders, parsed)
	})

	return g.Wait()
}

// parseFile streams one gzip-compressed JSONL export, parsing each line
// into an order. Unparsable lines are logged and skipped so one bad
// record never aborts the import.
func parseFile(ctx context.Context, idx int, path string, out chan<- *order.PersistedOrder) func() error {
	return func() error {
		lg := slog.With(slog.Int("file", idx+1), slog.String("path", path))
		lg.Info("parsing export file")

		var lines, parsed, skipped uint64

		err := streamGzFile(ctx, path, func(line []byte) {
			lines++
			if lines%progressEvery == 0 {
				lg.Info("parse progress", slog.Uint64("lines", lines))
			}

			var raw map[string]any
			if err := json.Unmarshal(line, &raw); err != nil {
				skipped++
				lg.Warn("skipping malformed line",
					slog.Uint64("line", lines),
					slog.String("error", err.Error()),
				)
				return
			}

			id, _ := raw["id"].(string)
			o, err := order.ParseOrder(id, raw)
			if err != nil || o.OrderDate.IsZero() {
				skipped++
				lg.Warn("skipping order without id or date", slog.Uint64("line", lines))
				return
			}

			parsed++
			select {
			case out <- &o:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return errors.Wrapf(err, "parse file %d", idx+1)
		}

		lg.Info("parse complete",
			slog.Uint64("lines", lines),
			slog.Uint64("parsed", parsed),
			slog.Uint64("skipped", skipped),
		)

		return nil
	}
}

// writeOrders drains the parse channel, deduplicates, and inserts.
func writeOrders(ctx context.Context, orders order.Repository, in <-chan *order.PersistedOrder) error {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	var written, duplicates uint64
	for o := range in {
		if seen.TestString(o.ID) {
			duplicates++
			continue
		}
		seen.AddString(o.ID)

		if err := orders.Create(ctx, o); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				duplicates++
				continue
			}
			return errors.Wrapf(err, "insert order %s", o.ID)
		}

		written++
		if written%progressEvery == 0 {
			slog.Info("write progress", slog.Uint64("written", written))
		}
	}

	slog.Info("write complete",
		slog.Uint64("written", written),
		slog.Uint64("duplicates", duplicates),
	)

	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Bytes())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
