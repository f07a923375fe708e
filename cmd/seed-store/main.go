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

	"github.com/tillhq/till/internal/domain/auth"
	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/storage/postgres"
)

type modifierJSON struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type productJSON struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Price    float64        `json:"price"`
	Category string         `json:"category"`
	Active   *bool          `json:"active"`
	Options  []modifierJSON `json:"options"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type storeJSON struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
	Settings   map[string]any `json:"settings"`
}

func main() {
	var (
		databaseURL    string
		storeFile      string
		terminalKey    string
		terminalPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&storeFile, "store-file", "db/seed/store.json", "path to store catalog JSON file")
	flag.StringVar(&terminalKey, "terminal-key", "", "terminal key to seed (or TILL_SEED_TERMINAL_KEY env)")
	flag.StringVar(&terminalPepper, "terminal-pepper", "", "HMAC pepper for terminal key hashing (or TILL_TERMINAL_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if terminalKey == "" {
		terminalKey = os.Getenv("TILL_SEED_TERMINAL_KEY")
	}
	if terminalKey == "" {
		slog.Error("terminal key is required: set --terminal-key or TILL_SEED_TERMINAL_KEY")
		os.Exit(1)
	}
	if terminalPepper == "" {
		terminalPepper = os.Getenv("TILL_TERMINAL_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, storeFile, terminalKey, terminalPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, storeFile, terminalKey, pepper string) error {
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

	store, err := readStoreFile(storeFile)
	if err != nil {
		return errors.Wrap(err, "read store file")
	}

	if err := seedCatalog(ctx, newRepos(pool), store); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if len(store.Settings) > 0 {
		if err := postgres.NewSettingsRepository(pool).Put(ctx, store.Settings); err != nil {
			return errors.Wrap(err, "seed settings")
		}
		slog.Info("upserted store settings")
	}

	if err := seedTerminalKey(ctx, postgres.NewTerminalKeyRepository(pool), terminalKey, pepper); err != nil {
		return errors.Wrap(err, "seed terminal key")
	}

	return nil
}

func readStoreFile(path string) (*storeJSON, error) {
	slog.Info("reading store file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	var store storeJSON
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, errors.Wrap(err, "parse store JSON")
	}

	return &store, nil
}

type repos struct {
	products   *postgres.ProductRepository
	categories *postgres.CategoryRepository
}

func newRepos(pool *pgxpool.Pool) repos {
	return repos{
		products:   postgres.NewProductRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
	}
}

func seedCatalog(ctx context.Context, r repos, store *storeJSON) error {
	slog.Info("upserting categories", slog.Int("count", len(store.Categories)))

	for _, c := range store.Categories {
		if err := r.categories.Put(ctx, catalog.Category{ID: c.ID, Name: c.Name}); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.ID)
		}

		slog.Info("upserted category", slog.String("id", c.ID), slog.String("name", c.Name))
	}

	slog.Info("upserting products", slog.Int("count", len(store.Products)))

	for _, p := range store.Products {
		mods := make([]catalog.Modifier, 0, len(p.Options))
		for _, m := range p.Options {
			mods = append(mods, catalog.Modifier{ID: m.ID, Name: m.Name, Price: m.Price})
		}

		active := true
		if p.Active != nil {
			active = *p.Active
		}

		if err := r.products.Put(ctx, catalog.Product{
			ID:          p.ID,
			DisplayName: p.Name,
			Price:       p.Price,
			CategoryID:  p.Category,
			Active:      active,
			Modifiers:   mods,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

func seedTerminalKey(ctx context.Context, keys *postgres.TerminalKeyRepository, terminalKey, pepper string) error {
	slog.Info("seeding default terminal key")

	if err := keys.Put(ctx, auth.TerminalKey{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), terminalKey),
		Name:    "Default terminal",
	}); err != nil {
		return errors.Wrap(err, "upsert default terminal key")
	}

	slog.Info("upserted terminal key", slog.String("id", "default"))

	return nil
}
