// Package report maintains the live sales dashboard: a cached summary of the
// current day's orders, recomputed whenever a fresh order snapshot arrives.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/domain/sales"
	"github.com/tillhq/till/pkg/snapshot"
)

// Service subscribes to order snapshots and keeps an up-to-date summary of
// the current day. Each snapshot is treated as a complete replacement of the
// order set; an in-flight recomputation is simply superseded by the next one.
type Service struct {
	orders     order.Repository
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	hub        *snapshot.Hub[[]order.PersistedOrder]
	lg         *zap.Logger
	now        func() time.Time

	mu     sync.RWMutex
	latest *sales.Summary
}

// NewService creates a report Service. The hub is shared with whoever writes
// orders: publishing a fresh snapshot there is what drives recomputation.
func NewService(
	orders order.Repository,
	products catalog.ProductRepository,
	categories catalog.CategoryRepository,
	hub *snapshot.Hub[[]order.PersistedOrder],
	lg *zap.Logger,
) *Service {
	return &Service{
		orders:     orders,
		products:   products,
		categories: categories,
		hub:        hub,
		lg:         lg,
		now:        time.Now,
	}
}

// Refresh loads the current day's orders and publishes them as a new
// snapshot. Called after checkout and by the nightly rollover.
func (s *Service) Refresh(ctx context.Context) error {
	day := sales.Filter{Mode: sales.RangeDay, Start: s.now()}
	from, to := day.Bounds()

	orders, err := s.orders.List(ctx, from, to)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	s.hub.Publish(orders)
	return nil
}

// Run consumes snapshots until the context is cancelled. It performs an
// initial Refresh so the dashboard is populated on startup.
func (s *Service) Run(ctx context.Context) error {
	ch, cancel := s.hub.Subscribe()
	defer cancel()

	if err := s.Refresh(ctx); err != nil {
		s.lg.Warn("initial report refresh failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-ch:
			s.recompute(ctx, snap)
		}
	}
}

// recompute rebuilds the cached summary from a full order snapshot.
func (s *Service) recompute(ctx context.Context, orders []order.PersistedOrder) {
	resolver, err := s.loadResolver(ctx)
	if err != nil {
		s.lg.Warn("report recompute skipped", zap.Error(err))
		return
	}

	agg := sales.NewAggregator(resolver, nil, s.lg)
	summary := agg.Aggregate(orders, sales.Filter{Mode: sales.RangeDay, Start: s.now()})

	s.mu.Lock()
	s.latest = summary
	s.mu.Unlock()
}

func (s *Service) loadResolver(ctx context.Context) (*catalog.Resolver, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return catalog.NewResolver(products, categories), nil
}

// Live returns the cached summary, or nil before the first recomputation.
func (s *Service) Live() *sales.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// StartNightly schedules the end-of-day rollover: log the closing summary,
// then refresh so the dashboard starts the new day empty. The returned cron
// is already running; the caller stops it on shutdown.
func (s *Service) StartNightly(ctx context.Context) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("0 0 * * *", func() {
		if summary := s.Live(); summary != nil {
			s.lg.Info("end-of-day sales",
				zap.Float64("total_sales", summary.TotalSales),
				zap.Float64("total_quantity", summary.TotalQuantity),
				zap.Int("orders", summary.OrderCount),
			)
		}
		if err := s.Refresh(ctx); err != nil {
			s.lg.Warn("nightly refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		// The expression is a constant; this cannot fail at runtime.
		s.lg.Error("schedule nightly report", zap.Error(err))
	}
	c.Start()
	return c
}
