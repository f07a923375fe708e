package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tillhq/till/internal/domain/auth"
	"github.com/tillhq/till/internal/domain/catalog"
	"github.com/tillhq/till/internal/domain/order"
	"github.com/tillhq/till/internal/domain/settings"
	"github.com/tillhq/till/internal/receipt"
	"github.com/tillhq/till/internal/report"
	"github.com/tillhq/till/pkg/snapshot"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []catalog.Product
	byID     map[string]*catalog.Product
	lastPut  *catalog.Product
	deleted  []string
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Put(_ context.Context, p catalog.Product) error {
	m.lastPut = &p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCategoryRepo struct {
	categories []catalog.Category
	lastPut    *catalog.Category
}

func (m *mockCategoryRepo) List(_ context.Context) ([]catalog.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepo) Put(_ context.Context, c catalog.Category) error {
	m.lastPut = &c
	return nil
}

func (m *mockCategoryRepo) Delete(_ context.Context, _ string) error { return nil }

type mockOrderRepo struct {
	orders    []order.PersistedOrder
	lastOrder *order.PersistedOrder
	createErr error
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.PersistedOrder) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	m.orders = append(m.orders, *o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.PersistedOrder, error) {
	for i := range m.orders {
		if m.orders[i].ID == id {
			return &m.orders[i], nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) List(_ context.Context, _, _ time.Time) ([]order.PersistedOrder, error) {
	return m.orders, nil
}

func (m *mockOrderRepo) CountSince(_ context.Context, _ time.Time) (int, error) {
	return len(m.orders), nil
}

type mockSettings struct {
	cfg settings.Settings
	err error
}

func (m *mockSettings) Get(_ context.Context) (settings.Settings, error) {
	return m.cfg, m.err
}

type mockKeyRepo struct {
	keys map[string]*auth.TerminalKey // by hash
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*auth.TerminalKey, error) {
	if k, ok := m.keys[hash]; ok {
		return k, nil
	}
	return nil, auth.ErrUnknownKey
}

// --- Helpers ---

type fixture struct {
	products   *mockProductRepo
	categories *mockCategoryRepo
	orders     *mockOrderRepo
	settings   *mockSettings
	reports    *report.Service
	mux        *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p1 := catalog.Product{
		ID: "p1", DisplayName: "Flat White", Price: 5, CategoryID: "coffee", Active: true,
		Modifiers: []catalog.Modifier{
			{ID: "m1", Name: "Extra shot", Price: 0.5},
			{ID: "m2", Name: "Oat milk", Price: 0.6},
		},
	}
	p2 := catalog.Product{ID: "p2", DisplayName: "Retired", Price: 1, CategoryID: "coffee"}

	f := &fixture{
		products: &mockProductRepo{
			products: []catalog.Product{p1, p2},
			byID:     map[string]*catalog.Product{"p1": &p1, "p2": &p2},
		},
		categories: &mockCategoryRepo{categories: []catalog.Category{{ID: "coffee", Name: "Coffee"}}},
		orders:     &mockOrderRepo{},
		settings:   &mockSettings{cfg: settings.Default()},
	}

	hub := snapshot.NewHub[[]order.PersistedOrder]()
	f.reports = report.NewService(f.orders, f.products, f.categories, hub, zap.NewNop())

	renderer, err := receipt.NewRenderer()
	require.NoError(t, err)

	h := New(
		f.products,
		f.categories,
		f.orders,
		order.NewService(f.orders),
		f.settings,
		f.reports,
		renderer,
	)

	f.mux = http.NewServeMux()
	h.Register(f.mux, func(next http.Handler) http.Handler { return next })
	return f
}

func do(f *fixture, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	decode(t, w, &got)

	// Inactive products are hidden.
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0]["id"])
	assert.Equal(t, "Flat White", got[0]["name"])
	assert.Equal(t, "Coffee", got[0]["categoryName"])

	opts, ok := got[0]["options"].([]any)
	require.True(t, ok)
	assert.Len(t, opts, 2)
}

func TestPutProduct(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPut, "/api/products/p9", `{
		"name": "Croissant",
		"price": "3.50",
		"category": "bakery",
		"status": true,
		"options": [{"id": "m1", "name": "Warmed", "price": 0}]
	}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	require.NotNil(t, f.products.lastPut)
	assert.Equal(t, "p9", f.products.lastPut.ID)
	assert.Equal(t, "Croissant", f.products.lastPut.DisplayName)
	assert.InDelta(t, 3.50, f.products.lastPut.Price, 1e-9)
	assert.True(t, f.products.lastPut.Active)
	assert.Len(t, f.products.lastPut.Modifiers, 1)
}

func TestPutProduct_InvalidBody(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPut, "/api/products/p9", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodDelete, "/api/products/p1", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"p1"}, f.products.deleted)
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	decode(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "coffee", got[0]["id"])
	assert.Equal(t, "Coffee", got[0]["name"])
}

func TestPutCategory(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPut, "/api/categories/bakery", `{"name": "Bakery"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, f.categories.lastPut)
	assert.Equal(t, catalog.Category{ID: "bakery", Name: "Bakery"}, *f.categories.lastPut)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "p1", "quantity": 2, "optionIds": ["m1"]}],
		"payments": [{"method": "Cash", "amount": 20}],
		"orderType": "Dine-in"
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var got map[string]any
	decode(t, w, &got)

	assert.NotEmpty(t, got["id"])
	assert.InDelta(t, 11, got["total"].(float64), 1e-9)
	assert.InDelta(t, 9, got["cashChange"].(float64), 1e-9)
	assert.Equal(t, "Dine-in", got["orderType"])
	assert.Contains(t, got["receiptNumber"], "R-")

	require.NotNil(t, f.orders.lastOrder)
	require.Len(t, f.orders.lastOrder.Items, 1)
	assert.InDelta(t, 2, f.orders.lastOrder.Items[0].Quantity, 1e-9)
}

func TestPlaceOrder_PercentageDiscount(t *testing.T) {
	f := newFixture(t)
	f.settings.cfg.DiscountMode = settings.DiscountPercentage

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "p1", "quantity": 2}],
		"payments": [{"method": "Card", "amount": 10}],
		"discount": 10
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var got map[string]any
	decode(t, w, &got)
	assert.InDelta(t, 9, got["total"].(float64), 1e-9)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "ghost", "quantity": 1}],
		"payments": [{"method": "Cash", "amount": 5}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ghost")
}

func TestPlaceOrder_ZeroQuantity(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "p1", "quantity": 0}],
		"payments": [{"method": "Cash", "amount": 5}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"payments": [{"method": "Cash", "amount": 5}]
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder_NoPayment(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "p1", "quantity": 1}]
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder_InsufficientPayment(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", `{
		"items": [{"productId": "p1", "quantity": 2}],
		"payments": [{"method": "Cash", "amount": 3}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "does not cover")
}

func TestPlaceOrder_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodPost, "/api/orders", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.orders.orders = []order.PersistedOrder{{
		ID:            "o1",
		OrderDate:     time.Now(),
		Total:         10,
		ReceiptNumber: "R-20260315-0001",
	}}

	w := do(f, http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	decode(t, w, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0]["id"])
}

func TestListOrders_BadDate(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/orders?from=definitely-not-a-date", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSalesSummary(t *testing.T) {
	f := newFixture(t)
	f.orders.orders = []order.PersistedOrder{{
		ID:        "o1",
		OrderDate: time.Now(),
		Items: []order.Item{
			{ProductID: "p1", ProductName: "Flat White", Quantity: 2, TotalPrice: 10},
		},
		Total:     10,
		Payments:  []order.Payment{{Method: order.MethodCash, Amount: 10}},
		OrderType: order.TypeDineIn,
	}}

	w := do(f, http.MethodGet, "/api/sales/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Products map[string]struct {
			Name     string  `json:"name"`
			Quantity float64 `json:"quantity"`
			Total    float64 `json:"total"`
		} `json:"products"`
		Categories map[string]struct {
			Name  string  `json:"name"`
			Total float64 `json:"total"`
		} `json:"categories"`
		PaymentMethods map[string]float64 `json:"paymentMethods"`
		OrderTypes     map[string]int     `json:"orderTypes"`
		TotalSales     float64            `json:"totalSales"`
		OrderCount     int                `json:"orderCount"`
	}
	decode(t, w, &got)

	assert.Equal(t, 1, got.OrderCount)
	assert.InDelta(t, 10, got.TotalSales, 1e-9)
	assert.Equal(t, "Flat White", got.Products["p1"].Name)
	assert.Equal(t, "Coffee", got.Categories["coffee"].Name)
	assert.InDelta(t, 10, got.PaymentMethods[order.MethodCash], 1e-9)
	assert.Equal(t, 1, got.OrderTypes[order.TypeDineIn])
}

func TestSalesSummary_InvalidRange(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/sales/summary?range=fortnight", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLiveSummary_NotReady(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/sales/live", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLiveSummary_AfterCompute(t *testing.T) {
	f := newFixture(t)
	f.orders.orders = []order.PersistedOrder{{
		ID:        "o1",
		OrderDate: time.Now(),
		Items: []order.Item{
			{ProductID: "p1", ProductName: "Flat White", Quantity: 1, TotalPrice: 5},
		},
		Total: 5,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.reports.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.reports.Live() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, f.reports.Live(), "summary never computed")

	w := do(f, http.MethodGet, "/api/sales/live", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	decode(t, w, &got)
	assert.InDelta(t, 5, got["totalSales"].(float64), 1e-9)
}

func TestReceipt(t *testing.T) {
	f := newFixture(t)
	f.orders.orders = []order.PersistedOrder{{
		ID:            "o1",
		OrderDate:     time.Now(),
		Items:         []order.Item{{ProductName: "Flat White", Quantity: 1, TotalPrice: 5}},
		Total:         5,
		ReceiptNumber: "R-20260315-0001",
	}}

	w := do(f, http.MethodGet, "/api/receipts/o1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "R-20260315-0001")
	assert.Contains(t, w.Body.String(), "Flat White")
}

func TestReceipt_NotFound(t *testing.T) {
	f := newFixture(t)

	w := do(f, http.MethodGet, "/api/receipts/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternalErrorOnRepoFailure(t *testing.T) {
	f := newFixture(t)
	f.products.listErr = errors.New("db down")

	w := do(f, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
