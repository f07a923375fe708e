//go:build integration

package integration

import (
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"
)

var (
	uuidPattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	receiptPattern = regexp.MustCompile(`^R-\d{8}-\d{4}$`)
)

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items:    []orderItemRequest{{ProductID: "p-latte", Quantity: 1}},
		Payments: []paymentRequest{{Method: "Cash", Amount: 10}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	req := orderRequest{
		Items:    []orderItemRequest{{ProductID: "p-latte", Quantity: 1}},
		Payments: []paymentRequest{{Method: "Cash", Amount: 10}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	req := orderRequest{
		Items:    []orderItemRequest{{ProductID: "ghost", Quantity: 1}},
		Payments: []paymentRequest{{Method: "Cash", Amount: 10}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, terminalKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	req := orderRequest{
		Payments: []paymentRequest{{Method: "Cash", Amount: 10}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, terminalKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InsufficientPayment(t *testing.T) {
	req := orderRequest{
		Items:    []orderItemRequest{{ProductID: "p-latte", Quantity: 2}},
		Payments: []paymentRequest{{Method: "Cash", Amount: 0.01}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, terminalKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCheckoutFlow(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{
			{ProductID: "p-latte", Quantity: 2, OptionIDs: []string{"opt-extra-shot"}},
			{ProductID: "p-muffin", Quantity: 1},
		},
		Payments:  []paymentRequest{{Method: "Cash", Amount: 50}},
		OrderType: "Dine-in",
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, terminalKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("order id %q is not a UUID", o.ID)
	}
	if !receiptPattern.MatchString(o.ReceiptNumber) {
		t.Errorf("receipt number %q does not match R-YYYYMMDD-NNNN", o.ReceiptNumber)
	}
	if len(o.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(o.Items))
	}

	// Latte 4.50 plus extra shot 0.50, twice, plus muffin 3.00.
	wantTotal := 13.00
	if o.Total != wantTotal {
		t.Errorf("total: got %v, want %v", o.Total, wantTotal)
	}
	if want := 50 - wantTotal; o.CashChange != want {
		t.Errorf("cashChange: got %v, want %v", o.CashChange, want)
	}

	// The order is listed for the current day.
	listResp := doGet(t, "/api/orders")
	orders := decodeJSON[[]orderResponse](t, listResp)
	listResp.Body.Close()

	found := false
	for _, got := range orders {
		if got.ID == o.ID {
			found = true
		}
	}
	if !found {
		t.Error("placed order missing from today's listing")
	}

	// Its receipt renders with the receipt number on the page.
	receiptResp := doGet(t, "/api/receipts/"+o.ID)
	defer receiptResp.Body.Close()
	if receiptResp.StatusCode != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d", receiptResp.StatusCode)
	}
	page, _ := io.ReadAll(receiptResp.Body)
	if !strings.Contains(string(page), o.ReceiptNumber) {
		t.Error("receipt page missing receipt number")
	}

	// And it shows up in the day's sales summary.
	summaryResp := doGet(t, "/api/sales/summary")
	defer summaryResp.Body.Close()
	if summaryResp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", summaryResp.StatusCode)
	}
	summary := decodeJSON[summaryResponse](t, summaryResp)
	if summary.OrderCount < 1 {
		t.Errorf("orderCount: got %d, want >= 1", summary.OrderCount)
	}
	if _, ok := summary.Products["p-latte"]; !ok {
		t.Error("summary missing product p-latte")
	}
	if _, ok := summary.Categories["cat-coffee"]; !ok {
		t.Error("summary missing category cat-coffee")
	}
}

func TestLiveSummary(t *testing.T) {
	req := orderRequest{
		Items:    []orderItemRequest{{ProductID: "p-flat-white", Quantity: 1}},
		Payments: []paymentRequest{{Method: "Card", Amount: 10}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, terminalKey)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	// The live summary recomputes asynchronously from the order snapshot;
	// poll briefly until the checkout above is reflected.
	deadline := time.Now().Add(10 * time.Second)
	for {
		liveResp := doGet(t, "/api/sales/live")
		if liveResp.StatusCode == http.StatusOK {
			summary := decodeJSON[summaryResponse](t, liveResp)
			liveResp.Body.Close()
			if summary.OrderCount >= 1 {
				return
			}
		} else {
			liveResp.Body.Close()
		}

		if time.Now().After(deadline) {
			t.Fatal("live summary never reflected the checkout")
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func TestReceipt_NotFound(t *testing.T) {
	resp := doGet(t, "/api/receipts/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}

func TestSalesSummary_InvalidRange(t *testing.T) {
	resp := doGet(t, "/api/sales/summary?range=fortnight")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
