package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"wanderlust/pkg/client"
)

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	var got createOrderRequest
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_123","amount":67700,"currency":"INR","receipt":"booking_abc","status":"created"}`))
	}))
	defer srv.Close()

	gw := NewRazorpayGateway(client.NewHttpClient(srv.URL, time.Second).WithBasicAuth("key", "secret"), "key")
	order, err := gw.CreateOrder(context.Background(), 67700, "INR", Receipt("abc"))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if user != "key" || pass != "secret" {
		t.Errorf("basic auth = %q/%q", user, pass)
	}
	if got.Amount != 67700 || got.Currency != "INR" || got.Receipt != "booking_abc" {
		t.Errorf("request body = %+v", got)
	}
	if order.ID != "order_123" || order.KeyID != "key" || order.Amount != 67700 {
		t.Errorf("order = %+v", order)
	}
}

func TestRazorpayGateway_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount must be at least INR 1.00"}}`))
	}))
	defer srv.Close()

	gw := NewRazorpayGateway(client.NewHttpClient(srv.URL, time.Second), "key")
	_, err := gw.CreateOrder(context.Background(), 0, "INR", "booking_x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "amount must be at least INR 1.00") {
		t.Errorf("error should carry gateway description, got %v", err)
	}
}

func TestDemoGateway(t *testing.T) {
	order, err := NewDemoGateway("").CreateOrder(context.Background(), 1000, "INR", "booking_1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.ID != "" {
		t.Errorf("demo order should have no ID, got %q", order.ID)
	}
	if order.Amount != 1000 || order.Receipt != "booking_1" {
		t.Errorf("order = %+v", order)
	}
}
