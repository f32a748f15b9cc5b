package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "root"},
		{"/", "root"},
		{"/api/v1/listings", "/api/v1/listings"},
		{"/api/v1/listings/id/65f1a2b3c4d5e6f708192a3b", "/api/v1/listings/id/:id"},
		{"/api/v1/listings/id/65f1a2b3c4d5e6f708192a3b/availability", "/api/v1/listings/id/:id/availability"},
		{"/api/v1/bookings/id/65f1a2b3c4d5e6f708192a3b/pay", "/api/v1/bookings/id/:id/pay"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePath(tt.in); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMiddleware_CountsRequests(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := RequestTotal.WithLabelValues(http.MethodGet, "/metrics-test", "418")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodGet, "/metrics-test", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}
