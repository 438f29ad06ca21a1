package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/repository"
)

func TestGetRestaurant_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/restaurants/r1" {
			t.Errorf("path = %s, want /api/restaurants/r1", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Restaurant{ID: "r1", Title: "Cafe", OwnerID: "w1"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs, err := client.GetRestaurant(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRestaurant error: %v", err)
	}
	if rs.ID != "r1" || rs.OwnerID != "w1" || rs.Title != "Cafe" {
		t.Fatalf("unexpected restaurant: %+v", rs)
	}
}

func TestGetRestaurant_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.GetRestaurant(context.Background(), "r1")
	if !errors.Is(err, repository.ErrRestaurantNotFound) {
		t.Fatalf("expected ErrRestaurantNotFound, got %v", err)
	}
}

func TestGetRestaurant_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.GetRestaurant(context.Background(), "r1")

	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.RetryAfter != 5*time.Second {
		t.Fatalf("RetryAfter = %v, want 5s", rlErr.RetryAfter)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	c := NewClient("directory:8081/")
	if !strings.HasPrefix(c.baseURL, "http://") || strings.HasSuffix(c.baseURL, "/") {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}

func TestGetRestaurant_NotConfigured(t *testing.T) {
	var c *Client
	if _, err := c.GetRestaurant(context.Background(), "r1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
