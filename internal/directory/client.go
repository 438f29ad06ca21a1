// Package directory предоставляет клиент внешнего справочника ресторанов.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/repository"
)

// Client инкапсулирует HTTP-взаимодействие со справочником ресторанов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// RateLimitError возвращается, когда справочник ограничивает частоту запросов.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("restaurant directory rate limited, retry after %s", e.RetryAfter)
}

// NewClient создаёт HTTP-клиент справочника ресторанов по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetRestaurant запрашивает ресторан и его владельца по идентификатору.
func (c *Client) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("restaurant directory client not configured")
	}

	endpoint := fmt.Sprintf("%s/api/restaurants/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", repository.ErrRestaurantNotFound, id)
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result model.Restaurant
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.ID == "" {
		result.ID = id
	}

	return &result, nil
}
