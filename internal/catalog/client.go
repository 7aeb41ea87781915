// Package catalog предоставляет клиент для внешнего каталога товаров.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// ErrProductNotFound возвращается, если каталог не знает товар.
	ErrProductNotFound = errors.New("product not found")
	// ErrRateLimited возвращается, если каталог ответил 429.
	ErrRateLimited = errors.New("catalog rate limit exceeded")
)

// RateLimitError сообщает, через сколько можно повторить запрос.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("catalog rate limit exceeded, retry after %s", e.RetryAfter)
}

// Is позволяет сопоставлять ошибку с ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Client инкапсулирует HTTP-взаимодействие с REST-интерфейсом каталога.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// productRow описывает строку таблицы products в ответе каталога.
type productRow struct {
	ID       string   `json:"id"`
	VendorID string   `json:"vendor_id"`
	Name     string   `json:"name"`
	Images   []string `json:"images"`
	Price    int64    `json:"price"`
	Stock    int      `json:"stock"`
}

// NewClient создаёт клиент каталога по адресу и ключу API.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetProduct запрашивает актуальный снимок товара по идентификатору.
func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("catalog client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id,vendor_id,name,images,price,stock")
	endpoint := fmt.Sprintf("%s/rest/v1/products?%s", base, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	case http.StatusNotFound, http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var rows []productRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}

	row := rows[0]
	return &model.Product{
		ID:       row.ID,
		VendorID: row.VendorID,
		Name:     row.Name,
		Images:   row.Images,
		Price:    row.Price,
		Stock:    row.Stock,
	}, nil
}
