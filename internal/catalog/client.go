package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/internal/config"
	"github.com/routeledger/backend/usecase"
)

// Client is a thin HTTP client for the external product catalog service.
// Calls carry a bounded timeout and a small number of retries with backoff;
// an unresponsive catalog must not stall a saga indefinitely.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	timeout time.Duration
	retries int
	backoff time.Duration

	cache    *goRedis.Client
	cacheTTL time.Duration

	logger *zap.Logger
}

var _ usecase.CatalogClient = (*Client)(nil)

// NewClient builds a catalog client. cache may be nil; department lookups are
// then always remote.
func NewClient(cfg config.CatalogConfig, cache *goRedis.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: &fasthttp.Client{
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		},
		baseURL:  cfg.BaseURL,
		timeout:  cfg.RequestTimeout,
		retries:  cfg.MaxRetries,
		backoff:  cfg.RetryBackoff,
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/products/%d", c.baseURL, id), &product, domain.ErrProductNotFound)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) GetDepartment(ctx context.Context, id int64) (*domain.Department, error) {
	cacheKey := fmt.Sprintf("catalog:department:%d", id)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var dept domain.Department
			if err := json.Unmarshal(cached, &dept); err == nil {
				return &dept, nil
			}
		}
	}

	var dept domain.Department
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/departments/%d", c.baseURL, id), &dept, domain.ErrDepartmentNotFound)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if payload, err := json.Marshal(dept); err == nil {
			if err := c.cache.Set(ctx, cacheKey, payload, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("department cache write failed", zap.Int64("department_id", id), zap.Error(err))
			}
		}
	}
	return &dept, nil
}

func (c *Client) UpdateLocation(ctx context.Context, productID, departmentID int64, worker string) error {
	body := map[string]interface{}{
		"department_id": departmentID,
		"worker":        worker,
	}
	return c.sendJSON(ctx, fasthttp.MethodPut, fmt.Sprintf("%s/api/products/%d/location", c.baseURL, productID), body, domain.ErrProductNotFound)
}

func (c *Client) UpdateImage(ctx context.Context, productID int64, imageData []byte, fileName string) error {
	body := map[string]interface{}{
		"image_data":      imageData,
		"image_file_name": fileName,
	}
	return c.sendJSON(ctx, fasthttp.MethodPut, fmt.Sprintf("%s/api/products/%d/image", c.baseURL, productID), body, domain.ErrProductNotFound)
}

func (c *Client) Deactivate(ctx context.Context, productID int64) error {
	return c.sendJSON(ctx, fasthttp.MethodPut, fmt.Sprintf("%s/api/products/%d/deactivate", c.baseURL, productID), nil, domain.ErrProductNotFound)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}, notFound error) error {
	status, body, err := c.do(ctx, fasthttp.MethodGet, url, nil)
	if err != nil {
		return err
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return notFound
	case status < 200 || status >= 300:
		return domain.NewError(domain.ErrCodeRemoteCall, fmt.Sprintf("catalog returned status %d", status))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.WrapError(domain.ErrCodeRemoteCall, "catalog response decode failed", err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, url string, body interface{}, notFound error) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	status, _, err := c.do(ctx, method, url, payload)
	if err != nil {
		return err
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return notFound
	case status < 200 || status >= 300:
		return domain.NewError(domain.ErrCodeRemoteCall, fmt.Sprintf("catalog returned status %d", status))
	}
	return nil
}

// do performs one HTTP exchange, retrying transport failures and 5xx
// responses with backoff. Responses below 500 are returned to the caller
// untouched; retrying them cannot change the outcome.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, domain.WrapError(domain.ErrCodeRemoteCall, "catalog call cancelled", err)
		}
		if attempt > 0 {
			select {
			case <-time.After(c.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return 0, nil, domain.WrapError(domain.ErrCodeRemoteCall, "catalog call cancelled", ctx.Err())
			}
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()

		req.SetRequestURI(url)
		req.Header.SetMethod(method)
		if len(body) > 0 {
			req.Header.SetContentType("application/json")
			req.SetBody(body)
		}

		err := c.http.DoTimeout(req, resp, c.timeout)
		status := resp.StatusCode()
		respBody := append([]byte(nil), resp.Body()...)

		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)

		if err != nil {
			lastErr = err
			c.logger.Warn("catalog call failed",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		if status >= 500 {
			lastErr = fmt.Errorf("catalog returned status %d", status)
			continue
		}
		return status, respBody, nil
	}
	return 0, nil, domain.WrapError(domain.ErrCodeRemoteCall, "catalog unreachable", lastErr)
}
