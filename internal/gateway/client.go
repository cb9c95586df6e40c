// Package gateway wraps the remote aquarium API. Every operation returns
// either its payload or an *apperr.Error; nothing retries internally.
package gateway

import (
	"context"
	"strings"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/logger"

	"github.com/go-resty/resty/v2"
)

// Resource paths relative to the base URL.
const (
	pathTankProfile   = "/tank-profile"
	pathReadings      = "/readings"
	pathFeedingEvents = "/feeding-events"
)

// Client is the Remote Data Gateway.
type Client struct {
	http          *resty.Client
	predictionURL string
	log           *logger.Logger
}

// New builds a gateway for baseURL. predictionURL is absolute; the prediction
// model lives behind its own endpoint.
func New(baseURL, predictionURL string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		http:          httpClient,
		predictionURL: predictionURL,
		log:           log,
	}
}

// call executes one request. Transport failures become NetworkError; the
// caller classifies status codes.
func (c *Client) call(ctx context.Context, op, method, url string, query map[string]string, body interface{}) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, apperr.Network(op, err)
	}
	c.log.Debugw("gateway_call", "op", op, "method", method, "url", url, "status", resp.StatusCode())
	return resp, nil
}

// read performs a GET and maps any non-2xx to HttpError.
func (c *Client) read(ctx context.Context, op, path string, query map[string]string) ([]byte, error) {
	resp, err := c.call(ctx, op, resty.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, apperr.HTTP(op, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return resp.Body(), nil
}

// write performs a mutation and maps any non-2xx to ApiError carrying the
// backend's body text verbatim.
func (c *Client) write(ctx context.Context, op, method, url string, query map[string]string, body interface{}) ([]byte, error) {
	resp, err := c.call(ctx, op, method, url, query, body)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, apperr.API(op, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return resp.Body(), nil
}
