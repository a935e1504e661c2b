// Package remote implements recordstore.Client against the hosted record API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/hashicorp/go-retryablehttp"
)

// Request headers carrying the credentials.
const (
	HeaderProjectID = "X-Project-Id"
	HeaderPublicKey = "X-Public-Key"
)

const (
	defaultTimeout = 30 * time.Second
	readRetries    = 3
	maxErrorBody   = 4 << 10
)

// ErrUnexpectedStatus is returned when the API answers outside the 2xx range.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Config holds the connection settings of the record API.
type Config struct {
	BaseURL   string
	ProjectID string
	PublicKey string
	Timeout   time.Duration
}

// Client talks JSON to the record API. Reads are retried on transient
// failures; writes are sent once so a create is never applied twice.
type Client struct {
	baseURL   string
	projectID string
	publicKey string
	reads     *retryablehttp.Client
	writes    *retryablehttp.Client
	logger    *slog.Logger
}

// NewClient builds a client for the API at cfg.BaseURL.
func NewClient(logger *slog.Logger, cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid record API url %q", cfg.BaseURL)
	}

	if cfg.ProjectID == "" {
		return nil, errors.New("record API project id is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger = logger.With("module", "remote_store")

	return &Client{
		baseURL:   strings.TrimRight(base.String(), "/"),
		projectID: cfg.ProjectID,
		publicKey: cfg.PublicKey,
		reads:     newHTTPClient(logger, timeout, readRetries),
		writes:    newHTTPClient(logger, timeout, 0),
		logger:    logger,
	}, nil
}

func newHTTPClient(logger *slog.Logger, timeout time.Duration, retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = logger
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client
}

func (c *Client) tableURL(table string, parts ...string) string {
	return c.baseURL + "/tables/" + url.PathEscape(table) + strings.Join(parts, "")
}

// FetchRecords posts the query to the table fetch endpoint.
func (c *Client) FetchRecords(ctx context.Context, table string, query recordstore.Query) (*recordstore.FetchResponse, error) {
	var resp recordstore.FetchResponse

	err := c.do(ctx, c.reads, http.MethodPost, c.tableURL(table, "/fetch"), query, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", table, err)
	}

	if schema, err := recordstore.LookupTable(table); err == nil {
		for i, record := range resp.Data {
			resp.Data[i] = schema.Coerce(record)
		}
	}

	return &resp, nil
}

// GetRecordByID fetches one record.
func (c *Client) GetRecordByID(ctx context.Context, table string, id int64, query recordstore.Query) (*recordstore.RecordResponse, error) {
	var resp recordstore.RecordResponse

	endpoint := c.tableURL(table, "/records/", strconv.FormatInt(id, 10), "/fetch")

	err := c.do(ctx, c.reads, http.MethodPost, endpoint, query, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %d: %w", table, id, err)
	}

	if schema, err := recordstore.LookupTable(table); err == nil {
		resp.Data = schema.Coerce(resp.Data)
	}

	return &resp, nil
}

// CreateRecord posts new records.
func (c *Client) CreateRecord(ctx context.Context, table string, req recordstore.CreateRequest) (*recordstore.MutationResponse, error) {
	return c.mutate(ctx, http.MethodPost, table, req)
}

// UpdateRecord puts partial records. Preconditions are evaluated by the API.
func (c *Client) UpdateRecord(ctx context.Context, table string, req recordstore.UpdateRequest) (*recordstore.MutationResponse, error) {
	return c.mutate(ctx, http.MethodPut, table, req)
}

// DeleteRecord deletes records by Id.
func (c *Client) DeleteRecord(ctx context.Context, table string, req recordstore.DeleteRequest) (*recordstore.MutationResponse, error) {
	return c.mutate(ctx, http.MethodDelete, table, req)
}

func (c *Client) mutate(ctx context.Context, method, table string, body any) (*recordstore.MutationResponse, error) {
	var resp recordstore.MutationResponse

	err := c.do(ctx, c.writes, method, c.tableURL(table, "/records"), body, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s records: %w", strings.ToLower(method), table, err)
	}

	if schema, err := recordstore.LookupTable(table); err == nil {
		for i := range resp.Results {
			resp.Results[i].Data = schema.Coerce(resp.Results[i].Data)
		}
	}

	return &resp, nil
}

// HealthCheck calls the API health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	err := c.do(ctx, c.reads, http.MethodGet, c.baseURL+"/health", nil, nil)
	if err != nil {
		return fmt.Errorf("record API health check failed: %w", err)
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close(_ context.Context) error {
	c.reads.HTTPClient.CloseIdleConnections()
	c.writes.HTTPClient.CloseIdleConnections()

	return nil
}

func (c *Client) do(ctx context.Context, client *retryablehttp.Client, method, endpoint string, body, out any) error {
	var payload any

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		payload = encoded
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderProjectID, c.projectID)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.publicKey != "" {
		req.Header.Set(HeaderPublicKey, c.publicKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	err = decoder.Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
