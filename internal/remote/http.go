package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockcount-api/internal/config"
	"stockcount-api/internal/model"

	"golang.org/x/time/rate"
)

// HTTPClient implements Client against a NocoDB-style REST API:
// GET/POST/PATCH {base}/{tableID}/records with an xc-token header.
type HTTPClient struct {
	baseURL  string
	token    string
	tableIDs map[model.Table]string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewHTTPClient creates a client from remote configuration.
func NewHTTPClient(cfg config.RemoteConfig) *HTTPClient {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	log.Printf("[RemoteClient] Base URL %s (rate=%v/s, burst=%d)", cfg.BaseURL, cfg.RatePerSecond, burst)
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		tableIDs: map[model.Table]string{
			model.TableComparison: cfg.ComparisonTableID,
			model.TableResults:    cfg.ResultsTableID,
			model.TableLookup:     cfg.LookupTableID,
			model.TableUsers:      cfg.UsersTableID,
		},
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

type listResponse struct {
	List []json.RawMessage `json:"list"`
}

func (c *HTTPClient) recordsURL(table model.Table) (string, error) {
	id, ok := c.tableIDs[table]
	if !ok || id == "" {
		return "", &Error{Kind: KindProtocol, Table: table, Message: "no table id configured"}
	}
	return fmt.Sprintf("%s/%s/records", c.baseURL, url.PathEscape(id)), nil
}

// List fetches one page of rows.
func (c *HTTPClient) List(ctx context.Context, table model.Table, opts ListOptions) (*Page, error) {
	endpoint, err := c.recordsURL(table)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	q.Set("offset", strconv.Itoa(opts.Offset))
	if opts.Where != nil {
		q.Set("where", opts.Where.Expr())
	}

	body, err := c.do(ctx, table, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindData, Table: table, Message: "failed to decode list response", Err: err}
	}
	return &Page{Rows: resp.List}, nil
}

// GetByKey fetches the first row whose key column equals key.
func (c *HTTPClient) GetByKey(ctx context.Context, table model.Table, key string) (json.RawMessage, error) {
	page, err := c.List(ctx, table, ListOptions{Limit: 1, Where: KeyFilter(table, key)})
	if err != nil {
		return nil, err
	}
	if len(page.Rows) == 0 {
		return nil, &Error{Kind: KindProtocol, Table: table, Status: http.StatusNotFound, Message: fmt.Sprintf("no row for key %s", key)}
	}
	return page.Rows[0], nil
}

// Insert creates a row.
func (c *HTTPClient) Insert(ctx context.Context, table model.Table, fields map[string]any) error {
	endpoint, err := c.recordsURL(table)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return &Error{Kind: KindData, Table: table, Message: "failed to encode row", Err: err}
	}
	_, err = c.do(ctx, table, http.MethodPost, endpoint, payload)
	return err
}

// Update patches a row by remote id.
func (c *HTTPClient) Update(ctx context.Context, table model.Table, rowID int, fields map[string]any) error {
	endpoint, err := c.recordsURL(table)
	if err != nil {
		return err
	}
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["Id"] = rowID

	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindData, Table: table, Message: "failed to encode row", Err: err}
	}
	_, err = c.do(ctx, table, http.MethodPatch, endpoint, payload)
	return err
}

func (c *HTTPClient) do(ctx context.Context, table model.Table, method, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTransport, Table: table, Message: "rate limiter", Err: err}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Table: table, Message: "failed to build request", Err: err}
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Table: table, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Table: table, Status: resp.StatusCode, Message: "failed to read body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindProtocol, Table: table, Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if method == http.MethodGet {
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if mediaType != "application/json" {
			return nil, &Error{Kind: KindProtocol, Table: table, Status: resp.StatusCode,
				Message: fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type"))}
		}
	}

	return body, nil
}

// errorMessage extracts "msg" or "message" from an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Msg != "" {
			return parsed.Msg
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return "empty response"
	}
	return text
}

var _ Client = (*HTTPClient)(nil)
