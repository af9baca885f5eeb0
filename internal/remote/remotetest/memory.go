// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
)

// Client is an in-memory remote.Client. Rows are kept as decoded JSON objects so filters can be evaluated.
type Client struct {
	mu    sync.Mutex
	rows  map[model.Table][]map[string]any
	fail  map[model.Table]error
	calls map[model.Table]int
	// failAfter makes List fail once the given number of successful pages has been served.
	failAfter map[model.Table]int
	nextID    int
	onList    func(table model.Table, call int)
	// insertDelay slows every Insert to widen races in tests.
	insertDelay time.Duration
}

// New creates an empty client.
func New() *Client {
	return &Client{
		rows:      make(map[model.Table][]map[string]any),
		fail:      make(map[model.Table]error),
		calls:     make(map[model.Table]int),
		failAfter: make(map[model.Table]int),
		nextID:    1,
	}
}

// AddRow appends a row. Values must be JSON-encodable.
func (c *Client) AddRow(table model.Table, row map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Normalize through JSON so numbers become float64 as they would on the wire.
	data, _ := json.Marshal(row)
	var normalized map[string]any
	_ = json.Unmarshal(data, &normalized)
	c.rows[table] = append(c.rows[table], normalized)
}

// Rows returns a copy of a table's rows.
func (c *Client) Rows(table model.Table) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.rows[table]))
	copy(out, c.rows[table])
	return out
}

// Fail makes every call on table return err. A nil err clears the failure.
func (c *Client) Fail(table model.Table, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.fail, table)
		delete(c.failAfter, table)
		return
	}
	c.fail[table] = err
}

// FailAfterPages makes List on table fail after n pages have been served.
func (c *Client) FailAfterPages(table model.Table, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter[table] = n
}

// FailAll simulates the remote being unreachable.
func (c *Client) FailAll() {
	for _, t := range model.Tables {
		c.Fail(t, &remote.Error{Kind: remote.KindTransport, Table: t, Message: "connection refused"})
	}
}

// Calls returns the number of calls made against table.
func (c *Client) Calls(table model.Table) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[table]
}

// OnList registers fn to run after every List call with the table and its call number.
func (c *Client) OnList(fn func(table model.Table, call int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onList = fn
}

// List serves one page. A cancelled ctx fails the call the way a real transport would.
func (c *Client) List(ctx context.Context, table model.Table, opts remote.ListOptions) (*remote.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &remote.Error{Kind: remote.KindTransport, Table: table, Message: "request cancelled", Err: err}
	}

	page, call, hook, err := c.list(table, opts)
	if hook != nil {
		hook(table, call)
	}
	return page, err
}

func (c *Client) list(table model.Table, opts remote.ListOptions) (*remote.Page, int, func(model.Table, int), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[table]++
	call, hook := c.calls[table], c.onList
	if err := c.fail[table]; err != nil {
		return nil, call, hook, err
	}
	if n, ok := c.failAfter[table]; ok {
		if n <= 0 {
			return nil, call, hook, &remote.Error{Kind: remote.KindProtocol, Table: table, Status: http.StatusBadGateway, Message: "bad gateway"}
		}
		c.failAfter[table] = n - 1
	}

	var matched []map[string]any
	for _, row := range c.rows[table] {
		if opts.Where == nil || opts.Where.Match(row) {
			matched = append(matched, row)
		}
	}

	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	page := &remote.Page{Rows: make([]json.RawMessage, 0, end-start)}
	for _, row := range matched[start:end] {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, call, hook, err
		}
		page.Rows = append(page.Rows, data)
	}
	return page, call, hook, nil
}

func (c *Client) GetByKey(ctx context.Context, table model.Table, key string) (json.RawMessage, error) {
	page, err := c.List(ctx, table, remote.ListOptions{Limit: 1, Where: remote.KeyFilter(table, key)})
	if err != nil {
		return nil, err
	}
	if len(page.Rows) == 0 {
		return nil, &remote.Error{Kind: remote.KindProtocol, Table: table, Status: http.StatusNotFound, Message: fmt.Sprintf("no row for key %s", key)}
	}
	return page.Rows[0], nil
}

// SetInsertDelay makes every later Insert sleep for d before storing the row.
func (c *Client) SetInsertDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertDelay = d
}

func (c *Client) Insert(ctx context.Context, table model.Table, fields map[string]any) error {
	c.mu.Lock()
	delay := c.insertDelay
	c.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	c.calls[table]++
	if err := c.fail[table]; err != nil {
		c.mu.Unlock()
		return err
	}
	row := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		row[k] = v
	}
	row["Id"] = c.nextID
	c.nextID++
	c.mu.Unlock()

	c.AddRow(table, row)
	return nil
}

func (c *Client) Update(ctx context.Context, table model.Table, rowID int, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[table]++
	if err := c.fail[table]; err != nil {
		return err
	}
	for _, row := range c.rows[table] {
		id, _ := row["Id"].(float64)
		if id == 0 {
			id, _ = row["id"].(float64)
		}
		if int(id) == rowID {
			for k, v := range fields {
				row[k] = v
			}
			return nil
		}
	}
	return &remote.Error{Kind: remote.KindProtocol, Table: table, Status: http.StatusNotFound, Message: "row not found"}
}

var _ remote.Client = (*Client)(nil)
