package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
)

// fetchResult is the outcome of a paginated read. Records holds everything decoded before Err.
type fetchResult[V any] struct {
	Records []V
	Pages   int
	Skipped int
	Err     error
}

// fetchAll pages through table until a short page, a failed call, or maxPages.
// Rows that fail to decode are skipped and counted.
func fetchAll[V any](ctx context.Context, client remote.Client, table model.Table, pageSize, maxPages int,
	where remote.Filter, decode func(json.RawMessage) (V, error)) fetchResult[V] {

	var res fetchResult[V]
	if maxPages <= 0 {
		maxPages = 1
	}

	offset := 0
	for res.Pages < maxPages {
		page, err := client.List(ctx, table, remote.ListOptions{Limit: pageSize, Offset: offset, Where: where})
		if err != nil {
			res.Err = err
			return res
		}
		res.Pages++

		for _, raw := range page.Rows {
			v, err := decode(raw)
			if err != nil {
				res.Skipped++
				continue
			}
			res.Records = append(res.Records, v)
		}

		if len(page.Rows) < pageSize {
			return res
		}
		offset += pageSize
	}

	res.Err = fmt.Errorf("stopped after %d pages of %s", maxPages, table)
	log.Printf("[Fetch] %v", res.Err)
	return res
}
