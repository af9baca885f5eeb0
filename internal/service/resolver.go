package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"

	"golang.org/x/sync/singleflight"
)

// Resolver maps product codes to display names: Lookup cache first, then chunked remote OR queries.
// Names found remotely go into a short-lived result cache, never into the Lookup store.
type Resolver struct {
	client    remote.Client
	lookup    *cache.Store[int, model.ProductLookupRecord]
	names     cache.Cache
	ttl       time.Duration
	chunkSize int
	group     singleflight.Group
}

// NewResolver creates a resolver. names may be nil to disable the result cache.
func NewResolver(client remote.Client, lookup *cache.Store[int, model.ProductLookupRecord], names cache.Cache, ttl time.Duration, chunkSize int) *Resolver {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &Resolver{
		client:    client,
		lookup:    lookup,
		names:     names,
		ttl:       ttl,
		chunkSize: chunkSize,
	}
}

func nameKey(code int) string {
	return fmt.Sprintf("product:%d", code)
}

func (r *Resolver) cached(ctx context.Context, code int) (string, bool) {
	if rec, ok := r.lookup.Get(code); ok && rec.Name != "" {
		return rec.Name, true
	}
	if r.names != nil {
		if v, err := r.names.Get(ctx, nameKey(code)); err == nil {
			return string(v), true
		}
	}
	return "", false
}

func (r *Resolver) remember(ctx context.Context, code int, name string) {
	if r.names != nil && name != "" {
		_ = r.names.Set(ctx, nameKey(code), []byte(name), r.ttl)
	}
}

// ResolveOne returns the name for code. Concurrent misses for the same code share one remote query.
func (r *Resolver) ResolveOne(ctx context.Context, code int) (string, bool) {
	if name, ok := r.cached(ctx, code); ok {
		return name, true
	}

	v, err, _ := r.group.Do(strconv.Itoa(code), func() (interface{}, error) {
		page, err := r.client.List(ctx, model.TableLookup, remote.ListOptions{
			Limit: 1,
			Where: remote.Eq(remote.FieldProductCode, code),
		})
		if err != nil {
			return "", err
		}
		for _, raw := range page.Rows {
			rec, err := remote.DecodeProduct(raw)
			if err != nil || rec.Name == "" {
				continue
			}
			r.remember(ctx, code, rec.Name)
			return rec.Name, nil
		}
		return "", nil
	})
	if err != nil {
		log.Printf("[Resolver] Lookup of product %d failed: %v", code, err)
		return "", false
	}

	name := v.(string)
	return name, name != ""
}

// ResolveBatch resolves every code it can. Unresolved codes are absent from the result;
// a failed chunk only loses that chunk's codes.
func (r *Resolver) ResolveBatch(ctx context.Context, codes []int) map[int]string {
	out := make(map[int]string, len(codes))
	seen := make(map[int]struct{}, len(codes))
	var misses []int

	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		if name, ok := r.cached(ctx, code); ok {
			out[code] = name
			continue
		}
		misses = append(misses, code)
	}

	for start := 0; start < len(misses); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(misses) {
			end = len(misses)
		}
		r.resolveChunk(ctx, misses[start:end], out)
	}

	return out
}

func (r *Resolver) resolveChunk(ctx context.Context, chunk []int, out map[int]string) {
	wanted := make(map[int]struct{}, len(chunk))
	filters := make([]remote.Filter, 0, len(chunk))
	for _, code := range chunk {
		wanted[code] = struct{}{}
		filters = append(filters, remote.Eq(remote.FieldProductCode, code))
	}

	page, err := r.client.List(ctx, model.TableLookup, remote.ListOptions{
		Limit: r.chunkSize,
		Where: remote.Or(filters...),
	})
	if err != nil {
		log.Printf("[Resolver] Chunk of %d codes failed: %v", len(chunk), err)
		return
	}

	resolved := make(map[string][]byte, len(chunk))
	for _, raw := range page.Rows {
		rec, err := remote.DecodeProduct(raw)
		if err != nil {
			continue
		}
		code, ok := rec.Key()
		if !ok || rec.Name == "" {
			continue
		}
		if _, ok := wanted[code]; !ok {
			continue
		}
		out[code] = rec.Name
		resolved[nameKey(code)] = []byte(rec.Name)
	}

	if r.names != nil && len(resolved) > 0 {
		if err := r.names.SetMany(ctx, resolved, r.ttl); err != nil {
			log.Printf("[Resolver] Failed to cache %d names: %v", len(resolved), err)
		}
	}
}
