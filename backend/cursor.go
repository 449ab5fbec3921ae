package backend

import (
	"context"
	"io"

	"github.com/mwantia/objfs/data/errors"
)

// DefaultPageSize is used when a listing is requested without a page size.
const DefaultPageSize = 256

// ListingCursor walks a paginated directory listing exactly once.
type ListingCursor interface {
	// Next returns the next entry or io.EOF once the listing is exhausted.
	Next() (*ListingEntry, error)
	// Close releases the resources held by the cursor. It is idempotent.
	Close() error
}

// PageFunc fetches up to limit entries sorted by name, strictly after marker.
type PageFunc func(ctx context.Context, marker string, limit int) ([]*ListingEntry, error)

// PagedCursor buffers one page at a time and requests the next page lazily.
type PagedCursor struct {
	ctx   context.Context
	fetch PageFunc
	limit int

	page   []*ListingEntry
	index  int
	marker string
	pages  int

	exhausted bool
	closed    bool
}

func NewPagedCursor(ctx context.Context, limit int, fetch PageFunc) *PagedCursor {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	return &PagedCursor{
		ctx:   ctx,
		fetch: fetch,
		limit: limit,
	}
}

func (c *PagedCursor) Next() (*ListingEntry, error) {
	if c.closed {
		return nil, errors.Closed("next", c.marker)
	}

	for c.index >= len(c.page) {
		if c.exhausted {
			return nil, io.EOF
		}
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.fetch(c.ctx, c.marker, c.limit)
		if err != nil {
			return nil, err
		}

		c.pages++
		c.page, c.index = page, 0
		if len(page) < c.limit {
			c.exhausted = true
		}
		if len(page) > 0 {
			c.marker = page[len(page)-1].Name
		}
	}

	entry := c.page[c.index]
	c.index++
	return entry, nil
}

// Pages returns the number of pages requested so far.
func (c *PagedCursor) Pages() int {
	return c.pages
}

func (c *PagedCursor) Close() error {
	c.closed = true
	c.page = nil
	return nil
}

// SliceCursor serves a listing that was fetched in one request.
func SliceCursor(ctx context.Context, entries []*ListingEntry, limit int) *PagedCursor {
	return NewPagedCursor(ctx, limit, func(_ context.Context, marker string, limit int) ([]*ListingEntry, error) {
		start := 0
		if marker != "" {
			for start < len(entries) && entries[start].Name <= marker {
				start++
			}
		}
		end := min(start+limit, len(entries))
		return entries[start:end], nil
	})
}
