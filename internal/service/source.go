package service

import (
	"context"
	"encoding/json"
	"time"

	"shopsync/internal/client/tiktok"
)

// EntityType names one mirrored upstream collection.
type EntityType string

const (
	EntityOrders   EntityType = "orders"
	EntityProducts EntityType = "products"
)

type FetchRequest struct {
	WindowStart *time.Time
	WindowEnd   *time.Time
	Cursor      string
	PageSize    int
}

// RecordPage is one page of raw upstream records. An empty NextCursor is
// the sole termination signal; an empty Records slice with a cursor means
// the loop must continue.
type RecordPage struct {
	Records    []json.RawMessage
	NextCursor string
}

// RecordSource abstracts "fetch the next page of records within a window"
// over upstream pagination quirks. Transient upstream failures are retried
// inside the implementation; an error here means retries were exhausted or
// the failure is permanent.
type RecordSource interface {
	FetchPage(ctx context.Context, req FetchRequest) (*RecordPage, error)
	// SupportsWindow reports whether the upstream endpoint can filter by
	// creation-time window. Sources without window support always sync in
	// full.
	SupportsWindow() bool
}

// OrderSource pages through the order search endpoint, newest first, with
// the requested creation-time window pushed upstream.
type OrderSource struct {
	Client *tiktok.Client
	Tokens TokenProvider
}

func (s *OrderSource) SupportsWindow() bool { return true }

func (s *OrderSource) FetchPage(ctx context.Context, req FetchRequest) (*RecordPage, error) {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	params := tiktok.SearchOrdersParams{
		PageSize:  req.PageSize,
		PageToken: req.Cursor,
		SortField: "create_time",
		SortOrder: "DESC",
	}
	if req.WindowStart != nil && req.WindowEnd != nil {
		from := req.WindowStart.Unix()
		to := req.WindowEnd.Unix()
		params.CreateTimeFrom = &from
		params.CreateTimeTo = &to
	}
	page, err := s.Client.WithAccessToken(token).SearchOrders(ctx, params)
	if err != nil {
		return nil, err
	}
	return &RecordPage{Records: page.Orders, NextCursor: page.NextPageToken}, nil
}

// ProductSource pages through the product search endpoint. The upstream
// API cannot filter products by creation time, so product runs are always
// full; idempotent upserts keep repeated full runs cheap and safe.
type ProductSource struct {
	Client *tiktok.Client
	Tokens TokenProvider
}

func (s *ProductSource) SupportsWindow() bool { return false }

func (s *ProductSource) FetchPage(ctx context.Context, req FetchRequest) (*RecordPage, error) {
	token, err := s.Tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.Client.WithAccessToken(token).SearchProducts(ctx, tiktok.SearchProductsParams{
		PageSize:  req.PageSize,
		PageToken: req.Cursor,
	})
	if err != nil {
		return nil, err
	}
	return &RecordPage{Records: page.Products, NextCursor: page.NextPageToken}, nil
}
