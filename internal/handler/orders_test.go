package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

func TestParseOrder(t *testing.T) {
	allow := map[string]string{
		"created_time": "created_time",
		"total_amount": "total_amount",
	}
	cases := []struct {
		in, want string
	}{
		{"created_time", "created_time"},
		{" Total_Amount ", "total_amount"},
		{"", ""},
		{"unknown_column", ""},
		{"created_time; drop table orders--", ""},
		{"created_time desc, (select 1)", ""},
	}
	for _, tc := range cases {
		if got := parseOrder(tc.in, allow); got != tc.want {
			t.Fatalf("parseOrder(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

// listRecorder captures the params the list handlers hand to the repository.
// Embedding the interface keeps the stub small; unlisted methods are never
// called by the routes under test.
type listRecorder struct {
	repository.Repository
	orderParams   repository.ListOrdersParams
	productParams repository.ListProductsParams
}

func (r *listRecorder) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	r.orderParams = params
	return nil, nil
}

func (r *listRecorder) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	return 0, nil
}

func (r *listRecorder) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]models.Product, error) {
	r.productParams = params
	return nil, nil
}

func (r *listRecorder) CountProducts(ctx context.Context, params repository.ListProductsParams) (int64, error) {
	return 0, nil
}

func TestOrderListRejectsUnknownSortColumn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &listRecorder{}
	r := gin.New()
	(&OrderHandler{Repo: repo}).Register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/list?order_by=created_time+desc,(select+1)", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	// Unknown sort keys must not reach the repository; the query falls
	// back to the default column.
	if repo.orderParams.OrderBy != "" {
		t.Fatalf("order_by=%q leaked through", repo.orderParams.OrderBy)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/orders/list?order_by=total_amount", nil)
	r.ServeHTTP(w, req)
	if repo.orderParams.OrderBy != "total_amount" {
		t.Fatalf("order_by=%q want total_amount", repo.orderParams.OrderBy)
	}
}

func TestProductListRejectsUnknownSortColumn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &listRecorder{}
	r := gin.New()
	(&ProductHandler{Repo: repo}).Register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/list?order_by=pg_sleep(5)", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if repo.productParams.OrderBy != "" {
		t.Fatalf("order_by=%q leaked through", repo.productParams.OrderBy)
	}
}
