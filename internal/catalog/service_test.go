package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]ServiceOption{WithNotifier(rec)}, opts...)
	return NewService(newTestStore(t), opts...), rec
}

func TestAddThenGet_Equivalent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	docs := []Product{
		{"id": int64(1), "name": "Runner", "category": "Shoes", "price": 59.99},
		{"id": int64(2), "name": "Tote", "tags": []any{"canvas", int64(3)}, "dims": map[string]any{"w": int64(40)}},
		{"id": int64(3)},
	}

	for _, doc := range docs {
		added, err := svc.AddProduct(ctx, doc)
		if err != nil {
			t.Fatalf("AddProduct() error = %v", err)
		}
		oid, ok := added[FieldStorageID].(string)
		if !ok || oid == "" {
			t.Errorf("AddProduct() _id = %#v, want non-empty string", added[FieldStorageID])
		}

		id, _ := doc.ID()
		got, err := svc.GetProduct(ctx, id)
		if err != nil {
			t.Fatalf("GetProduct(%d) error = %v", id, err)
		}
		if got[FieldStorageID] != oid {
			t.Errorf("GetProduct() _id = %v, want %v", got[FieldStorageID], oid)
		}

		delete(got, FieldStorageID)
		if !sameJSON(t, got, doc) {
			t.Errorf("GetProduct(%d) = %v, want %v", id, got, doc)
		}
	}
}

func TestAddProduct_Duplicate(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddProduct(ctx, Product{"id": int64(5), "name": "first"}); err != nil {
		t.Fatalf("AddProduct() error = %v", err)
	}
	_, err := svc.AddProduct(ctx, Product{"id": int64(5), "name": "second"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second AddProduct() error = %v, want ErrDuplicateID", err)
	}

	got, err := svc.GetProduct(ctx, 5)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got["name"] != "first" {
		t.Errorf("name = %v, want first", got["name"])
	}
	if n := len(rec.Events()); n != 1 {
		t.Errorf("events = %d, want 1", n)
	}
}

func TestAddProduct_ConcurrentSameID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddProduct(ctx, Product{"id": int64(99)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDuplicateID):
			t.Errorf("AddProduct() error = %v, want nil or ErrDuplicateID", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful inserts = %d, want 1", ok)
	}

	n, err := svc.CountProducts(ctx, ByID(99))
	if err != nil {
		t.Fatalf("CountProducts() error = %v", err)
	}
	if n != 1 {
		t.Errorf("stored products with id 99 = %d, want 1", n)
	}
}

func TestAddProduct_MissingID(t *testing.T) {
	svc, rec := newTestService(t)

	for _, doc := range []Product{
		{"name": "no id"},
		{"id": int64(0)},
		{"id": nil},
		{"id": ""},
	} {
		if _, err := svc.AddProduct(context.Background(), doc); !errors.Is(err, ErrMissingID) {
			t.Errorf("AddProduct(%v) error = %v, want ErrMissingID", doc, err)
		}
	}
	if len(rec.Events()) != 0 {
		t.Error("events emitted for rejected products")
	}
}

func TestAddProduct_IgnoresClientStorageID(t *testing.T) {
	svc, _ := newTestService(t)

	added, err := svc.AddProduct(context.Background(), Product{"id": int64(4), "_id": "forged"})
	if err != nil {
		t.Fatalf("AddProduct() error = %v", err)
	}
	if added[FieldStorageID] == "forged" {
		t.Error("AddProduct() kept client-supplied _id")
	}
}

func TestListProducts_Pagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []int64{5, 3, 1, 4, 2} {
		seed(t, svc, Product{"id": id})
	}

	res, err := svc.ListProducts(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(res.Products) != 2 || res.Total != 5 {
		t.Fatalf("ListProducts(0, 2) = %d items, total %d; want 2, 5", len(res.Products), res.Total)
	}
	if ids := productIDs(res.Products); ids != "[1 2]" {
		t.Errorf("page ids = %s, want [1 2]", ids)
	}

	res, err = svc.ListProducts(ctx, 3, 10)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if ids := productIDs(res.Products); ids != "[4 5]" {
		t.Errorf("page ids = %s, want [4 5]", ids)
	}

	res, err = svc.ListProducts(ctx, 10, 10)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if res.Products == nil || len(res.Products) != 0 || res.Total != 5 {
		t.Errorf("past-the-end page = %v, total %d; want empty slice, 5", res.Products, res.Total)
	}
}

func TestListProducts_Defaults(t *testing.T) {
	svc, _ := newTestService(t, WithPageLimits(3, 4))
	ctx := context.Background()

	for id := int64(1); id <= 6; id++ {
		seed(t, svc, Product{"id": id})
	}

	res, err := svc.ListProducts(ctx, -1, 0)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(res.Products) != 3 {
		t.Errorf("default page size = %d, want 3", len(res.Products))
	}

	res, err = svc.ListProducts(ctx, 0, 50)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(res.Products) != 4 {
		t.Errorf("clamped page size = %d, want 4", len(res.Products))
	}
}

func TestListByCategory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed(t, svc,
		Product{"id": int64(1), "category": "Shoes"},
		Product{"id": int64(2), "category": "bag"},
		Product{"id": int64(3), "category": "running SHOES"},
		Product{"id": int64(4), "category": 12},
		Product{"id": int64(5)},
	)

	res, err := svc.ListByCategory(ctx, "shoe", 0, 0)
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if res.Category != "shoe" {
		t.Errorf("Category = %q, want %q", res.Category, "shoe")
	}
	if res.Total != 2 {
		t.Errorf("Total = %d, want 2", res.Total)
	}
	if ids := productIDs(res.Products); ids != "[1 3]" {
		t.Errorf("ids = %s, want [1 3]", ids)
	}

	// Total counts every match, not just the page.
	res, err = svc.ListByCategory(ctx, "SHOE", 0, 1)
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if len(res.Products) != 1 || res.Total != 2 {
		t.Errorf("ListByCategory(limit 1) = %d items, total %d; want 1, 2", len(res.Products), res.Total)
	}
}

func TestListByCategory_LiteralMatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed(t, svc,
		Product{"id": int64(1), "category": "100% cotton"},
		Product{"id": int64(2), "category": "1000 cotton"},
		Product{"id": int64(3), "category": "a_b"},
		Product{"id": int64(4), "category": "axb"},
	)

	for query, want := range map[string]string{
		"0%":  "[1]",
		"a_b": "[3]",
	} {
		res, err := svc.ListByCategory(ctx, query, 0, 0)
		if err != nil {
			t.Fatalf("ListByCategory(%q) error = %v", query, err)
		}
		if ids := productIDs(res.Products); ids != want {
			t.Errorf("ListByCategory(%q) ids = %s, want %s", query, ids, want)
		}
	}
}

func TestListByCategory_NonASCII(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed(t, svc,
		Product{"id": int64(1), "category": "ÉCLAIRS"},
		Product{"id": int64(2), "category": "Straße"},
		Product{"id": int64(3), "category": "eclairs"},
	)

	for query, want := range map[string]string{
		"éclair":  "[1]",
		"ÉCLAIR":  "[1]",
		"STRASSE": "[]",
		"Straße":  "[2]",
	} {
		res, err := svc.ListByCategory(ctx, query, 0, 0)
		if err != nil {
			t.Fatalf("ListByCategory(%q) error = %v", query, err)
		}
		if ids := productIDs(res.Products); ids != want {
			t.Errorf("ListByCategory(%q) ids = %s, want %s", query, ids, want)
		}
	}

	// The stored document keeps its original casing.
	got, err := svc.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got["category"] != "ÉCLAIRS" {
		t.Errorf("category = %v, want %q", got["category"], "ÉCLAIRS")
	}
}

func TestUpdateProduct(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	seed(t, svc, Product{"id": int64(1), "name": "Runner", "category": "old", "price": 10.5})

	id, err := svc.UpdateProduct(ctx, 1, Product{"category": "new"})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if id != 1 {
		t.Errorf("UpdateProduct() = %d, want 1", id)
	}

	got, err := svc.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got["category"] != "new" || got["name"] != "Runner" || got["price"] != 10.5 {
		t.Errorf("after update = %v, want category new with name and price kept", got)
	}

	// The new category is searchable.
	res, err := svc.ListByCategory(ctx, "NEW", 0, 0)
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if res.Total != 1 {
		t.Errorf("ListByCategory(new) total = %d, want 1", res.Total)
	}

	events := rec.Events()
	last := events[len(events)-1]
	if last.Action != ActionUpdated || last.ProductID != 1 || last.Product["category"] != "new" {
		t.Errorf("last event = %+v, want update of product 1", last)
	}
}

func TestUpdateProduct_IDIsImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed(t, svc, Product{"id": int64(1), "name": "a"})

	if _, err := svc.UpdateProduct(ctx, 1, Product{"id": int64(2), "name": "b"}); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	got, err := svc.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct(1) error = %v", err)
	}
	if got["name"] != "b" {
		t.Errorf("name = %v, want b", got["name"])
	}
	if _, err := svc.GetProduct(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProduct(2) error = %v, want ErrNotFound", err)
	}

	if _, err := svc.UpdateProduct(ctx, 1, Product{"id": int64(3)}); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("UpdateProduct(only id) error = %v, want ErrInvalidDocument", err)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc, rec := newTestService(t)

	_, err := svc.UpdateProduct(context.Background(), 404, Product{"category": "new"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateProduct() error = %v, want ErrNotFound", err)
	}
	if len(rec.Events()) != 0 {
		t.Error("event emitted for failed update")
	}
}

func TestDeleteProduct_Twice(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := WithActor(context.Background(), "admin")

	seed(t, svc, Product{"id": int64(8)})

	id, err := svc.DeleteProduct(ctx, 8)
	if err != nil {
		t.Fatalf("first DeleteProduct() error = %v", err)
	}
	if id != 8 {
		t.Errorf("DeleteProduct() = %d, want 8", id)
	}

	if _, err := svc.DeleteProduct(ctx, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteProduct() error = %v, want ErrNotFound", err)
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (create, delete)", len(events))
	}
	if events[1].Action != ActionDeleted || events[1].Actor != "admin" {
		t.Errorf("delete event = %+v, want action deleted by admin", events[1])
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetProduct(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProduct() error = %v, want ErrNotFound", err)
	}
}

func TestService_StoreUnavailable(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(NewSQLiteStore(db.DB))
	db.Close()
	ctx := context.Background()

	if _, err := svc.ListProducts(ctx, 0, 0); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("ListProducts() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := svc.AddProduct(ctx, Product{"id": int64(1)}); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("AddProduct() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := svc.DeleteProduct(ctx, 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("DeleteProduct() error = %v, want ErrStoreUnavailable", err)
	}
	if err := svc.HealthCheck(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("HealthCheck() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestService_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.GetProduct(ctx, 1); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("GetProduct() error = %v, want ErrStoreUnavailable", err)
	}
}

func productIDs(products []Product) string {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		id, _ := p.ID()
		ids = append(ids, id)
	}
	return fmt.Sprint(ids)
}

// sameJSON compares two documents by their JSON encoding.
func sameJSON(t *testing.T, a, b Product) bool {
	t.Helper()
	ja, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(ja) == string(jb)
}
