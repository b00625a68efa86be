package catalog

import "context"

// Filter selects products. The zero Filter matches everything.
type Filter struct {
	// ID, when set, matches the business id exactly.
	ID *int64

	// Category, when non-empty, matches any product whose string category
	// contains it, case-insensitively.
	Category string
}

// ByID returns a Filter for one business id.
func ByID(id int64) Filter {
	return Filter{ID: &id}
}

// Page is a skip/limit window over results ordered by ascending id.
type Page struct {
	Skip  int
	Limit int
}

// Store is the persistence contract the Service depends on.
//
// Implementations enforce id uniqueness themselves and report a violation
// as ErrDuplicateID. Connectivity failures are wrapped in ErrStoreUnavailable.
type Store interface {
	// FindByID returns the product with the business id, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (Product, error)

	// FindMany returns one page of matches ordered by id and the total
	// number of matches regardless of the page.
	FindMany(ctx context.Context, filter Filter, page Page) ([]Product, int64, error)

	// Insert stores a new product and returns its storage identity.
	Insert(ctx context.Context, p Product) (string, error)

	// UpdatePartial merges fields into the product and returns the matched count.
	UpdatePartial(ctx context.Context, id int64, fields Product) (int64, error)

	// DeleteByID removes a product and returns the deleted count.
	DeleteByID(ctx context.Context, id int64) (int64, error)

	// CountMatching returns the number of products matching filter.
	CountMatching(ctx context.Context, filter Filter) (int64, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}
