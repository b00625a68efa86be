package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/catalog-core/internal/infrastructure/logging"
)

// Pagination defaults.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ListResult is one page of products plus the total number of matches.
type ListResult struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
}

// CategoryResult is a ListResult for a category search, echoing the query.
type CategoryResult struct {
	ListResult
	Category string `json:"category"`
}

// Service implements catalog use cases on top of a Store.
//
// Thread Safety:
//   - Safe for concurrent use if the Store is.
type Service struct {
	store        Store
	notifier     Notifier
	logger       *logging.Logger
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPageLimits overrides the default and maximum page sizes.
// Non-positive values keep the package defaults.
func WithPageLimits(defaultLimit, maxLimit int) ServiceOption {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// NewService creates a catalog service backed by store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		notifier:     NotifierFunc(func(context.Context, Event) {}),
		logger:       logging.Discard(),
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLimit < s.defaultLimit {
		s.maxLimit = s.defaultLimit
	}
	return s
}

// page substitutes defaults: skip below 0 becomes 0, limit 0 or below
// becomes the default, and limits above the maximum are clamped.
func (s *Service) page(skip, limit int) Page {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return Page{Skip: skip, Limit: limit}
}

// ListProducts returns one page of all products ordered by id.
func (s *Service) ListProducts(ctx context.Context, skip, limit int) (*ListResult, error) {
	products, total, err := s.store.FindMany(ctx, Filter{}, s.page(skip, limit))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &ListResult{Products: nonNil(products), Total: total}, nil
}

// GetProduct looks a product up by business id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return p, nil
}

// AddProduct validates the id, rejects duplicates and stores doc.
// It returns the stored document including its storage identity.
func (s *Service) AddProduct(ctx context.Context, doc Product) (Product, error) {
	id, err := doc.ID()
	if err != nil {
		return nil, err
	}

	// The pre-check gives the common case a clean error; the store's
	// unique constraint still catches concurrent inserts.
	_, err = s.store.FindByID(ctx, id)
	switch {
	case err == nil:
		return nil, ErrDuplicateID
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("checking product %d: %w", id, err)
	}

	stored := doc.Clone()
	delete(stored, FieldStorageID)
	stored[FieldID] = id

	oid, err := s.store.Insert(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("inserting product %d: %w", id, err)
	}
	stored[FieldStorageID] = oid

	s.emit(ctx, ActionCreated, id, stored)
	s.logger.Info("product created", "id", id, "storage_id", oid)

	return stored, nil
}

// UpdateProduct merges fields into the product with the given id.
// The id and storage id cannot be changed and are dropped from fields.
func (s *Service) UpdateProduct(ctx context.Context, id int64, fields Product) (int64, error) {
	changes := fields.withoutIdentity()
	if len(changes) == 0 {
		return 0, fmt.Errorf("%w: no fields to update", ErrInvalidDocument)
	}

	matched, err := s.store.UpdatePartial(ctx, id, changes)
	if err != nil {
		return 0, fmt.Errorf("updating product %d: %w", id, err)
	}
	if matched == 0 {
		return 0, ErrNotFound
	}

	s.emit(ctx, ActionUpdated, id, changes)
	s.logger.Info("product updated", "id", id, "fields", len(changes))

	return id, nil
}

// DeleteProduct removes the product with the given id.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("deleting product %d: %w", id, err)
	}
	if deleted == 0 {
		return 0, ErrNotFound
	}

	s.emit(ctx, ActionDeleted, id, nil)
	s.logger.Info("product deleted", "id", id)

	return id, nil
}

// ListByCategory returns products whose category contains name, ignoring case.
func (s *Service) ListByCategory(ctx context.Context, name string, skip, limit int) (*CategoryResult, error) {
	products, total, err := s.store.FindMany(ctx, Filter{Category: name}, s.page(skip, limit))
	if err != nil {
		return nil, fmt.Errorf("listing category %q: %w", name, err)
	}
	return &CategoryResult{
		ListResult: ListResult{Products: nonNil(products), Total: total},
		Category:   name,
	}, nil
}

// CountProducts returns the number of products matching filter.
func (s *Service) CountProducts(ctx context.Context, filter Filter) (int64, error) {
	n, err := s.store.CountMatching(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

// HealthCheck reports whether the store is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}

func (s *Service) emit(ctx context.Context, action Action, id int64, p Product) {
	s.notifier.Notify(ctx, Event{
		Action:    action,
		ProductID: id,
		Product:   p,
		Actor:     ActorFrom(ctx),
		At:        s.now().UTC(),
	})
}

func nonNil(products []Product) []Product {
	if products == nil {
		return []Product{}
	}
	return products
}
