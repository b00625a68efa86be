package catalog

import "errors"

// Domain errors for the catalog package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, catalog.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrMissingID is returned when a product has no id, or a falsy one (0, "", false, null).
	ErrMissingID = errors.New("catalog: id is required")

	// ErrDuplicateID is returned when a product with the same id already exists.
	ErrDuplicateID = errors.New("catalog: duplicate id")

	// ErrNotFound is returned when no product matches the id.
	ErrNotFound = errors.New("catalog: not found")

	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("catalog: store unavailable")

	// ErrInvalidDocument is returned when a product body is not a JSON object
	// or its id is not an integer.
	ErrInvalidDocument = errors.New("catalog: invalid document")
)
