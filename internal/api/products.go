package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/catalog-core/internal/catalog"
)

// idResponse is returned by update and delete.
type idResponse struct {
	ID int64 `json:"id"`
}

// handleListProducts returns one page of products ordered by id.
//
// Query parameters:
//   - skip: number of products to skip (default 0)
//   - limit: page size (default 100, clamped to api.max_page_limit)
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePaging(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.catalog.ListProducts(r.Context(), skip, limit)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetProduct returns a single product by business id.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeNotFound(w, "Product not found")
		return
	}

	product, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// handleCreateProduct stores a new product and returns it with its storage id.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	doc, err := catalog.DecodeProduct(r.Body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body: expected a product object")
		return
	}

	product, err := s.catalog.AddProduct(r.Context(), doc)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not found")
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// handleUpdateProduct merges the body into an existing product.
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeNotFound(w, "Product not updated")
		return
	}

	fields, err := catalog.DecodeProduct(r.Body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body: expected an object of fields")
		return
	}

	updated, err := s.catalog.UpdateProduct(r.Context(), id, fields)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not updated")
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: updated})
}

// handleDeleteProduct removes a product.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		writeNotFound(w, "Product not found")
		return
	}

	deleted, err := s.catalog.DeleteProduct(r.Context(), id)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: deleted})
}

// handleListByCategory returns products whose category contains {name}, ignoring case.
func (s *Server) handleListByCategory(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := parsePaging(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.catalog.ListByCategory(r.Context(), chi.URLParam(r, "name"), skip, limit)
	if err != nil {
		s.writeCatalogError(w, r, err, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// productIDParam parses {id}. Non-integer ids never match a product.
func productIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parsePaging reads skip and limit. Both must be non-negative integers when present.
func parsePaging(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()
	if skip, err = nonNegativeParam(q.Get("skip"), "skip"); err != nil {
		return 0, 0, err
	}
	if limit, err = nonNegativeParam(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}

func nonNegativeParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
