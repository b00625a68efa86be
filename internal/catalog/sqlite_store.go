package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on the products table.
//
// Documents are kept as JSON in the doc column. The id is mirrored into its
// own column for the unique constraint, and the category is mirrored
// lower-cased (Unicode-aware, in Go) for filtering, since SQLite's LOWER
// only folds ASCII.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// FindByID implements Store.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT oid, doc FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, sqliteErr("querying product", err)
	}
	return p, nil
}

// FindMany implements Store.
func (s *SQLiteStore) FindMany(ctx context.Context, filter Filter, page Page) ([]Product, int64, error) {
	where, args := sqliteWhere(filter)

	total, err := s.count(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}

	limit := page.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	query := "SELECT oid, doc FROM products " + where + " ORDER BY id ASC LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions, not user input
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, page.Skip)...)
	if err != nil {
		return nil, 0, sqliteErr("querying products", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, sqliteErr("scanning product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, sqliteErr("iterating products", err)
	}

	return products, total, nil
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, p Product) (string, error) {
	id, err := p.ID()
	if err != nil {
		return "", err
	}

	doc := p.Clone()
	delete(doc, FieldStorageID)
	doc[FieldID] = id

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	oid := uuid.NewString()
	now := s.now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (oid, id, category, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		oid, id, categoryColumn(doc), string(data), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrDuplicateID
		}
		return "", sqliteErr("inserting product", err)
	}

	return oid, nil
}

// UpdatePartial implements Store. Top-level keys in fields replace the
// stored ones; keys not mentioned are kept.
func (s *SQLiteStore) UpdatePartial(ctx context.Context, id int64, fields Product) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, sqliteErr("beginning update", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM products WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, sqliteErr("loading product for update", err)
	}

	doc, err := DecodeProductBytes([]byte(raw))
	if err != nil {
		return 0, fmt.Errorf("decoding stored product %d: %w", id, err)
	}
	for k, v := range fields {
		if k == FieldID || k == FieldStorageID {
			continue
		}
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE products SET doc = ?, category = ?, updated_at = ? WHERE id = ?`,
		string(data), categoryColumn(doc), s.now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return 0, sqliteErr("updating product", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, sqliteErr("committing update", err)
	}
	return 1, nil
}

// DeleteByID implements Store.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return 0, sqliteErr("deleting product", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, sqliteErr("checking rows affected", err)
	}
	return n, nil
}

// CountMatching implements Store.
func (s *SQLiteStore) CountMatching(ctx context.Context, filter Filter) (int64, error) {
	where, args := sqliteWhere(filter)
	return s.count(ctx, where, args)
}

// HealthCheck implements Store.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return sqliteErr("ping", err)
	}
	return nil
}

func (s *SQLiteStore) count(ctx context.Context, where string, args []any) (int64, error) {
	var total int64
	query := "SELECT COUNT(*) FROM products " + where //nolint:gosec // WHERE built from parameterised conditions, not user input
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, sqliteErr("counting products", err)
	}
	return total, nil
}

func sqliteWhere(filter Filter) (string, []any) {
	var conditions []string
	var args []any

	if filter.ID != nil {
		conditions = append(conditions, "id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Category != "" {
		conditions = append(conditions, `category LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Category))+"%")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// categoryColumn is the lower-cased string category; other types are not filterable.
func categoryColumn(p Product) any {
	if c, ok := p.Category(); ok {
		return strings.ToLower(c)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var oid, raw string
	if err := row.Scan(&oid, &raw); err != nil {
		return nil, err
	}

	p, err := DecodeProductBytes([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding product %s: %w", oid, err)
	}
	p[FieldStorageID] = oid
	return p, nil
}

// isUniqueConstraintError reports a UNIQUE or PRIMARY KEY violation.
func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// sqliteErr wraps err, adding ErrStoreUnavailable when the database
// itself cannot serve requests.
func sqliteErr(op string, err error) error {
	if isSQLiteUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isSQLiteUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code { //nolint:exhaustive // only connectivity-class codes matter here
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen,
			sqlite3.ErrIoErr, sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrFull:
			return true
		}
	}

	return strings.Contains(err.Error(), "database is closed")
}
