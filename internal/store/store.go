// Package store persists reference categories and immutable calculation
// snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/landedcost/internal/pricing"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a category name is already taken.
	ErrDuplicate = errors.New("duplicate")
)

// constraintError maps unique constraint violations to ErrDuplicate.
func constraintError(op string, err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")) {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// timestampLayout is fixed width so created_at sorts as text in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs queries against a database or a transaction.
type Store struct {
	db DBTX
}

// New returns a store bound to db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// CalculationSummary is one entry of a position's calculation history.
type CalculationSummary struct {
	ID          string            `json:"id"`
	PositionID  string            `json:"position_id"`
	ParentID    string            `json:"parent_id,omitempty"`
	State       pricing.State     `json:"state"`
	CategoryID  int64             `json:"category_id,omitempty"`
	NewCategory bool              `json:"new_category"`
	BestRoute   pricing.RouteKind `json:"best_route"`
	BestCostUSD float64           `json:"best_cost_usd"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ListCategories returns every active category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]pricing.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			name,
			material,
			density,
			commodity_code,
			routes_json,
			duty_json,
			recommended_price_json,
			recommended_quantity_json
		FROM categories
		WHERE active = TRUE
		ORDER BY name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]pricing.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// GetCategory returns one category by ID.
func (s *Store) GetCategory(ctx context.Context, id int64) (pricing.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			id,
			name,
			material,
			density,
			commodity_code,
			routes_json,
			duty_json,
			recommended_price_json,
			recommended_quantity_json
		FROM categories
		WHERE id = ?
	`, id)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pricing.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return pricing.Category{}, err
	}
	return c, nil
}

// CategoryExists reports whether a category with the given name exists,
// ignoring case.
func (s *Store) CategoryExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = ? COLLATE NOCASE LIMIT 1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category existence: %w", err)
	}
	return exists, nil
}

// InsertCategory stores a new category and returns it with its assigned ID.
func (s *Store) InsertCategory(ctx context.Context, c pricing.Category) (pricing.Category, error) {
	cols, err := encodeCategory(c)
	if err != nil {
		return pricing.Category{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (
			name,
			material,
			density,
			commodity_code,
			routes_json,
			duty_json,
			recommended_price_json,
			recommended_quantity_json,
			active
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, TRUE)
	`, c.Name, c.Material, c.Density, c.CommodityCode, cols.routes, cols.duty, cols.price, cols.quantity)
	if err != nil {
		return pricing.Category{}, constraintError("insert category", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return pricing.Category{}, fmt.Errorf("read category id: %w", err)
	}
	c.ID = id
	return c, nil
}

// UpdateCategory replaces the stored fields of an existing category.
func (s *Store) UpdateCategory(ctx context.Context, c pricing.Category) error {
	cols, err := encodeCategory(c)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET
			name = ?,
			material = ?,
			density = ?,
			commodity_code = ?,
			routes_json = ?,
			duty_json = ?,
			recommended_price_json = ?,
			recommended_quantity_json = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Name, c.Material, c.Density, c.CommodityCode, cols.routes, cols.duty, cols.price, cols.quantity, c.ID)
	if err != nil {
		return constraintError("update category", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// SaveCalculation stores a completed calculation. Records are never updated.
func (s *Store) SaveCalculation(ctx context.Context, res *pricing.CalculationResult) error {
	if res == nil || res.ID == "" {
		return errors.New("save calculation: result has no id")
	}

	inputJSON, err := json.Marshal(res.Request())
	if err != nil {
		return fmt.Errorf("encode calculation input: %w", err)
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode calculation result: %w", err)
	}

	var categoryID sql.NullInt64
	if res.Category != nil && res.Category.ID != 0 {
		categoryID = sql.NullInt64{Int64: res.Category.ID, Valid: true}
	}
	var parentID sql.NullString
	if res.ParentID != "" {
		parentID = sql.NullString{String: res.ParentID, Valid: true}
	}
	var bestCost float64
	if len(res.Routes) > 0 {
		bestCost = res.Routes[0].CostTotal.USD
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calculations (
			id,
			position_id,
			parent_id,
			state,
			category_id,
			new_category,
			best_route,
			best_cost_usd,
			input_json,
			result_json,
			created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID,
		res.PositionID,
		parentID,
		string(res.State),
		categoryID,
		res.NewCategory,
		string(res.BestRoute),
		bestCost,
		string(inputJSON),
		string(resultJSON),
		res.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// GetCalculation loads a stored calculation snapshot.
func (s *Store) GetCalculation(ctx context.Context, id string) (*pricing.CalculationResult, error) {
	var resultJSON string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM calculations WHERE id = ?`, id).Scan(&resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calculation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query calculation: %w", err)
	}

	var res pricing.CalculationResult
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return nil, fmt.Errorf("decode calculation %s: %w", id, err)
	}
	return &res, nil
}

// ListCalculations returns the calculation history of a position, newest first.
func (s *Store) ListCalculations(ctx context.Context, positionID string) ([]CalculationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			position_id,
			COALESCE(parent_id, ''),
			state,
			COALESCE(category_id, 0),
			new_category,
			best_route,
			best_cost_usd,
			created_at
		FROM calculations
		WHERE position_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	items := make([]CalculationSummary, 0)
	for rows.Next() {
		var item CalculationSummary
		var state, bestRoute, createdAt string
		if err := rows.Scan(
			&item.ID,
			&item.PositionID,
			&item.ParentID,
			&state,
			&item.CategoryID,
			&item.NewCategory,
			&bestRoute,
			&item.BestCostUSD,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		item.State = pricing.State(state)
		item.BestRoute = pricing.RouteKind(bestRoute)
		if item.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", item.ID, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}

	return items, nil
}
