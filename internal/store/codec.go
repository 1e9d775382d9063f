package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/landedcost/internal/pricing"
)

type scanner interface {
	Scan(dest ...any) error
}

type categoryColumns struct {
	routes   string
	duty     string
	price    sql.NullString
	quantity sql.NullString
}

func encodeCategory(c pricing.Category) (categoryColumns, error) {
	var cols categoryColumns

	routes := c.Routes
	if routes == nil {
		routes = map[pricing.RouteKind]pricing.RouteBaseline{}
	}
	b, err := json.Marshal(routes)
	if err != nil {
		return cols, fmt.Errorf("encode category routes: %w", err)
	}
	cols.routes = string(b)

	if b, err = json.Marshal(c.Duty); err != nil {
		return cols, fmt.Errorf("encode category duty: %w", err)
	}
	cols.duty = string(b)

	if cols.price, err = encodeRange(c.RecommendedPrice); err != nil {
		return cols, fmt.Errorf("encode recommended price: %w", err)
	}
	if cols.quantity, err = encodeRange(c.RecommendedQuantity); err != nil {
		return cols, fmt.Errorf("encode recommended quantity: %w", err)
	}
	return cols, nil
}

func encodeRange(r *pricing.Range) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanCategory(row scanner) (pricing.Category, error) {
	var c pricing.Category
	var cols categoryColumns
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Material,
		&c.Density,
		&c.CommodityCode,
		&cols.routes,
		&cols.duty,
		&cols.price,
		&cols.quantity,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scan category: %w", err)
	}

	if err := json.Unmarshal([]byte(cols.routes), &c.Routes); err != nil {
		return c, fmt.Errorf("decode routes of category %d: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(cols.duty), &c.Duty); err != nil {
		return c, fmt.Errorf("decode duty of category %d: %w", c.ID, err)
	}
	var err error
	if c.RecommendedPrice, err = decodeRange(cols.price); err != nil {
		return c, fmt.Errorf("decode recommended price of category %d: %w", c.ID, err)
	}
	if c.RecommendedQuantity, err = decodeRange(cols.quantity); err != nil {
		return c, fmt.Errorf("decode recommended quantity of category %d: %w", c.ID, err)
	}
	return c, nil
}

func decodeRange(s sql.NullString) (*pricing.Range, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var r pricing.Range
	if err := json.Unmarshal([]byte(s.String), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
