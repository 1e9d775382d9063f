package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/landedcost/internal/pricing"
	"github.com/Simplici0/landedcost/internal/store"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Skipped int
}

// Run inserts the reference categories that do not exist yet. It is
// idempotent and runs in one transaction.
func Run(ctx context.Context, db *sql.DB, categories []pricing.Category) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	st := store.New(tx)

	for _, c := range categories {
		if err := ensureCategory(ctx, st, c, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCategory(ctx context.Context, st *store.Store, c pricing.Category, stats *Stats) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("seed category %q: %w", c.Name, err)
	}

	exists, err := st.CategoryExists(ctx, c.Name)
	if err != nil {
		return err
	}
	if exists {
		stats.Skipped++
		return nil
	}

	c.ID = 0
	if _, err := st.InsertCategory(ctx, c); err != nil {
		return fmt.Errorf("insert category %q: %w", c.Name, err)
	}
	stats.Inserts++
	return nil
}

// DefaultCategories is the reference catalog installed on a fresh database.
func DefaultCategories() []pricing.Category {
	f := pricing.Float
	return []pricing.Category{
		{
			Name:     "Textiles",
			Material: "cotton",
			Density:  250,
			Routes: map[pricing.RouteKind]pricing.RouteBaseline{
				pricing.Rail:         {LogisticsRate: f(3.2)},
				pricing.Air:          {LogisticsRate: f(8.5), DeliveryDays: 8},
				pricing.Contract:     {LogisticsRate: f(2.1), DutyType: pricing.DutyPercent, DutyRate: f(10), VATRate: f(20), DeliveryDays: 30},
				pricing.Volumetric:   {LogisticsRate: f(25000)},
				pricing.SeaContainer: {LogisticsRate: f(120)},
			},
			Duty:             pricing.DutyDefaults{Type: pricing.DutyPercent, Rate: f(12), VATRate: f(20)},
			CommodityCode:    "6109100000",
			RecommendedPrice: &pricing.Range{Min: 10, Max: 500},
		},
		{
			Name:     "Footwear",
			Material: "leather",
			Density:  300,
			Routes: map[pricing.RouteKind]pricing.RouteBaseline{
				pricing.Rail:         {LogisticsRate: f(3.5)},
				pricing.Air:          {LogisticsRate: f(9)},
				pricing.Contract:     {LogisticsRate: f(2.4), DutyType: pricing.DutyCombined, DutyRate: f(10), SpecificRate: f(0.6), VATRate: f(20)},
				pricing.SeaContainer: {LogisticsRate: f(110)},
			},
			Duty:                pricing.DutyDefaults{Type: pricing.DutyCombined, Rate: f(10), SpecificRate: f(0.6), VATRate: f(20)},
			CommodityCode:       "6403990000",
			RecommendedQuantity: &pricing.Range{Min: 50},
		},
		{
			Name:     "Consumer electronics",
			Material: "mixed",
			Density:  180,
			Routes: map[pricing.RouteKind]pricing.RouteBaseline{
				pricing.Air:          {LogisticsRate: f(9.5), DeliveryDays: 6},
				pricing.Contract:     {LogisticsRate: f(3), DutyType: pricing.DutyPercent, DutyRate: f(5), VATRate: f(20)},
				pricing.SeaContainer: {LogisticsRate: f(140)},
			},
			Duty:          pricing.DutyDefaults{Type: pricing.DutyPercent, Rate: f(5), VATRate: f(20)},
			CommodityCode: "8517620009",
		},
		{
			Name:     "Furniture",
			Material: "wood",
			Density:  120,
			Routes: map[pricing.RouteKind]pricing.RouteBaseline{
				pricing.Rail:         {LogisticsRate: f(2.2)},
				pricing.Volumetric:   {LogisticsRate: f(18000)},
				pricing.SeaContainer: {LogisticsRate: f(95)},
			},
			Duty:          pricing.DutyDefaults{Type: pricing.DutySpecific, SpecificRate: f(0.25), VATRate: f(20)},
			CommodityCode: "9403600009",
		},
		{
			Name:     "Toys",
			Material: "plastic",
			Density:  150,
			Routes: map[pricing.RouteKind]pricing.RouteBaseline{
				pricing.Rail:         {LogisticsRate: f(2.8)},
				pricing.Air:          {LogisticsRate: f(8)},
				pricing.Volumetric:   {LogisticsRate: f(22000)},
				pricing.SeaContainer: {LogisticsRate: f(100)},
			},
			Duty:             pricing.DutyDefaults{Type: pricing.DutyPercent, Rate: f(7.5), VATRate: f(20)},
			CommodityCode:    "9503007000",
			RecommendedPrice: &pricing.Range{Min: 5, Max: 300},
		},
	}
}
