package pricing

import (
	"math"
	"testing"

	"github.com/Simplici0/landedcost/internal/money"
)

// 1 USD = 90 RUB, 1 CNY = 12.5 RUB (7.2 CNY per USD), 1 EUR = 100 RUB.
var testRates = money.Rates{USD: 90, Yuan: 12.5, EUR: 100}

func testConfig() Config {
	return Config{Rates: testRates}
}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func textiles() Category {
	return Category{
		ID:       1,
		Name:     "Textiles",
		Material: "cotton",
		Density:  250,
		Routes: map[RouteKind]RouteBaseline{
			Rail:         {LogisticsRate: Float(3.2), DeliveryDays: 25},
			Air:          {LogisticsRate: Float(8.5), DeliveryDays: 8},
			Contract:     {LogisticsRate: Float(2.1), DutyType: DutyPercent, DutyRate: Float(10), VATRate: Float(20), DeliveryDays: 30},
			Volumetric:   {LogisticsRate: Float(25000)},
			SeaContainer: {LogisticsRate: Float(120)},
		},
		Duty:             DutyDefaults{Type: DutyPercent, Rate: Float(12), VATRate: Float(20)},
		CommodityCode:    "6109100000",
		RecommendedPrice: &Range{Min: 10, Max: 500},
	}
}

func electronics() Category {
	return Category{
		ID:      2,
		Name:    "Consumer electronics",
		Density: 180,
		Routes: map[RouteKind]RouteBaseline{
			Air:          {LogisticsRate: Float(9)},
			SeaContainer: {LogisticsRate: Float(140)},
		},
		Duty: DutyDefaults{Type: DutyCombined, Rate: Float(5), SpecificRate: Float(0.5), VATRate: Float(20)},
	}
}

func testResolver() *Resolver {
	return NewResolver([]Category{textiles(), electronics()})
}

// 100 units at 72 CNY (1000 USD total), 0.5 kg each: 50 kg, 0.2 m³ at textile density.
func shirt() ProductInput {
	return ProductInput{
		Name:      "T-shirt",
		PriceYuan: 72,
		WeightKg:  0.5,
		Quantity:  100,
		Markup:    1.5,
	}
}

func fullOverrides() map[RouteKind]Override {
	return map[RouteKind]Override{
		Rail:         {LogisticsRate: Some(3)},
		Air:          {LogisticsRate: Some(8)},
		Contract:     {LogisticsRate: Some(2), DutyType: "percent", DutyRate: Some(10), VATRate: Some(20)},
		Volumetric:   {LogisticsRate: Some(20000)},
		SeaContainer: {LogisticsRate: Some(100), DutyRate: Some(12), VATRate: Some(20)},
	}
}
