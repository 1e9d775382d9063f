package pricing

import "testing"

func TestCompare_OrdersByCostThenDaysThenPriority(t *testing.T) {
	quotes := []RouteQuote{
		{Route: SeaContainer, DeliveryDays: 20, CostTotal: 500},
		{Route: Contract, DeliveryDays: 20, CostTotal: 300},
		{Route: Air, DeliveryDays: 5, CostTotal: 300},
		{Route: Rail, DeliveryDays: 20, CostTotal: 300},
	}

	got := Compare(quotes, 10, 1.5, DefaultFastDeliveryDays)

	wantOrder := []RouteKind{Air, Rail, Contract, SeaContainer}
	for i, want := range wantOrder {
		if got[i].Route != want {
			t.Fatalf("position %d = %s, want %s", i, got[i].Route, want)
		}
	}

	if !got[0].Cheapest || !got[0].Fast || !got[0].Fastest {
		t.Fatalf("air flags = %+v, want cheapest, fast and fastest", got[0])
	}
	for _, q := range got[1:] {
		if q.Cheapest || q.Fast || q.Fastest {
			t.Fatalf("%s unexpectedly flagged: %+v", q.Route, q)
		}
	}

	if quotes[0].Route != SeaContainer || quotes[0].CostPerUnit != 0 {
		t.Fatalf("input slice was modified: %+v", quotes[0])
	}
}

func TestCompare_Figures(t *testing.T) {
	got := Compare([]RouteQuote{{Route: Rail, DeliveryDays: 25, CostTotal: 1820}}, 10, 1.5, DefaultFastDeliveryDays)
	q := got[0]

	nearlyEqual(t, "cost per unit", q.CostPerUnit, 182)
	nearlyEqual(t, "sale per unit", q.SalePerUnit, 273)
	nearlyEqual(t, "sale total", q.SaleTotal, 2730)
	nearlyEqual(t, "profit per unit", q.ProfitPerUnit, 91)
	nearlyEqual(t, "profit total", q.ProfitTotal, 910)
	if q.Fast {
		t.Fatalf("25 days should not be fast")
	}
	if !q.Cheapest || !q.Fastest {
		t.Fatalf("single route must be cheapest and fastest: %+v", q)
	}
}

func TestCompare_Properties(t *testing.T) {
	quotes := []RouteQuote{
		{Route: Rail, DeliveryDays: 25, CostTotal: 1160},
		{Route: Air, DeliveryDays: 8, CostTotal: 1425},
		{Route: Volumetric, DeliveryDays: 20, CostTotal: 1055.5555555},
		{Route: SeaContainer, DeliveryDays: 45, CostTotal: 1368},
	}

	for _, markup := range []float64{1, 1.25, 3} {
		for _, qty := range []int{1, 7, 1000} {
			got := Compare(quotes, qty, markup, 10)
			cheapest, fastest := 0, 0
			for i, q := range got {
				if q.ProfitPerUnit < 0 || q.ProfitTotal < 0 {
					t.Fatalf("negative profit for markup %v: %+v", markup, q)
				}
				if diff := q.SaleTotal - q.SalePerUnit*float64(qty); diff > 1e-6 || diff < -1e-6 {
					t.Fatalf("sale total %v != %v * %d", q.SaleTotal, q.SalePerUnit, qty)
				}
				if i > 0 && got[i-1].CostTotal > q.CostTotal {
					t.Fatalf("not sorted by cost at %d", i)
				}
				if q.Cheapest {
					cheapest++
				}
				if q.Fastest {
					fastest++
				}
				if q.Fast != (q.DeliveryDays <= 10) {
					t.Fatalf("fast flag wrong for %s", q.Route)
				}
			}
			if cheapest != 1 || fastest != 1 {
				t.Fatalf("cheapest=%d fastest=%d, want exactly one each", cheapest, fastest)
			}
		}
	}
}

func TestCompare_Empty(t *testing.T) {
	if got := Compare(nil, 1, 1, DefaultFastDeliveryDays); len(got) != 0 {
		t.Fatalf("Compare(nil) = %v", got)
	}
}
