package pricing

import "sort"

// DefaultFastDeliveryDays is the delivery estimate at or below which a route is "fast".
const DefaultFastDeliveryDays = 15

// RouteQuote is one priced route in dollars, before presentation.
type RouteQuote struct {
	Route         RouteKind
	DeliveryDays  int
	CostTotal     float64
	CostPerUnit   float64
	SalePerUnit   float64
	SaleTotal     float64
	ProfitPerUnit float64
	ProfitTotal   float64
	Cheapest      bool
	Fast          bool
	Fastest       bool
}

// Compare fills per-unit, sale and profit figures, orders quotes by total cost
// (ties: delivery days, then route priority) and sets the selection flags.
// The input slice is not modified.
func Compare(quotes []RouteQuote, quantity int, markup float64, fastDays int) []RouteQuote {
	out := make([]RouteQuote, len(quotes))
	copy(out, quotes)

	qty := float64(quantity)
	for i := range out {
		q := &out[i]
		q.CostPerUnit = q.CostTotal / qty
		q.SalePerUnit = q.CostPerUnit * markup
		q.SaleTotal = q.SalePerUnit * qty
		q.ProfitPerUnit = q.SalePerUnit - q.CostPerUnit
		q.ProfitTotal = q.ProfitPerUnit * qty
		q.Cheapest, q.Fast, q.Fastest = false, q.DeliveryDays <= fastDays, false
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CostTotal != b.CostTotal {
			return a.CostTotal < b.CostTotal
		}
		if a.DeliveryDays != b.DeliveryDays {
			return a.DeliveryDays < b.DeliveryDays
		}
		return a.Route.priority() < b.Route.priority()
	})

	if len(out) == 0 {
		return out
	}
	out[0].Cheapest = true

	fastest := 0
	for i := range out {
		if out[i].DeliveryDays < out[fastest].DeliveryDays {
			fastest = i
		}
	}
	out[fastest].Fastest = true
	return out
}
