package pricing

import (
	"time"

	"github.com/Simplici0/landedcost/internal/money"
)

// RouteResult is the presentation of one priced route.
type RouteResult struct {
	Route         RouteKind            `json:"route"`
	DeliveryDays  int                  `json:"delivery_days"`
	Params        EffectiveRouteParams `json:"params"`
	ContainerPlan string               `json:"container_plan,omitempty"`
	Logistics     money.Amount         `json:"logistics"`
	Duty          money.Amount         `json:"duty"`
	VAT           money.Amount         `json:"vat"`
	CostPerUnit   money.Amount         `json:"cost_per_unit"`
	CostTotal     money.Amount         `json:"cost_total"`
	SalePerUnit   money.Amount         `json:"sale_per_unit"`
	SaleTotal     money.Amount         `json:"sale_total"`
	ProfitPerUnit money.Amount         `json:"profit_per_unit"`
	ProfitTotal   money.Amount         `json:"profit_total"`
	Cheapest      bool                 `json:"cheapest"`
	Fast          bool                 `json:"fast"`
	Fastest       bool                 `json:"fastest"`
}

// UnavailableRoute records a route dropped from comparison.
type UnavailableRoute struct {
	Route  RouteKind `json:"route"`
	Reason string    `json:"reason"`
}

// Totals are route-independent aggregates of the order.
type Totals struct {
	Quantity        int          `json:"quantity"`
	UnitWeightKg    float64      `json:"unit_weight_kg"`
	TotalWeightKg   float64      `json:"total_weight_kg"`
	TotalVolumeM3   float64      `json:"total_volume_m3,omitempty"`
	PurchasePerUnit money.Amount `json:"purchase_per_unit"`
	PurchaseTotal   money.Amount `json:"purchase_total"`
}

// CalculationResult is an immutable snapshot of one completed calculation.
// Identity fields are assigned by the caller that persists it.
type CalculationResult struct {
	ID               string                 `json:"id,omitempty"`
	PositionID       string                 `json:"position_id,omitempty"`
	ParentID         string                 `json:"parent_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	State            State                  `json:"state"`
	Input            ProductInput           `json:"input"`
	DetectedCategory string                 `json:"detected_category,omitempty"`
	ForcedCategory   string                 `json:"forced_category,omitempty"`
	Category         *Category              `json:"category,omitempty"`
	NewCategory      bool                   `json:"new_category"`
	Overrides        map[RouteKind]Override `json:"custom_logistics,omitempty"`
	Routes           []RouteResult          `json:"routes"`
	Unavailable      []UnavailableRoute     `json:"unavailable,omitempty"`
	Totals           Totals                 `json:"totals"`
	BestRoute        RouteKind              `json:"best_route"`
	Warnings         []string               `json:"warnings,omitempty"`
	Rates            money.Rates            `json:"rates"`
}

// Request returns the request that produced the result.
func (r *CalculationResult) Request() Request {
	return Request{
		Product:          r.Input,
		DetectedCategory: r.DetectedCategory,
		ForcedCategory:   r.ForcedCategory,
		Overrides:        cloneOverrides(r.Overrides),
	}
}

type pricedRoute struct {
	params EffectiveRouteParams
	cost   RouteCost
	days   int
}

type assembly struct {
	req         Request
	category    *Category
	newCategory bool
	shipment    Shipment
	priced      map[RouteKind]pricedRoute
	ranked      []RouteQuote
	unavailable []UnavailableRoute
	rates       money.Rates
}

type converter struct {
	rates money.Rates
	err   error
}

func (c *converter) usd(v float64) money.Amount {
	if c.err != nil {
		return money.Amount{}
	}
	a, err := money.FromUSD(v, c.rates)
	if err != nil {
		c.err = &ConfigurationError{Err: err}
	}
	return a
}

func assemble(in assembly) (*CalculationResult, error) {
	conv := &converter{rates: in.rates}

	routes := make([]RouteResult, 0, len(in.ranked))
	for _, q := range in.ranked {
		pr := in.priced[q.Route]
		routes = append(routes, RouteResult{
			Route:         q.Route,
			DeliveryDays:  q.DeliveryDays,
			Params:        pr.params,
			ContainerPlan: pr.cost.ContainerPlan,
			Logistics:     conv.usd(pr.cost.LogisticsUSD),
			Duty:          conv.usd(pr.cost.DutyUSD),
			VAT:           conv.usd(pr.cost.VATUSD),
			CostPerUnit:   conv.usd(q.CostPerUnit),
			CostTotal:     conv.usd(q.CostTotal),
			SalePerUnit:   conv.usd(q.SalePerUnit),
			SaleTotal:     conv.usd(q.SaleTotal),
			ProfitPerUnit: conv.usd(q.ProfitPerUnit),
			ProfitTotal:   conv.usd(q.ProfitTotal),
			Cheapest:      q.Cheapest,
			Fast:          q.Fast,
			Fastest:       q.Fastest,
		})
	}

	s := in.shipment
	totals := Totals{
		Quantity:        in.req.Product.Quantity,
		UnitWeightKg:    s.UnitWeightKg,
		TotalWeightKg:   s.TotalWeightKg,
		TotalVolumeM3:   s.TotalVolumeM3,
		PurchasePerUnit: conv.usd(s.DeclaredUSD / s.Quantity),
		PurchaseTotal:   conv.usd(s.DeclaredUSD),
	}
	if conv.err != nil {
		return nil, conv.err
	}

	res := &CalculationResult{
		State:            StateComplete,
		Input:            in.req.Product,
		DetectedCategory: in.req.DetectedCategory,
		ForcedCategory:   in.req.ForcedCategory,
		Category:         in.category.clone(),
		NewCategory:      in.newCategory,
		Overrides:        cloneOverrides(in.req.Overrides),
		Routes:           routes,
		Unavailable:      in.unavailable,
		Totals:           totals,
		Warnings:         recommendationWarnings(in.category, in.req.Product),
		Rates:            in.rates,
	}
	if len(routes) > 0 {
		res.BestRoute = routes[0].Route
	}
	return res, nil
}

func recommendationWarnings(c *Category, p ProductInput) []string {
	if c == nil {
		return nil
	}
	var warnings []string
	if !c.RecommendedPrice.Contains(p.PriceYuan) {
		warnings = append(warnings, "price_out_of_range")
	}
	if !c.RecommendedQuantity.Contains(float64(p.Quantity)) {
		warnings = append(warnings, "quantity_out_of_range")
	}
	return warnings
}

func cloneOverrides(in map[RouteKind]Override) map[RouteKind]Override {
	if len(in) == 0 {
		return nil
	}
	out := make(map[RouteKind]Override, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
