package pricing

import (
	"fmt"
	"math"

	"github.com/Simplici0/landedcost/internal/money"
)

// ContainerRate is one entry of the sea container rate table. FlatUSD is the
// price of one full container.
type ContainerRate struct {
	Name         string  `json:"name"`
	CapacityM3   float64 `json:"capacity_m3"`
	MaxPayloadKg float64 `json:"max_payload_kg"`
	FlatUSD      float64 `json:"flat_usd"`
}

// DefaultContainers is the standard container rate table.
func DefaultContainers() []ContainerRate {
	return []ContainerRate{
		{Name: "20ft", CapacityM3: 33, MaxPayloadKg: 28000, FlatUSD: 3200},
		{Name: "40ft", CapacityM3: 67, MaxPayloadKg: 26500, FlatUSD: 4800},
		{Name: "40hc", CapacityM3: 76, MaxPayloadKg: 26500, FlatUSD: 5100},
	}
}

// RouteCost is the landed surcharge of a route on top of the goods value.
// CostUSD = LogisticsUSD + DutyUSD + VATUSD; CostLocal is the same in rubles.
type RouteCost struct {
	LogisticsUSD  float64 `json:"logistics_usd"`
	DutyUSD       float64 `json:"duty_usd"`
	VATUSD        float64 `json:"vat_usd"`
	CostUSD       float64 `json:"cost_usd"`
	CostLocal     float64 `json:"cost_local"`
	ContainerPlan string  `json:"container_plan,omitempty"`
}

// ComputeCost prices one route for a shipment with the given effective rates.
// Exchange rates, the container table and the specific duty currency come from cfg.
func ComputeCost(kind RouteKind, s Shipment, p EffectiveRouteParams, cfg Config) (RouteCost, error) {
	if !kind.Valid() {
		return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: "unknown route kind"}
	}
	if p.LogisticsRate == nil {
		return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: "logistics rate is not set"}
	}
	rate := *p.LogisticsRate
	if rate <= 0 {
		return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: fmt.Sprintf("logistics rate must be positive, got %v", rate)}
	}

	var cost RouteCost
	rates := cfg.Rates
	rules := kind.rules()

	switch rules.basis {
	case perKilogram:
		if s.TotalWeightKg <= 0 {
			return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: "total weight is zero"}
		}
		cost.LogisticsUSD = s.TotalWeightKg * rate
	case perCubicMeterLocal:
		if !s.HasVolume || s.TotalVolumeM3 <= 0 {
			return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: "volume unknown: give box dimensions or a category density"}
		}
		usd, err := money.Convert(s.TotalVolumeM3*rate, money.Local, money.USD, rates)
		if err != nil {
			return RouteCost{}, &ConfigurationError{Err: err}
		}
		cost.LogisticsUSD = usd
	case seaFreight:
		if !s.HasVolume || s.TotalVolumeM3 <= 0 {
			return RouteCost{}, &RouteUnavailableError{Route: kind, Reason: "volume unknown: give box dimensions or a category density"}
		}
		cost.LogisticsUSD, cost.ContainerPlan = seaFreightCost(s, rate, cfg.Containers)
	}

	if rules.duty != dutyNone {
		duty, vat, err := evaluateDuty(p, s.DeclaredUSD, s.TotalWeightKg, cfg.specificDutyCurrency(), rates)
		if err != nil {
			return RouteCost{}, err
		}
		cost.DutyUSD, cost.VATUSD = duty, vat
	}

	cost.CostUSD = cost.LogisticsUSD + cost.DutyUSD + cost.VATUSD
	local, err := money.Convert(cost.CostUSD, money.USD, money.Local, rates)
	if err != nil {
		return RouteCost{}, &ConfigurationError{Err: err}
	}
	cost.CostLocal = local
	return cost, nil
}

// seaFreightCost picks the cheaper of less-than-container freight, billed per
// revenue ton (the larger of m³ and metric tons), and the cheapest full-container plan.
func seaFreightCost(s Shipment, ratePerM3 float64, containers []ContainerRate) (float64, string) {
	chargeable := math.Max(s.TotalVolumeM3, s.TotalWeightKg/1000)
	best, plan := chargeable*ratePerM3, "lcl"

	for _, c := range containers {
		if c.CapacityM3 <= 0 || c.MaxPayloadKg <= 0 || c.FlatUSD <= 0 {
			continue
		}
		n := math.Max(math.Ceil(s.TotalVolumeM3/c.CapacityM3), math.Ceil(s.TotalWeightKg/c.MaxPayloadKg))
		if n < 1 {
			n = 1
		}
		if total := n * c.FlatUSD; total < best {
			best, plan = total, fmt.Sprintf("%dx%s", int(n), c.Name)
		}
	}
	return best, plan
}

// evaluateDuty computes duty and VAT in dollars. Specific duty is weight times
// the specific rate, quoted per kilogram in specificUnit.
func evaluateDuty(p EffectiveRouteParams, declaredUSD, weightKg float64, specificUnit money.Unit, rates money.Rates) (duty, vat float64, err error) {
	percent := func() float64 {
		if p.DutyRate == nil {
			return 0
		}
		return declaredUSD * *p.DutyRate / 100
	}
	specific := func() (float64, error) {
		if p.SpecificRate == nil {
			return 0, nil
		}
		if specificUnit == money.USD {
			return weightKg * *p.SpecificRate, nil
		}
		usdPerKg, err := money.Convert(*p.SpecificRate, specificUnit, money.USD, rates)
		if err != nil {
			return 0, &ConfigurationError{Err: err}
		}
		return weightKg * usdPerKg, nil
	}

	switch p.dutyType() {
	case DutyPercent:
		duty = percent()
	case DutySpecific:
		if duty, err = specific(); err != nil {
			return 0, 0, err
		}
	case DutyCombined:
		sp, err := specific()
		if err != nil {
			return 0, 0, err
		}
		duty = percent() + sp
	}

	if p.VATRate != nil {
		vat = (declaredUSD + duty) * *p.VATRate / 100
	}
	return duty, vat, nil
}
