package pricing

import "strings"

// RouteKind is one shipping/customs pathway. The set is closed.
type RouteKind string

const (
	Rail         RouteKind = "rail"
	Air          RouteKind = "air"
	Contract     RouteKind = "contract"
	Volumetric   RouteKind = "volumetric"
	SeaContainer RouteKind = "sea_container"
)

// RouteKinds lists every route kind in tie-break priority order.
var RouteKinds = []RouteKind{Rail, Air, Contract, Volumetric, SeaContainer}

// Valid reports whether k is a known route kind.
func (k RouteKind) Valid() bool {
	return k.priority() >= 0
}

func (k RouteKind) priority() int {
	switch k {
	case Rail:
		return 0
	case Air:
		return 1
	case Contract:
		return 2
	case Volumetric:
		return 3
	case SeaContainer:
		return 4
	default:
		return -1
	}
}

type rateBasis int

const (
	perKilogram rateBasis = iota
	perCubicMeterLocal
	seaFreight
)

type dutyPolicy int

const (
	// dutyNone: the route never carries duty or VAT.
	dutyNone dutyPolicy = iota
	// dutyOptional: duty/VAT only when the route baseline or an override sets it.
	dutyOptional
	// dutyAlways: duty/VAT always evaluated, category duty defaults inherited.
	dutyAlways
)

type routeRules struct {
	basis        rateBasis
	duty         dutyPolicy
	deliveryDays int
}

func (k RouteKind) rules() routeRules {
	switch k {
	case Rail:
		return routeRules{basis: perKilogram, duty: dutyOptional, deliveryDays: 25}
	case Air:
		return routeRules{basis: perKilogram, duty: dutyOptional, deliveryDays: 7}
	case Contract:
		return routeRules{basis: perKilogram, duty: dutyOptional, deliveryDays: 18}
	case Volumetric:
		return routeRules{basis: perCubicMeterLocal, duty: dutyNone, deliveryDays: 20}
	case SeaContainer:
		return routeRules{basis: seaFreight, duty: dutyAlways, deliveryDays: 45}
	default:
		panic("pricing: unknown route kind " + string(k))
	}
}

// DutyFree reports whether the route never carries duty or VAT.
func (k RouteKind) DutyFree() bool {
	return k.rules().duty == dutyNone
}

// DefaultDeliveryDays is the delivery estimate used when a category does not set one.
func (k RouteKind) DefaultDeliveryDays() int {
	return k.rules().deliveryDays
}

// ParseRouteKind accepts a route kind in any case, with "-" or " " as separator.
func ParseRouteKind(s string) (RouteKind, bool) {
	k := RouteKind(strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"), " ", "_"))
	return k, k.Valid()
}

// UnmarshalText normalizes route keys such as "Rail" or "sea-container".
// Unrecognized text is kept as is so validation can report it.
func (k *RouteKind) UnmarshalText(b []byte) error {
	if parsed, ok := ParseRouteKind(string(b)); ok {
		*k = parsed
		return nil
	}
	*k = RouteKind(b)
	return nil
}

// DutyType selects how customs duty is computed.
type DutyType string

const (
	DutyPercent  DutyType = "percent"
	DutySpecific DutyType = "specific"
	DutyCombined DutyType = "combined"
)

// ParseDutyType parses a duty type leniently. Empty or unknown text is absent.
func ParseDutyType(s string) (DutyType, bool) {
	switch DutyType(strings.ToLower(strings.TrimSpace(s))) {
	case DutyPercent:
		return DutyPercent, true
	case DutySpecific:
		return DutySpecific, true
	case DutyCombined:
		return DutyCombined, true
	default:
		return "", false
	}
}

// Field names reported in missing-parameter lists and validation errors.
const (
	FieldLogisticsRate = "logistics_rate"
	FieldDutyType      = "duty_type"
	FieldDutyRate      = "duty_rate"
	FieldSpecificRate  = "specific_rate"
	FieldVATRate       = "vat_rate"
)
