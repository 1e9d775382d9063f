package pricing

import "strings"

// Category is immutable reference data describing a product category.
type Category struct {
	ID                  int64                       `json:"id"`
	Name                string                      `json:"name"`
	Material            string                      `json:"material,omitempty"`
	Density             float64                     `json:"density"`
	Routes              map[RouteKind]RouteBaseline `json:"routes"`
	Duty                DutyDefaults                `json:"duty"`
	CommodityCode       string                      `json:"commodity_code,omitempty"`
	RecommendedPrice    *Range                      `json:"recommended_price,omitempty"`
	RecommendedQuantity *Range                      `json:"recommended_quantity,omitempty"`
}

// RouteBaseline holds the default rates of one route for a category.
// Nil rate fields are not charged.
type RouteBaseline struct {
	LogisticsRate *float64 `json:"logistics_rate,omitempty"`
	DutyType      DutyType `json:"duty_type,omitempty"`
	DutyRate      *float64 `json:"duty_rate,omitempty"`
	SpecificRate  *float64 `json:"specific_rate,omitempty"`
	VATRate       *float64 `json:"vat_rate,omitempty"`
	DeliveryDays  int      `json:"delivery_days,omitempty"`
}

// DutyDefaults are the category-wide customs defaults. Only sea_container
// inherits them; other routes take duty from their own baseline or overrides.
type DutyDefaults struct {
	Type         DutyType `json:"type,omitempty"`
	Rate         *float64 `json:"rate,omitempty"`
	SpecificRate *float64 `json:"specific_rate,omitempty"`
	VATRate      *float64 `json:"vat_rate,omitempty"`
}

// Range is an inclusive recommended interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range. A zero bound is open.
func (r *Range) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Min > 0 && v < r.Min {
		return false
	}
	if r.Max > 0 && v > r.Max {
		return false
	}
	return true
}

// Float returns a pointer to v, for building optional rates.
func Float(v float64) *float64 {
	return &v
}

// Supports reports whether the category prices the given route.
func (c *Category) Supports(kind RouteKind) bool {
	if c == nil {
		return false
	}
	_, ok := c.Routes[kind]
	return ok
}

// SupportedRoutes returns the routes the category prices, in priority order.
func (c *Category) SupportedRoutes() []RouteKind {
	routes := make([]RouteKind, 0, len(RouteKinds))
	for _, kind := range RouteKinds {
		if c.Supports(kind) {
			routes = append(routes, kind)
		}
	}
	return routes
}

// Baseline returns the route baseline with category duty defaults applied
// according to the route's duty policy.
func (c *Category) Baseline(kind RouteKind) (*RouteBaseline, bool) {
	if !c.Supports(kind) {
		return nil, false
	}
	b := c.Routes[kind]

	switch kind.rules().duty {
	case dutyNone:
		b.DutyType, b.DutyRate, b.SpecificRate, b.VATRate = "", nil, nil, nil
	case dutyAlways:
		if b.DutyType == "" {
			b.DutyType = c.Duty.Type
		}
		if b.DutyRate == nil {
			b.DutyRate = c.Duty.Rate
		}
		if b.SpecificRate == nil {
			b.SpecificRate = c.Duty.SpecificRate
		}
		if b.VATRate == nil {
			b.VATRate = c.Duty.VATRate
		}
	}
	return &b, true
}

// DeliveryDays returns the category's delivery estimate for a route, or the route default.
func (c *Category) DeliveryDays(kind RouteKind) int {
	if c != nil {
		if b, ok := c.Routes[kind]; ok && b.DeliveryDays > 0 {
			return b.DeliveryDays
		}
	}
	return kind.DefaultDeliveryDays()
}

func (c *Category) clone() *Category {
	if c == nil {
		return nil
	}
	out := *c
	out.Routes = make(map[RouteKind]RouteBaseline, len(c.Routes))
	for k, v := range c.Routes {
		out.Routes[k] = v
	}
	return &out
}

// Validate checks reference data before it is stored.
func (c Category) Validate() error {
	var list []*ValidationError
	if strings.TrimSpace(c.Name) == "" {
		list = append(list, invalid("name", "is required"))
	}
	if normalizeRef(c.Name) == NewCategoryRef {
		list = append(list, invalid("name", "%q is reserved", NewCategoryRef))
	}
	if c.Density < 0 {
		list = append(list, invalid("density", "must be greater than or equal to 0"))
	}

	for _, kind := range c.SupportedRoutes() {
		b := c.Routes[kind]
		list = append(list, rateErrors("routes."+string(kind), b.DutyType, b.LogisticsRate, b.DutyRate, b.SpecificRate, b.VATRate)...)
		if b.DeliveryDays < 0 {
			list = append(list, invalid("routes."+string(kind)+".delivery_days", "must be greater than or equal to 0"))
		}
	}
	for kind := range c.Routes {
		if !kind.Valid() {
			list = append(list, invalid("routes."+string(kind), "unknown route"))
		}
	}
	list = append(list, rateErrors("duty", c.Duty.Type, nil, c.Duty.Rate, c.Duty.SpecificRate, c.Duty.VATRate)...)

	return joinValidation(list)
}

func rateErrors(prefix string, dt DutyType, logistics, duty, specific, vat *float64) []*ValidationError {
	var list []*ValidationError
	if dt != "" {
		if _, ok := ParseDutyType(string(dt)); !ok {
			list = append(list, invalid(prefix+"."+FieldDutyType, "must be one of percent, specific, combined"))
		}
	}
	check := func(name string, v *float64, percent bool) {
		switch {
		case v == nil:
		case *v < 0:
			list = append(list, invalid(prefix+"."+name, "must be greater than or equal to 0"))
		case percent && *v > 100:
			list = append(list, invalid(prefix+"."+name, "must be between 0 and 100"))
		}
	}
	check(FieldLogisticsRate, logistics, false)
	check(FieldDutyRate, duty, true)
	check(FieldSpecificRate, specific, false)
	check(FieldVATRate, vat, true)
	return list
}
