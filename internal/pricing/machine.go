package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Simplici0/landedcost/internal/money"
)

// State is a calculation state.
type State string

const (
	StateNeedsCategory State = "NEEDS_CATEGORY"
	StateNeedsParams   State = "NEEDS_PARAMS"
	StateReady         State = "READY"
	StateComplete      State = "COMPLETE"
	StateFailed        State = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Request is everything a calculation depends on besides reference data and rates.
type Request struct {
	Product          ProductInput           `json:"product"`
	DetectedCategory string                 `json:"detected_category,omitempty"`
	ForcedCategory   string                 `json:"forced_category,omitempty"`
	Overrides        map[RouteKind]Override `json:"custom_logistics,omitempty"`
}

// Config is the engine configuration.
type Config struct {
	Rates                money.Rates
	Containers           []ContainerRate
	FastDeliveryDays     int
	// SpecificDutyCurrency is the currency specific duty rates are quoted in,
	// per kilogram. Empty means USD, the currency of the declared value.
	SpecificDutyCurrency money.Unit
}

func (c Config) specificDutyCurrency() money.Unit {
	if c.SpecificDutyCurrency == "" {
		return money.USD
	}
	return c.SpecificDutyCurrency
}

func (c Config) withDefaults() Config {
	if c.Containers == nil {
		c.Containers = DefaultContainers()
	}
	if c.FastDeliveryDays <= 0 {
		c.FastDeliveryDays = DefaultFastDeliveryDays
	}
	return c
}

// Machine drives one calculation through its states. Each Step performs at
// most one transition. A Machine is not safe for concurrent use.
type Machine struct {
	cfg      Config
	resolver *Resolver
	req      Request

	state       State
	reason      string
	category    *Category
	newCategory bool
	routes      []RouteKind
	params      map[RouteKind]EffectiveRouteParams
	missing     map[RouteKind][]string
	unavailable []UnavailableRoute
	result      *CalculationResult
	err         error
}

// NewMachine returns a machine in NEEDS_CATEGORY.
func NewMachine(cfg Config, resolver *Resolver, req Request) *Machine {
	return &Machine{
		cfg:      cfg.withDefaults(),
		resolver: resolver,
		req:      req,
		state:    StateNeedsCategory,
	}
}

func (m *Machine) State() State {
	return m.state
}

// Err returns the error that moved the machine to FAILED.
func (m *Machine) Err() error {
	return m.err
}

// Result returns the calculation produced in COMPLETE.
func (m *Machine) Result() *CalculationResult {
	return m.result
}

// Category returns the resolved category and whether it is new/unknown.
func (m *Machine) Category() (*Category, bool) {
	return m.category, m.newCategory
}

// Reason explains why the machine is waiting for input.
func (m *Machine) Reason() string {
	return m.reason
}

// Unavailable lists routes dropped during execution.
func (m *Machine) Unavailable() []UnavailableRoute {
	return m.unavailable
}

// Missing returns the fields each route still needs, keyed by route.
func (m *Machine) Missing() map[RouteKind][]string {
	if len(m.missing) == 0 {
		return nil
	}
	out := make(map[RouteKind][]string, len(m.missing))
	for k, v := range m.missing {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// MissingErrors returns one MissingRateError per incomplete route, in route order.
func (m *Machine) MissingErrors() []*MissingRateError {
	var out []*MissingRateError
	for _, kind := range m.routes {
		if fields, ok := m.missing[kind]; ok {
			out = append(out, &MissingRateError{Route: kind, Fields: append([]string(nil), fields...)})
		}
	}
	return out
}

func (m *Machine) missingReason() string {
	errs := m.MissingErrors()
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Step performs one transition. NEEDS_CATEGORY and NEEDS_PARAMS stay put when
// input is insufficient; terminal states never change.
func (m *Machine) Step() State {
	switch m.state {
	case StateNeedsCategory:
		m.resolveCategory()
	case StateReady:
		m.execute()
	}
	return m.state
}

// Run steps until the machine is terminal or cannot progress.
func (m *Machine) Run() State {
	return m.runWhile(func(State) bool { return true })
}

// RunUntilReady steps like Run but stops before executing.
func (m *Machine) RunUntilReady() State {
	return m.runWhile(func(s State) bool { return s != StateReady })
}

func (m *Machine) runWhile(cont func(State) bool) State {
	for cont(m.state) && !m.state.Terminal() {
		prev := m.state
		if m.Step() == prev {
			break
		}
	}
	return m.state
}

// SupplyOverrides replaces the overrides of the given routes and re-checks
// parameter sufficiency. An empty override clears the route's custom values.
func (m *Machine) SupplyOverrides(overrides map[RouteKind]Override) State {
	if m.state != StateNeedsParams && m.state != StateReady {
		return m.state
	}
	m.req.Overrides = applyOverrides(m.req.Overrides, overrides)
	if errs := overrideErrors(m.req.Overrides, false); len(errs) > 0 {
		m.fail(joinValidation(errs))
		return m.state
	}
	m.checkParams()
	return m.state
}

func (m *Machine) fail(err error) {
	m.state = StateFailed
	m.err = err
}

func (m *Machine) validateRequest() bool {
	if err := m.req.Product.Validate(); err != nil {
		m.fail(err)
		return false
	}
	if errs := overrideErrors(m.req.Overrides, false); len(errs) > 0 {
		m.fail(joinValidation(errs))
		return false
	}
	return true
}

func (m *Machine) resolveCategory() {
	if !m.validateRequest() {
		return
	}

	if forced := strings.TrimSpace(m.req.ForcedCategory); forced != "" {
		res := m.resolver.Resolve(forced)
		m.enterCategory(res.Category, !res.Found)
		return
	}

	detected := strings.TrimSpace(m.req.DetectedCategory)
	switch {
	case detected == "":
		m.reason = ErrCategoryUndetermined.Error()
	case normalizeRef(detected) == NewCategoryRef:
		m.enterCategory(nil, true)
	default:
		res := m.resolver.Resolve(detected)
		if !res.Found {
			m.reason = fmt.Sprintf("%s: %q is not a known category", ErrCategoryUndetermined, detected)
			return
		}
		m.enterCategory(res.Category, false)
	}
}

func (m *Machine) enterCategory(c *Category, isNew bool) {
	m.reason = ""
	if c == nil && !isNew {
		m.fail(ErrCategoryUndetermined)
		return
	}
	m.category, m.newCategory = c, isNew
	if isNew {
		m.category = nil
		m.routes = append([]RouteKind(nil), RouteKinds...)
	} else {
		m.routes = c.SupportedRoutes()
	}
	if len(m.routes) == 0 {
		m.fail(fmt.Errorf("%w: category %q supports no routes", ErrNoPriceableRoutes, c.Name))
		return
	}
	m.checkParams()
}

func (m *Machine) checkParams() {
	m.params = make(map[RouteKind]EffectiveRouteParams, len(m.routes))
	m.missing = make(map[RouteKind][]string)

	for _, kind := range m.routes {
		var baseline *RouteBaseline
		if !m.newCategory {
			baseline, _ = m.category.Baseline(kind)
		}
		var override *Override
		if o, ok := m.req.Overrides[kind]; ok {
			override = &o
		}
		p := Merge(kind, baseline, override)
		m.params[kind] = p
		if missing := p.MissingFields(kind); len(missing) > 0 {
			m.missing[kind] = missing
		}
	}

	if len(m.missing) > 0 {
		m.state = StateNeedsParams
		m.reason = m.missingReason()
		return
	}
	m.state = StateReady
	m.reason = ""
}

func (m *Machine) execute() {
	rates := m.cfg.Rates
	if err := rates.Require(money.USD, money.Yuan); err != nil {
		m.fail(&ConfigurationError{Err: err})
		return
	}

	var density float64
	if m.category != nil {
		density = m.category.Density
	}
	shipment, err := NewShipment(m.req.Product, density, rates)
	if err != nil {
		m.fail(err)
		return
	}

	priced := make(map[RouteKind]pricedRoute, len(m.routes))
	quotes := make([]RouteQuote, 0, len(m.routes))
	m.unavailable = nil

	for _, kind := range m.routes {
		params := m.params[kind]
		cost, err := ComputeCost(kind, shipment, params, m.cfg)
		if err != nil {
			var unavailable *RouteUnavailableError
			if errors.As(err, &unavailable) {
				m.unavailable = append(m.unavailable, UnavailableRoute{Route: kind, Reason: unavailable.Reason})
				continue
			}
			m.fail(err)
			return
		}
		days := m.category.DeliveryDays(kind)
		priced[kind] = pricedRoute{params: params, cost: cost, days: days}
		quotes = append(quotes, RouteQuote{
			Route:        kind,
			DeliveryDays: days,
			CostTotal:    shipment.DeclaredUSD + cost.CostUSD,
		})
	}

	if len(quotes) == 0 {
		m.fail(fmt.Errorf("%w: all %d routes are unavailable", ErrNoPriceableRoutes, len(m.unavailable)))
		return
	}

	ranked := Compare(quotes, m.req.Product.Quantity, m.req.Product.Markup, m.cfg.FastDeliveryDays)
	result, err := assemble(assembly{
		req:         m.req,
		category:    m.category,
		newCategory: m.newCategory,
		shipment:    shipment,
		priced:      priced,
		ranked:      ranked,
		unavailable: m.unavailable,
		rates:       rates,
	})
	if err != nil {
		m.fail(err)
		return
	}
	m.result = result
	m.state = StateComplete
}

// Changes are the fields an existing calculation may be updated with.
type Changes struct {
	Quantity       *int                   `json:"quantity,omitempty"`
	Markup         *float64               `json:"markup,omitempty"`
	ForcedCategory *string                `json:"forced_category,omitempty"`
	Overrides      map[RouteKind]Override `json:"custom_logistics,omitempty"`
}

// CategoryChanged reports whether the changes select a different category.
func (c Changes) CategoryChanged(prev *CalculationResult) bool {
	return c.ForcedCategory != nil && normalizeRef(*c.ForcedCategory) != normalizeRef(prev.ForcedCategory)
}

// Apply returns req with the changes applied.
func (c Changes) Apply(req Request) Request {
	if c.Quantity != nil {
		req.Product.Quantity = *c.Quantity
	}
	if c.Markup != nil {
		req.Product.Markup = *c.Markup
	}
	if c.ForcedCategory != nil {
		req.ForcedCategory = strings.TrimSpace(*c.ForcedCategory)
	}
	req.Overrides = applyOverrides(req.Overrides, c.Overrides)
	return req
}

// Resume re-enters the machine for an update of a completed calculation. A
// category change restarts at NEEDS_CATEGORY; otherwise the category snapshot
// of prev is reused and the machine re-enters at READY, falling back to
// NEEDS_PARAMS if the new overrides leave a route incomplete.
func Resume(cfg Config, resolver *Resolver, prev *CalculationResult, ch Changes) *Machine {
	m := NewMachine(cfg, resolver, ch.Apply(prev.Request()))
	if ch.CategoryChanged(prev) {
		return m
	}
	if !m.validateRequest() {
		return m
	}
	m.enterCategory(prev.Category.clone(), prev.NewCategory)
	return m
}

func applyOverrides(base, changes map[RouteKind]Override) map[RouteKind]Override {
	if len(changes) == 0 {
		return cloneOverrides(base)
	}
	out := cloneOverrides(base)
	if out == nil {
		out = make(map[RouteKind]Override, len(changes))
	}
	for kind, o := range changes {
		if o.Empty() && !hasUnparsable(o) {
			delete(out, kind)
			continue
		}
		out[kind] = o
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func hasUnparsable(o Override) bool {
	return o.LogisticsRate.Unparsable() || o.DutyRate.Unparsable() || o.SpecificRate.Unparsable() || o.VATRate.Unparsable()
}

// overrideErrors checks override values. Negative or out-of-range numbers and
// unknown routes are always errors; strict also reports unparsable text,
// unknown duty types, zero logistics rates and duty on duty-free routes.
func overrideErrors(overrides map[RouteKind]Override, strict bool) []*ValidationError {
	kinds := make([]RouteKind, 0, len(overrides))
	for k := range overrides {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		pi, pj := kinds[i].priority(), kinds[j].priority()
		if pi != pj {
			return pi < pj
		}
		return kinds[i] < kinds[j]
	})

	var errs []*ValidationError
	for _, kind := range kinds {
		o := overrides[kind]
		prefix := "custom_logistics." + string(kind)
		if !kind.Valid() {
			errs = append(errs, invalid(prefix, "unknown route"))
			continue
		}

		fields := []struct {
			name    string
			value   OptionalFloat
			percent bool
		}{
			{FieldLogisticsRate, o.LogisticsRate, false},
			{FieldDutyRate, o.DutyRate, true},
			{FieldSpecificRate, o.SpecificRate, false},
			{FieldVATRate, o.VATRate, true},
		}
		for _, f := range fields {
			name := prefix + "." + f.name
			v, ok := f.value.Get()
			switch {
			case ok && v < 0:
				errs = append(errs, invalid(name, "must be greater than or equal to 0"))
			case ok && f.percent && v > 100:
				errs = append(errs, invalid(name, "must be between 0 and 100"))
			case strict && f.value.Unparsable():
				errs = append(errs, invalid(name, "must be numeric, got %q", f.value.Raw))
			case strict && ok && v == 0 && f.name == FieldLogisticsRate:
				errs = append(errs, invalid(name, "must be greater than 0"))
			}
		}

		if !strict {
			continue
		}
		if o.DutyType != "" {
			if _, ok := ParseDutyType(o.DutyType); !ok {
				errs = append(errs, invalid(prefix+"."+FieldDutyType, "must be one of percent, specific, combined"))
			}
		}
		if kind.DutyFree() && (o.DutyType != "" || o.DutyRate.Set || o.SpecificRate.Set || o.VATRate.Set) {
			errs = append(errs, invalid(prefix, "route is duty-free; duty and VAT fields are ignored"))
		}
	}
	return errs
}
