package pricing

// Engine runs calculations against a category snapshot. It holds no mutable
// state and may be shared between goroutines.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Report describes where a calculation stands without its result.
type Report struct {
	State       State                  `json:"state"`
	Reason      string                 `json:"reason,omitempty"`
	Category    *Category              `json:"resolved_category,omitempty"`
	NewCategory bool                   `json:"new_category"`
	Routes      []RouteKind            `json:"routes,omitempty"`
	Missing     map[RouteKind][]string `json:"required_params_per_route,omitempty"`
	Unavailable []UnavailableRoute     `json:"unavailable,omitempty"`
}

// Outcome is a report plus the result when the calculation completed.
type Outcome struct {
	Report
	Result *CalculationResult `json:"result,omitempty"`
}

// NeedsInput reports whether the caller must supply more data.
func (o Outcome) NeedsInput() bool {
	return o.State == StateNeedsCategory || o.State == StateNeedsParams
}

// ParamsValidation is the dry-run verdict on a request and its overrides.
type ParamsValidation struct {
	Valid        bool               `json:"valid"`
	Errors       []*ValidationError `json:"errors"`
	CanCalculate bool               `json:"can_calculate"`
	Report       Report             `json:"report"`
}

func reportOf(m *Machine) Report {
	c, isNew := m.Category()
	r := Report{
		State:       m.State(),
		Reason:      m.Reason(),
		Category:    c.clone(),
		NewCategory: isNew,
		Missing:     m.Missing(),
		Unavailable: m.Unavailable(),
	}
	if len(m.routes) > 0 {
		r.Routes = append([]RouteKind(nil), m.routes...)
	}
	if m.Err() != nil && r.Reason == "" {
		r.Reason = m.Err().Error()
	}
	return r
}

// Start resolves the category and checks parameter sufficiency without pricing.
func (e *Engine) Start(resolver *Resolver, req Request) (Report, error) {
	m := NewMachine(e.cfg, resolver, req)
	m.RunUntilReady()
	return reportOf(m), m.Err()
}

// ValidateParams reports every problem with the request and its overrides,
// including ones Execute would silently treat as absent.
func (e *Engine) ValidateParams(resolver *Resolver, req Request) ParamsValidation {
	errs := ValidationErrors(req.Product.Validate())
	errs = append(errs, overrideErrors(req.Overrides, true)...)

	m := NewMachine(e.cfg, resolver, req)
	m.RunUntilReady()

	if errs == nil {
		errs = []*ValidationError{}
	}
	return ParamsValidation{
		Valid:        len(errs) == 0,
		Errors:       errs,
		CanCalculate: len(errs) == 0 && m.State() == StateReady,
		Report:       reportOf(m),
	}
}

// Execute runs a calculation to completion or to the first state that needs input.
// The error is non-nil only when the calculation FAILED.
func (e *Engine) Execute(resolver *Resolver, req Request) (Outcome, error) {
	m := NewMachine(e.cfg, resolver, req)
	return e.run(m)
}

// Update re-runs a completed calculation with changes. The previous result is
// not modified.
func (e *Engine) Update(resolver *Resolver, prev *CalculationResult, ch Changes) (Outcome, error) {
	m := Resume(e.cfg, resolver, prev, ch)
	return e.run(m)
}

func (e *Engine) run(m *Machine) (Outcome, error) {
	m.Run()
	out := Outcome{Report: reportOf(m), Result: m.Result()}
	return out, m.Err()
}
