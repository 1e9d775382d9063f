package pricing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// OptionalFloat is a numeric override that may arrive as a JSON number, as text,
// or not at all. Empty or unparsable text is absent; Raw keeps the original input.
type OptionalFloat struct {
	Value float64
	Set   bool
	Raw   string
}

// Some returns a present OptionalFloat.
func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Set: true, Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// ParseOptionalFloat parses text leniently. A decimal comma is accepted.
func ParseOptionalFloat(s string) OptionalFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptionalFloat{}
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return OptionalFloat{Raw: s}
	}
	return OptionalFloat{Value: v, Set: true, Raw: s}
}

// Get returns the value and whether it is present.
func (o OptionalFloat) Get() (float64, bool) {
	return o.Value, o.Set
}

// Unparsable reports text that was supplied but could not be read as a number.
func (o OptionalFloat) Unparsable() bool {
	return !o.Set && o.Raw != ""
}

func (o *OptionalFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = OptionalFloat{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*o = OptionalFloat{Raw: string(b)}
			return nil
		}
		*o = ParseOptionalFloat(s)
		return nil
	}
	*o = ParseOptionalFloat(string(b))
	return nil
}

func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Override holds user-supplied rates for one route. Only present fields override.
type Override struct {
	LogisticsRate OptionalFloat `json:"logistics_rate"`
	DutyType      string        `json:"duty_type,omitempty"`
	DutyRate      OptionalFloat `json:"duty_rate"`
	SpecificRate  OptionalFloat `json:"specific_rate"`
	VATRate       OptionalFloat `json:"vat_rate"`
}

// Empty reports whether the override supplies no usable field.
func (o *Override) Empty() bool {
	if o == nil {
		return true
	}
	_, hasType := ParseDutyType(o.DutyType)
	return !o.LogisticsRate.Set && !hasType && !o.DutyRate.Set && !o.SpecificRate.Set && !o.VATRate.Set
}

// EffectiveRouteParams are the rates a route is priced with after merging.
// Nil fields are not applicable.
type EffectiveRouteParams struct {
	LogisticsRate *float64 `json:"logistics_rate"`
	DutyType      DutyType `json:"duty_type,omitempty"`
	DutyRate      *float64 `json:"duty_rate,omitempty"`
	SpecificRate  *float64 `json:"specific_rate,omitempty"`
	VATRate       *float64 `json:"vat_rate,omitempty"`
}

// Merge applies override on top of baseline field by field. Either may be nil.
func Merge(kind RouteKind, baseline *RouteBaseline, override *Override) EffectiveRouteParams {
	var p EffectiveRouteParams
	if baseline != nil {
		p = EffectiveRouteParams{
			LogisticsRate: copyFloat(baseline.LogisticsRate),
			DutyType:      baseline.DutyType,
			DutyRate:      copyFloat(baseline.DutyRate),
			SpecificRate:  copyFloat(baseline.SpecificRate),
			VATRate:       copyFloat(baseline.VATRate),
		}
	}

	if override != nil {
		if v, ok := override.LogisticsRate.Get(); ok {
			p.LogisticsRate = Float(v)
		}
		if dt, ok := ParseDutyType(override.DutyType); ok {
			p.DutyType = dt
		}
		if v, ok := override.DutyRate.Get(); ok {
			p.DutyRate = Float(v)
		}
		if v, ok := override.SpecificRate.Get(); ok {
			p.SpecificRate = Float(v)
		}
		if v, ok := override.VATRate.Get(); ok {
			p.VATRate = Float(v)
		}
	}

	if kind.DutyFree() {
		p.DutyType, p.DutyRate, p.SpecificRate, p.VATRate = "", nil, nil, nil
	}
	return p
}

// dutyType resolves the duty type, inferring it from the rates present when
// none was chosen explicitly.
func (p EffectiveRouteParams) dutyType() DutyType {
	if p.DutyType != "" {
		return p.DutyType
	}
	switch {
	case p.DutyRate != nil && p.SpecificRate != nil:
		return DutyCombined
	case p.DutyRate != nil:
		return DutyPercent
	case p.SpecificRate != nil:
		return DutySpecific
	default:
		return ""
	}
}

// MissingFields lists the fields the route needs before it can be priced.
func (p EffectiveRouteParams) MissingFields(kind RouteKind) []string {
	var missing []string
	if p.LogisticsRate == nil {
		missing = append(missing, FieldLogisticsRate)
	}
	if kind.DutyFree() {
		return missing
	}
	switch p.DutyType {
	case DutyPercent:
		if p.DutyRate == nil {
			missing = append(missing, FieldDutyRate)
		}
	case DutySpecific:
		if p.SpecificRate == nil {
			missing = append(missing, FieldSpecificRate)
		}
	case DutyCombined:
		if p.DutyRate == nil {
			missing = append(missing, FieldDutyRate)
		}
		if p.SpecificRate == nil {
			missing = append(missing, FieldSpecificRate)
		}
	}
	return missing
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}
