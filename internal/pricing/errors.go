package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrMissingRate          = errors.New("missing rate")
	ErrRouteUnavailable     = errors.New("route unavailable")
	ErrConfiguration        = errors.New("invalid configuration")
	ErrNoPriceableRoutes    = errors.New("no priceable routes")
	ErrCategoryUndetermined = errors.New("category undetermined")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func joinValidation(list []*ValidationError) error {
	if len(list) == 0 {
		return nil
	}
	errs := make([]error, len(list))
	for i, e := range list {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ValidationErrors extracts every ValidationError from a (possibly joined) error.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*ValidationError
		for _, e := range joined.Unwrap() {
			out = append(out, ValidationErrors(e)...)
		}
		return out
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return []*ValidationError{v}
	}
	return nil
}

// MissingRateError lists the fields a route still needs before it can be priced.
type MissingRateError struct {
	Route  RouteKind
	Fields []string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("route %s is missing %s", e.Route, strings.Join(e.Fields, ", "))
}

func (e *MissingRateError) Unwrap() error {
	return ErrMissingRate
}

// RouteUnavailableError explains why a single route was dropped from comparison.
type RouteUnavailableError struct {
	Route  RouteKind
	Reason string
}

func (e *RouteUnavailableError) Error() string {
	return fmt.Sprintf("route %s unavailable: %s", e.Route, e.Reason)
}

func (e *RouteUnavailableError) Unwrap() error {
	return ErrRouteUnavailable
}

// ConfigurationError is fatal for the whole calculation.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}
