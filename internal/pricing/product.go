package pricing

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/landedcost/internal/money"
)

// Packing describes how units are boxed. Box dimensions are in meters.
type Packing struct {
	UnitsPerBox int     `json:"units_per_box" validate:"gt=0"`
	BoxWeightKg float64 `json:"box_weight_kg" validate:"gt=0"`
	BoxLengthM  float64 `json:"box_length_m" validate:"gte=0"`
	BoxWidthM   float64 `json:"box_width_m" validate:"gte=0"`
	BoxHeightM  float64 `json:"box_height_m" validate:"gte=0"`
}

// ProductInput is the product being imported.
type ProductInput struct {
	Name      string   `json:"name"`
	PriceYuan float64  `json:"price_yuan" validate:"gte=0"`
	WeightKg  float64  `json:"weight_kg,omitempty" validate:"gte=0"`
	Packing   *Packing `json:"packing,omitempty"`
	Quantity  int      `json:"quantity" validate:"gt=0"`
	Markup    float64  `json:"markup" validate:"gte=1"`
}

// UnitWeightKg returns the unit weight, derived from packing when present.
func (p ProductInput) UnitWeightKg() float64 {
	if p.Packing != nil && p.Packing.UnitsPerBox > 0 {
		return p.Packing.BoxWeightKg / float64(p.Packing.UnitsPerBox)
	}
	return p.WeightKg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the product invariants and returns every violation.
func (p ProductInput) Validate() error {
	var list []*ValidationError

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate product: %w", err)
		}
		for _, fe := range fieldErrs {
			list = append(list, &ValidationError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
	}

	if p.Packing == nil && p.WeightKg <= 0 {
		list = append(list, invalid("weight_kg", "must be greater than 0 when packing is not given"))
	}

	return joinValidation(list)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Shipment holds the physical and value totals of a product order.
type Shipment struct {
	Quantity      float64 `json:"quantity"`
	UnitWeightKg  float64 `json:"unit_weight_kg"`
	TotalWeightKg float64 `json:"total_weight_kg"`
	TotalVolumeM3 float64 `json:"total_volume_m3"`
	HasVolume     bool    `json:"has_volume"`
	Boxes         int     `json:"boxes,omitempty"`
	PurchaseYuan  float64 `json:"-"`
	DeclaredUSD   float64 `json:"-"`
}

// NewShipment derives totals from the product. Volume comes from box geometry
// when all dimensions are known, otherwise from the category density.
func NewShipment(p ProductInput, density float64, rates money.Rates) (Shipment, error) {
	qty := float64(p.Quantity)
	s := Shipment{
		Quantity:     qty,
		UnitWeightKg: p.UnitWeightKg(),
		PurchaseYuan: p.PriceYuan * qty,
	}
	s.TotalWeightKg = s.UnitWeightKg * qty

	if pk := p.Packing; pk != nil && pk.BoxLengthM > 0 && pk.BoxWidthM > 0 && pk.BoxHeightM > 0 {
		s.Boxes = int(math.Ceil(qty / float64(pk.UnitsPerBox)))
		s.TotalVolumeM3 = float64(s.Boxes) * money.BoxVolume(pk.BoxLengthM, pk.BoxWidthM, pk.BoxHeightM)
		s.HasVolume = true
	} else if density > 0 {
		s.TotalVolumeM3 = s.TotalWeightKg / density
		s.HasVolume = true
	}

	declared, err := money.Convert(s.PurchaseYuan, money.Yuan, money.USD, rates)
	if err != nil {
		return Shipment{}, &ConfigurationError{Err: err}
	}
	s.DeclaredUSD = declared
	return s, nil
}
