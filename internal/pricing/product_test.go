package pricing

import (
	"errors"
	"testing"
)

func TestProductValidate_Valid(t *testing.T) {
	if err := shirt().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	packed := ProductInput{
		PriceYuan: 10,
		Packing:   &Packing{UnitsPerBox: 20, BoxWeightKg: 12},
		Quantity:  5,
		Markup:    1,
	}
	if err := packed.Validate(); err != nil {
		t.Fatalf("Validate packed: %v", err)
	}
}

func TestProductValidate_ReportsEveryField(t *testing.T) {
	p := ProductInput{
		PriceYuan: -1,
		Quantity:  0,
		Markup:    0.5,
	}

	err := p.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	fields := map[string]bool{}
	for _, ve := range ValidationErrors(err) {
		fields[ve.Field] = true
	}
	for _, want := range []string{"price_yuan", "quantity", "markup", "weight_kg"} {
		if !fields[want] {
			t.Fatalf("missing error for %s, got %v", want, fields)
		}
	}
}

func TestProductValidate_PackingFieldPath(t *testing.T) {
	p := shirt()
	p.Packing = &Packing{UnitsPerBox: 0, BoxWeightKg: 5}

	errs := ValidationErrors(p.Validate())
	if len(errs) != 1 || errs[0].Field != "packing.units_per_box" {
		t.Fatalf("errors = %v, want packing.units_per_box", errs)
	}
}

func TestNewShipment_DensityVolume(t *testing.T) {
	s, err := NewShipment(shirt(), 250, testRates)
	if err != nil {
		t.Fatalf("NewShipment: %v", err)
	}

	nearlyEqual(t, "total weight", s.TotalWeightKg, 50)
	nearlyEqual(t, "volume", s.TotalVolumeM3, 0.2)
	nearlyEqual(t, "declared usd", s.DeclaredUSD, 1000)
	if !s.HasVolume {
		t.Fatalf("volume should be known from density")
	}
}

func TestNewShipment_BoxVolume(t *testing.T) {
	p := ProductInput{
		PriceYuan: 36,
		Packing:   &Packing{UnitsPerBox: 12, BoxWeightKg: 6, BoxLengthM: 0.5, BoxWidthM: 0.4, BoxHeightM: 0.5},
		Quantity:  30,
		Markup:    1.2,
	}

	s, err := NewShipment(p, 250, testRates)
	if err != nil {
		t.Fatalf("NewShipment: %v", err)
	}

	if s.Boxes != 3 {
		t.Fatalf("boxes = %d, want 3", s.Boxes)
	}
	nearlyEqual(t, "unit weight", s.UnitWeightKg, 0.5)
	nearlyEqual(t, "total weight", s.TotalWeightKg, 15)
	nearlyEqual(t, "volume", s.TotalVolumeM3, 0.3)
}

func TestNewShipment_UnknownVolume(t *testing.T) {
	s, err := NewShipment(shirt(), 0, testRates)
	if err != nil {
		t.Fatalf("NewShipment: %v", err)
	}
	if s.HasVolume {
		t.Fatalf("volume should be unknown without density or box dimensions")
	}
}

func TestNewShipment_MissingYuanRate(t *testing.T) {
	rates := testRates
	rates.Yuan = 0

	_, err := NewShipment(shirt(), 250, rates)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
