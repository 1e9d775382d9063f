package money

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

var testRates = Rates{USD: 90, Yuan: 12.5, EUR: 100}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestConvert_CurrencyCrossRate(t *testing.T) {
	got, err := Convert(720, Yuan, USD, testRates)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	nearlyEqual(t, "yuan->usd", got, 100)

	got, err = Convert(100, USD, RUB, testRates)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	nearlyEqual(t, "usd->rub", got, 9000)

	got, err = Convert(1, EUR, USD, testRates)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	nearlyEqual(t, "eur->usd", got, 100.0/90.0)
}

func TestConvert_SameUnitNeedsNoRate(t *testing.T) {
	got, err := Convert(42, USD, USD, Rates{})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	nearlyEqual(t, "usd->usd", got, 42)
}

func TestConvert_InvalidRate(t *testing.T) {
	for _, rates := range []Rates{
		{USD: 90},
		{USD: 90, Yuan: -1},
	} {
		_, err := Convert(10, Yuan, USD, rates)
		if !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("expected ErrInvalidRate for %+v, got %v", rates, err)
		}
		var rateErr *InvalidRateError
		if !errors.As(err, &rateErr) || rateErr.Currency != Yuan {
			t.Fatalf("expected InvalidRateError for YUAN, got %v", err)
		}
	}
}

func TestConvert_PhysicalUnits(t *testing.T) {
	got, err := Convert(2500, G, KG, testRates)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	nearlyEqual(t, "g->kg", got, 2.5)

	if _, err := Convert(1, KG, M3, testRates); !errors.Is(err, ErrIncompatibleUnits) {
		t.Fatalf("expected ErrIncompatibleUnits, got %v", err)
	}
	if _, err := Convert(1, KG, USD, testRates); !errors.Is(err, ErrIncompatibleUnits) {
		t.Fatalf("expected ErrIncompatibleUnits, got %v", err)
	}
	if _, err := Convert(1, Unit("LB"), KG, testRates); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestBoxVolume(t *testing.T) {
	nearlyEqual(t, "volume", BoxVolume(0.5, 0.4, 0.3), 0.06)
}

func TestRound2(t *testing.T) {
	nearlyEqual(t, "half up", Round2(1.005), 1.01)
	nearlyEqual(t, "negative", Round2(-2.345), -2.35)
	nearlyEqual(t, "plain", Round2(3.14159), 3.14)
}

func TestAmountJSONRoundsAtPresentation(t *testing.T) {
	amount, err := FromUSD(10.0/3.0, testRates)
	if err != nil {
		t.Fatalf("FromUSD: %v", err)
	}
	nearlyEqual(t, "full precision usd", amount.USD, 10.0/3.0)

	raw, err := json.Marshal(amount)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"yuan":24,"usd":3.33,"rub":300}`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestRequire(t *testing.T) {
	if err := testRates.Require(USD, Yuan, RUB); err != nil {
		t.Fatalf("Require: %v", err)
	}
	if err := (Rates{USD: 90}).Require(USD, EUR); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}
