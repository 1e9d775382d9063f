package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit identifies a currency or a physical measurement unit.
type Unit string

const (
	Yuan Unit = "YUAN"
	USD  Unit = "USD"
	RUB  Unit = "RUB"
	EUR  Unit = "EUR"

	KG Unit = "KG"
	G  Unit = "G"
	M3 Unit = "M3"
)

// Local is the currency in which local (domestic) costs are expressed.
const Local = RUB

var (
	ErrInvalidRate       = errors.New("invalid exchange rate")
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrIncompatibleUnits = errors.New("incompatible units")
)

type dimension int

const (
	dimUnknown dimension = iota
	dimMoney
	dimMass
	dimVolume
)

func (u Unit) dimension() dimension {
	switch u {
	case Yuan, USD, RUB, EUR:
		return dimMoney
	case KG, G:
		return dimMass
	case M3:
		return dimVolume
	default:
		return dimUnknown
	}
}

// IsCurrency reports whether u is a money unit.
func (u Unit) IsCurrency() bool {
	return u.dimension() == dimMoney
}

// InvalidRateError reports a missing, zero or negative exchange rate.
type InvalidRateError struct {
	Currency Unit
	Value    float64
}

func (e *InvalidRateError) Error() string {
	if e.Value == 0 {
		return fmt.Sprintf("exchange rate for %s is missing", e.Currency)
	}
	return fmt.Sprintf("exchange rate for %s must be positive, got %v", e.Currency, e.Value)
}

func (e *InvalidRateError) Unwrap() error {
	return ErrInvalidRate
}

// Rates holds exchange rates as rubles per one unit of each foreign currency.
// The ruble is the local currency and always converts at 1.
type Rates struct {
	USD  float64 `json:"usd_rub"`
	Yuan float64 `json:"cny_rub"`
	EUR  float64 `json:"eur_rub"`
}

func (r Rates) rubPer(u Unit) (float64, error) {
	var v float64
	switch u {
	case RUB:
		return 1, nil
	case USD:
		v = r.USD
	case Yuan:
		v = r.Yuan
	case EUR:
		v = r.EUR
	default:
		return 0, fmt.Errorf("%w: %q is not a currency", ErrUnknownUnit, u)
	}
	if v <= 0 {
		return 0, &InvalidRateError{Currency: u, Value: v}
	}
	return v, nil
}

// Require checks that a usable rate exists for every listed currency.
func (r Rates) Require(currencies ...Unit) error {
	for _, c := range currencies {
		if _, err := r.rubPer(c); err != nil {
			return err
		}
	}
	return nil
}

var massInKG = map[Unit]float64{KG: 1, G: 0.001}

// Convert converts amount between two units of the same dimension.
// Currency conversion goes through the ruble cross rate.
func Convert(amount float64, from, to Unit, rates Rates) (float64, error) {
	fd, td := from.dimension(), to.dimension()
	if fd == dimUnknown {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	if td == dimUnknown {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if fd != td {
		return 0, fmt.Errorf("%w: %s to %s", ErrIncompatibleUnits, from, to)
	}
	if from == to {
		return amount, nil
	}

	switch fd {
	case dimMoney:
		fromRate, err := rates.rubPer(from)
		if err != nil {
			return 0, err
		}
		toRate, err := rates.rubPer(to)
		if err != nil {
			return 0, err
		}
		return amount * fromRate / toRate, nil
	case dimMass:
		return amount * massInKG[from] / massInKG[to], nil
	default:
		return amount, nil
	}
}

// BoxVolume returns the volume in cubic meters of a box measured in meters.
func BoxVolume(length, width, height float64) float64 {
	return length * width * height
}

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Amount is one monetary figure expressed in yuan, dollars and rubles.
// Values keep full precision; JSON encoding rounds to two decimals.
type Amount struct {
	Yuan float64 `json:"yuan"`
	USD  float64 `json:"usd"`
	RUB  float64 `json:"rub"`
}

// FromUSD expresses a dollar figure in every presentation currency.
func FromUSD(usd float64, rates Rates) (Amount, error) {
	yuan, err := Convert(usd, USD, Yuan, rates)
	if err != nil {
		return Amount{}, err
	}
	rub, err := Convert(usd, USD, RUB, rates)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Yuan: yuan, USD: usd, RUB: rub}, nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	type rounded Amount
	return json.Marshal(rounded{
		Yuan: Round2(a.Yuan),
		USD:  Round2(a.USD),
		RUB:  Round2(a.RUB),
	})
}
