package config

import (
	"testing"
	"time"

	"github.com/Simplici0/landedcost/internal/money"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_PATH", "PORT", "APP_ENV", "LOG_LEVEL", "REDIS_ADDR", "CATEGORY_CACHE_TTL",
		"RATE_USD_RUB", "RATE_CNY_RUB", "RATE_EUR_RUB", "SEA_CONTAINER_RATES", "FAST_DELIVERY_DAYS", "SPECIFIC_DUTY_CURRENCY"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	if cfg.DBPath != defaultDBPath || cfg.Port != defaultPort {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.IsDev() {
		t.Fatalf("default environment should be development")
	}
	if cfg.CategoryCacheTTL != defaultCategoryCacheTTL {
		t.Fatalf("ttl = %s, want %s", cfg.CategoryCacheTTL, defaultCategoryCacheTTL)
	}
	if cfg.Rates.USD != 0 || cfg.Containers != nil {
		t.Fatalf("rates and containers should be unset: %+v", cfg)
	}
	if cfg.SpecificDutyCurrency != "" {
		t.Fatalf("specific duty currency should be unset, got %q", cfg.SpecificDutyCurrency)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CATEGORY_CACHE_TTL", "90s")
	t.Setenv("RATE_USD_RUB", "92,5")
	t.Setenv("RATE_CNY_RUB", "12.7")
	t.Setenv("RATE_EUR_RUB", "-1")
	t.Setenv("SEA_CONTAINER_RATES", "20ft:33:28000:3000")
	t.Setenv("FAST_DELIVERY_DAYS", "10")
	t.Setenv("SPECIFIC_DUTY_CURRENCY", " eur ")

	cfg := Load()

	if cfg.IsDev() {
		t.Fatalf("production should not be dev")
	}
	if cfg.CategoryCacheTTL != 90*time.Second {
		t.Fatalf("ttl = %s, want 90s", cfg.CategoryCacheTTL)
	}
	if cfg.Rates.USD != 92.5 || cfg.Rates.Yuan != 12.7 {
		t.Fatalf("rates = %+v", cfg.Rates)
	}
	if cfg.Rates.EUR != 0 {
		t.Fatalf("negative rate should be dropped, got %v", cfg.Rates.EUR)
	}

	p := cfg.Pricing()
	if len(p.Containers) != 1 || p.Containers[0].FlatUSD != 3000 {
		t.Fatalf("containers = %+v", p.Containers)
	}
	if p.FastDeliveryDays != 10 {
		t.Fatalf("fast days = %d, want 10", p.FastDeliveryDays)
	}
	if p.SpecificDutyCurrency != money.EUR {
		t.Fatalf("specific duty currency = %q, want EUR", p.SpecificDutyCurrency)
	}
}

func TestLoad_SpecificDutyCurrencyMustBeMoney(t *testing.T) {
	t.Setenv("SPECIFIC_DUTY_CURRENCY", "KG")

	if got := Load().SpecificDutyCurrency; got != "" {
		t.Fatalf("non-currency unit should be ignored, got %q", got)
	}
}

func TestParseContainerRates(t *testing.T) {
	got, err := ParseContainerRates(" 20ft:33:28000:3200 , 40hc:76:26500:5100,")
	if err != nil {
		t.Fatalf("ParseContainerRates: %v", err)
	}
	if len(got) != 2 || got[1].Name != "40hc" || got[1].CapacityM3 != 76 {
		t.Fatalf("got %+v", got)
	}

	for _, bad := range []string{"", "20ft:33:28000", ":1:1:1", "20ft:x:1:1", "20ft:0:1:1"} {
		if _, err := ParseContainerRates(bad); err == nil {
			t.Fatalf("ParseContainerRates(%q) should fail", bad)
		}
	}
}
