package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Simplici0/landedcost/internal/money"
	"github.com/Simplici0/landedcost/internal/pricing"
)

const (
	defaultDBPath           = "./dev.db"
	defaultPort             = "8080"
	defaultAppEnv           = "development"
	defaultLogLevel         = "info"
	defaultCategoryCacheTTL = 5 * time.Minute
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath               string
	Port                 string
	AppEnv               string
	LogLevel             string
	RedisAddr            string
	CategoryCacheTTL     time.Duration
	Rates                money.Rates
	Containers           []pricing.ContainerRate
	FastDeliveryDays     int
	// SpecificDutyCurrency is empty unless specific duty rates are quoted in
	// a currency other than the declared value's.
	SpecificDutyCurrency money.Unit
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "", "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Pricing returns the engine configuration.
func (c Config) Pricing() pricing.Config {
	return pricing.Config{
		Rates:                c.Rates,
		Containers:           c.Containers,
		FastDeliveryDays:     c.FastDeliveryDays,
		SpecificDutyCurrency: c.SpecificDutyCurrency,
	}
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		DBPath:    os.Getenv("DB_PATH"),
		Port:      os.Getenv("PORT"),
		AppEnv:    os.Getenv("APP_ENV"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = defaultAppEnv
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.CategoryCacheTTL = defaultCategoryCacheTTL
	if raw := os.Getenv("CATEGORY_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl < 0 {
			log.Printf("warning: CATEGORY_CACHE_TTL=%q is invalid, using %s", raw, defaultCategoryCacheTTL)
		} else {
			cfg.CategoryCacheTTL = ttl
		}
	}

	cfg.Rates.USD = rateFromEnv("RATE_USD_RUB")
	cfg.Rates.Yuan = rateFromEnv("RATE_CNY_RUB")
	cfg.Rates.EUR = rateFromEnv("RATE_EUR_RUB")

	if raw := os.Getenv("SEA_CONTAINER_RATES"); raw != "" {
		containers, err := ParseContainerRates(raw)
		if err != nil {
			log.Printf("warning: SEA_CONTAINER_RATES ignored: %v", err)
		} else {
			cfg.Containers = containers
		}
	}

	if raw := os.Getenv("FAST_DELIVERY_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			log.Printf("warning: FAST_DELIVERY_DAYS=%q is invalid, using %d", raw, pricing.DefaultFastDeliveryDays)
		} else {
			cfg.FastDeliveryDays = days
		}
	}

	if raw := os.Getenv("SPECIFIC_DUTY_CURRENCY"); raw != "" {
		unit := money.Unit(strings.ToUpper(strings.TrimSpace(raw)))
		if !unit.IsCurrency() {
			log.Printf("warning: SPECIFIC_DUTY_CURRENCY=%q is not a currency, using %s", raw, money.USD)
		} else {
			cfg.SpecificDutyCurrency = unit
		}
	}

	return cfg
}

func rateFromEnv(key string) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		log.Printf("warning: %s is not set", key)
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || v <= 0 {
		log.Printf("warning: %s=%q is not a positive number", key, raw)
		return 0
	}
	return v
}

// ParseContainerRates parses "name:capacity_m3:max_payload_kg:flat_usd" entries
// separated by commas, e.g. "20ft:33:28000:3200,40ft:67:26500:4800".
func ParseContainerRates(raw string) ([]pricing.ContainerRate, error) {
	var out []pricing.ContainerRate
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("container %q: want name:capacity_m3:max_payload_kg:flat_usd", entry)
		}

		c := pricing.ContainerRate{Name: strings.TrimSpace(parts[0])}
		if c.Name == "" {
			return nil, fmt.Errorf("container %q: name is required", entry)
		}
		values := []*float64{&c.CapacityM3, &c.MaxPayloadKg, &c.FlatUSD}
		for i, dst := range values {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
			if err != nil || v <= 0 {
				return nil, fmt.Errorf("container %q: %q must be a positive number", entry, parts[i+1])
			}
			*dst = v
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no containers in %q", raw)
	}
	return out, nil
}
