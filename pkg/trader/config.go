package trader

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the fleet composition for one simulation session
type Config struct {
	// Number of agents per profile
	NumConservative int
	NumAggressive   int
	NumDayTraders   int

	// SessionOrderCap overrides every profile's per-session order cap.
	// Zero keeps the profile defaults.
	SessionOrderCap int
}

// LoadConfig loads the fleet configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("TRADER_CONSERVATIVE", 2)
	v.SetDefault("TRADER_AGGRESSIVE", 2)
	v.SetDefault("TRADER_DAY_TRADERS", 2)
	v.SetDefault("TRADER_SESSION_ORDER_CAP", 0)

	// Allow environment variables
	v.AutomaticEnv()

	cfg := &Config{
		NumConservative: v.GetInt("TRADER_CONSERVATIVE"),
		NumAggressive:   v.GetInt("TRADER_AGGRESSIVE"),
		NumDayTraders:   v.GetInt("TRADER_DAY_TRADERS"),
		SessionOrderCap: v.GetInt("TRADER_SESSION_ORDER_CAP"),
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.NumConservative < 0 || cfg.NumAggressive < 0 || cfg.NumDayTraders < 0 {
		return fmt.Errorf("fleet sizes must not be negative")
	}
	if cfg.NumConservative+cfg.NumAggressive+cfg.NumDayTraders == 0 {
		return fmt.Errorf("fleet must contain at least one trader")
	}
	if cfg.SessionOrderCap < 0 {
		return fmt.Errorf("TRADER_SESSION_ORDER_CAP must not be negative")
	}
	return nil
}

// FleetSize returns the total number of agents
func (c *Config) FleetSize() int {
	return c.NumConservative + c.NumAggressive + c.NumDayTraders
}

// FleetProfiles expands the composition into an ordered profile list
func (c *Config) FleetProfiles() []Profile {
	profiles := make([]Profile, 0, c.FleetSize())
	for i := 0; i < c.NumConservative; i++ {
		profiles = append(profiles, Conservative())
	}
	for i := 0; i < c.NumAggressive; i++ {
		profiles = append(profiles, Aggressive())
	}
	for i := 0; i < c.NumDayTraders; i++ {
		profiles = append(profiles, DayTrader())
	}
	return profiles
}
