package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jgoulah/gridcast/internal/usage"
	"github.com/jgoulah/gridcast/pkg/models"
)

// Config holds the application configuration
type Config struct {
	Generation        GenerationConfig         `yaml:"generation"`
	Forecast          ForecastConfig           `yaml:"forecast,omitempty"`
	ApplianceProfiles map[string]usage.Profile `yaml:"appliance_profiles,omitempty"` // Custom or overridden appliance types
	MQTT              MQTTConfig               `yaml:"mqtt,omitempty"`
}

// GenerationConfig holds the synthetic data settings
type GenerationConfig struct {
	Days            int                `yaml:"days,omitempty"`             // Days back from now (fallback: 30)
	Start           string             `yaml:"start,omitempty"`            // YYYY-MM-DD, overrides days
	End             string             `yaml:"end,omitempty"`              // YYYY-MM-DD, default now
	IntervalMinutes int                `yaml:"interval_minutes,omitempty"` // Sampling interval (fallback: 15)
	Seed            *uint64            `yaml:"seed,omitempty"`             // Fallback: 42
	Workers         int                `yaml:"workers,omitempty"`
	Appliances      []models.Appliance `yaml:"appliances,omitempty"`
	Users           []string           `yaml:"users,omitempty"`
	Timezone        string             `yaml:"timezone,omitempty"` // IANA name (fallback: UTC)
}

// ForecastConfig holds baseline forecast settings
type ForecastConfig struct {
	Window int `yaml:"window,omitempty"` // Trailing days (fallback: 7)
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // Fallback: "gridcast"
	ClientID    string `yaml:"client_id,omitempty"`    // Fallback: "gridcast"
	Retain      bool   `yaml:"retain,omitempty"`
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDays returns the number of days to generate with a default of 30
func (c *Config) GetDays() int {
	if c.Generation.Days <= 0 {
		return 30
	}
	return c.Generation.Days
}

// GetInterval returns the sampling interval with a default of 15 minutes
func (c *Config) GetInterval() time.Duration {
	if c.Generation.IntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Generation.IntervalMinutes) * time.Minute
}

// GetSeed returns the configured seed or 42
func (c *Config) GetSeed() uint64 {
	if c.Generation.Seed == nil {
		return 42
	}
	return *c.Generation.Seed
}

// GetAppliances returns the configured appliances, defaulting to air conditioner,
// washing machine and refrigerator
func (c *Config) GetAppliances() []models.Appliance {
	if len(c.Generation.Appliances) > 0 {
		return c.Generation.Appliances
	}
	return []models.Appliance{
		{ID: 1, Name: models.AirConditioner},
		{ID: 2, Name: models.WashingMachine},
		{ID: 3, Name: models.Refrigerator},
	}
}

// GetUsers returns the configured users, defaulting to 101 through 105
func (c *Config) GetUsers() []string {
	if len(c.Generation.Users) > 0 {
		return c.Generation.Users
	}
	users := make([]string, 0, 5)
	for id := 101; id <= 105; id++ {
		users = append(users, strconv.Itoa(id))
	}
	return users
}

// GetLocation returns the configured timezone, defaulting to UTC
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Generation.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Generation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	return loc, nil
}

// GetRange returns the generation time range. Start and end dates are interpreted in loc;
// without a start, the range covers the last GetDays() days ending at now.
func (c *Config) GetRange(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	end := now.In(loc)
	if c.Generation.End != "" {
		t, err := time.ParseInLocation("2006-01-02", c.Generation.End, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing generation.end: %w", err)
		}
		end = t
	}

	start := end.AddDate(0, 0, -c.GetDays())
	if c.Generation.Start != "" {
		t, err := time.ParseInLocation("2006-01-02", c.Generation.Start, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing generation.start: %w", err)
		}
		start = t
	}

	return start, end, nil
}

// GetWindow returns the baseline window with a default of 7 days
func (c *Config) GetWindow() int {
	if c.Forecast.Window <= 0 {
		return 7
	}
	return c.Forecast.Window
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "gridcast"
func (c *MQTTConfig) GetTopicPrefix() string {
	if c.TopicPrefix == "" {
		return "gridcast"
	}
	return c.TopicPrefix
}

// GetClientID returns the MQTT client id with a default of "gridcast"
func (c *MQTTConfig) GetClientID() string {
	if c.ClientID == "" {
		return "gridcast"
	}
	return c.ClientID
}

// Registry returns the built-in usage models plus the configured profiles
func (c *Config) Registry() (*usage.Registry, error) {
	r := usage.DefaultRegistry()
	if err := r.RegisterProfiles(c.ApplianceProfiles); err != nil {
		return nil, fmt.Errorf("registering appliance profiles: %w", err)
	}
	return r, nil
}
