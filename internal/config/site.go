package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SiteConfig corresponds to telsched.cfg: site location and stow
// position.
type SiteConfig struct {
	Longitude   float64 `json:"longitude"` // +East, degrees
	Latitude    float64 `json:"latitude"`  // +North, degrees
	Elevation   float64 `json:"elevation"` // meters
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`

	StowAlt    float64 `json:"stow_alt"` // degrees
	StowAz     float64 `json:"stow_az"`  // degrees
	StowFilter string  `json:"stow_filter"`

	Banner string `json:"banner"`
}

// DefaultSiteConfig returns defaults with latitude/longitude at zero;
// every deployment must override them.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Temperature: 10.0,
		Pressure:    1013.0,
		StowAlt:     85.0,
		StowAz:      0.0,
	}
}

// LoadSiteConfig reads telsched.cfg-equivalent JSON from path.
func LoadSiteConfig(path string) (SiteConfig, error) {
	cfg := DefaultSiteConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func saveJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
