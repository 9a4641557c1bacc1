package config

// APIConfig corresponds to api.cfg: the read-only HTTP status API, its
// websocket stream, and the JWT-gated admin endpoints. Disabled by
// default; the fifo command plane is always available regardless.
type APIConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`

	// JWTSecret signs admin tokens. Empty disables the /admin routes
	// even when the status API is enabled.
	JWTSecret     string `json:"jwt_secret"`
	TokenHours    int    `json:"token_hours"`
	AdminUser     string `json:"admin_user"`
	AdminPassHash string `json:"admin_pass_hash"` // bcrypt hash

	// CommandsPerSec caps fifo command ingestion per device; zero means
	// the default of 10/s with a burst of 20.
	CommandsPerSec float64 `json:"commands_per_sec"`
	CommandBurst   int     `json:"command_burst"`
}

// DefaultAPIConfig returns a disabled API on the conventional port.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		Port:           8080,
		TokenHours:     24,
		CommandsPerSec: 10,
		CommandBurst:   20,
	}
}

// LoadAPIConfig reads api.cfg-equivalent JSON from path.
func LoadAPIConfig(path string) (APIConfig, error) {
	cfg := DefaultAPIConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
