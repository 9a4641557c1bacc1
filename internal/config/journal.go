package config

// JournalConfig corresponds to journal.cfg: the optional Postgres
// journal of scans, tracking-profile uploads, and limit discoveries.
// Disabled by default; a site without a database runs unchanged.
type JournalConfig struct {
	Enabled bool `json:"enabled"`

	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`

	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`
}

// DefaultJournalConfig returns a disabled journal pointing at a local
// Postgres.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Host:         "localhost",
		Port:         5432,
		Database:     "rigel",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
}

// LoadJournalConfig reads journal.cfg-equivalent JSON from path.
func LoadJournalConfig(path string) (JournalConfig, error) {
	cfg := DefaultJournalConfig()
	if err := loadJSON(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
