// Package config loads the daemon's JSON config files. The legacy
// daemon read six separate text .cfg files (telsched.cfg,
// telescoped.cfg, home.cfg, focus.cfg, filter.cfg, dome.cfg); this
// package keeps the same one-file-per-concern split but loads each as
// JSON with a typed struct and a Default/Load pair per concern.
package config

import "path/filepath"

// Config aggregates every .cfg-equivalent file under one config
// directory, assembled by LoadAll the way telescoped.c's startup reads
// all six files before entering the main loop.
type Config struct {
	Site       SiteConfig
	Telescoped TelescopedConfig
	Home       HomeConfig
	Focus      FocusConfig
	Filter     FilterConfig
	FocusTemp  FocusTempTable
	Dome       DomeConfig
	Journal    JournalConfig
	API        APIConfig
}

// LoadAll reads telsched.json, telescoped.json, home.json, focus.json,
// filter.json and dome.json from dir, applying defaults for any file
// that does not yet exist (a fresh install before first commissioning).
func LoadAll(dir string) (Config, error) {
	var cfg Config
	var err error

	if cfg.Site, err = LoadSiteConfig(filepath.Join(dir, "telsched.json")); err != nil {
		return cfg, err
	}
	if cfg.Telescoped, err = LoadTelescopedConfig(filepath.Join(dir, "telescoped.json")); err != nil {
		return cfg, err
	}
	if cfg.Home, err = LoadHomeConfig(filepath.Join(dir, "home.json")); err != nil {
		return cfg, err
	}
	if cfg.Focus, err = LoadFocusConfig(filepath.Join(dir, "focus.json")); err != nil {
		return cfg, err
	}
	if cfg.Filter, err = LoadFilterConfig(filepath.Join(dir, "filter.json")); err != nil {
		return cfg, err
	}
	if cfg.FocusTemp, err = LoadFocusTempTable(filepath.Join(dir, "FocusTemp.json")); err != nil {
		return cfg, err
	}
	if cfg.Dome, err = LoadDomeConfig(filepath.Join(dir, "dome.json")); err != nil {
		return cfg, err
	}
	if cfg.Journal, err = LoadJournalConfig(filepath.Join(dir, "journal.json")); err != nil {
		return cfg, err
	}
	if cfg.API, err = LoadAPIConfig(filepath.Join(dir, "api.json")); err != nil {
		return cfg, err
	}
	return cfg, nil
}
