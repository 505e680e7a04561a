package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 32 << 20
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = StoreMemory
	}
	if cfg.Session.DatabasePath == "" {
		cfg.Session.DatabasePath = "./data/sessions.db"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "urlmatch_session"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.CleanupInterval <= 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}
	if cfg.Display.PreviewLimit == 0 {
		cfg.Display.PreviewLimit = 10
	}
}
