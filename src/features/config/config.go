package config

import "github.com/contre95/posxchange/src/exchange"

// Config holds the application configuration.
type Config struct {
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Watching Watching `yaml:"watching"`
	Stores   []Store  `yaml:"stores" validate:"dive"`
	Jobs     Jobs     `yaml:"jobs"`
	Telegram Telegram `yaml:"telegram"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Watching holds the settings shared by every store watcher.
type Watching struct {
	AutoStart      bool `yaml:"auto_start"`
	DedupCacheSize int  `yaml:"dedup_cache_size" validate:"gte=0"`
	FSNotify       bool `yaml:"fsnotify"`
	DebounceMs     int  `yaml:"debounce_ms" validate:"gte=0"`
}

// Store is a watcher config plus the identity attached to its imports.
type Store struct {
	exchange.WatcherConfig `yaml:",inline"`
	POSIntegrationID       string `yaml:"pos_integration_id" json:"posIntegrationId"`
	CompanyID              string `yaml:"company_id" json:"companyId"`
	UserID                 string `yaml:"user_id" json:"userId,omitempty"`
}

// Context returns the store context of the configured store.
func (s Store) Context() exchange.StoreContext {
	return exchange.StoreContext{
		StoreID:          s.StoreID,
		POSIntegrationID: s.POSIntegrationID,
		CompanyID:        s.CompanyID,
		UserID:           s.UserID,
	}
}

type Jobs struct {
	Log      bool          `yaml:"log"`
	LogPath  string        `yaml:"log_path"`
	Webhooks WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Enabled  bool     `yaml:"enabled"`
	JobTypes []string `yaml:"job_types"`
	Command  string   `yaml:"command"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json text logfmt"`
}

type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
