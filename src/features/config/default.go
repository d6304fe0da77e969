package config

var defaultConfig = Config{
	Logger: Logger{
		Enabled: true,
		Level:   "info",
		Format:  "text",
	},
	Server: Server{
		PrintRoutes: false,
		Port:        3636,
	},
	Database: Database{
		Path: "./posxchange.db",
	},
	Watching: Watching{
		AutoStart:      true,
		DedupCacheSize: 4096,
		FSNotify:       false,
		DebounceMs:     2000,
	},
	Stores: []Store{},
	Jobs: Jobs{
		Log:     true,
		LogPath: "./logs/jobs",
		Webhooks: WebhookConfig{
			Enabled:  false,
			JobTypes: []string{},
			Command:  "",
		},
	},
	Telegram: Telegram{
		Enabled: false,
		Token:   "", // Can be obtained with https://t.me/BotFather
		ChatID:  0,
	},
	Metrics: Metrics{
		Enabled: true,
		Path:    "/metrics",
	},
}

// createDefaultConfig returns a copy of the default configuration.
func createDefaultConfig() *Config {
	cfg := defaultConfig
	cfg.Stores = []Store{}
	cfg.Jobs.Webhooks.JobTypes = []string{}
	return &cfg
}
