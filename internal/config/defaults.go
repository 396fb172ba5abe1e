package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Tracking: TrackingConfig{
			HeartbeatSeconds: 30,
			DebounceMillis:   500,
			Timezone:         "Local",
			SeedDomains:      DefaultSeedDomains(),
		},
		Storage: StorageConfig{
			Path:       "~/.config/detox",
			SQLiteFile: "detox.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "detox.log",
			MaxSize:    10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Address: "",
		},
	}
}
