package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            int    `envconfig:"PORT" default:"8080"`
	AllowedOrigins  string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	HistoryCapacity int    `envconfig:"HISTORY_CAPACITY" default:"100"`
	MergeWindowMS   int    `envconfig:"MERGE_WINDOW_MS" default:"500"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
