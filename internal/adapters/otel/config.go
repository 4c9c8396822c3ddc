package otel

import "github.com/kelseyhightower/envconfig"

// Config holds OTLP exporter configuration, read from MTRANSCRIPT_OTEL_*.
type Config struct {
	Endpoint string `envconfig:"ENDPOINT"`
	Enabled  bool   `envconfig:"ENABLED"`
	Insecure bool   `envconfig:"INSECURE"`
}

// LoadConfig reads MTRANSCRIPT_OTEL_ENDPOINT, MTRANSCRIPT_OTEL_ENABLED and
// MTRANSCRIPT_OTEL_INSECURE.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("MTRANSCRIPT_OTEL", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
