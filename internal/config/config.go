package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

// Config holds all environment-driven settings for the service.
type Config struct {
	AbendTable          string `env:"ABEND_TABLE,default=abend-records"`
	SOPTable            string `env:"SOP_TABLE,default=sop-records"`
	RemediationQueueURL string `env:"REMEDIATION_QUEUE_URL"`
	MetricsNamespace    string `env:"METRICS_NAMESPACE,default=AbendTracker"`
	AuthTokenSecretName string `env:"AUTH_TOKEN_SECRET_NAME"`
	AuthToken           string `env:"AUTH_TOKEN"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`
	RunLocal            bool   `env:"RUN_LOCAL,default=false"`
	Port                int    `env:"PORT,default=8080"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
