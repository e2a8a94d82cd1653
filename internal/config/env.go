package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is prepended (with an underscore) to every field's
// environment variable name.
const envPrefix = "TOOLPIN"

// EnvConfig is the process-environment surface: every TOOLPIN_*
// variable the system reads, parsed in one place rather than through
// scattered os.Getenv calls.
type EnvConfig struct {
	// Home overrides the default home directory (TOOLPIN_HOME).
	Home string `envconfig:"HOME"`
	// Bypass short-circuits all shim dispatch when non-empty
	// (TOOLPIN_BYPASS).
	Bypass string `envconfig:"BYPASS"`
	// LogLevel selects stderr log verbosity (TOOLPIN_LOGLEVEL).
	LogLevel string `envconfig:"LOGLEVEL"`
	// FeaturePnpm switches pnpm dispatch on when non-empty
	// (TOOLPIN_FEATURE_PNPM).
	FeaturePnpm string `envconfig:"FEATURE_PNPM"`
}

// Env parses the TOOLPIN_* environment.
func Env() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment variable: %w", err)
	}
	return cfg, nil
}
