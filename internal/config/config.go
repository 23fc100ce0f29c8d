// Package config loads the fixed, flat set of environment variables
// spec.md §6 names into a typed struct. There is no file layering or
// live reload here: the variable list is exhaustive and fixed, so a
// direct os.Getenv read is all this concern needs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	DatabaseURL string

	RuntimeHost      string
	RuntimeNamespace string
	RuntimeTaskQueue string

	ActionServiceURL          string
	ActionServiceAuthUser     string
	ActionServiceAuthPassword string
	ExternalActionServiceURL  string

	SecretKey              string
	AccessTokenExpireHours int

	LLMAPIKey     string
	LLMEndpoint   string
	LLMDeployment string
	LLMAPIVersion string

	CORSOrigins []string
}

// Load reads every variable spec.md §6 names from the process
// environment. Required variables missing from the environment are
// reported together, not one at a time, matching C2's "no short-circuit"
// validation style.
func Load() (Config, error) {
	var missing []string
	require := func(name string) string {
		v := os.Getenv(name)
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	cfg := Config{
		DatabaseURL: require("DATABASE_URL"),

		RuntimeHost:      require("RUNTIME_HOST"),
		RuntimeNamespace: require("RUNTIME_NAMESPACE"),
		RuntimeTaskQueue: require("RUNTIME_TASK_QUEUE"),

		ActionServiceURL:          require("ACTION_SERVICE_URL"),
		ActionServiceAuthUser:     os.Getenv("ACTION_SERVICE_AUTH_USER"),
		ActionServiceAuthPassword: os.Getenv("ACTION_SERVICE_AUTH_PASSWORD"),
		ExternalActionServiceURL:  os.Getenv("EXTERNAL_ACTION_SERVICE_URL"),

		SecretKey: require("SECRET_KEY"),

		LLMAPIKey:     require("LLM_API_KEY"),
		LLMEndpoint:   os.Getenv("LLM_ENDPOINT"),
		LLMDeployment: os.Getenv("LLM_DEPLOYMENT"),
		LLMAPIVersion: os.Getenv("LLM_API_VERSION"),
	}

	const defaultExpireHours = 24
	cfg.AccessTokenExpireHours = defaultExpireHours
	if raw := os.Getenv("ACCESS_TOKEN_EXPIRE_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			missing = append(missing, "ACCESS_TOKEN_EXPIRE_HOURS (not an integer)")
		} else {
			cfg.AccessTokenExpireHours = hours
		}
	}

	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
			}
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
