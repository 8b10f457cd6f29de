package config

import "os"

const (
	appNameVar    = "APP_NAME"
	signingKeyVar = "PROVIDER_SIGNING_KEY"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Auth Flow")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetProviderSigningKey returns the HMAC key the simulated provider
// signs ID tokens with.
func (EnvVars) GetProviderSigningKey() string {
	return GetEnv(signingKeyVar, "dev-only-signing-key")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
