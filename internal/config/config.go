package config

type Config interface {
	EnvConfig
	GoogleConfig
	OtpConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetProviderSigningKey() string
}

type mainConfig struct {
	EnvVars
	Google
	Otp
}

func New() Config {
	return mainConfig{}
}
