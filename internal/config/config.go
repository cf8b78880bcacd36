package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	CorsConfig
	BackendConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
}

type mainConfig struct {
	EnvVars
	Cors
	Backend
	Session
}

// New returns the environment backed configuration. A .env file in the working
// directory is loaded first when present; real environment variables win.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
