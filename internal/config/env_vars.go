package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
	baseURLVar   = "BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Storefront")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetBaseURL returns the public URL of this frontend (e.g., "https://shop.example.com")
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDuration parses a Go duration string, falling back to defaultValue when unset or invalid.
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvList splits a comma separated variable, dropping empty entries.
func GetEnvList(envVar string, defaultValue []string) []string {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return b
}
