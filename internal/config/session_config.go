package config

import "time"

type SessionConfig interface {
	GetHydrationWait() time.Duration
	GetPreLoginPathTTL() time.Duration
	GetSessionStorage() string
	GetSessionDBPath() string
	GetSessionSealKey() string
	GetRedisAddr() string
	GetClientCookieMaxAge() time.Duration
	GetSessionIdleTimeout() time.Duration
	GetSessionSweepInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetHydrationWait bounds how long a guarded request waits for the session store to load.
func (Session) GetHydrationWait() time.Duration {
	return GetEnvDuration("SESSION_HYDRATION_WAIT", 2*time.Second)
}

func (Session) GetPreLoginPathTTL() time.Duration {
	return GetEnvDuration("PRELOGIN_PATH_TTL", 10*time.Minute)
}

// GetSessionStorage selects the durable storage backend: "memory" or "sqlite".
func (Session) GetSessionStorage() string {
	return GetEnv("SESSION_STORAGE", "sqlite")
}

func (Session) GetSessionDBPath() string {
	return GetEnv("SESSION_DB_PATH", EnvVars{}.GetDataFolder()+"/sessions.db")
}

// GetSessionSealKey returns the secret used to seal persisted sessions. Empty disables sealing.
func (Session) GetSessionSealKey() string {
	return GetEnv("SESSION_SEAL_KEY", "")
}

// GetRedisAddr returns the Redis address for the pre-login stash. Empty keeps it in memory.
func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Session) GetClientCookieMaxAge() time.Duration {
	return GetEnvDuration("CLIENT_COOKIE_MAX_AGE", 30*24*time.Hour)
}

// GetSessionIdleTimeout is how long a browser's in-memory sessions live without a request.
func (Session) GetSessionIdleTimeout() time.Duration {
	return GetEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
}

func (Session) GetSessionSweepInterval() time.Duration {
	return GetEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute)
}
