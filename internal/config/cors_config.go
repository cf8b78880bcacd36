package config

type Cors struct{}

var _ CorsConfig = Cors{}

func (Cors) GetAllowedOrigins() []string {
	return GetEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
}

func (Cors) GetAllowedMethods() []string {
	return []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
}

func (Cors) GetAllowedHeaders() []string {
	return []string{"Content-Type", "Authorization"}
}
