package config

import "time"

// Config captures the process configuration for the gamification engine.
type Config struct {
	Port         string `validate:"required"`
	GCPProjectID string `validate:"required"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
}

// AuthConfig configures the bearer-token verifier bound to the HTTP surface.
type AuthConfig struct {
	Mode         string `validate:"required"`
	JWKSURL      string
	Audience     string
	Issuer       string
	JWKSCacheTTL time.Duration
}

// FirestoreConfig configures the document-store client.
type FirestoreConfig struct {
	Database     string `validate:"required"`
	EmulatorHost string
}

// Load reads configuration from the environment, applying defaults and
// validating required fields.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		GCPProjectID: getEnv("GCP_PROJECT_ID", "gamification-dev"),
		Auth: AuthConfig{
			Mode:         getEnv("AUTH_MODE", "noop"),
			JWKSURL:      getEnv("CLERK_JWKS_URL", ""),
			Audience:     getEnv("CLERK_AUDIENCE", ""),
			Issuer:       getEnv("CLERK_ISSUER", ""),
			JWKSCacheTTL: getEnvDuration("CLERK_JWKS_CACHE_TTL", 10*time.Minute),
		},
		Firestore: FirestoreConfig{
			Database:     getEnv("FIRESTORE_DATABASE", "gamification-prod"),
			EmulatorHost: getEnv("FIRESTORE_EMULATOR_HOST", ""),
		},
	}
	return cfg, validate.Struct(cfg)
}
