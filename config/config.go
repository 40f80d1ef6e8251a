package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
type ServerConfig struct {
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName      string `mapstructure:"OTEL_SERVICE_NAME"`
	OtelExporterEndpoint string `mapstructure:"OTEL_EXPORTER_ENDPOINT"` // OTLP/HTTP, e.g. http://collector:4318

	// Optional shared claims cache. Empty means in-process only.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	ClaimsCacheTTL time.Duration `mapstructure:"CLAIMS_CACHE_TTL"`

	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"` // base64 PKCS#8 DER
	JWTPublicKey  string `mapstructure:"JWT_PUBLIC_KEY"`  // base64 PKIX DER
	JWTTTLMillis  int64  `mapstructure:"JWT_TTL_MS"`

	PasswordPepper string `mapstructure:"PASSWORD_PEPPER"`

	AuthorizedRedirectURIs []string `mapstructure:"AUTHORIZED_REDIRECT_URIS"`
	FrontendURI            string   `mapstructure:"FRONTEND_URI"`
	CookieSecure           bool     `mapstructure:"COOKIE_SECURE"`

	GoogleClientID        string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	OAuth2CallbackBaseURL string `mapstructure:"OAUTH2_CALLBACK_BASE_URL"`

	// DevMode allows a missing key pair; the server then generates an ephemeral one.
	DevMode bool `mapstructure:"DEV_MODE"`
}

// JWT dates have whole-second precision.
const minTokenTTLMillis = 1000

var defaults = map[string]any{
	"HTTP_ADDR":                ":8080",
	"MONGO_URI":                "mongodb://localhost:27017",
	"MONGO_DB_NAME":            "shadow_auth",
	"LOG_LEVEL":                "info",
	"LOG_PRETTY":               false,
	"OTEL_SERVICE_NAME":        "shadow-auth",
	"OTEL_EXPORTER_ENDPOINT":   "",
	"REDIS_ADDR":               "",
	"REDIS_PASSWORD":           "",
	"REDIS_DB":                 0,
	"CLAIMS_CACHE_TTL":         "5m",
	"JWT_ISSUER":               "",
	"JWT_PRIVATE_KEY":          "",
	"JWT_PUBLIC_KEY":           "",
	"JWT_TTL_MS":               int64(time.Hour / time.Millisecond),
	"PASSWORD_PEPPER":          "",
	"AUTHORIZED_REDIRECT_URIS": []string{},
	"FRONTEND_URI":             "http://localhost:3000",
	"COOKIE_SECURE":            false,
	"GOOGLE_CLIENT_ID":         "",
	"GOOGLE_CLIENT_SECRET":     "",
	"OAUTH2_CALLBACK_BASE_URL": "http://localhost:8080",
	"DEV_MODE":                 false,
}

// Load reads configuration from configFile, or from config.yaml in the standard search
// paths when configFile is empty. Environment variables override file values.
func Load(configFile string) (*ServerConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/shadow-auth/")
		v.AddConfigPath("$HOME/.shadow-auth")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.AuthorizedRedirectURIs = normalizeList(cfg.AuthorizedRedirectURIs)

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *ServerConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWTIssuer) == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}
	if c.PasswordPepper == "" {
		errs = append(errs, errors.New("PASSWORD_PEPPER is required"))
	}
	if c.JWTTTLMillis < minTokenTTLMillis {
		errs = append(errs, fmt.Errorf("JWT_TTL_MS must be at least %d", minTokenTTLMillis))
	}
	if !c.DevMode && (c.JWTPrivateKey == "" || c.JWTPublicKey == "") {
		errs = append(errs, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required outside dev mode"))
	}
	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together"))
	}
	if c.FrontendURI == "" {
		errs = append(errs, errors.New("FRONTEND_URI is required"))
	}

	return errors.Join(errs...)
}

// TokenTTL is the session token lifetime.
func (c *ServerConfig) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLMillis) * time.Millisecond
}

// GoogleEnabled reports whether Google login is configured.
func (c *ServerConfig) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// CallbackURL returns the redirect URL registered with providerID.
func (c *ServerConfig) CallbackURL(providerID string) string {
	return strings.TrimRight(c.OAuth2CallbackBaseURL, "/") + "/login/oauth2/code/" + providerID
}

// normalizeList splits comma separated entries, as produced by environment variables.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
