package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/pilab-dev/shadow-auth/api/gin"
	"github.com/pilab-dev/shadow-auth/cache"
	redisstore "github.com/pilab-dev/shadow-auth/cache/redis"
	"github.com/pilab-dev/shadow-auth/config"
	"github.com/pilab-dev/shadow-auth/internal/crypto"
	"github.com/pilab-dev/shadow-auth/internal/federation"
	"github.com/pilab-dev/shadow-auth/internal/metrics"
	"github.com/pilab-dev/shadow-auth/internal/oauth2flow"
	"github.com/pilab-dev/shadow-auth/internal/server"
	"github.com/pilab-dev/shadow-auth/internal/telemetry"
	applog "github.com/pilab-dev/shadow-auth/log"
	"github.com/pilab-dev/shadow-auth/mongodb"
	"github.com/pilab-dev/shadow-auth/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "shadow-auth",
	Short:         "shadow-auth serves password and federated login for the platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		applog.Setup(cfg.LogLevel, cfg.LogPretty)

		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "",
		"config file (default is config.yaml in /etc/shadow-auth, $HOME/.shadow-auth or .)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("shadow-auth stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	log.Info().Str("addr", cfg.HTTPAddr).Str("mongo_db_name", cfg.MongoDBName).
		Str("issuer", cfg.JWTIssuer).Msg("Starting shadow-auth server...")

	tp, err := telemetry.InitTracerProvider(ctx, cfg.OtelServiceName, cfg.OtelExporterEndpoint)
	if err != nil {
		return err
	}

	privateKey, publicKey, err := loadKeys(cfg)
	if err != nil {
		return err
	}

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	repos, err := mongodb.NewRepositories(ctx, client.Database(cfg.MongoDBName))
	if err != nil {
		return err
	}
	if err := repos.Roles.SeedDefaultRoles(ctx); err != nil {
		return err
	}

	claims, closeClaims := newClaimsStore(cfg)

	signer := services.NewTokenSigner()
	signer.AddRSAKeySigner("", privateKey)
	tokens := services.NewTokenService(signer, publicKey, cfg.JWTIssuer, cfg.TokenTTL(),
		services.WithClaimsStore(claims))

	providers, err := newProviderRegistry(cfg)
	if err != nil {
		return err
	}

	accounts := services.NewAuthService(
		repos.Users,
		repos.Profiles,
		repos.Roles,
		crypto.NewPBKDF2Hasher(cfg.PasswordPepper),
		tokens,
		providers,
		nil,
	)

	allowList, err := authgin.NewRedirectAllowList(cfg.AuthorizedRedirectURIs)
	if err != nil {
		return err
	}
	if len(cfg.AuthorizedRedirectURIs) == 0 {
		log.Warn().Msg("AUTHORIZED_REDIRECT_URIS is empty, every post-login redirect target is allowed")
	}

	store := oauth2flow.NewCookieRequestStore(cfg.CookieSecure)
	oauthAPI := authgin.NewOAuth2API(&authgin.OAuth2APIOptions{
		Providers: providers,
		PKCE:      oauth2flow.NewPKCECustomizer(),
		Store:     store,
		Users:     accounts,
		Success:   authgin.NewSuccessHandler(tokens, store, allowList, cfg.FrontendURI),
		Failure:   authgin.NewFailureHandler(store, allowList, cfg.FrontendURI),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	httpServer := server.NewHTTPServer(server.Options{
		Addr:    cfg.HTTPAddr,
		Release: !cfg.DevMode,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Routes: []server.RouteRegistrar{
			authgin.NewAuthAPI(accounts, tokens),
			oauthAPI,
		},
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case err = <-serveErr:
		log.Error().Err(err).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}
	closeClaims()
	mongodb.Disconnect(shutdownCtx, client)
	telemetry.Shutdown(shutdownCtx, tp)

	log.Info().Msg("Server gracefully stopped.")

	return err
}

// loadKeys parses the configured key pair. In dev mode a missing pair is replaced
// by an ephemeral one, so tokens do not survive a restart.
func loadKeys(cfg *config.ServerConfig) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		return crypto.ParseKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	}

	log.Warn().Msg("No JWT key pair configured, generating an ephemeral one")
	key, err := crypto.GenerateRSAKey()
	if err != nil {
		return nil, nil, err
	}

	return key, &key.PublicKey, nil
}

func newClaimsStore(cfg *config.ServerConfig) (cache.ClaimsStore, func()) {
	if cfg.RedisAddr == "" {
		store := cache.NewMemoryClaimsStore(cfg.ClaimsCacheTTL)
		return store, func() { _ = store.Close() }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis claims cache")

	return redisstore.NewClaimsStore(client, "shadow-auth", cfg.ClaimsCacheTTL), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing redis client")
		}
	}
}

func newProviderRegistry(cfg *config.ServerConfig) (*federation.Registry, error) {
	registry := federation.NewRegistry()
	if !cfg.GoogleEnabled() {
		log.Info().Msg("Google login disabled, GOOGLE_CLIENT_ID is not set")
		return registry, nil
	}

	google, err := federation.NewGoogleProvider(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.CallbackURL(federation.GoogleProviderID),
	)
	if err != nil {
		return nil, err
	}
	registry.Register(google)

	return registry, nil
}
