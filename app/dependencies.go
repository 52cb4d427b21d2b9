package app

import (
	"context"
	"fmt"

	"github.com/gostarter/keycloak-webapp/auth"
	"github.com/gostarter/keycloak-webapp/config"
	"github.com/gostarter/keycloak-webapp/keycloak"
	"github.com/gostarter/keycloak-webapp/middleware"
	"github.com/gostarter/keycloak-webapp/repositories"
	"github.com/gostarter/keycloak-webapp/repositories/postgres"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	RepoFactory *postgres.RepositoryFactory
	Users       repositories.UserRepository
	TxManager   repositories.TransactionManager

	// Identity provider
	Keycloak  *keycloak.Client
	Validator *keycloak.Validator

	// Auth
	authHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

// AuthHandler returns the auth handler for route wiring
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initAuth initializes the Keycloak validator, client, middleware and handlers
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Keycloak.Realm == "" || cfg.Keycloak.ClientID == "" {
		d.Logger.Warn("keycloak not configured, auth endpoints disabled")
		// Reject-all validator so protected routes return 401
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Logger)
		return
	}

	d.Validator = keycloak.NewValidator(cfg.Keycloak)
	d.Keycloak = keycloak.NewClient(cfg.Keycloak, d.Logger)

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Validator, d.Logger)
	d.authHandler = auth.NewHandler(cfg, d.Keycloak, d.Validator, d.Users, d.Logger)
	d.Logger.Info("auth handler initialized",
		zap.String("realm", cfg.Keycloak.Realm),
		zap.String("client_id", cfg.Keycloak.ClientID))
}

// rejectAllValidator rejects all tokens (used when Keycloak is not configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*keycloak.ParsedClaims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
