package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/authbridge/relying-party/config"
	"github.com/authbridge/relying-party/internal/adapters/devidp"
	"github.com/authbridge/relying-party/internal/adapters/identityx"
	redisstore "github.com/authbridge/relying-party/internal/adapters/redis"
	"github.com/authbridge/relying-party/internal/data"
	"github.com/authbridge/relying-party/internal/ports"
	"github.com/authbridge/relying-party/internal/service"
)

// ServiceContainer holds all application services. Inspection is built only
// in dev mode and stays nil otherwise.
type ServiceContainer struct {
	Accounts       *service.AccountService
	Sessions       *service.SessionService
	Authenticators *service.AuthenticatorService
	Inspection     *service.InspectionService
	Auditor        *service.Auditor
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices builds the service layer from shared infrastructure. The
// identityx provider resolves its application and policy references during
// startup, so construction can fail.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	accountRepo := data.NewAccountRepo(deps.DB)
	auditRepo := data.NewAuditRepo(deps.DB)
	sessionStore := redisstore.NewSessionStore(deps.RedisClient)

	provider, err := newProvider(ctx, deps, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	auditor := service.NewAuditor(service.AuditorOptions{
		Repo:   auditRepo,
		Logger: logger,
	})

	sessionSvc := service.NewSessionService(service.SessionServiceOptions{
		Accounts: accountRepo,
		Sessions: sessionStore,
		Provider: provider,
		Auditor:  auditor,
		Period:   deps.Config.Session.Period,
		Logger:   logger,
	})

	accountSvc := service.NewAccountService(service.AccountServiceOptions{
		Accounts:   accountRepo,
		Sessions:   sessionStore,
		Provider:   provider,
		Auditor:    auditor,
		SessionSvc: sessionSvc,
		Logger:     logger,
	})

	authenticatorSvc := service.NewAuthenticatorService(service.AuthenticatorServiceOptions{
		Accounts:   accountRepo,
		Provider:   provider,
		Auditor:    auditor,
		SessionSvc: sessionSvc,
		Logger:     logger,
	})

	var inspectionSvc *service.InspectionService
	if deps.Config.IsDev {
		logger.Warn("dev mode: mounting unauthenticated /test inspection endpoints")
		inspectionSvc = service.NewInspectionService(service.InspectionServiceOptions{
			Accounts: accountRepo,
			Sessions: sessionStore,
			Audits:   auditRepo,
			Auditor:  auditor,
			Logger:   logger,
		})
	}

	return ServiceContainer{
		Accounts:       accountSvc,
		Sessions:       sessionSvc,
		Authenticators: authenticatorSvc,
		Inspection:     inspectionSvc,
		Auditor:        auditor,
	}, nil
}

//nolint:ireturn // the provider backend is selected at runtime.
func newProvider(ctx context.Context, deps *ServiceDeps, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch deps.Config.Provider.Mode {
	case config.ProviderModeDev:
		logger.Warn("using in-memory dev provider; FIDO state will not survive restarts")
		return devidp.New(), nil
	case config.ProviderModeIdentityX:
		client, err := identityx.NewClient(identityx.Options{
			BaseURL:       deps.Config.Provider.BaseURL,
			APIKey:        deps.Config.Provider.APIKey,
			ApplicationID: deps.Config.Provider.ApplicationID,
			RegPolicyID:   deps.Config.Provider.RegPolicyID,
			AuthPolicyID:  deps.Config.Provider.AuthPolicyID,
			Cache:         data.NewRedisCacheRepo(deps.RedisClient),
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build identityx client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect identityx: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", deps.Config.Provider.Mode)
	}
}
