package httpx

import (
	"log/slog"
	"net/http"

	"github.com/authbridge/relying-party/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
// Inspection is nil outside dev mode; the /test routes are mounted only when
// it is set.
type RouterServices struct {
	Accounts       *service.AccountService
	Sessions       *service.SessionService
	Authenticators *service.AuthenticatorService
	Inspection     *service.InspectionService
	Logger         *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	accountHandlers := &AccountHandlers{Svc: services.Accounts}
	sessionHandlers := &SessionHandlers{Svc: services.Sessions}
	authenticatorHandlers := &AuthenticatorHandlers{Svc: services.Authenticators}
	transactionHandlers := &TransactionHandlers{Svc: services.Authenticators}
	policyHandlers := &PolicyHandlers{Svc: services.Authenticators}

	mux.HandleFunc("POST /accounts", accountHandlers.Create)
	mux.HandleFunc("DELETE /accounts/{id}", accountHandlers.Delete)

	mux.HandleFunc("POST /sessions", sessionHandlers.Create)
	mux.HandleFunc("DELETE /sessions/{id}", sessionHandlers.Delete)

	mux.HandleFunc("GET /authRequests", authenticatorHandlers.CreateAuthRequest)
	mux.HandleFunc("GET /regRequests", authenticatorHandlers.CreateRegRequest)
	mux.HandleFunc("POST /authenticators", authenticatorHandlers.Create)
	mux.HandleFunc("GET /listAuthenticators", authenticatorHandlers.List)
	mux.HandleFunc("GET /authenticators/{id}", authenticatorHandlers.Get)
	mux.HandleFunc("DELETE /authenticators/{id}", authenticatorHandlers.Delete)

	mux.HandleFunc("POST /transactionAuthRequests", transactionHandlers.CreateRequest)
	mux.HandleFunc("POST /transactionAuthValidation", transactionHandlers.Validate)

	mux.HandleFunc("GET /facets", policyHandlers.Facets)
	mux.HandleFunc("GET /policies/{id}", policyHandlers.Get)

	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	if services.Inspection != nil {
		inspectionHandlers := &InspectionHandlers{Svc: services.Inspection}
		mux.HandleFunc("GET /test/accounts", inspectionHandlers.SearchAccounts)
		mux.HandleFunc("GET /test/accounts/{id}", inspectionHandlers.GetAccount)
		mux.HandleFunc("GET /test/sessions", inspectionHandlers.SearchSessions)
		mux.HandleFunc("GET /test/audits", inspectionHandlers.ListAudits)
	}

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return Recover(logger)(Logging(logger)(mux))
}
