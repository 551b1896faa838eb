package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/verdanthq/gatehouse/internal/auth/service"
	"github.com/verdanthq/gatehouse/internal/auth/store"
	"github.com/verdanthq/gatehouse/pkg/httpx"
	"github.com/verdanthq/gatehouse/pkg/slogx"

	_ "github.com/verdanthq/gatehouse/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cookies      SessionCookie
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	LoginService    *service.LoginService
	PasswordService *service.PasswordService
	AuditRecorder   *service.AuditRecorder
}

func NewRouter(
	sessionKey []byte,
	secureCookies bool,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		cookies:      SessionCookie{Key: sessionKey, Secure: secureCookies},
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSession()
	r.registerPassword()
	r.registerAudit()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatehouse Authentication Service API
//	@version		0.1.0
//	@description	Email and password authentication with single-active-session enforcement,
//	@description	lockout, emailed two-factor challenges, password lifecycle policy, and a
//	@description	per-user security audit trail.
//	@description
//	@description				Sessions are carried in an HTTP-only cookie set by the login endpoints.
//
//	@contact.name				Verdant Team
//	@contact.url				https://github.com/verdanthq/gatehouse
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{
		LoginService: r.LoginService,
		Cookies:      r.cookies,
	}

	// POST /login - strict rate limit (authentication attempts)
	// Note: Rate limited by IP + email field to prevent brute force
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// POST /login/2fa - strict rate limit by IP (prevent code brute force)
	r.Mux.Handle("POST /v1/login/2fa",
		httpx.Chain(http.HandlerFunc(loginHandler.HandleTwoFactor),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /register - strict rate limit by IP (public signup endpoint)
	registerHandler := &RegisterHandler{LoginService: r.LoginService}
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		LoginService: r.LoginService,
		Store:        r.store,
		Cookies:      r.cookies,
	}

	// GET /session - lenient rate limit (polled by frontends)
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleSession),
			SessionMiddleware(r.LoginService, r.cookies),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /logout - moderate rate limit
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			SessionMiddleware(r.LoginService, r.cookies),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{
		PasswordService: r.PasswordService,
		Cookies:         r.cookies,
	}

	// POST /password/change - strict rate limit (carries the current password)
	r.Mux.Handle("POST /v1/password/change",
		httpx.Chain(http.HandlerFunc(h.HandleChange),
			SessionMiddleware(r.LoginService, r.cookies),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password/forgot - strict rate limit by IP (sends email)
	r.Mux.Handle("POST /v1/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password/reset - strict rate limit by IP (token guessing)
	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Audit: r.AuditRecorder}

	// GET /audit - moderate rate limit (authenticated read)
	r.Mux.Handle("GET /v1/audit",
		httpx.Chain(h,
			SessionMiddleware(r.LoginService, r.cookies),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
