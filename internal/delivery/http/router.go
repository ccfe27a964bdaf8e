package http

import (
	"context"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"guestlist/internal/delivery/http/controllers"
	h "guestlist/internal/delivery/http/helpers"
	"guestlist/internal/delivery/http/middleware"
	"guestlist/internal/domain"
	"guestlist/internal/metrics"
)

// Controllers groups the route handlers.
type Controllers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	Events    *controllers.EventController
	Collect   *controllers.CollectController
	Templates *controllers.TemplateController
	Dashboard *controllers.DashboardController
	Stream    *controllers.StreamController
}

// RouterDeps are the non-controller dependencies of the router.
type RouterDeps struct {
	Auth    domain.AuthService
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, deps RouterDeps) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(deps.Auth, deps.Logger)
	organizer := middleware.RequireRole(domain.RolePromoter, domain.RoleAdmin)
	manage := func(next http.HandlerFunc) http.HandlerFunc { return auth(organizer(next)) }

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/signin", c.Auth.SignIn)
	mux.HandleFunc("POST /auth/signout", auth(c.Auth.SignOut))
	mux.HandleFunc("GET /auth/me", auth(c.Auth.Me))
	mux.HandleFunc("POST /auth/reset-password", c.Auth.ResetPassword)
	mux.HandleFunc("POST /auth/reset-password/confirm", c.Auth.ConfirmPasswordReset)

	// Users; any signed-in role may edit its own profile.
	mux.HandleFunc("PATCH /users/me", auth(c.Users.UpdateMe))

	// Events
	mux.HandleFunc("POST /events", manage(c.Events.CreateEvent))
	mux.HandleFunc("GET /events", manage(c.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", manage(c.Events.GetEvent))
	mux.HandleFunc("GET /events/{eventID}/changes", manage(c.Stream.StreamChanges))

	// Guests
	mux.HandleFunc("GET /events/{eventID}/guests", manage(c.Events.ListGuests))
	mux.HandleFunc("GET /events/{eventID}/guests.csv", manage(c.Events.ExportGuests))
	mux.HandleFunc("POST /events/{eventID}/guests", manage(c.Events.AddGuest))
	mux.HandleFunc("PATCH /events/{eventID}/guests/{guestID}/status", manage(c.Events.UpdateGuestStatus))
	mux.HandleFunc("POST /events/{eventID}/guests/{guestID}/checkin", manage(c.Events.CheckInGuest))
	mux.HandleFunc("POST /events/{eventID}/guests/{guestID}/notify", manage(c.Events.NotifyGuest))

	// Collectors
	mux.HandleFunc("GET /collectors", manage(c.Dashboard.ListCollectors))
	mux.HandleFunc("POST /events/{eventID}/collectors", manage(c.Events.AssignCollector))
	mux.HandleFunc("DELETE /events/{eventID}/collectors/{assignmentID}", manage(c.Events.RemoveCollector))
	mux.HandleFunc("POST /events/{eventID}/collectors/{assignmentID}/share", manage(c.Events.ShareCollectorLink))

	// Collector links (token is the credential)
	mux.HandleFunc("GET /collect/{token}", c.Collect.GetGuestlist)
	mux.HandleFunc("POST /collect/{token}/guests", c.Collect.AddGuest)
	mux.HandleFunc("PATCH /collect/{token}/guests/{guestID}/status", c.Collect.UpdateGuestStatus)

	// Templates
	mux.HandleFunc("POST /templates", manage(c.Templates.CreateTemplate))
	mux.HandleFunc("GET /templates", manage(c.Templates.ListTemplates))
	mux.HandleFunc("GET /templates/{templateID}", manage(c.Templates.GetTemplate))
	mux.HandleFunc("PUT /templates/{templateID}", manage(c.Templates.UpdateTemplate))
	mux.HandleFunc("DELETE /templates/{templateID}", manage(c.Templates.DeleteTemplate))
	mux.HandleFunc("POST /templates/{templateID}/preview", manage(c.Templates.PreviewTemplate))

	mux.HandleFunc("GET /dashboard", manage(c.Dashboard.GetDashboard))

	// Ops
	mux.HandleFunc("GET /healthz", healthz(deps.Health, deps.Logger))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with request logging, CORS and request metrics.
func NewHandler(router http.Handler, logger *slog.Logger, m *metrics.Metrics, allowedOrigins []string) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, m.Instrument(router)))
}

// HealthResponse is the data of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func healthz(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "err", err)
				h.WriteJSONError(w, http.StatusServiceUnavailable, h.ErrCodeInternalError, "unavailable")
				return
			}
		}
		h.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
