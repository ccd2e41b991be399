package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	assistantsvc "github.com/ivankudzin/jobswipe/internal/services/assistant"
	authsvc "github.com/ivankudzin/jobswipe/internal/services/auth"
	dashboardsvc "github.com/ivankudzin/jobswipe/internal/services/dashboard"
	jobsvc "github.com/ivankudzin/jobswipe/internal/services/jobs"
	matchsvc "github.com/ivankudzin/jobswipe/internal/services/matches"
	notificationsvc "github.com/ivankudzin/jobswipe/internal/services/notifications"
	profilesvc "github.com/ivankudzin/jobswipe/internal/services/profiles"
	resumesvc "github.com/ivankudzin/jobswipe/internal/services/resumes"
	swipesvc "github.com/ivankudzin/jobswipe/internal/services/swipes"
	"github.com/ivankudzin/jobswipe/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	SwipeService        *swipesvc.Service
	MatchService        *matchsvc.Service
	NotificationService *notificationsvc.Service
	JobService          *jobsvc.Service
	ProfileService      *profilesvc.Service
	ResumeService       *resumesvc.Service
	AssistantService    *assistantsvc.Service
	DashboardService    *dashboardsvc.Service
	Stream              handlers.StreamServer
	HealthChecks        map[string]handlers.Check
	MetricsPath         string
	MetricsHandler      http.Handler
	Logger              *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	httpLog := deps.Logger
	if httpLog == nil {
		httpLog = zap.NewNop()
	}
	httpLog = httpLog.Named("http")

	authHandler := handlers.NewAuthHandler(deps.AuthService, httpLog)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService, httpLog)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, httpLog)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotificationService, deps.Stream, httpLog)
	jobsHandler := handlers.NewJobsHandler(deps.JobService, httpLog)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService, deps.ResumeService, deps.AssistantService, httpLog)
	dashboardHandler := handlers.NewDashboardHandler(deps.DashboardService, httpLog)

	var validator TokenValidator
	if deps.AuthService != nil {
		validator = deps.AuthService
	}
	authMW := AuthMiddleware(validator, deps.Logger)
	recruiterMW := RequireRole(enums.RoleRecruiter)

	r.Get("/healthz", healthHandler.Get)
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMW)

		r.Post("/swipes", swipeHandler.Swipe)
		r.With(recruiterMW).Post("/candidates/swipes", swipeHandler.CandidateSwipe)
		r.Get("/subscription", swipeHandler.Subscription)

		r.Get("/matches", matchesHandler.List)
		r.Get("/matches/{id}/messages", matchesHandler.Messages)
		r.Post("/matches/{id}/messages", matchesHandler.Send)

		r.Get("/notifications", notificationsHandler.List)
		r.Put("/notifications", notificationsHandler.MarkRead)
		r.Delete("/notifications", notificationsHandler.Delete)
		r.Get("/notifications/stream", notificationsHandler.Stream)

		r.Get("/jobs", jobsHandler.List)
		r.Get("/jobs/{id}", jobsHandler.Get)
		r.Post("/jobs", jobsHandler.Create)

		r.Get("/profile", profileHandler.Get)
		r.Put("/profile", profileHandler.Update)
		r.Post("/profile/resume", profileHandler.UploadResume)
		r.Get("/profile/resume", profileHandler.Resume)
		r.Post("/profile/optimize", profileHandler.Optimize)
		r.With(recruiterMW).Put("/company", profileHandler.SetCompany)

		r.Get("/dashboard", dashboardHandler.Handle)
	})
}
