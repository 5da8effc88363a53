package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/groupcar/groupcar-server/internal/http/handler"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/repository"
)

type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	GroupHandler        *handler.GroupHandler
	CarHandler          *handler.CarHandler
	NotificationHandler *handler.NotificationHandler
	SessionPipeline     *middleware.SessionPipeline
	UserRepository      repository.UserRepository
	LoginThrottle       *middleware.LoginThrottle
	EnableOTelHTTP      bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireLogin := middleware.RequireLoggedIn(dep.UserRepository)
	throttle := dep.LoginThrottle.Middleware()

	r.Route("/api", func(r chi.Router) {
		// Every API request runs the session pipeline: resolve or
		// mint the session, enforce CSRF on unsafe methods.
		r.Use(dep.SessionPipeline.Handler)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/token", dep.AuthHandler.Token)
			r.With(throttle).Post("/sign-up", dep.AuthHandler.SignUp)
			r.With(throttle).Put("/login", dep.AuthHandler.Login)
			r.Put("/logout", dep.AuthHandler.Logout)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(requireLogin)
			r.Get("/", dep.UserHandler.Me)
			r.Get("/invites", dep.UserHandler.Invites)
		})

		r.Route("/group", func(r chi.Router) {
			r.Use(requireLogin)
			r.Post("/", dep.GroupHandler.Create)
			r.Get("/", dep.GroupHandler.List)
			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", dep.GroupHandler.Get)
				r.Get("/member", dep.GroupHandler.Members)
				r.Delete("/member", dep.GroupHandler.Leave)
				r.Post("/invite", dep.GroupHandler.Invite)
				r.Post("/invite/join", dep.GroupHandler.Join)
				r.Route("/car", func(r chi.Router) {
					r.Post("/", dep.CarHandler.Create)
					r.Get("/", dep.CarHandler.List)
					r.Put("/{carID}/drive", dep.CarHandler.Drive)
					r.Put("/{carID}/park", dep.CarHandler.Park)
				})
			})
		})

		r.With(requireLogin).Get("/notifications/ws", dep.NotificationHandler.Subscribe)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
