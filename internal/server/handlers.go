package server

import (
	"net/http"
	"time"

	"gatekeeper/internal/handlers"
	"gatekeeper/internal/middlewares"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRouter(ctx *middlewares.AppContext) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middlewares.ClientIPMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.MetricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(middlewares.AppContextMiddleware(ctx))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ctx.Config.CORS.AllowedOrigins,
		AllowedMethods:   ctx.Config.CORS.AllowedMethods,
		AllowedHeaders:   ctx.Config.CORS.AllowedHeaders,
		ExposedHeaders:   ctx.Config.CORS.ExposedHeaders,
		AllowCredentials: ctx.Config.CORS.AllowCredentials,
		MaxAge:           ctx.Config.CORS.MaxAgeSeconds,
	}))

	r.Use(middleware.Compress(5))

	r.Get(ctx.Config.OAuth.CallbackPath, ctx.HandlerFunc(handlers.GETCallbackHandler))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", ctx.HandlerFunc(handlers.AuthStatusHandler))
			r.Post("/logout", ctx.HandlerFunc(handlers.POSTLogoutHandler))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Get("/health", ctx.HandlerFunc(handlers.HandlerHealth))
		})

		r.Route("/relay", func(r chi.Router) {
			r.Use(middlewares.RequireSession)
			r.Get("/*", ctx.HandlerFunc(handlers.GETRelayHandler))
			r.Post("/*", ctx.HandlerFunc(handlers.POSTRelayHandler))
		})
	})

	// Everything else is the protected application.
	r.Group(func(r chi.Router) {
		r.Use(middlewares.RequireSession)
		r.Handle("/*", protectedContent(ctx.Config.Server.StaticDir))
	})

	return r
}

func protectedContent(staticDir string) http.Handler {
	if staticDir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(staticDir))
}

func setupDebugRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/debug", middleware.Profiler())

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
