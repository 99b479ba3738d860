package middlewares

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"gatekeeper/internal/config"
	"gatekeeper/internal/models"
)

type AppContext struct {
	context.Context
	Config         *config.Config
	Logger         *slog.Logger
	SessionManager SessionProvider
	OAuthProvider  OAuthProvider
	Upstream       UpstreamClient

	Request  *http.Request
	Response http.ResponseWriter

	principal *models.Session
}

type contextKey string

const appContextKey contextKey = "appContext"

func AppContextMiddleware(baseCtx *AppContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCtx := &AppContext{
				Context:        r.Context(),
				Config:         baseCtx.Config,
				Logger:         baseCtx.Logger,
				SessionManager: baseCtx.SessionManager,
				OAuthProvider:  baseCtx.OAuthProvider,
				Upstream:       baseCtx.Upstream,
				Request:        r,
				Response:       w,
			}

			ctx := context.WithValue(r.Context(), appContextKey, requestCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type AppHandler func(*AppContext)

// Handler converts an AppHandler to an http.Handler
func (ctx *AppContext) Handler(h AppHandler) http.Handler {
	return ctx.HandlerFunc(h)
}

// HandlerFunc converts AppHandler to a http.HandlerFunc
func (ctx *AppContext) HandlerFunc(h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appCtx := GetAppContext(r)
		if appCtx == nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Middlewares may have swapped the writer (metrics, compression) after the
		// context was created.
		appCtx.Request = r
		appCtx.Response = w

		h(appCtx)
	}
}

func (ctx *AppContext) Redirect(url string, status int) {
	http.Redirect(ctx.Response, ctx.Request, url, status)
}

func NewAppContext(ctx context.Context, cfg *config.Config, logger *slog.Logger, sessionManager SessionProvider, oauthProvider OAuthProvider, upstream UpstreamClient) *AppContext {
	return &AppContext{
		Context:        ctx,
		Config:         cfg,
		Logger:         logger,
		SessionManager: sessionManager,
		OAuthProvider:  oauthProvider,
		Upstream:       upstream,
	}
}

func GetAppContext(r *http.Request) *AppContext {
	if ctx, ok := r.Context().Value(appContextKey).(*AppContext); ok {
		return ctx
	}

	return nil
}

// SetPrincipal records the session the gate authenticated this request with.
func (ctx *AppContext) SetPrincipal(session *models.Session) {
	ctx.principal = session
}

// GetPrincipal returns nil for requests that did not pass through the gate.
func (ctx *AppContext) GetPrincipal() *models.Session {
	return ctx.principal
}

func (ctx *AppContext) WriteJSON(status int, data interface{}) {
	ctx.Response.Header().Set("Content-Type", "application/json")
	ctx.Response.WriteHeader(status)
	if err := json.NewEncoder(ctx.Response).Encode(data); err != nil {
		ctx.Logger.Error("failed to marshal json", "error", err)
	}
}

func (ctx *AppContext) WriteText(status int, text string) {
	ctx.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	ctx.Response.WriteHeader(status)
	if _, err := ctx.Response.Write([]byte(text)); err != nil {
		ctx.Logger.Error("failed to write response", "error", err)
	}
}

func (ctx *AppContext) SetJSONError(status int, message string) {
	ctx.WriteJSON(status, map[string]string{
		"error": message,
	})
}

func (ctx *AppContext) SetJSONStatus(status int, message string) {
	ctx.WriteJSON(status, map[string]string{
		"status": message,
	})
}
