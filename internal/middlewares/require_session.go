package middlewares

import (
	"net/http"

	"gatekeeper/internal/authstate"
	"gatekeeper/internal/metrics"
)

// RequireSession lets requests with a valid session cookie through and sends everyone
// else to the provider's authorization page. The callback path is always let through so
// the login can complete.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		appCtx := GetAppContext(r)
		if appCtx == nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if r.URL.Path == appCtx.Config.OAuth.CallbackPath {
			metrics.GateDecisions.WithLabelValues(metrics.GateDecisionExempt).Inc()
			next.ServeHTTP(w, r)
			return
		}

		if session, ok := appCtx.SessionManager.GetSession(appCtx); ok {
			metrics.GateDecisions.WithLabelValues(metrics.GateDecisionAllow).Inc()
			appCtx.SetPrincipal(session)
			next.ServeHTTP(w, r)
			return
		}

		state := authstate.Encode(authstate.FromRequestURI(r.URL))
		target := appCtx.OAuthProvider.AuthorizationURL(state)

		appCtx.Logger.Debug("no session, redirecting to provider", "path", r.URL.Path)
		metrics.GateDecisions.WithLabelValues(metrics.GateDecisionRedirect).Inc()

		http.Redirect(w, r, target, http.StatusFound)
	})
}
