package handlers

import (
	"errors"
	"net/http"

	"gatekeeper/internal/authentication"
	"gatekeeper/internal/authstate"
	"gatekeeper/internal/metrics"
	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/upstream"
)

// GETCallbackHandler completes the login: it exchanges the authorization code, sets the
// session cookie and sends the user back to where they started.
func GETCallbackHandler(ctx *middlewares.AppContext) {
	query := ctx.Request.URL.Query()

	code := query.Get("code")
	if code == "" {
		if errorParam := query.Get("error"); errorParam != "" {
			ctx.Logger.Warn("OAuth callback error",
				"error", errorParam,
				"description", query.Get("error_description"))
		}
		metrics.AuthorizationsTotal.WithLabelValues(metrics.AuthOutcomeMissingCode).Inc()
		ctx.SetJSONError(http.StatusBadRequest, "Missing authorization code")
		return
	}

	result, err := ctx.OAuthProvider.Authorize(ctx, code)
	if err != nil {
		metrics.AuthorizationsTotal.WithLabelValues(authFailureOutcome(err)).Inc()
		ctx.Logger.Error("Failed to exchange authorization code", "error", err)
		ctx.SetJSONError(http.StatusUnauthorized, "Authentication failed")
		return
	}

	metrics.AuthorizationsTotal.WithLabelValues(metrics.AuthOutcomeSuccess).Inc()
	ctx.Logger.Info("User successfully authenticated", "user_id", result.UserID)

	state := authstate.Decode(query.Get("state"))
	ctx.Redirect(state.ReturnURL, http.StatusFound)
}

func authFailureOutcome(err error) string {
	var upstreamErr *upstream.Error
	switch {
	case errors.As(err, &upstreamErr):
		return metrics.AuthOutcomeUpstreamFail
	case errors.Is(err, authentication.ErrAuthenticationFailed):
		return metrics.AuthOutcomeBadResponse
	default:
		return metrics.AuthOutcomeSessionWrite
	}
}
