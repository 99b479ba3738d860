package handlers

import (
	"net/http"

	"gatekeeper/internal/middlewares"
)

// POSTLogoutHandler expires the session cookie. Logging out without a session succeeds.
func POSTLogoutHandler(ctx *middlewares.AppContext) {
	logger := ctx.Logger

	session, hadSession := ctx.SessionManager.GetSession(ctx)

	if err := ctx.SessionManager.ClearSession(ctx); err != nil {
		logger.Error("Failed to logout user", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, "Failed to logout")
		return
	}

	if hadSession {
		logger.Info("User logged out", "user_id", session.UserID)
	}

	ctx.SetJSONStatus(http.StatusOK, "OK")
}
