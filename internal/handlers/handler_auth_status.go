package handlers

import (
	"net/http"

	"gatekeeper/internal/middlewares"
)

type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
}

func AuthStatusHandler(ctx *middlewares.AppContext) {
	session, ok := ctx.SessionManager.GetSession(ctx)
	if !ok {
		ctx.WriteJSON(http.StatusUnauthorized, AuthStatusResponse{Authenticated: false})
		return
	}

	ctx.WriteJSON(http.StatusOK, AuthStatusResponse{
		Authenticated: true,
		UserID:        session.UserID,
	})
}
