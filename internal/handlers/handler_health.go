package handlers

import (
	"net/http"

	"gatekeeper/internal/middlewares"
)

func HandlerHealth(ctx *middlewares.AppContext) {
	ctx.SetJSONStatus(http.StatusOK, "OK")
}
