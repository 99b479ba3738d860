package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"gatekeeper/internal/middlewares"
	"gatekeeper/internal/upstream"

	"github.com/go-chi/chi/v5"
)

const maxRelayBodyBytes = 1 << 20

// GETRelayHandler forwards an authenticated GET to the provider API via the gateway.
func GETRelayHandler(ctx *middlewares.AppContext) {
	session := ctx.GetPrincipal()
	if session == nil {
		ctx.SetJSONError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	path, ok := relayPath(ctx.Request)
	if !ok {
		ctx.SetJSONError(http.StatusBadRequest, "Invalid relay path")
		return
	}

	resp, err := ctx.Upstream.Get(ctx, path, session.AccessToken)
	if err != nil {
		writeUpstreamError(ctx, err)
		return
	}

	writeUpstreamResponse(ctx, resp)
}

// POSTRelayHandler forwards JSON and form bodies. Other content types are refused.
func POSTRelayHandler(ctx *middlewares.AppContext) {
	session := ctx.GetPrincipal()
	if session == nil {
		ctx.SetJSONError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	path, ok := relayPath(ctx.Request)
	if !ok {
		ctx.SetJSONError(http.StatusBadRequest, "Invalid relay path")
		return
	}

	mediaType, _, err := mime.ParseMediaType(ctx.Request.Header.Get("Content-Type"))
	if err != nil {
		ctx.SetJSONError(http.StatusUnsupportedMediaType, "Content-Type must be application/json or application/x-www-form-urlencoded")
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Response, ctx.Request.Body, maxRelayBodyBytes)

	var resp *upstream.Response
	switch mediaType {
	case "application/json":
		var body any
		decoder := json.NewDecoder(ctx.Request.Body)
		decoder.UseNumber()
		if err := decoder.Decode(&body); err != nil {
			ctx.SetJSONError(http.StatusBadRequest, "Invalid JSON body")
			return
		}
		resp, err = ctx.Upstream.Post(ctx, path, body, session.AccessToken)
	case "application/x-www-form-urlencoded":
		if err := ctx.Request.ParseForm(); err != nil {
			ctx.SetJSONError(http.StatusBadRequest, "Invalid form body")
			return
		}
		resp, err = ctx.Upstream.PostForm(ctx, path, ctx.Request.PostForm, session.AccessToken)
	default:
		ctx.SetJSONError(http.StatusUnsupportedMediaType, "Content-Type must be application/json or application/x-www-form-urlencoded")
		return
	}

	if err != nil {
		writeUpstreamError(ctx, err)
		return
	}

	writeUpstreamResponse(ctx, resp)
}

// relayPath maps /api/relay/<rest>?<query> onto /<rest>?<query> at the gateway. Paths
// with dot segments are refused.
func relayPath(r *http.Request) (string, bool) {
	rest := chi.URLParam(r, "*")
	if upstream.HasDotSegment(rest) {
		return "", false
	}

	path := "/" + strings.TrimPrefix(rest, "/")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return path, true
}

func writeUpstreamResponse(ctx *middlewares.AppContext, resp *upstream.Response) {
	if len(resp.Raw) == 0 {
		ctx.Response.WriteHeader(resp.StatusCode)
		return
	}

	if resp.IsJSON() {
		ctx.Response.Header().Set("Content-Type", "application/json")
		ctx.Response.WriteHeader(resp.StatusCode)
		if _, err := bytes.NewReader(resp.Raw).WriteTo(ctx.Response); err != nil {
			ctx.Logger.Error("failed to write relay response", "error", err)
		}
		return
	}

	ctx.WriteText(resp.StatusCode, resp.Text())
}

func writeUpstreamError(ctx *middlewares.AppContext, err error) {
	var upstreamErr *upstream.Error
	if !errors.As(err, &upstreamErr) {
		ctx.Logger.Error("relay request failed", "error", err)
		ctx.SetJSONError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	if upstreamErr.IsNetwork() {
		ctx.Logger.Warn("gateway unreachable", "error", upstreamErr)
		ctx.SetJSONError(http.StatusBadGateway, http.StatusText(http.StatusBadGateway))
		return
	}

	ctx.SetJSONError(upstreamErr.StatusCode, upstreamErr.Message)
}
