package middlewares

import (
	"context"
	"net/url"

	"gatekeeper/internal/upstream"
)

//go:generate mockgen -source=upstream_client.go -destination=../mocks/upstream.go -package=mocks

type UpstreamClient interface {
	Get(ctx context.Context, path, token string) (*upstream.Response, error)
	Post(ctx context.Context, path string, body any, token string) (*upstream.Response, error)
	PostForm(ctx context.Context, path string, form url.Values, token string) (*upstream.Response, error)
}
