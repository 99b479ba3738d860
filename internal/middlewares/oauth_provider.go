package middlewares

import (
	"gatekeeper/internal/models"
)

//go:generate mockgen -source=oauth_provider.go -destination=../mocks/oauth.go -package=mocks

type OAuthProvider interface {
	AuthorizationURL(state string) string
	Authorize(ctx *AppContext, code string) (*models.AuthResult, error)
}
