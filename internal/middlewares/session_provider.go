package middlewares

import (
	"gatekeeper/internal/models"
)

//go:generate mockgen -source=session_provider.go -destination=../mocks/session.go -package=mocks

// SessionProvider persists the authenticated session in a client-held cookie.
type SessionProvider interface {
	GetSession(ctx *AppContext) (*models.Session, bool)
	SetSession(ctx *AppContext, session *models.Session) error
	ClearSession(ctx *AppContext) error
}
