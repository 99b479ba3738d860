package auth

import "gatekeeper/internal/authentication"

var (
	SessionKeyUserID      authentication.SessionKey = "user_id"
	SessionKeyAccessToken authentication.SessionKey = "access_token"
	SessionKeyCreatedAt   authentication.SessionKey = "created_at"
)

const (
	hkdfInfoHashKey  = "gatekeeper session hash key"
	hkdfInfoBlockKey = "gatekeeper session block key"

	hashKeyLength  = 64
	blockKeyLength = 32
)
