package authentication

type SessionKey string
