package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "vh_access_token"
)
