package server

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
)

// apiKeyAccepted checks the optional access key for /translate. LibreTranslate
// clients send the key as the api_key request field; a Bearer token is also
// accepted for callers that prefer headers. An empty required key disables
// the check.
func apiKeyAccepted(c echo.Context, required, provided string) bool {
	if required == "" {
		return true
	}
	if keysEqual(provided, required) {
		return true
	}

	const prefix = "Bearer "
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, prefix) && keysEqual(strings.TrimPrefix(auth, prefix), required) {
		return true
	}
	return false
}

func keysEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
