package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// scopeCookie carries the per-tab identity that keys the session slot. It is
// the kiosk rendition of the browser's tab-scoped storage: a display opens
// the portal once, gets a scope, and keeps it across the payment redirect.
const scopeCookie = "portal_scope"

func ensureScope(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(scopeCookie); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// last resort, still usable as a shared slot
		return "default"
	}
	scope := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     scopeCookie,
		Value:    scope,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return scope
}
