package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type contextKey string

const SessionKey contextKey = "session"

// Session is the authenticated organizer attached to a request context.
type Session struct {
	Subject   string
	ExpiresAt time.Time
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(SessionKey).(Session)
	return s, ok
}

// RequireSession returns a huma middleware that rejects requests without a
// valid session token. The token is read from the Authorization bearer header
// first, then from the auth cookie.
func (h *AuthHandler) RequireSession(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		tokenString := bearerToken(ctx.Header("Authorization"))
		if tokenString == "" {
			tokenString = cookieValue(ctx.Header("Cookie"), CookieName)
		}
		if tokenString == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: No token found")
			return
		}

		claims, err := h.ParseToken(tokenString)
		if err != nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		session := Session{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}

		// Sliding session: refresh token if it's more than halfway through its duration
		if time.Until(session.ExpiresAt) < TokenDuration/2 {
			newToken, expires, err := h.GenerateToken(session.Subject)
			if err == nil {
				ctx.AppendHeader("Set-Cookie", h.sessionCookie(newToken, expires).String())
				session.ExpiresAt = expires
			}
		}

		next(huma.WithValue(ctx, SessionKey, session))
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func cookieValue(header, name string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
