package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/auth"
	"github.com/wikisyllabus/wikisyllabus/internal/database"
)

type contextKey string

const (
	// UserContextKey is the context key for the authenticated user
	UserContextKey contextKey = "user"
	// SessionContextKey is the context key for the session
	SessionContextKey contextKey = "session"
)

// Logger is a middleware that logs requests
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// RequireLogin checks for a valid session cookie, loads the user into the
// request context, and redirects unauthenticated requests to the login
// page with a notice.
func RequireLogin(authService *auth.AuthService, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("session")
			if err != nil {
				redirectToLogin(w, r, isDev)
				return
			}

			session, err := authService.GetSession(cookie.Value)
			if err != nil {
				log.Error().Err(err).Msg("Failed to get session")
				redirectToLogin(w, r, isDev)
				return
			}
			if session == nil {
				// Clear invalid cookie
				clear := &http.Cookie{
					Name:     "session",
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				}
				ApplyCookieSecurity(clear, isDev)
				http.SetCookie(w, clear)
				redirectToLogin(w, r, isDev)
				return
			}

			user, err := authService.GetUserByID(session.UserID)
			if err != nil || user == nil {
				redirectToLogin(w, r, isDev)
				return
			}

			// Extend session on activity
			if err := authService.ExtendSession(session.ID); err != nil {
				log.Debug().Err(err).Msg("Failed to extend session")
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, SessionContextKey, session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTeacher gates teacher-only routes. The user is already
// authenticated here, so failure redirects to the dashboard rather than
// the login page.
func RequireTeacher(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if !user.IsTeacher() {
				setFlashErr(w, "You do not have permission to access this page.", isDev)
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser retrieves the user from context
func GetUser(ctx context.Context) *database.User {
	user, ok := ctx.Value(UserContextKey).(*database.User)
	if !ok {
		return nil
	}
	return user
}

// GetSession retrieves the session from context
func GetSession(ctx context.Context) *auth.Session {
	session, ok := ctx.Value(SessionContextKey).(*auth.Session)
	if !ok {
		return nil
	}
	return session
}

// ApplyCookieSecurity sets cookie attributes for the environment:
// Lax over plain HTTP in development, Secure and Strict otherwise.
func ApplyCookieSecurity(c *http.Cookie, isDev bool) {
	if isDev {
		if c.SameSite == 0 {
			c.SameSite = http.SameSiteLaxMode
		}
		return
	}
	c.Secure = true
	if c.SameSite == 0 {
		c.SameSite = http.SameSiteStrictMode
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, isDev bool) {
	setFlashErr(w, "You need to be logged in to view this page.", isDev)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func setFlashErr(w http.ResponseWriter, message string, isDev bool) {
	c := &http.Cookie{
		Name:     "flash_err",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	ApplyCookieSecurity(c, isDev)
	http.SetCookie(w, c)
}
