package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"volunteerhub/internal"
	"volunteerhub/pkg/types"

	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyEmail  contextKey = "email"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// accessToken reads the bearer token from the Authorization header or,
// failing that, from the encrypted session cookie.
func (s *Service) accessToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errMalformedAuthorization
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(internal.COOKIE_ACCESS_TOKEN_NAME)
	if err != nil {
		return "", err
	}

	var accessToken string
	err = s.cookie.Decode(internal.COOKIE_ACCESS_TOKEN_NAME, cookie.Value, &accessToken)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

// RequireAuth verifies the access token and adds the caller to the context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := s.accessToken(r)
		if err != nil {
			s.logger.WithError(err).Debug("no usable access token")
			s.writeErrorStatus(w, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		identity, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.logger.WithError(err).Info("failed to verify access token")
			s.writeErrorStatus(w, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyUserID, identity.UserID)
		if identity.Email != "" {
			ctx = context.WithValue(ctx, contextKeyEmail, identity.Email)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": identity.UserID,
			"email":   identity.Email,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callerID returns the authenticated user or writes a 401.
func (s *Service) callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.userIDFromContext(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("user id not found in context")
		s.writeError(w, r, types.ErrNotAuthorized)
		return "", false
	}
	return userID, true
}
