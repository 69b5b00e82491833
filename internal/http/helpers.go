package http

import (
	"net/http"

	"budgeteer/internal/auth"
	"budgeteer/internal/core"
	applog "budgeteer/internal/log"
)

// requireUser resolves the bearer token and stores the caller in the
// request context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		u, err := s.resolver.Resolve(ctx, r.Header.Get("Authorization"))
		if err != nil {
			writeError(ctx, w, err, "auth")
			return
		}
		logger := applog.FromContext(ctx).With(applog.FieldOwnerID, u.ID)
		ctx = applog.WithLogger(auth.WithUser(ctx, u), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerID returns the authenticated caller. Handlers only run behind
// requireUser.
func ownerID(r *http.Request) (string, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return "", core.ErrUnauthenticated
	}
	return u.ID, nil
}

// rateLimitKey limits authenticated callers per owner and anyone else per
// client address.
func (s *Server) rateLimitKey(r *http.Request) string {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return "owner:" + u.ID
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applog.FromContext(ctx).WithComponent(applog.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		applog.FieldClientIP, s.detector.ExtractClientIP(r))
	writeJSON(ctx, w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
}
