package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// accessEntry collects what the inner handlers learn about a request so it
// can be logged once the response is written.
type accessEntry struct {
	http.ResponseWriter
	status int
	bytes  int
	user   string
}

func (e *accessEntry) WriteHeader(code int) {
	e.status = code
	e.ResponseWriter.WriteHeader(code)
}

func (e *accessEntry) Write(b []byte) (int, error) {
	n, err := e.ResponseWriter.Write(b)
	e.bytes += n
	return n, err
}

type accessKey struct{}

// noteUser records the authenticated username on the access log entry for
// the request, if AccessLog is installed.
func noteUser(ctx context.Context, username string) {
	if e, ok := ctx.Value(accessKey{}).(*accessEntry); ok {
		e.user = username
	}
}

// credentialKind names how the caller tried to authenticate.
func credentialKind(r *http.Request) string {
	switch {
	case r.Header.Get(APITokenHeader) != "":
		return "api-token"
	case bearerToken(r) != "":
		return "bearer"
	default:
		return "none"
	}
}

// AccessLog writes one line per API call. Chore calls that fail validation
// or hit a plan restriction log at warn, throttled callers at info and
// server faults at error. The authenticated user is attached when
// RequireToken resolved one.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			e := &accessEntry{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(e, r.WithContext(context.WithValue(r.Context(), accessKey{}, e)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", e.status),
				slog.Int("bytes", e.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", RealIP(r)),
				slog.String("credential", credentialKind(r)),
			}
			if e.user != "" {
				attrs = append(attrs, slog.String("user", e.user))
			}
			if id := r.Header.Get("X-Request-ID"); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelDebug
			switch {
			case e.status >= 500:
				level = slog.LevelError
			case e.status == http.StatusTooManyRequests:
				level = slog.LevelInfo
			case e.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "api call", attrs...)
		})
	}
}
