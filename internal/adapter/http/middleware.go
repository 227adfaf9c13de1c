package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"invoicegen/internal/app"
	"invoicegen/internal/domain"
)

type contextKey string

const (
	clientContextKey  contextKey = "client"
	sessionContextKey contextKey = "session"
	requestContextKey contextKey = "request_id"

	clientCookie    = "client"
	requestIDHeader = "X-Request-Id"
	clientCookieAge = 365 * 24 * 60 * 60
)

func clientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(clientContextKey).(string)
	return id
}

func sessionFrom(ctx context.Context) domain.Session {
	sess, _ := ctx.Value(sessionContextKey).(domain.Session)
	return sess
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestContextKey).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		event := s.log.Info()
		if status >= 500 {
			event = s.log.Error()
		} else if status >= 400 {
			event = s.log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("http request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.log.Error().
					Interface("error", v).
					Str("request_id", requestIDFrom(r.Context())).
					Msg("panic recovered")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// clientMiddleware identifies the browser by its client cookie, issuing a
// fresh id when the cookie is missing or malformed.
func (s *Server) clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(clientCookie); err == nil && validClientID(c.Value) {
			id = c.Value
		} else {
			id, err = generateClientID()
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookies,
				SameSite: http.SameSiteLaxMode, // Lax required for the SSO redirect back
				MaxAge:   clientCookieAge,
			})
		}
		ctx := context.WithValue(r.Context(), clientContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// guarded applies the route guard before h runs.
func (s *Server) guarded(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Current(r.Context(), clientIDFrom(r.Context()))

		switch app.Guard(sess) {
		case app.GuardLoading:
			w.Header().Set("Retry-After", "1")
			s.render(w, r, http.StatusOK, "loading", page{Title: "Loading"})
		case app.GuardRedirect:
			http.Redirect(w, r, loginURL(r.URL.RequestURI(), sess.Expired), http.StatusFound)
		default:
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			h(w, r.WithContext(ctx))
		}
	})
}

// unauthorized forces a logout when the backend rejected the token and
// reports whether it handled err.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	s.sessions.Expire(r.Context(), clientIDFrom(r.Context()))
	next := r.URL.RequestURI()
	if r.Method != http.MethodGet {
		next = "/invoices"
	}
	http.Redirect(w, r, loginURL(next, true), http.StatusSeeOther)
	return true
}
