package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"routeplan/internal/auth"
	"routeplan/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == http.StatusOK {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// route registers h and records metrics under the route pattern rather than the raw path.
func (s *Server) route(router *httprouter.Router, method, pattern string, h httprouter.Handle) {
	router.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, ps)
		code := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(method, pattern, code).Inc()
		metrics.HTTPDuration.WithLabelValues(method, pattern, code).Observe(time.Since(start).Seconds())
	})
}

type ctxKeyPrincipal struct{}

// authed verifies the bearer token (or access_token query parameter, for
// EventSource and websocket clients) before calling h.
func (s *Server) authed(h httprouter.Handle, write bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tok := ""
		if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			tok = strings.TrimSpace(authz[len("Bearer "):])
		} else if v := r.URL.Query().Get("access_token"); v != "" {
			tok = v
		}
		pr, err := s.Auth.Verify(tok)
		if err != nil {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
			return
		}
		if write && !pr.CanWrite() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "planner or admin role required", r.URL.Path)
			return
		}
		h(w, r.WithContext(withPrincipal(r.Context(), pr)), ps)
	}
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.Log.Error("panic serving request", zap.String("path", r.URL.Path), zap.Any("panic", err))
				writeProblem(w, http.StatusInternalServerError, "Internal Server Error", fmt.Sprint(err), r.URL.Path)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withPrincipal(ctx context.Context, pr auth.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal{}, pr)
}

// PrincipalFrom returns the caller verified by the auth middleware.
func PrincipalFrom(ctx context.Context) (auth.Principal, bool) {
	pr, ok := ctx.Value(ctxKeyPrincipal{}).(auth.Principal)
	return pr, ok
}
