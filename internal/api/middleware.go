package api

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs HTTP requests with method, path, status, duration, and request ID
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		requestID := GetRequestID(r.Context())

		log.Printf(
			"method=%s path=%s status=%d duration=%s request_id=%s",
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			duration,
			requestID,
		)
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// clientLimiter hands out one token bucket per remote host, dropping idle
// buckets after an hour.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientEntry
	rps      rate.Limit
	burst    int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	cl := &clientLimiter{
		limiters: make(map[string]*clientEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go cl.evictLoop()
	return cl
}

func (cl *clientLimiter) get(host string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	entry, ok := cl.limiters[host]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.limiters[host] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (cl *clientLimiter) evictLoop() {
	for range time.Tick(10 * time.Minute) {
		cl.mu.Lock()
		for host, entry := range cl.limiters {
			if time.Since(entry.lastSeen) > time.Hour {
				delete(cl.limiters, host)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimitMiddleware rejects clients exceeding their token bucket with 429.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	cl := newClientLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !cl.get(host).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please retry later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
