package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fintrack/internal/metrics"
	"github.com/iliyamo/fintrack/internal/ratelimit"
)

// KeyFunc derives the limiter key from a request.
type KeyFunc func(c echo.Context) string

// RateLimit rejects requests with 429 once the limiter denies the key.  A
// limiter backend error lets the request through.
func RateLimit(name string, l ratelimit.Limiter, key KeyFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := l.Allow(c.Request().Context(), name+":"+key(c))
			if err != nil {
				slog.Warn("rate limiter unavailable", "limiter", name, "error", err)
				return next(c)
			}
			SetRateLimitHeaders(c, l.Max(), res)
			if !res.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(name).Inc()
				return TooManyRequests(c, res)
			}
			return next(c)
		}
	}
}

// SetRateLimitHeaders writes X-RateLimit-* for an allowed or denied attempt.
func SetRateLimitHeaders(c echo.Context, max int, res ratelimit.Result) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(max))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

// TooManyRequests writes the 429 body shared by every limiter.
func TooManyRequests(c echo.Context, res ratelimit.Result) error {
	secs := int(math.Ceil(res.RetryAfter(time.Now()).Seconds()))
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, echo.Map{
		"error":     "too many requests, try again later",
		"resetTime": res.ResetAt.UTC().Format(time.RFC3339),
	})
}
