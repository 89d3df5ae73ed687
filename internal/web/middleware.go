package web

import (
	"net/http"
	"strconv"
	"time"

	"cryptonics/internal/currency"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey   = contextKey("logger")
	currencyKey = contextKey("currency")
)

// RequestLogger injects a request-scoped zap logger and logs completion.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		requestLogger := base.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.Header("X-Request-ID", requestID)
		c.Set(string(loggerKey), requestLogger)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			requestLogger.Warn("request completed", fields...)
		default:
			requestLogger.Info("request completed", fields...)
		}
	}
}

// LoggerFrom returns the request-scoped logger, or a no-op logger outside
// RequestLogger.
func LoggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(string(loggerKey)); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// Recovery logs panics with the request logger and answers 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		LoggerFrom(c).Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// SecureHeaders sets conservative browser security headers.
func SecureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; "+
				"script-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:")
		c.Next()
	}
}

// RateLimit limits requests per client IP.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		lctx, err := l.Get(c.Request.Context(), ip)
		if err != nil {
			LoggerFrom(c).Error("rate limit check failed", zap.String("ip", ip), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))

		if lctx.Reached {
			LoggerFrom(c).Warn("rate limit exceeded", zap.String("ip", ip), zap.Int64("limit", lctx.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please try again later"})
			return
		}

		c.Next()
	}
}

// CORS allows cross-origin reads of the JSON API.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}

// Session assigns each browser a random session id cookie and loads its
// currency preference.
func Session(store currency.Store, cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := c.Cookie(cookieName)
		if _, perr := uuid.Parse(session); err != nil || perr != nil {
			session = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, session, int((365 * 24 * time.Hour).Seconds()), "/", "", secure, true)
		}

		cur, err := currency.Load(c.Request.Context(), store, session)
		if err != nil {
			LoggerFrom(c).Warn("using default currency", zap.Error(err))
		}
		c.Set(string(currencyKey), cur)

		c.Next()
	}
}

// CurrencyFrom returns the session currency context set by Session.
func CurrencyFrom(c *gin.Context) *currency.Context {
	if v, ok := c.Get(string(currencyKey)); ok {
		if cur, ok := v.(*currency.Context); ok {
			return cur
		}
	}
	cur, _ := currency.Load(c.Request.Context(), nil, "")
	return cur
}
