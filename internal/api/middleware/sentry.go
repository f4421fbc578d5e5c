package middleware

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Conceptual-Machines/musicability-api/internal/logger"
	"github.com/Conceptual-Machines/musicability-api/internal/metrics"
)

const (
	requestIDHeader    = "X-Request-ID"
	requestIDKey       = "request_id"
	maxRequestIDLength = 128
	sentryFlushTimeout = 2 * time.Second
)

var sentryMetrics = metrics.NewSentryMetrics()

// RequestTracking assigns a request ID, logs the completed request and
// records it in Sentry and CloudWatch under its route pattern.
func RequestTracking(cloudwatch *metrics.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := incomingRequestID(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag(requestIDKey, requestID)
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		status := c.Writer.Status()

		logCompletion(status, logger.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"endpoint":    endpoint,
			"path":        c.Request.URL.Path,
			"status_code": status,
			"duration_ms": duration.Milliseconds(),
			"bytes":       c.Writer.Size(),
			"user_id":     c.GetString(userIDKey),
			"client_ip":   c.ClientIP(),
		})

		sentryMetrics.RecordAPIRequest(c.Request.Context(), endpoint, status, duration)
		cloudwatch.RecordAPIRequest(endpoint, status, duration)
	}
}

// incomingRequestID accepts a gateway-assigned ID only if it is short
// printable ASCII, so it can be echoed in headers and logs as-is.
func incomingRequestID(id string) string {
	if id == "" || len(id) > maxRequestIDLength {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}
	return id
}

func logCompletion(status int, fields logger.Fields) {
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("Request failed with server error", nil, fields)
	case status >= http.StatusBadRequest:
		logger.Warn("Request failed with client error", fields)
	default:
		logger.Info("Request completed", fields)
	}
}

// SentryMiddleware returns the Sentry middleware with custom configuration
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	})
}

// RecoverWithSentry turns a panic into a 500 response and reports it with
// the request and user attached.
func RecoverWithSentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := c.GetString(requestIDKey)

			if hub := sentrygin.GetHubFromContext(c); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetRequest(c.Request)
					scope.SetTag(requestIDKey, requestID)
					if userID := c.GetString(userIDKey); userID != "" {
						scope.SetUser(sentry.User{
							ID:    userID,
							Email: c.GetString(userEmailKey),
						})
					}
					hub.RecoverWithContext(c.Request.Context(), recovered)
				})
			}

			logger.Error("Panic recovered", nil, logger.Fields{
				"request_id": requestID,
				"panic":      recovered,
				"path":       c.Request.URL.Path,
			})

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
