// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	forwardedForHeaderKey = "x-forwarded-for"
	requestIDHeaderName   = "x-request-id"
	cookieHeaderName      = "cookie"

	// AccessLogger is the logger name access records are emitted on.
	AccessLogger = "fiber.access"
	// RequestLogger is the logger name handlers log on through FromContext.
	RequestLogger = "fiber.request"

	RequestCompletedMessage = "request completed"
)

// DefaultAllowedHeaders lists the request headers that are safe to log.
var DefaultAllowedHeaders = []string{
	"accept",
	"accept-encoding",
	"accept-language",
	"cache-control",
	"connection",
	"content-encoding",
	"content-language",
	"content-length",
	"content-type",
	"pragma",
}

// Config customizes the access middleware.
type Config struct {
	// ExcludedPrefixes are path prefixes that are never logged.
	ExcludedPrefixes []string
	// AllowedHeaders are logged as http.headers.<name>. The cookie header is always stripped.
	AllowedHeaders []string
	// RequestLogger is the parent of the request scoped logger. When nil, handlers
	// log on the access logger, with its level and filters.
	RequestLogger *zap.Logger
}

type requestLoggingContext interface {
	GetHeader(string) string
	Path() string
	URI() string
	QueryString() string
	Scheme() string
	Protocol() string
	Method() string
	ClientIP() string
}

type responseLoggingContext interface {
	BodySize() int
	StatusCode() int
}

type fiberLoggingContext struct {
	c          *fiber.Ctx
	handlerErr error
}

func (flc *fiberLoggingContext) GetHeader(key string) string {
	return flc.c.Get(key, "")
}

func (flc *fiberLoggingContext) Path() string {
	return string(flc.c.Request().URI().Path())
}

func (flc *fiberLoggingContext) URI() string {
	return string(flc.c.Request().URI().RequestURI())
}

func (flc *fiberLoggingContext) QueryString() string {
	return string(flc.c.Request().URI().QueryString())
}

func (flc *fiberLoggingContext) Scheme() string {
	return flc.c.Protocol()
}

func (flc *fiberLoggingContext) Protocol() string {
	return string(flc.c.Request().Header.Protocol())
}

func (flc *fiberLoggingContext) Method() string {
	return flc.c.Method()
}

func (flc *fiberLoggingContext) ClientIP() string {
	if forwarded := flc.GetHeader(forwardedForHeaderKey); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return flc.c.IP()
}

func (flc *fiberLoggingContext) fiberError() *fiber.Error {
	var fiberErr *fiber.Error
	if errors.As(flc.handlerErr, &fiberErr) {
		return fiberErr
	}
	return nil
}

func (flc *fiberLoggingContext) BodySize() int {
	if fiberErr := flc.fiberError(); fiberErr != nil {
		return len(fiberErr.Error())
	}

	if content := flc.c.GetRespHeader("Content-Length"); content != "" {
		if length, err := strconv.Atoi(content); err == nil {
			return length
		}
	}
	return len(flc.c.Response().Body())
}

func (flc *fiberLoggingContext) StatusCode() int {
	if fiberErr := flc.fiberError(); fiberErr != nil {
		return fiberErr.Code
	}
	if flc.handlerErr != nil {
		return fiber.StatusInternalServerError
	}

	return flc.c.Response().StatusCode()
}

// RequestID returns the incoming x-request-id header, or a freshly generated uuid.
func RequestID(request requestLoggingContext) string {
	if requestID := request.GetHeader(requestIDHeaderName); requestID != "" {
		return requestID
	}

	requestID, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return requestID.String()
}

func requestFields(request requestLoggingContext, requestID string, allowedHeaders []string) []zap.Field {
	fields := []zap.Field{
		zap.String("http.method", request.Method()),
		zap.String("http.url", request.URI()),
		zap.String("http.url_details.path", request.Path()),
		zap.String("http.url_details.queryString", request.QueryString()),
		zap.String("http.url_details.scheme", request.Scheme()),
		zap.String("http.version", request.Protocol()),
		zap.String("http.useragent", request.GetHeader("user-agent")),
		zap.String("http.referer", request.GetHeader("referer")),
		zap.String("http.request_id", requestID),
		zap.String("network.client.ip", request.ClientIP()),
	}

	for _, header := range allowedHeaders {
		header = strings.ToLower(header)
		if header == cookieHeaderName {
			continue
		}
		if value := request.GetHeader(header); value != "" {
			fields = append(fields, zap.String("http.headers."+header, value))
		}
	}
	return fields
}

func completedLevel(status int) zapcore.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func logRequestCompleted(logger *zap.Logger, request requestLoggingContext, response responseLoggingContext, fields []zap.Field, elapsed time.Duration) {
	status := response.StatusCode()
	checked := logger.Check(completedLevel(status), RequestCompletedMessage)
	if checked == nil {
		return
	}

	checked.Write(append(fields,
		zap.Int("http.status_code", status),
		zap.Int("http.response_length", response.BodySize()),
		zap.Int64("duration", elapsed.Nanoseconds()),
	)...)
}

// RequestMiddlewareLogger is a fiber middleware logging every completed request on logger.
// The request scoped logger is made available to handlers through FromContext.
func RequestMiddlewareLogger(logger *zap.Logger, config Config) fiber.Handler {
	allowedHeaders := config.AllowedHeaders
	if allowedHeaders == nil {
		allowedHeaders = DefaultAllowedHeaders
	}

	requestLogger := config.RequestLogger
	if requestLogger == nil {
		requestLogger = logger
	}

	return func(fiberCtx *fiber.Ctx) error {
		flc := &fiberLoggingContext{c: fiberCtx}

		path := flc.Path()
		if slices.ContainsFunc(config.ExcludedPrefixes, func(prefix string) bool { return strings.HasPrefix(path, prefix) }) {
			return fiberCtx.Next()
		}

		start := time.Now()
		requestID := RequestID(flc)
		fields := requestFields(flc, requestID, allowedHeaders)

		fiberCtx.SetUserContext(WithContext(fiberCtx.UserContext(), requestLogger.With(zap.String("http.request_id", requestID))))

		err := fiberCtx.Next()
		flc.handlerErr = err

		logRequestCompleted(logger, flc, flc, fields, time.Since(start))
		return err
	}
}
