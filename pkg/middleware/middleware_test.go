// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestApp(t *testing.T, config Config) (*fiber.App, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Named(AccessLogger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestMiddlewareLogger(logger, config))
	app.Get("/-/healthz", func(c *fiber.Ctx) error { return c.SendString("OK") })
	app.Get("/items", func(c *fiber.Ctx) error {
		FromContext(c.UserContext()).Debug("handling items")
		return c.Status(fiber.StatusCreated).SendString("created")
	})
	app.Get("/missing", func(*fiber.Ctx) error { return fiber.ErrNotFound })
	app.Get("/broken", func(*fiber.Ctx) error { return assert.AnError })

	return app, logs
}

func TestRequestMiddlewareLogger(t *testing.T) {
	t.Parallel()

	app, logs := newTestApp(t, Config{ExcludedPrefixes: []string{"/-/"}})

	req := httptest.NewRequest(http.MethodGet, "http://example.com/items?page=2", nil)
	req.Header.Set("User-Agent", "UnitTestAgent/1.0")
	req.Header.Set("Referer", "http://example.com/")
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cookie", "session=secret")
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	handlerLogs := logs.FilterMessage("handling items").All()
	require.Len(t, handlerLogs, 1)
	assert.Equal(t, "req-1", handlerLogs[0].ContextMap()["http.request_id"])

	records := logs.FilterMessage(RequestCompletedMessage).All()
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, zapcore.InfoLevel, record.Level)
	assert.Equal(t, AccessLogger, record.LoggerName)

	fields := record.ContextMap()
	assert.Equal(t, http.MethodGet, fields["http.method"])
	assert.Equal(t, "/items?page=2", fields["http.url"])
	assert.Equal(t, "/items", fields["http.url_details.path"])
	assert.Equal(t, "page=2", fields["http.url_details.queryString"])
	assert.Equal(t, "http", fields["http.url_details.scheme"])
	assert.Equal(t, "UnitTestAgent/1.0", fields["http.useragent"])
	assert.Equal(t, "http://example.com/", fields["http.referer"])
	assert.Equal(t, "req-1", fields["http.request_id"])
	assert.Equal(t, "10.0.0.1", fields["network.client.ip"])
	assert.Equal(t, int64(http.StatusCreated), fields["http.status_code"])
	assert.Equal(t, int64(len("created")), fields["http.response_length"])
	assert.Equal(t, "text/plain", fields["http.headers.accept"])
	assert.Contains(t, fields, "duration")
	assert.NotContains(t, fields, "http.headers.cookie")
	assert.NotContains(t, fields, "http.headers.authorization")
}

func TestRequestMiddlewareStatusLevels(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		path          string
		expectedLevel zapcore.Level
		expectedCode  int64
	}{
		"fiber error": {
			path:          "/missing",
			expectedLevel: zapcore.WarnLevel,
			expectedCode:  http.StatusNotFound,
		},
		"plain error": {
			path:          "/broken",
			expectedLevel: zapcore.ErrorLevel,
			expectedCode:  http.StatusInternalServerError,
		},
		"unknown route": {
			path:          "/nowhere",
			expectedLevel: zapcore.WarnLevel,
			expectedCode:  http.StatusNotFound,
		},
	}

	for name, test := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			app, logs := newTestApp(t, Config{})
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, test.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			records := logs.FilterMessage(RequestCompletedMessage).All()
			require.Len(t, records, 1)
			assert.Equal(t, test.expectedLevel, records[0].Level)
			assert.Equal(t, test.expectedCode, records[0].ContextMap()["http.status_code"])
		})
	}
}

func TestRequestMiddlewareExclusionsAndIDs(t *testing.T) {
	t.Parallel()

	app, logs := newTestApp(t, Config{
		ExcludedPrefixes: []string{"/-/"},
		AllowedHeaders:   []string{"Cookie", "X-Tenant"},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/-/healthz", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Zero(t, logs.Len())

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Cookie", "session=secret")
	req.Header.Set("X-Tenant", "acme")
	resp, err = app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()

	records := logs.FilterMessage(RequestCompletedMessage).All()
	require.Len(t, records, 1)
	fields := records[0].ContextMap()
	assert.Equal(t, "acme", fields["http.headers.x-tenant"])
	assert.NotContains(t, fields, "http.headers.cookie")
	assert.NotContains(t, fields, "http.headers.accept")

	requestID, ok := fields["http.request_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(requestID)
	assert.NoError(t, err)
}

func TestRequestLoggerIsSeparateFromAccessLogger(t *testing.T) {
	t.Parallel()

	accessCore, accessLogs := observer.New(zapcore.WarnLevel)
	requestCore, requestLogs := observer.New(zapcore.InfoLevel)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestMiddlewareLogger(zap.New(accessCore).Named(AccessLogger), Config{
		RequestLogger: zap.New(requestCore).Named(RequestLogger),
	}))
	app.Get("/items", func(c *fiber.Ctx) error {
		FromContext(c.UserContext()).Info("listing items")
		return c.SendString("items")
	})

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("X-Request-Id", "req-2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()

	// a successful request is below the access logger level
	assert.Zero(t, accessLogs.Len())

	entries := requestLogs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "listing items", entries[0].Message)
	assert.Equal(t, RequestLogger, entries[0].LoggerName)
	assert.Equal(t, "req-2", entries[0].ContextMap()["http.request_id"])
}

func TestFromContextWithoutLogger(t *testing.T) {
	t.Parallel()

	//nolint:staticcheck // nil context is part of the contract
	logger := FromContext(nil)
	require.NotNil(t, logger)
	logger.Info("discarded")
}
