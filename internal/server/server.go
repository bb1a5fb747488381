// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/mia-platform/loggia/internal/info"
	"github.com/mia-platform/loggia/pkg/conf"
	"github.com/mia-platform/loggia/pkg/loggia"
	"github.com/mia-platform/loggia/pkg/middleware"
)

const (
	accessLoggerName = middleware.AccessLogger
	errorLoggerName  = "fiber.error"
)

type Server interface {
	Start() error
	Stop() error
	Address() string
}

type impServer struct {
	config

	app *fiber.App
}

var (
	ErrServerListen   = errors.New("server listen error")
	ErrServerShutdown = errors.New("server shutdown error")
)

// NewServer reads the listening address from the environment and builds the status
// server logging through rt.
func NewServer(rt *loggia.Runtime) (Server, error) {
	cfg, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return newServer(cfg, rt), nil
}

func newServer(cfg *config, rt *loggia.Runtime) *impServer {
	errorLog := rt.Logger(errorLoggerName)
	app := fiber.New(fiber.Config{
		AppName:               info.AppName,
		DisableStartupMessage: cfg.DisableStartupMessage,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			} else {
				errorLog.Error("request failed", zap.String("http.url", c.OriginalURL()), zap.Error(err))
			}

			return c.Status(code).JSON(fiber.Map{
				"statusCode": code,
				"error":      utils.StatusMessage(code),
				"message":    err.Error(),
			})
		},
	})

	app.Use(middleware.RequestMiddlewareLogger(rt.Logger(accessLoggerName), middleware.Config{
		ExcludedPrefixes: []string{"/-/healthz", "/-/ready"},
		RequestLogger:    rt.Logger(middleware.RequestLogger),
	}))
	statusRoutes(app, rt)

	return &impServer{
		app:    app,
		config: *cfg,
	}
}

type statusResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type configResponse struct {
	Configuration *conf.Configuration   `json:"configuration"`
	Levels        map[string]conf.Level `json:"levels"`
}

func statusRoutes(app *fiber.App, rt *loggia.Runtime) {
	status := func(c *fiber.Ctx) error {
		return c.JSON(statusResponse{Status: "OK", Name: info.AppName, Version: info.Version})
	}

	app.Get("/-/healthz", status)
	app.Get("/-/ready", status)
	app.Get("/-/config", func(c *fiber.Ctx) error {
		return c.JSON(configResponse{Configuration: rt.Config(), Levels: rt.Levels()})
	})
	app.Put("/-/levels/:logger?", func(c *fiber.Ctx) error {
		name := c.Params("logger", conf.RootLogger)
		if err := rt.SetLevel(name, c.Query("level")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		middleware.FromContext(c.UserContext()).Info("logger level changed",
			zap.String("logger.target", name),
			zap.String("level", c.Query("level")),
		)
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func (s *impServer) Address() string {
	return net.JoinHostPort(s.HTTPHost, strconv.Itoa(s.HTTPPort))
}

func (s *impServer) Start() error {
	if err := s.app.Listen(s.Address()); err != nil {
		return fmt.Errorf("%w: %w", ErrServerListen, err)
	}
	return nil
}

func (s *impServer) Stop() error {
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("%w: %w", ErrServerShutdown, err)
	}
	return nil
}
