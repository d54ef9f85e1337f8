// Package app contains the HTTP API surface.
package app

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/castellan/castellan/internal/config"
	"github.com/castellan/castellan/internal/sec"
	"github.com/castellan/castellan/internal/storage"
)

// New creates the API server. Every request passes the bearer authenticator
// and then the authorization gate before any handler runs; the gate's rule
// order comes straight from the config.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	users storage.Users,
	login *sec.LoginService,
) *echo.Echo {
	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)

	if cfg.DevMode {
		srv.Debug = true
		srv.Use(logRequests(logger))
	} else {
		srv.Use(middleware.Recover())
	}

	srv.Use(
		middleware.Secure(),
		middleware.RequestID(),
		sec.Authenticate(login.Codec(), logger),
		sec.Authorize(sec.NewGate(cfg.Rules())),
	)

	handler{
		login:    login,
		users:    users,
		hashCost: cfg.PasswordHashCost,
		logger:   logger,
	}.register(srv)
	return srv
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(
				req.Context(),
				slog.LevelDebug,
				"request handled",
				attrs...,
			)
			return err
		}
	}
}
