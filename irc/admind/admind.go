// Package admind serves the optional HTTP admin endpoint: a JSON status
// snapshot and Prometheus metrics, behind basic auth when a password hash
// is configured.
package admind

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/config"
)

// Server is the admin HTTP endpoint.
type Server struct {
	echo *echo.Echo
	irc  *irc.Server
	cfg  *config.Config
	log  zerolog.Logger
}

// New builds the admin endpoint for a running IRC server.
func New(ircServer *irc.Server, cfg *config.Config, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		irc:  ircServer,
		cfg:  cfg,
		log:  log,
	}

	if cfg.Admin.PasswordHash != "" {
		e.Use(middleware.BasicAuth(s.checkCredentials))
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/status", s.handleStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		ircServer.Stats().Registry, promhttp.HandlerOpts{})))

	return s
}

// checkCredentials verifies basic-auth credentials against the configured
// username and bcrypt password hash.
func (s *Server) checkCredentials(username, password string, _ echo.Context) (bool, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Admin.Username)) != 1 {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Admin.PasswordHash), []byte(password))
	return err == nil, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.irc.Stats().Snapshot())
}

// Start serves the endpoint on the configured address. It blocks until the
// listener fails or Stop is called.
func (s *Server) Start() error {
	addr := s.cfg.AdminListenAddress()
	s.log.Info().Str("addr", addr).Msg("admin endpoint started")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin endpoint failed: %w", err)
	}
	return nil
}

// Stop shuts the endpoint down.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
