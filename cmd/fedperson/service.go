package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bluesky-social/fedperson/personstore"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	logger *slog.Logger
	store  *personstore.Store
	config ServiceConfig
	echo   *echo.Echo
}

type ServiceConfig struct {
	Bind          string
	MetricsListen string

	// verified against Basic admin auth
	AdminPassword string

	// HTTP request metrics are registered here
	Registerer prometheus.Registerer

	// how long to wait for in-flight requests on shutdown
	ShutdownTimeout time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Bind:            ":8536",
		MetricsListen:   ":8537",
		Registerer:      prometheus.DefaultRegisterer,
		ShutdownTimeout: 10 * time.Second,
	}
}

func NewService(store *personstore.Store, config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	svc := &Service{
		logger: slog.Default().With("system", "api"),
		store:  store,
		config: *config,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(svc.logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("fedperson"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "fedperson",
		Registerer: config.Registerer,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = svc.errorHandler

	e.GET("/_health", svc.HandleHealthCheck)
	e.GET("/metrics", echoprometheus.NewHandler())

	e.POST("/person", svc.HandleCreatePerson)
	e.POST("/person/upsert", svc.HandleUpsertPerson)
	e.GET("/person/by-ap-id", svc.HandleGetPersonByApID)
	e.GET("/person/by-name/:name", svc.HandleGetPersonByLocalName)
	e.GET("/person/resolve", svc.HandleResolvePerson)
	e.GET("/person/name-available", svc.HandleNameAvailable)
	e.GET("/person/:id", svc.HandleGetPerson)
	e.PATCH("/person/:id", svc.HandleUpdatePerson)
	e.DELETE("/person/:id", svc.HandleDeletePerson)
	e.GET("/person/:id/url", svc.HandleGetPersonURL)
	e.GET("/person/:id/communities", svc.HandleListCommunities)
	e.GET("/person/:id/followers", svc.HandleListFollowers)

	e.POST("/follow", svc.HandleFollow)
	e.POST("/unfollow", svc.HandleUnfollow)
	e.POST("/block", svc.HandleBlock)
	e.POST("/unblock", svc.HandleUnblock)

	admin := e.Group("/admin", svc.checkAdminAuth)
	admin.DELETE("/person/:id", svc.HandleAdminPurgePerson)

	svc.echo = e
	return svc
}

// Run serves the API and metrics listeners until the context is cancelled or either server fails,
// then shuts both down.
func (svc *Service) Run(ctx context.Context) error {
	httpd := &http.Server{
		Addr:           svc.config.Bind,
		Handler:        svc.echo,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 << 20,
	}
	metricsd := &http.Server{
		Addr:    svc.config.MetricsListen,
		Handler: promhttp.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{httpd, metricsd} {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listening on %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		svc.logger.Info("shutting down HTTP servers")
		sctx, cancel := context.WithTimeout(context.Background(), svc.config.ShutdownTimeout)
		defer cancel()
		return errors.Join(httpd.Shutdown(sctx), metricsd.Shutdown(sctx))
	})
	return g.Wait()
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorHandler maps store errors onto HTTP status codes.
func (svc *Service) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	body := errorBody{Error: "InternalError"}

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		body.Error = http.StatusText(code)
		body.Message = fmt.Sprint(httpErr.Message)
	case errors.Is(err, personstore.ErrNotFound):
		code = http.StatusNotFound
		body.Error = "NotFound"
	case errors.Is(err, personstore.ErrUsernameAlreadyExists):
		code = http.StatusConflict
		body.Error = "UsernameAlreadyExists"
	case errors.Is(err, personstore.ErrUniqueViolation):
		code = http.StatusConflict
		body.Error = "Conflict"
	case errors.Is(err, personstore.ErrInvalidURL), errors.Is(err, personstore.ErrMissingExternalID), errors.Is(err, personstore.ErrExternalIDChanged):
		code = http.StatusBadRequest
		body.Error = "BadRequest"
		body.Message = err.Error()
	case errors.Is(err, personstore.ErrInvalidPassword):
		code = http.StatusUnauthorized
		body.Error = "Unauthorized"
	case errors.Is(err, personstore.ErrConnectivity):
		code = http.StatusServiceUnavailable
		body.Error = "Unavailable"
	}

	if code >= 500 {
		svc.logger.Error("API handler error", "path", c.Path(), "err", err)
	}
	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, body); err != nil {
		svc.logger.Error("failed to write http error", "err", err)
	}
}

func (svc *Service) checkAdminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	expected := []byte("admin:" + svc.config.AdminPassword)
	return func(c echo.Context) error {
		user, pass, ok := c.Request().BasicAuth()
		if !ok || svc.config.AdminPassword == "" || subtle.ConstantTimeCompare([]byte(user+":"+pass), expected) != 1 {
			return echo.ErrForbidden
		}
		return next(c)
	}
}
