package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/provision"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// Deps holds what the API handlers need.
type Deps struct {
	Config       *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	People       person.Repository
	Teachers     teacher.Repository
	Groups       group.Repository
	Schedules    schedule.Repository
	Provisioner  *identity.Provisioner
	Orchestrator *provision.Orchestrator
	Dispatcher   *notify.Dispatcher
}

type Server struct {
	deps     Deps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Config, "Config"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.People, "People"),
		vala.IsNotNil(deps.Teachers, "Teachers"),
		vala.IsNotNil(deps.Groups, "Groups"),
		vala.IsNotNil(deps.Schedules, "Schedules"),
		vala.IsNotNil(deps.Provisioner, "Provisioner"),
		vala.IsNotNil(deps.Orchestrator, "Orchestrator"),
		vala.IsNotNil(deps.Dispatcher, "Dispatcher"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Config

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	admin := adminMiddleware()

	registerAuthAPI(v1, s.deps)
	registerPeopleAPI(v1, s.deps, jwt, admin)
	registerGroupAPI(v1, s.deps, jwt, admin)
	registerScheduleAPI(v1, s.deps, jwt, admin)
}

// Start blocks until the server stops. Errors other than a graceful close are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Config.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Config.AppName+" API!")
}
