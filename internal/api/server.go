package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-heating/internal/command"
	"github.com/nerrad567/gray-logic-heating/internal/heating"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-heating/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HeatingService is the heating query and command surface the API exposes.
type HeatingService interface {
	GetHeatingSystem(ctx context.Context, id heating.DeviceID) (heating.HeatingSystem, error)
	GetCurrentTemperature(ctx context.Context, id heating.DeviceID) (float64, error)
	TurnOn(ctx context.Context, id heating.DeviceID) (heating.ControlState, error)
	TurnOff(ctx context.Context, id heating.DeviceID) (heating.ControlState, error)
	SetTargetTemperature(ctx context.Context, id heating.DeviceID, celsius float64) (heating.ControlState, error)
	UpdateHeatingSystem(ctx context.Context, id heating.DeviceID, view heating.HeatingSystem) (heating.HeatingSystem, error)
	Provision(ctx context.Context, state heating.ControlState) (heating.ControlState, error)
	List(ctx context.Context) ([]heating.ControlState, error)
	Remove(ctx context.Context, id heating.DeviceID) error
}

// CommandSubmitter publishes a command envelope for asynchronous execution
// and returns the topic its reply will be published on.
type CommandSubmitter interface {
	SubmitCommand(ctx context.Context, correlationID string, env command.Envelope) (string, error)
}

// TelemetrySource subscribes to the telemetry topic.
type TelemetrySource interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// HealthChecker is implemented by infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Heating  HeatingService

	// Commands enables POST /api/heating/{id}/commands. Optional.
	Commands CommandSubmitter

	// Telemetry feeds the WebSocket hub. Optional; Codec and Topics are
	// required with it.
	Telemetry TelemetrySource
	Codec     command.Codec
	Topics    mqtt.Topics
	QoS       byte

	// Checks are reported by GET /api/health, keyed by component name.
	Checks map[string]HealthChecker

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	heating   HeatingService
	commands  CommandSubmitter
	telemetry TelemetrySource
	codec     command.Codec
	topics    mqtt.Topics
	qos       byte
	checks    map[string]HealthChecker
	version   string

	hub     *Hub
	server  *http.Server
	cancel  context.CancelFunc
	handler http.Handler
	once    sync.Once
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Heating == nil {
		return nil, fmt.Errorf("heating service is required")
	}
	if deps.Telemetry != nil && deps.Codec == nil {
		return nil, fmt.Errorf("codec is required with a telemetry source")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		heating:   deps.Heating,
		commands:  deps.Commands,
		telemetry: deps.Telemetry,
		codec:     deps.Codec,
		topics:    deps.Topics,
		qos:       deps.QoS,
		checks:    deps.Checks,
		version:   deps.Version,
		hub:       NewHub(deps.WS, deps.Logger),
	}, nil
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() { s.handler = s.buildRouter() })
	return s.handler
}

// Start subscribes the telemetry feed and begins listening for HTTP
// connections in a background goroutine. Stop it with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	if err := s.subscribeTelemetry(); err != nil {
		s.logger.Warn("failed to subscribe to telemetry for WebSocket", "error", err)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
